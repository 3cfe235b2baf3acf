package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// CONFIG_FILE_NAME is looked up in the working directory. The on-disk
// formats (block size, record size, footer width) are compile-time
// constants and deliberately absent from here.
const CONFIG_FILE_NAME = "stampdb.json"

// DBConfig holds all tunable engine parameters.
type DBConfig struct {
	Memtable struct {
		// MemtableType selects the ordered-map implementation:
		// "skiplist" or "hashmap".
		MemtableType string `json:"memtable_type"`
	} `json:"memtable"`

	Cache struct {
		// ReadPathCapacity is the number of key/value pairs cached from
		// table reads. Zero disables the read-path cache.
		ReadPathCapacity uint64 `json:"read_path_capacity"`
	} `json:"cache"`

	BlockManager struct {
		// CacheSize is the number of table blocks kept in the LRU block
		// cache. Zero disables block caching.
		CacheSize uint64 `json:"cache_size"`
	} `json:"block_manager"`
}

var (
	instance *DBConfig
	once     sync.Once
)

// GetConfig returns the singleton config instance.
func GetConfig() *DBConfig {
	once.Do(func() {
		instance = loadConfig()
	})
	return instance
}

// loadConfig loads configuration from the JSON file in the working
// directory, falling back to defaults when it is absent or unreadable.
func loadConfig() *DBConfig {
	if _, err := os.Stat(CONFIG_FILE_NAME); os.IsNotExist(err) {
		return getDefaultConfig()
	}

	config, err := readConfigFile(CONFIG_FILE_NAME)
	if err != nil {
		fmt.Printf("Warning: Failed to read config file, using defaults: %v\n", err)
		return getDefaultConfig()
	}

	if err := ValidateConfig(config); err != nil {
		fmt.Printf("Warning: Invalid config file, using defaults: %v\n", err)
		return getDefaultConfig()
	}

	return config
}

// readConfigFile parses a config file at an explicit path.
func readConfigFile(path string) (*DBConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %v", err)
	}

	var config DBConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %v", err)
	}
	return &config, nil
}

// getDefaultConfig returns default configuration values.
func getDefaultConfig() *DBConfig {
	config := &DBConfig{}

	// Memtable defaults
	config.Memtable.MemtableType = "skiplist" // skiplist, hashmap

	// Cache defaults
	config.Cache.ReadPathCapacity = 1000

	// BlockManager defaults
	config.BlockManager.CacheSize = 100

	return config
}

// SaveConfigToFile saves config to a JSON file.
func SaveConfigToFile(config *DBConfig, filePath string) error {
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %v", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %v", err)
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %v", err)
	}

	return nil
}

// ValidateConfig performs basic validation on config values.
func ValidateConfig(config *DBConfig) error {
	memtableTypes := []string{"skiplist", "hashmap"}
	validType := false
	for _, t := range memtableTypes {
		if config.Memtable.MemtableType == t {
			validType = true
			break
		}
	}
	if !validType {
		return fmt.Errorf("memtable_type must be one of: skiplist, hashmap")
	}

	return nil
}
