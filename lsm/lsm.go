package lsm

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	block_manager "stampdb/lsm/block_manager"
	cache "stampdb/lsm/cache"
	file_manager "stampdb/lsm/file_manager"
	memtable "stampdb/lsm/memtable"
	"stampdb/lsm/sstable"
	"stampdb/utils/config"
)

// Configuration variables loaded from config file
var (
	BLOCK_CACHE_SIZE uint64
)

// init loads the engine settings from the config
func init() {
	cfg := config.GetConfig()
	BLOCK_CACHE_SIZE = cfg.BlockManager.CacheSize
}

var (
	// ErrNotFound is returned by Lookup for an unknown timestamp.
	ErrNotFound = errors.New("timestamp not found")
)

/*
DB is the storage engine: an ordered memtable fronting the current log
file, plus the immutable table files promoted from earlier logs.

Writes go to the log first and the in-memory map second, so anything a
caller saw succeed is recoverable. Reads consult the memtable, then the
read-path cache, then every table newest-first.

A DB owns its directory exclusively. Two live engines on one directory
race on file numbering; nothing enforces mutual exclusion.
*/
type DB struct {
	fileManager  *file_manager.FileManager
	memtable     *memtable.MemTable
	blockManager *block_manager.Manager
	readCache    *cache.ReadPathCache
	logger       *zap.Logger

	// mu serializes writers around the log append + map insert; table
	// files are immutable, so readers only need the read half.
	mu sync.RWMutex
}

// Open opens or creates the store rooted at directory and runs
// recovery: a log left behind by an earlier process is replayed and its
// contents promoted into a fresh table before a new log is started.
func Open(directory string) (*DB, error) {
	return OpenWithLogger(directory, nil)
}

// OpenWithLogger is Open with a caller-supplied logger. A nil logger
// keeps the engine silent.
func OpenWithLogger(directory string, logger *zap.Logger) (*DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	fileManager, err := file_manager.OpenOrCreate(directory)
	if err != nil {
		return nil, err
	}

	db := &DB{
		fileManager:  fileManager,
		blockManager: block_manager.NewManager(uint32(BLOCK_CACHE_SIZE)),
		readCache:    cache.NewReadPathCache(),
		logger:       logger,
	}

	if err := db.recover(); err != nil {
		return nil, err
	}

	logPath := fileManager.NewLogFile()
	mt, err := memtable.Create(logPath)
	if err != nil {
		return nil, err
	}
	db.memtable = mt

	logger.Info("opened store",
		zap.String("directory", directory),
		zap.String("log", logPath),
		zap.Int("tables", len(fileManager.TablePaths())))
	return db, nil
}

// recover replays the latest log, if any, and promotes its contents
// into a fresh table. The old log is left in place: the higher-numbered
// log about to be created makes it invisible to the next open, so a
// crash between promotion and the new log loses nothing.
func (db *DB) recover() error {
	logPath, ok := db.fileManager.LatestLog()
	if !ok {
		return nil
	}

	recovered, err := memtable.Replay(logPath)
	if err != nil {
		return fmt.Errorf("failed to recover log %s: %w", logPath, err)
	}
	defer recovered.Close()

	if recovered.Len() == 0 {
		return nil
	}

	tablePath := db.fileManager.NewTableFile()
	if err := sstable.Write(tablePath, recovered); err != nil {
		return fmt.Errorf("failed to promote log %s: %w", logPath, err)
	}

	db.logger.Info("promoted recovered log",
		zap.String("log", logPath),
		zap.String("table", tablePath),
		zap.Int("records", recovered.Len()))
	return nil
}

// Record durably stores the value for the timestamp, overwriting any
// prior value for that timestamp in the current memtable.
func (db *DB) Record(timestamp uint64, value uint64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if err := db.memtable.Record(timestamp, value); err != nil {
		return err
	}
	db.readCache.Invalidate(timestamp)
	return nil
}

// Lookup returns the value stored for the timestamp. A timestamp the
// store has never seen fails with ErrNotFound.
func (db *DB) Lookup(timestamp uint64) (uint64, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if value, ok := db.memtable.Lookup(timestamp); ok {
		return value, nil
	}

	if value, err := db.readCache.Get(timestamp); err == nil {
		return value, nil
	}

	// Later tables hold newer data for a duplicated timestamp, so the
	// scan runs newest-first and the first match wins.
	for _, path := range db.fileManager.TablePathsNewestFirst() {
		value, found, err := sstable.Get(path, db.blockManager, timestamp)
		if err != nil {
			return 0, err
		}
		if found {
			db.readCache.Put(timestamp, value)
			return value, nil
		}
	}

	return 0, fmt.Errorf("no value for timestamp %d: %w", timestamp, ErrNotFound)
}

// Close syncs and releases the current log. The DB must not be used
// afterwards.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.memtable.Close()
}
