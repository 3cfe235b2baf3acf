package block_manager

import (
	"errors"
	"fmt"
	"io"
	"os"

	lru_cache "stampdb/lsm/lru_cache"
	block_location "stampdb/model/block_location"
)

// BLOCK_SIZE is the granularity of every read served by the manager.
const BLOCK_SIZE = 32768

var (
	// ErrShortBlock is returned when a file ends inside a block: a read
	// that yields neither zero nor BLOCK_SIZE bytes.
	ErrShortBlock = errors.New("short block read")
)

// Manager serves whole-block reads from immutable table files, with an
// LRU cache in front keyed by (path, block index). Only table files go
// through the manager - they never change after creation, so a cached
// block can never go stale. The log keeps its own sequential buffer.
type Manager struct {
	blockCache *lru_cache.LRUCache[block_location.BlockLocation, []byte]
}

// NewManager creates a Manager whose cache holds up to cacheSize
// blocks. A zero cacheSize disables caching.
func NewManager(cacheSize uint32) *Manager {
	return &Manager{
		blockCache: lru_cache.NewLRUCache[block_location.BlockLocation, []byte](cacheSize),
	}
}

// ReadBlock returns block location.BlockIndex of the file at
// location.FilePath. It returns
// io.EOF when the file ends exactly at the block boundary, and
// ErrShortBlock when the file ends partway through the block.
func (bm *Manager) ReadBlock(location block_location.BlockLocation) ([]byte, error) {
	cachedBlock, err := bm.blockCache.Get(location)
	if err == nil {
		return cachedBlock, nil
	}

	block, err := bm.readBlockFromDisk(location)
	if err != nil {
		return nil, err
	}

	bm.blockCache.Put(location, block)
	return block, nil
}

// readBlockFromDisk performs the uncached read.
func (bm *Manager) readBlockFromDisk(location block_location.BlockLocation) ([]byte, error) {
	file, err := os.Open(location.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", location.FilePath, err)
	}
	defer file.Close()

	offset := int64(location.BlockIndex) * BLOCK_SIZE
	data := make([]byte, BLOCK_SIZE)

	n, err := file.ReadAt(data, offset)
	if n == BLOCK_SIZE {
		return data, nil
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read block %d of %s: %w", location.BlockIndex, location.FilePath, err)
	}
	if n == 0 {
		return nil, io.EOF
	}
	return nil, fmt.Errorf("block %d of %s is %d bytes: %w", location.BlockIndex, location.FilePath, n, ErrShortBlock)
}
