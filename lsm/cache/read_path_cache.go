package cache

import (
	lru_cache "stampdb/lsm/lru_cache"
	"stampdb/utils/config"
)

// Configuration variables loaded from config file
var (
	READ_PATH_CACHE_CAPACITY uint64
)

// init loads cache configuration from config file
func init() {
	cfg := config.GetConfig()
	READ_PATH_CACHE_CAPACITY = cfg.Cache.ReadPathCapacity
}

// ReadPathCache wraps the LRU cache for the read path. It stores
// timestamp/value pairs read back from table files, so repeated lookups
// of cold keys skip the table scans. It is only ever consulted after
// the memtable, which keeps newer in-memory writes authoritative.
type ReadPathCache struct {
	cache *lru_cache.LRUCache[uint64, uint64]
}

// NewReadPathCache creates a new cache for the read path.
func NewReadPathCache() *ReadPathCache {
	return &ReadPathCache{
		cache: lru_cache.NewLRUCache[uint64, uint64](uint32(READ_PATH_CACHE_CAPACITY)),
	}
}

// Get retrieves a cached value.
func (rpc *ReadPathCache) Get(timestamp uint64) (uint64, error) {
	return rpc.cache.Get(timestamp)
}

// Put stores a value read from a table.
func (rpc *ReadPathCache) Put(timestamp uint64, value uint64) error {
	return rpc.cache.Put(timestamp, value)
}

// Invalidate removes a timestamp from the cache (used when the key is
// overwritten by a new write).
func (rpc *ReadPathCache) Invalidate(timestamp uint64) {
	rpc.cache.Remove(timestamp) // Ignore error if key doesn't exist
}

// Size returns current cache size.
func (rpc *ReadPathCache) Size() uint32 {
	return rpc.cache.Size()
}

// Capacity returns cache capacity.
func (rpc *ReadPathCache) Capacity() uint32 {
	return rpc.cache.Capacity()
}
