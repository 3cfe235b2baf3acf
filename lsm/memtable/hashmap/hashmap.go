package hashmap

import (
	"slices"

	mi "stampdb/lsm/memtable/memtable_interface"
)

// Compile-time assertion that HashMap implements the Memtable interface.
var _ mi.Memtable = (*HashMap)(nil)

// HashMap is a minimal Memtable implementation backed by a Go map.
// Point operations are O(1); ordered iteration sorts the keys on
// demand, which is acceptable because Ascend runs once per promotion.
type HashMap struct {
	data map[uint64]uint64
}

// NewHashMap creates an empty HashMap memtable.
func NewHashMap() *HashMap {
	return &HashMap{
		data: make(map[uint64]uint64),
	}
}

// Put inserts or overwrites the value for the key.
func (hm *HashMap) Put(key uint64, value uint64) {
	hm.data[key] = value
}

// Get returns the value for the key and whether it is present.
func (hm *HashMap) Get(key uint64) (uint64, bool) {
	value, ok := hm.data[key]
	return value, ok
}

// Len returns the number of distinct keys present.
func (hm *HashMap) Len() int {
	return len(hm.data)
}

// Ascend calls fn for every key-value pair in ascending key order.
func (hm *HashMap) Ascend(fn func(key uint64, value uint64) error) error {
	keys := make([]uint64, 0, len(hm.data))
	for k := range hm.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		if err := fn(k, hm.data[k]); err != nil {
			return err
		}
	}
	return nil
}
