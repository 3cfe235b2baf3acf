package sstable

import (
	"errors"
	"fmt"
	"io"

	bm "stampdb/lsm/block_manager"
	block_location "stampdb/model/block_location"
	model "stampdb/model/record"
)

// Iterator is a single-pass, forward-only cursor over a table file.
// Records come back in ascending key order by the builder's invariant.
// Blocks are fetched through the block manager, so hot blocks are
// served from its cache.
type Iterator struct {
	manager    *bm.Manager
	path       string
	blockIndex uint64
	block      []byte
	count      uint64 // valid records in the loaded block
	pos        uint64 // next record within the loaded block
	done       bool
}

// OpenIterator returns an iterator over the table file at path. Blocks
// are loaded lazily; a missing file surfaces on the first Next call.
func OpenIterator(path string, manager *bm.Manager) *Iterator {
	return &Iterator{
		manager: manager,
		path:    path,
	}
}

// Next returns the next record and true, or false once the table is
// exhausted. A file that ends inside a block, or a footer count beyond
// the block capacity, is a format error.
func (it *Iterator) Next() (*model.Record, bool, error) {
	for {
		if it.done {
			return nil, false, nil
		}

		if it.block == nil {
			if err := it.loadBlock(); err != nil {
				return nil, false, err
			}
			continue
		}

		if it.pos < it.count {
			offset := it.pos * model.RECORD_SIZE
			rec := model.Deserialize(it.block[offset : offset+model.RECORD_SIZE])
			it.pos++
			return rec, true, nil
		}

		// Block drained, move to the next one.
		it.block = nil
		it.blockIndex++
	}
}

// loadBlock fetches the current block and decodes its footer. A clean
// end-of-file marks the iterator done.
func (it *Iterator) loadBlock() error {
	block, err := it.manager.ReadBlock(block_location.BlockLocation{
		FilePath:   it.path,
		BlockIndex: it.blockIndex,
	})
	if errors.Is(err, io.EOF) {
		it.done = true
		return nil
	}
	if err != nil {
		return err
	}

	count := model.DecodeU64(block[FOOTER_START:])
	if count > RECORDS_PER_BLOCK {
		return fmt.Errorf("block %d of %s claims %d records: %w", it.blockIndex, it.path, count, ErrBadBlock)
	}

	it.block = block
	it.count = count
	it.pos = 0
	return nil
}

// Get scans the table at path for the timestamp. It returns the value
// and whether the timestamp was found.
func Get(path string, manager *bm.Manager, timestamp uint64) (uint64, bool, error) {
	it := OpenIterator(path, manager)
	for {
		rec, ok, err := it.Next()
		if err != nil {
			return 0, false, fmt.Errorf("failed to scan table %s: %w", path, err)
		}
		if !ok {
			return 0, false, nil
		}
		if rec.Timestamp == timestamp {
			return rec.Value, true, nil
		}
	}
}
