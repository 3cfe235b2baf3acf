package sstable

import (
	"errors"
	"fmt"

	"github.com/google/renameio"

	model "stampdb/model/record"
)

/*
Table file layout. A table is a sequence of fixed-size blocks:

	+------------------+-------------------+-------------+
	| records (16B ea) | zero padding      | footer (8B) |
	+------------------+-------------------+-------------+
	0                  count*16            32760    32768

	Footer = number of valid records in the block, little-endian.

Records are packed back-to-back from offset 0 in non-decreasing key
order; the writer rejects a key smaller than its predecessor. Blocks
are independent: there is no cross-block index, so readers scan forward.
*/
const (
	BLOCK_SIZE  = 32768
	FOOTER_SIZE = 8

	// FOOTER_START is the offset of the record-count footer in a block.
	FOOTER_START = BLOCK_SIZE - FOOTER_SIZE

	// RECORDS_PER_BLOCK is the block capacity: 2047 records.
	RECORDS_PER_BLOCK = FOOTER_START / model.RECORD_SIZE
)

var (
	// ErrOutOfOrder is returned when the input stream presents a key
	// strictly smaller than its predecessor. Equal keys are accepted.
	ErrOutOfOrder = errors.New("keys out of order")

	// ErrBadBlock is returned when a block's footer claims more records
	// than fit in a block.
	ErrBadBlock = errors.New("malformed table block")
)

// EntrySource yields key/value pairs in ascending key order. The
// memtable satisfies it directly; tests use the Entries adapter.
type EntrySource interface {
	Ascend(fn func(key uint64, value uint64) error) error
}

// Entries is a slice-backed EntrySource.
type Entries []model.Record

func (e Entries) Ascend(fn func(key uint64, value uint64) error) error {
	for _, rec := range e {
		if err := fn(rec.Timestamp, rec.Value); err != nil {
			return err
		}
	}
	return nil
}

// builder accumulates records into a block buffer and emits finalized
// blocks to the pending file.
type builder struct {
	out           *renameio.PendingFile
	block         []byte
	count         uint64 // records in the current block
	prevKey       uint64
	hasPrev       bool
	blocksWritten int
}

// Write consumes the sorted entry stream and produces the table file at
// path. The file appears atomically: it is built under a temporary name
// and renamed into place only after a successful sync, so a failed
// build leaves no table behind. Unordered input fails with ErrOutOfOrder.
func Write(path string, src EntrySource) error {
	out, err := renameio.TempFile("", path)
	if err != nil {
		return fmt.Errorf("failed to create pending table file for %s: %w", path, err)
	}
	defer out.Cleanup()

	b := &builder{
		out:   out,
		block: make([]byte, BLOCK_SIZE),
	}

	if err := src.Ascend(b.add); err != nil {
		return err
	}
	if err := b.finish(); err != nil {
		return err
	}

	if err := out.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("failed to publish table file %s: %w", path, err)
	}
	return nil
}

// add appends one record to the current block, finalizing the block
// when no further record fits before the footer region.
func (b *builder) add(key uint64, value uint64) error {
	if b.hasPrev && key < b.prevKey {
		return fmt.Errorf("key %d after %d: %w", key, b.prevKey, ErrOutOfOrder)
	}
	b.prevKey = key
	b.hasPrev = true

	rec := model.Record{Timestamp: key, Value: value}
	cursor := b.count * model.RECORD_SIZE
	rec.SerializeInto(b.block[cursor : cursor+model.RECORD_SIZE])
	b.count++

	if FOOTER_START-(b.count*model.RECORD_SIZE) < model.RECORD_SIZE {
		return b.flushBlock()
	}
	return nil
}

// flushBlock finalizes the current block: the gap between the last
// record and the footer is already zero (blocks start zero-filled), so
// only the footer count is encoded before the block is written out.
func (b *builder) flushBlock() error {
	model.EncodeU64(b.count, b.block[FOOTER_START:])

	if _, err := b.out.Write(b.block); err != nil {
		return fmt.Errorf("failed to write table block: %w", err)
	}

	b.block = make([]byte, BLOCK_SIZE)
	b.count = 0
	b.blocksWritten++
	return nil
}

// finish flushes the trailing block. An empty table still gets one
// zero-record block so every table file has uniform block structure.
func (b *builder) finish() error {
	if b.count > 0 || b.blocksWritten == 0 {
		return b.flushBlock()
	}
	return nil
}
