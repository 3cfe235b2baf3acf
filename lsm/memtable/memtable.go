package memtable

import (
	"errors"
	"fmt"
	"io"
	"os"

	"stampdb/lsm/memtable/hashmap"
	mi "stampdb/lsm/memtable/memtable_interface"
	"stampdb/lsm/memtable/skiplist"
	"stampdb/lsm/wal"
	model "stampdb/model/record"
	"stampdb/utils/config"
)

// Configuration variables loaded from config file
var (
	MEMTABLE_TYPE string
)

// init loads memtable configuration from config file
func init() {
	cfg := config.GetConfig()
	MEMTABLE_TYPE = cfg.Memtable.MemtableType
}

// MemTable is the ordered in-memory map fronting the current log. Every
// Record call appends to the log before touching the map, so anything a
// caller has seen succeed is recoverable by replaying that log.
// The MemTable itself is not synchronized; the engine serializes access.
type MemTable struct {
	impl   mi.Memtable
	logger wal.LogWriter
}

// newImpl builds the configured ordered-map implementation.
func newImpl() (mi.Memtable, error) {
	switch MEMTABLE_TYPE {
	case "skiplist":
		return skiplist.New(skiplist.DefaultMaxHeight), nil
	case "hashmap":
		return hashmap.NewHashMap(), nil
	default:
		return nil, fmt.Errorf("unknown memtable type: %s", MEMTABLE_TYPE)
	}
}

// New returns an empty MemTable writing through the given log.
func New(logger wal.LogWriter) (*MemTable, error) {
	impl, err := newImpl()
	if err != nil {
		return nil, err
	}
	return &MemTable{
		impl:   impl,
		logger: logger,
	}, nil
}

// Create allocates a fresh log file at path and returns an empty
// MemTable backed by it.
func Create(path string) (*MemTable, error) {
	writer, err := wal.CreateFileLogWriter(path, model.RECORD_SIZE)
	if err != nil {
		return nil, err
	}
	return New(writer)
}

// Replay rebuilds a MemTable from the log at path. Records are applied
// in read order, so a duplicated key keeps its last logged value. The
// log is then reopened for append, making the MemTable ready for
// further Record calls. A missing file replays to an empty MemTable.
func Replay(path string) (*MemTable, error) {
	impl, err := newImpl()
	if err != nil {
		return nil, err
	}

	reader, err := wal.CreateFileLogReader(path, model.RECORD_SIZE)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	if err == nil {
		buf := make([]byte, model.RECORD_SIZE)
		for {
			ok, err := reader.NextRecord(buf)
			if err != nil {
				reader.Close()
				return nil, fmt.Errorf("failed to replay log %s: %w", path, err)
			}
			if !ok {
				break
			}
			rec := model.Deserialize(buf)
			impl.Put(rec.Timestamp, rec.Value)
		}
		if err := reader.Close(); err != nil {
			return nil, fmt.Errorf("failed to close replayed log %s: %w", path, err)
		}
	}

	writer, err := wal.OpenFileLogWriter(path, model.RECORD_SIZE)
	if err != nil {
		return nil, err
	}

	return &MemTable{
		impl:   impl,
		logger: writer,
	}, nil
}

// Record stores the value for the timestamp, appending to the log
// first. If the append fails the in-memory map is left untouched and
// the error propagates, so the map never runs ahead of the log.
func (mt *MemTable) Record(timestamp uint64, value uint64) error {
	rec := model.NewRecord(timestamp, value)
	if err := mt.logger.Append(rec.Serialize()); err != nil {
		return err
	}
	mt.impl.Put(timestamp, value)
	return nil
}

// Lookup returns the value for the timestamp, purely from memory.
func (mt *MemTable) Lookup(timestamp uint64) (uint64, bool) {
	return mt.impl.Get(timestamp)
}

// Len returns the number of distinct timestamps held.
func (mt *MemTable) Len() int {
	return mt.impl.Len()
}

// Ascend calls fn for every entry in ascending timestamp order.
func (mt *MemTable) Ascend(fn func(timestamp uint64, value uint64) error) error {
	return mt.impl.Ascend(fn)
}

// Close syncs and releases the backing log writer, when it has one.
func (mt *MemTable) Close() error {
	type syncer interface{ Sync() error }
	if s, ok := mt.logger.(syncer); ok {
		if err := s.Sync(); err != nil {
			return err
		}
	}
	if c, ok := mt.logger.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
