package wal

// MemoryLog is an in-memory log used by tests. It implements both ends
// of the log contract over a slice of records, with no block framing:
// framing belongs to the file layout, not to the record stream.
type MemoryLog struct {
	recordSize int
	records    [][]byte
	readPtr    int
}

var (
	_ LogWriter = (*MemoryLog)(nil)
	_ LogReader = (*MemoryLog)(nil)
)

// NewMemoryLog returns an empty in-memory log for records of exactly
// recordSize bytes.
func NewMemoryLog(recordSize int) (*MemoryLog, error) {
	if err := checkRecordSize(recordSize); err != nil {
		return nil, err
	}
	return &MemoryLog{recordSize: recordSize}, nil
}

// Append stores a copy of the record.
func (m *MemoryLog) Append(buf []byte) error {
	if err := checkBufferSize(buf, m.recordSize); err != nil {
		return err
	}

	rec := make([]byte, len(buf))
	copy(rec, buf)
	m.records = append(m.records, rec)
	return nil
}

// NextRecord replays the appended records in order.
func (m *MemoryLog) NextRecord(out []byte) (bool, error) {
	if err := checkBufferSize(out, m.recordSize); err != nil {
		return false, err
	}

	if m.readPtr >= len(m.records) {
		return false, nil
	}
	copy(out, m.records[m.readPtr])
	m.readPtr++
	return true, nil
}

// Len returns the number of appended records.
func (m *MemoryLog) Len() int {
	return len(m.records)
}
