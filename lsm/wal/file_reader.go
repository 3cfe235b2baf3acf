package wal

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// FileLogReader is the file-backed LogReader. It refills a block-sized
// buffer as records are drained and skips the zero padding a writer
// leaves at each block tail. A final block shorter than BLOCK_SIZE is
// tolerated; only the records fully contained in the bytes actually
// read are exposed.
type FileLogReader struct {
	file       *os.File
	recordSize int
	buf        []byte
	bufPtr     int // Read cursor within buf
	bufLimit   int // Bytes of buf holding whole records
	lastBlock  bool
}

// Compile-time assertion that FileLogReader implements LogReader.
var _ LogReader = (*FileLogReader)(nil)

// CreateFileLogReader opens the file at path read-only for records of
// exactly recordSize bytes.
func CreateFileLogReader(path string, recordSize int) (*FileLogReader, error) {
	if err := checkRecordSize(recordSize); err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	return &FileLogReader{
		file:       file,
		recordSize: recordSize,
		buf:        make([]byte, BLOCK_SIZE),
	}, nil
}

// NextRecord reads the next record into out. It returns true if a
// record was produced and false once the file is exhausted.
func (r *FileLogReader) NextRecord(out []byte) (bool, error) {
	if err := checkBufferSize(out, r.recordSize); err != nil {
		return false, err
	}

	if r.bufPtr+r.recordSize > r.bufLimit {
		if r.lastBlock {
			return false, nil
		}
		ok, err := r.readNextBlock()
		if err != nil || !ok {
			return false, err
		}
	}

	copy(out, r.buf[r.bufPtr:r.bufPtr+r.recordSize])
	r.bufPtr += r.recordSize
	return true, nil
}

// readNextBlock refills the buffer with the next block of the file.
// The usable limit is capped to the bytes actually read, so a truncated
// final block exposes only its whole records. Returns false once the
// file holds no further records.
func (r *FileLogReader) readNextBlock() (bool, error) {
	n, err := io.ReadFull(r.file, r.buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false, fmt.Errorf("failed to read log block: %w", err)
	}
	if n < BLOCK_SIZE {
		r.lastBlock = true
	}

	r.bufPtr = 0
	r.bufLimit = (n / r.recordSize) * r.recordSize
	return r.bufLimit > 0, nil
}

// Close releases the underlying file handle.
func (r *FileLogReader) Close() error {
	return r.file.Close()
}
