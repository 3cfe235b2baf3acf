package wal

import (
	"fmt"
	"os"
)

// FileLogWriter is the file-backed LogWriter. It tracks its position
// within the current block; the file length always implies that
// position, so nothing is persisted besides the records themselves.
type FileLogWriter struct {
	file          *os.File
	recordSize    int
	offsetInBlock int // Current write position within the block
}

// Compile-time assertion that FileLogWriter implements LogWriter.
var _ LogWriter = (*FileLogWriter)(nil)

// CreateFileLogWriter creates or truncates the file at path and returns
// a writer for records of exactly recordSize bytes.
func CreateFileLogWriter(path string, recordSize int) (*FileLogWriter, error) {
	if err := checkRecordSize(recordSize); err != nil {
		return nil, err
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file %s: %w", path, err)
	}

	return &FileLogWriter{
		file:          file,
		recordSize:    recordSize,
		offsetInBlock: 0,
	}, nil
}

// OpenFileLogWriter opens the file at path positioned for append,
// creating it if absent. The position within the current block is
// recovered from the file length. Used to resume a log after replay.
func OpenFileLogWriter(path string, recordSize int) (*FileLogWriter, error) {
	if err := checkRecordSize(recordSize); err != nil {
		return nil, err
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat log file %s: %w", path, err)
	}

	return &FileLogWriter{
		file:          file,
		recordSize:    recordSize,
		offsetInBlock: int(info.Size() % BLOCK_SIZE),
	}, nil
}

// Append writes one record to the log. If fewer than recordSize bytes
// remain in the current block, the block is first closed out with zero
// padding so that no record ever crosses a block boundary.
func (w *FileLogWriter) Append(buf []byte) error {
	if err := checkBufferSize(buf, w.recordSize); err != nil {
		return err
	}

	remaining := BLOCK_SIZE - w.offsetInBlock
	if remaining < w.recordSize {
		padding := make([]byte, remaining)
		if _, err := w.file.Write(padding); err != nil {
			return fmt.Errorf("failed to pad log block: %w", err)
		}
		w.offsetInBlock = 0
	}

	if _, err := w.file.Write(buf); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}

	w.offsetInBlock += w.recordSize
	if w.offsetInBlock == BLOCK_SIZE {
		w.offsetInBlock = 0
	}
	return nil
}

// Sync flushes buffered writes to durable storage.
func (w *FileLogWriter) Sync() error {
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync log file: %w", err)
	}
	return nil
}

// Close releases the underlying file handle.
func (w *FileLogWriter) Close() error {
	return w.file.Close()
}
