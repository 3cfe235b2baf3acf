package model

import (
	"encoding/binary"
	"fmt"
)

// Field size consts - used for serialization and deserialization
const (
	// VALUE_WIDTH is the encoded width of a single uint64 field.
	VALUE_WIDTH = 8

	// RECORD_SIZE is the encoded width of a full record (timestamp + value).
	RECORD_SIZE = 2 * VALUE_WIDTH

	TIMESTAMP_START = 0
	VALUE_START     = TIMESTAMP_START + VALUE_WIDTH
)

// Record represents a single timestamped value stored by the engine.
// Both fields are opaque 64-bit integers; timestamps need not be
// monotonic on write and duplicates are allowed (last write wins in memory).
type Record struct {
	Timestamp uint64 // Timestamp is the key the record is looked up by.
	Value     uint64 // Value contains the data associated with the timestamp.
}

func NewRecord(timestamp uint64, value uint64) *Record {
	return &Record{
		Timestamp: timestamp,
		Value:     value,
	}
}

// Size returns the size of the serialized record in bytes.
func (r *Record) Size() int {
	return RECORD_SIZE
}

// EncodeU64 writes n little-endian into an exactly 8-byte buffer.
// A buffer of any other length is a programmer error and panics.
func EncodeU64(n uint64, buf []byte) {
	if len(buf) != VALUE_WIDTH {
		panic(fmt.Sprintf("EncodeU64: bad buffer size. Expected: %d. Got: %d", VALUE_WIDTH, len(buf)))
	}
	binary.LittleEndian.PutUint64(buf, n)
}

// DecodeU64 reads a little-endian uint64 from an exactly 8-byte buffer.
// A buffer of any other length is a programmer error and panics.
func DecodeU64(buf []byte) uint64 {
	if len(buf) != VALUE_WIDTH {
		panic(fmt.Sprintf("DecodeU64: bad buffer size. Expected: %d. Got: %d", VALUE_WIDTH, len(buf)))
	}
	return binary.LittleEndian.Uint64(buf)
}

/*
Serialization format for Record:

	+----------------+------------+
	| Timestamp (8B) | Value (8B) |
	+----------------+------------+

	Timestamp = Key of the record, little-endian
	Value     = Data of the record, little-endian
*/

// Serialize serializes a Record into a 16-byte array:
// timestamp at offset 0, value at offset 8, both little-endian.
func (rec *Record) Serialize() []byte {
	data := make([]byte, RECORD_SIZE)
	rec.SerializeInto(data)
	return data
}

// SerializeInto serializes a Record into the given exactly 16-byte buffer.
func (rec *Record) SerializeInto(data []byte) {
	if len(data) != RECORD_SIZE {
		panic(fmt.Sprintf("SerializeInto: bad buffer size. Expected: %d. Got: %d", RECORD_SIZE, len(data)))
	}
	EncodeU64(rec.Timestamp, data[TIMESTAMP_START:TIMESTAMP_START+VALUE_WIDTH])
	EncodeU64(rec.Value, data[VALUE_START:VALUE_START+VALUE_WIDTH])
}

// Deserialize takes a byte array and reconstructs its Record.
// It reads the data in the format defined by the Serialize function.
func Deserialize(data []byte) *Record {
	if len(data) != RECORD_SIZE {
		panic(fmt.Sprintf("Deserialize: bad buffer size. Expected: %d. Got: %d", RECORD_SIZE, len(data)))
	}
	return &Record{
		Timestamp: DecodeU64(data[TIMESTAMP_START : TIMESTAMP_START+VALUE_WIDTH]),
		Value:     DecodeU64(data[VALUE_START : VALUE_START+VALUE_WIDTH]),
	}
}
