package extsort

import (
	"encoding/binary"
	"math"
	"strconv"
)

// Record is a single sortable entry. Records are ordered by Key only, the Tag
// is an opaque payload which is carried through unchanged.
type Record struct {
	Key float64
	Tag int64
}

// DecodeRecord decodes a record from the first RecordSize bytes of b.
// It panics if b is shorter than RecordSize.
func DecodeRecord(b []byte) Record {
	_ = b[RecordSize-1]
	return Record{
		Tag: int64(binary.BigEndian.Uint64(b[0:])),
		Key: math.Float64frombits(binary.BigEndian.Uint64(b[8:])),
	}
}

// Encode writes the record into the first RecordSize bytes of dst.
// It panics if dst is shorter than RecordSize.
func (r Record) Encode(dst []byte) {
	_ = dst[RecordSize-1]
	binary.BigEndian.PutUint64(dst[0:], uint64(r.Tag))
	binary.BigEndian.PutUint64(dst[8:], math.Float64bits(r.Key))
}

// AppendTo appends the encoded record to dst.
func (r Record) AppendTo(dst []byte) []byte {
	var tmp [RecordSize]byte
	r.Encode(tmp[:])
	return append(dst, tmp[:]...)
}

// Less reports whether r sorts before o.
func (r Record) Less(o Record) bool { return Compare(r, o) < 0 }

// String returns the key.
func (r Record) String() string { return strconv.FormatFloat(r.Key, 'g', -1, 64) }

// Compare compares two records by key and returns -1, 0 or +1.
// NaN keys sort after all other keys and are equal to each other;
// negative and positive zero are equal.
func Compare(a, b Record) int {
	switch x, y := a.Key, b.Key; {
	case x < y:
		return -1
	case x > y:
		return 1
	case x == y:
		return 0
	}

	switch an, bn := math.IsNaN(a.Key), math.IsNaN(b.Key); {
	case an && bn:
		return 0
	case an:
		return 1
	default:
		return -1
	}
}
