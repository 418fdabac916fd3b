package extsort

import "github.com/pkg/errors"

// InputBuffer stages a single raw block for decoding.
type InputBuffer struct {
	block   []byte
	records []Record
}

// NewInputBuffer wraps a raw block, which must be exactly BlockSize bytes.
func NewInputBuffer(block []byte) (*InputBuffer, error) {
	if len(block) != BlockSize {
		return nil, errors.Wrapf(errBadBlockSize, "got %d bytes", len(block))
	}
	return &InputBuffer{block: block}, nil
}

// DecodeAll decodes all records of the block in block order; record i
// occupies bytes [16i, 16i+16).
func (b *InputBuffer) DecodeAll() []Record {
	if b.records == nil {
		b.records = b.DecodeInto(make([]Record, 0, RecordsPerBlock))
	}
	return b.records
}

// DecodeInto appends all decoded records of the block to dst.
func (b *InputBuffer) DecodeInto(dst []Record) []Record {
	for off := 0; off < BlockSize; off += RecordSize {
		dst = append(dst, DecodeRecord(b.block[off:]))
	}
	return dst
}

// IsEmpty returns true until records have been materialised by DecodeAll.
func (b *InputBuffer) IsEmpty() bool { return b.records == nil }

// --------------------------------------------------------------------

// OutputBuffer stages up to RecordsPerBlock records before they are written
// as a single block.
type OutputBuffer struct {
	records []Record
}

// NewOutputBuffer inits an empty output buffer.
func NewOutputBuffer() *OutputBuffer {
	return &OutputBuffer{records: make([]Record, 0, RecordsPerBlock)}
}

// Add appends a record and returns true if accepted. It returns false when
// the buffer is already full, the caller must flush before retrying.
func (b *OutputBuffer) Add(r Record) bool {
	if b.IsFull() {
		return false
	}
	b.records = append(b.records, r)
	return true
}

// Len returns the number of buffered records.
func (b *OutputBuffer) Len() int { return len(b.records) }

// IsFull returns true when the buffer holds RecordsPerBlock records.
func (b *OutputBuffer) IsFull() bool { return len(b.records) == RecordsPerBlock }

// ToBlock encodes the buffered records in insertion order, appending a single
// block to dst. It fails unless the buffer is full.
func (b *OutputBuffer) ToBlock(dst []byte) ([]byte, error) {
	if !b.IsFull() {
		return dst, errors.Wrapf(errBufferNotFull, "%d of %d records", len(b.records), RecordsPerBlock)
	}
	for _, r := range b.records {
		dst = r.AppendTo(dst)
	}
	return dst, nil
}

// Reset empties the buffer.
func (b *OutputBuffer) Reset() { b.records = b.records[:0] }

// FlushTo writes the full buffer as one block to w and resets it.
func (b *OutputBuffer) FlushTo(w *BlockWriter) error {
	block := fetchBlock()[:0]
	defer releaseBlock(block)

	block, err := b.ToBlock(block)
	if err != nil {
		return err
	}
	if err := w.WriteBlock(block); err != nil {
		return err
	}
	b.Reset()
	return nil
}
