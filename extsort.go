package extsort

import (
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"
)

const (
	// RecordSize is the encoded size of a single record in bytes.
	RecordSize = 16
	// BlockSize is the unit of file I/O in bytes.
	BlockSize = 8192
	// RecordsPerBlock is the number of records held by a single block.
	RecordsPerBlock = BlockSize / RecordSize
)

// ErrNotFound is returned when an input file does not exist or cannot be read.
var ErrNotFound = errors.New("extsort: not found")

// ErrEndOfInput is returned when fewer than one full block remains.
var ErrEndOfInput = errors.New("extsort: end of input")

// ErrInvalidPosition is returned when a heap operation addresses a position
// outside of the active region.
var ErrInvalidPosition = errors.New("extsort: invalid heap position")

// ErrHeapExhausted is returned when a record is removed from an empty heap.
var ErrHeapExhausted = errors.New("extsort: heap is exhausted")

// ErrRootEmpty is returned by ordinary heap operations while the root was
// vacated by RemoveMinNoUpdate and not yet refilled.
var ErrRootEmpty = errors.New("extsort: heap root is empty")

var (
	errBadBlockSize  = errors.New("extsort: bad block size")
	errBufferNotFull = errors.New("extsort: output buffer is not full")
	errClosed        = errors.New("extsort: is closed")
	errBadRun        = errors.New("extsort: run exceeds file bounds")
)

// TruncatedBlockError is returned by BlockStore.NextBlock when the input ends
// within a block. It matches ErrEndOfInput via errors.Is.
type TruncatedBlockError struct {
	Offset int64 // offset of the partial block
	Size   int   // number of trailing bytes
}

func (e *TruncatedBlockError) Error() string {
	return fmt.Sprintf("extsort: truncated block at offset %d (%d of %d bytes)", e.Offset, e.Size, BlockSize)
}

// Is reports whether target is ErrEndOfInput.
func (e *TruncatedBlockError) Is(target error) bool { return target == ErrEndOfInput }

// --------------------------------------------------------------------

// Run describes a sorted run within a run file, in record units.
type Run struct {
	Offset int64 // index of the first record
	Len    int64 // number of records
}

// End returns the index just past the last record of the run.
func (r Run) End() int64 { return r.Offset + r.Len }

// Stats summarise a sort session.
type Stats struct {
	Runs    int   // number of runs generated
	Records int64 // number of records processed
	Blocks  int   // number of blocks written
}

// --------------------------------------------------------------------

// Options define sort specific options.
type Options struct {
	// HeapBlocks is the memory budget of the run generator in blocks.
	// Default: 8 (4096 records).
	HeapBlocks int

	// TempDir is the directory used for intermediate run files.
	// Default: os.TempDir().
	TempDir string

	// Logger receives progress messages.
	// Default: zap.NewNop().
	Logger *zap.Logger
}

func (o *Options) norm() *Options {
	var oo Options
	if o != nil {
		oo = *o
	}

	if oo.HeapBlocks < 1 {
		oo.HeapBlocks = 8
	}
	if oo.TempDir == "" {
		oo.TempDir = os.TempDir()
	}
	if oo.Logger == nil {
		oo.Logger = zap.NewNop()
	}

	return &oo
}
