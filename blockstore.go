package extsort

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
)

// BlockStore presents a random-access file as a sequence of fixed-size
// blocks. It tracks a sequential read cursor, random reads via ReadBlockAt
// leave the cursor untouched.
type BlockStore struct {
	r    io.ReaderAt
	c    io.Closer
	name string

	size int64 // total size in bytes
	pos  int64 // sequential cursor
}

// NewBlockStore wraps a reader of the given size.
func NewBlockStore(r io.ReaderAt, size int64) *BlockStore {
	return &BlockStore{r: r, size: size}
}

// OpenBlockStore opens a file for block reading. It returns an error matching
// ErrNotFound if the file does not exist or cannot be read.
func OpenBlockStore(name string) (*BlockStore, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.Wrapf(ErrNotFound, "open %s (%v)", name, err)
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrapf(ErrNotFound, "stat %s (%v)", name, err)
	}
	if fi.IsDir() {
		_ = f.Close()
		return nil, errors.Wrapf(ErrNotFound, "open %s (is a directory)", name)
	}

	return &BlockStore{r: f, c: f, name: name, size: fi.Size()}, nil
}

// Name returns the file name, if opened via OpenBlockStore.
func (s *BlockStore) Name() string { return s.name }

// Size returns the size in bytes.
func (s *BlockStore) Size() int64 { return s.size }

// BlockCount returns the number of whole blocks. A malformed file with a
// partial trailing block is undercounted.
func (s *BlockStore) BlockCount() int { return int(s.size / BlockSize) }

// Pos returns the offset of the sequential cursor.
func (s *BlockStore) Pos() int64 { return s.pos }

// Reset rewinds the sequential cursor to the beginning.
func (s *BlockStore) Reset() { s.pos = 0 }

// NextBlock reads the block at the cursor and advances the cursor by exactly
// BlockSize. When less than a full block remains, an error matching
// ErrEndOfInput is returned; a partial trailing block is reported as a
// *TruncatedBlockError.
//
// The returned slice may be handed back via Release once it is no longer used.
func (s *BlockStore) NextBlock() ([]byte, error) {
	p, err := s.readBlock(s.pos)
	if err != nil {
		return nil, err
	}
	s.pos += BlockSize
	return p, nil
}

// ReadBlockAt reads the block starting at offset off.
func (s *BlockStore) ReadBlockAt(off int64) ([]byte, error) {
	if off < 0 {
		return nil, errors.Errorf("extsort: negative block offset %d", off)
	}
	return s.readBlock(off)
}

// Release returns a block obtained from NextBlock or ReadBlockAt to the
// shared buffer pool. The block must not be used after this call.
func (s *BlockStore) Release(p []byte) { releaseBlock(p) }

// Close closes the underlying file, if opened via OpenBlockStore.
func (s *BlockStore) Close() error {
	if s.c == nil {
		return nil
	}
	err := s.c.Close()
	s.c = nil
	return err
}

func (s *BlockStore) readBlock(off int64) ([]byte, error) {
	if rem := s.size - off; rem < BlockSize {
		if rem <= 0 {
			return nil, ErrEndOfInput
		}
		return nil, &TruncatedBlockError{Offset: off, Size: int(rem)}
	}

	p := fetchBlock()
	if n, err := s.r.ReadAt(p, off); n < BlockSize {
		releaseBlock(p)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, &TruncatedBlockError{Offset: off, Size: n}
		}
		return nil, err
	}
	return p, nil
}

// --------------------------------------------------------------------

// BlockWriter appends whole blocks to a file. Writes are batched, call Close
// (or Flush) to persist them.
type BlockWriter struct {
	w    *bufio.Writer
	c    io.Closer
	name string

	n int // number of blocks written
}

// NewBlockWriter wraps a writer and returns a BlockWriter.
func NewBlockWriter(w io.Writer) *BlockWriter {
	return &BlockWriter{w: bufio.NewWriterSize(w, 4*BlockSize)}
}

// CreateBlockWriter creates (or truncates) a file for block writing.
func CreateBlockWriter(name string) (*BlockWriter, error) {
	f, err := os.Create(name)
	if err != nil {
		return nil, errors.Wrapf(err, "extsort: create %s", name)
	}

	w := NewBlockWriter(f)
	w.c = f
	w.name = name
	return w, nil
}

// Name returns the file name, if created via CreateBlockWriter.
func (w *BlockWriter) Name() string { return w.name }

// NumBlocks returns the number of blocks written so far.
func (w *BlockWriter) NumBlocks() int { return w.n }

// WriteBlock appends a single block. The block must be exactly BlockSize
// bytes long.
func (w *BlockWriter) WriteBlock(p []byte) error {
	if w.w == nil {
		return errClosed
	}
	if len(p) != BlockSize {
		return errors.Wrapf(errBadBlockSize, "got %d bytes", len(p))
	}

	if _, err := w.w.Write(p); err != nil {
		return err
	}
	w.n++
	return nil
}

// Flush writes buffered blocks to the underlying writer.
func (w *BlockWriter) Flush() error {
	if w.w == nil {
		return errClosed
	}
	return w.w.Flush()
}

// Close flushes and closes the writer along with the file it owns.
func (w *BlockWriter) Close() error {
	if w.w == nil {
		return errClosed
	}

	err := w.w.Flush()
	w.w = nil

	if w.c != nil {
		if cerr := w.c.Close(); err == nil {
			err = cerr
		}
		w.c = nil
	}
	return err
}

// --------------------------------------------------------------------

var blockPool = sync.Pool{
	New: func() interface{} {
		p := make([]byte, BlockSize)
		return &p
	},
}

// fetchBlock returns a BlockSize buffer from the pool.
func fetchBlock() []byte {
	return (*blockPool.Get().(*[]byte))[:BlockSize]
}

// releaseBlock returns a buffer obtained from fetchBlock. Foreign buffers
// smaller than a block are dropped.
func releaseBlock(p []byte) {
	if cap(p) < BlockSize {
		return
	}
	p = p[:BlockSize]
	blockPool.Put(&p)
}
