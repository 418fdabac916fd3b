package extsort

import (
	"container/heap"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Merge merges sorted runs of src into a single sorted sequence written to
// out. Only one block per run is held in memory at a time. Records with equal
// keys are emitted in run order. The output is flushed but not closed.
func Merge(src *BlockStore, runs []Run, out *BlockWriter, o *Options) error {
	o = o.norm()

	maxRecords := src.Size() / RecordSize
	cursors := make(mergeHeap, 0, len(runs))
	defer func() {
		for _, c := range cursors {
			c.release()
		}
	}()

	for i, run := range runs {
		if run.Offset < 0 || run.Len < 0 || run.End() > maxRecords {
			return errors.Wrapf(errBadRun, "run %d [%d, %d) of %d records", i, run.Offset, run.End(), maxRecords)
		}

		c := &runCursor{src: src, run: run, pos: run.Offset, idx: i}
		if ok, err := c.next(); err != nil {
			return errors.Wrapf(err, "extsort: merge run %d", i)
		} else if ok {
			cursors = append(cursors, c)
		}
	}
	heap.Init(&cursors)

	obuf := NewOutputBuffer()
	var written int64
	for cursors.Len() != 0 {
		c := cursors[0]
		obuf.Add(c.head)
		written++

		if obuf.IsFull() {
			if err := obuf.FlushTo(out); err != nil {
				return errors.Wrap(err, "extsort: merge")
			}
		}

		if ok, err := c.next(); err != nil {
			return errors.Wrapf(err, "extsort: merge run %d", c.idx)
		} else if ok {
			heap.Fix(&cursors, 0)
		} else {
			heap.Pop(&cursors)
		}
	}

	// Runs must cover whole blocks in total.
	if n := obuf.Len(); n != 0 {
		return errors.Wrapf(errBufferNotFull, "extsort: merge: %d trailing records", n)
	}
	if err := out.Flush(); err != nil {
		return errors.Wrap(err, "extsort: merge")
	}

	o.Logger.Info("runs merged",
		zap.Int("runs", len(runs)),
		zap.Int64("records", written),
		zap.String("output", out.Name()),
	)
	return nil
}

// Sort sorts the input file into the output file. Runs are generated into a
// temporary file within Options.TempDir, which is removed afterwards.
func Sort(input, output string, o *Options) (*Stats, error) {
	o = o.norm()

	in, err := OpenBlockStore(input)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(o.TempDir, "extsort-runs-*")
	if err != nil {
		return nil, errors.Wrap(err, "extsort: create run file")
	}
	defer os.Remove(tmp.Name())

	runw := NewBlockWriter(tmp)
	runw.c, runw.name = tmp, tmp.Name()

	gen := NewRunGenerator(in, runw, o)
	runs, err := gen.Generate()
	if err != nil {
		_ = runw.Close()
		return nil, err
	}
	if err := runw.Close(); err != nil {
		return nil, errors.Wrapf(err, "extsort: close %s", tmp.Name())
	}

	src, err := OpenBlockStore(tmp.Name())
	if err != nil {
		return nil, err
	}
	defer src.Close()

	out, err := CreateBlockWriter(output)
	if err != nil {
		return nil, err
	}
	if err := Merge(src, runs, out, o); err != nil {
		_ = out.Close()
		return nil, err
	}
	if err := out.Close(); err != nil {
		return nil, errors.Wrapf(err, "extsort: close %s", output)
	}

	return gen.Stats(), nil
}

// --------------------------------------------------------------------

type runCursor struct {
	src *BlockStore
	run Run
	idx int // run index, breaks ties

	pos   int64  // next record to read
	block []byte // current block
	boff  int64  // record index of the first record in block
	head  Record // current record
}

// next advances the cursor, reading a new block when the current one is
// exhausted.
func (c *runCursor) next() (bool, error) {
	if c.pos >= c.run.End() {
		c.release()
		return false, nil
	}

	if boff := c.pos - c.pos%RecordsPerBlock; c.block == nil || boff != c.boff {
		c.release()

		block, err := c.src.ReadBlockAt(boff * RecordSize)
		if err != nil {
			return false, err
		}
		c.block, c.boff = block, boff
	}

	c.head = DecodeRecord(c.block[(c.pos-c.boff)*RecordSize:])
	c.pos++
	return true, nil
}

func (c *runCursor) release() {
	if c.block != nil {
		c.src.Release(c.block)
		c.block = nil
	}
}

type mergeHeap []*runCursor

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	if n := Compare(h[i].head, h[j].head); n != 0 {
		return n < 0
	}
	return h[i].idx < h[j].idx
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x interface{}) { *h = append(*h, x.(*runCursor)) }

func (h *mergeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
