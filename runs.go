package extsort

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// RunGenerator consumes an input file and writes sorted runs using
// replacement selection. All runs are written back-to-back to a single
// output; each is described by a Run.
type RunGenerator struct {
	in  *BlockStore
	out *BlockWriter
	o   *Options

	heap *MinHeap
	obuf *OutputBuffer

	ibuf []Record // decoded input block
	ipos int      // position within ibuf
	eof  bool

	runs     []Run
	runStart int64 // first record of the current run
	written  int64 // records emitted
	read     int64 // records consumed
}

// NewRunGenerator inits a new run generator.
func NewRunGenerator(in *BlockStore, out *BlockWriter, o *Options) *RunGenerator {
	o = o.norm()
	return &RunGenerator{
		in:   in,
		out:  out,
		o:    o,
		heap: NewMinHeap(o.HeapBlocks * RecordsPerBlock),
		obuf: NewOutputBuffer(),
		ibuf: make([]Record, 0, RecordsPerBlock),
	}
}

// Generate consumes the whole input and returns the generated runs in
// generation order. The output is flushed but not closed.
func (g *RunGenerator) Generate() ([]Run, error) {
	if err := g.fill(); err != nil {
		return nil, g.fail("fill", err)
	}

	if err := g.replace(); err != nil {
		return nil, g.fail("replacement selection", err)
	}

	if err := g.drain(); err != nil {
		return nil, g.fail("drain", err)
	}

	// Input is consumed in whole blocks, so no records can be left over.
	if n := g.obuf.Len(); n != 0 {
		return nil, g.fail("flush", errors.Wrapf(errBufferNotFull, "%d trailing records", n))
	}
	if err := g.out.Flush(); err != nil {
		return nil, g.fail("flush", err)
	}

	g.o.Logger.Info("runs generated",
		zap.String("input", g.in.Name()),
		zap.Int("runs", len(g.runs)),
		zap.Int64("records", g.written),
		zap.Int("blocks", g.out.NumBlocks()),
	)
	return g.runs, nil
}

// Stats returns the generation stats.
func (g *RunGenerator) Stats() *Stats {
	return &Stats{
		Runs:    len(g.runs),
		Records: g.written,
		Blocks:  g.out.NumBlocks(),
	}
}

// fill loads the initial blocks straight into the heap.
func (g *RunGenerator) fill() error {
	for i := 0; i < g.o.HeapBlocks; i++ {
		block, err := g.in.NextBlock()
		if err == ErrEndOfInput && i != 0 {
			g.eof = true
			break
		} else if err != nil {
			return err
		}

		ib, err := NewInputBuffer(block)
		if err != nil {
			return err
		}
		g.ibuf = ib.DecodeInto(g.ibuf[:0])
		g.in.Release(block)

		g.heap.Load(g.ibuf...)
		g.read += int64(len(g.ibuf))
	}
	g.ibuf = g.ibuf[:0]
	g.heap.BuildHeap()
	return nil
}

// replace runs replacement selection until the input is exhausted.
func (g *RunGenerator) replace() error {
	for {
		next, ok, err := g.next()
		if err != nil {
			return err
		} else if !ok {
			return nil
		}

		if g.heap.Len() == 0 {
			g.closeRun()
			if !g.heap.Reactivate() {
				return ErrHeapExhausted
			}
		}

		min, err := g.heap.RemoveMinNoUpdate()
		if err != nil {
			return err
		}
		if err := g.emit(min); err != nil {
			return err
		}
		g.heap.ReplacementSelectionInsert(next, Compare(next, min) < 0)
	}
}

// drain empties the heap once the input is exhausted, one run per
// reactivation.
func (g *RunGenerator) drain() error {
	for {
		for g.heap.Len() != 0 {
			min, err := g.heap.RemoveMin()
			if err != nil {
				return err
			}
			if err := g.emit(min); err != nil {
				return err
			}
		}
		g.closeRun()

		if !g.heap.Reactivate() {
			return nil
		}
	}
}

// next returns the next input record in file order.
func (g *RunGenerator) next() (Record, bool, error) {
	if g.ipos == len(g.ibuf) {
		if g.eof {
			return Record{}, false, nil
		}

		block, err := g.in.NextBlock()
		if err == ErrEndOfInput {
			g.eof = true
			return Record{}, false, nil
		} else if err != nil {
			return Record{}, false, err
		}

		ib, err := NewInputBuffer(block)
		if err != nil {
			return Record{}, false, err
		}
		g.ibuf = ib.DecodeInto(g.ibuf[:0])
		g.ipos = 0
		g.in.Release(block)
	}

	r := g.ibuf[g.ipos]
	g.ipos++
	g.read++
	return r, true, nil
}

func (g *RunGenerator) emit(r Record) error {
	g.obuf.Add(r)
	g.written++

	if g.obuf.IsFull() {
		return g.obuf.FlushTo(g.out)
	}
	return nil
}

func (g *RunGenerator) closeRun() {
	if g.written == g.runStart {
		return
	}

	run := Run{Offset: g.runStart, Len: g.written - g.runStart}
	g.runs = append(g.runs, run)
	g.runStart = g.written

	g.o.Logger.Debug("run closed",
		zap.Int("run", len(g.runs)),
		zap.Int64("offset", run.Offset),
		zap.Int64("records", run.Len),
		zap.Int("deactivated", g.heap.DeactivatedLen()),
	)
}

func (g *RunGenerator) fail(op string, err error) error {
	name := g.in.Name()
	if name == "" {
		name = "input"
	}
	return errors.Wrapf(err, "extsort: generate runs from %s: %s", name, op)
}
