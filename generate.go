package extsort

import (
	"fmt"
	"io"
	"math/rand"

	"github.com/pkg/errors"
)

// Mode is the ordering of generated records.
type Mode uint8

// Supported generator modes.
const (
	ModeRandom Mode = iota
	ModeSorted
	ModeReverseSorted
	unknownMode
)

// ParseMode parses a mode name: "random", "sorted" or "reverse-sorted".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "random":
		return ModeRandom, nil
	case "sorted":
		return ModeSorted, nil
	case "reverse-sorted", "reverseSorted":
		return ModeReverseSorted, nil
	}
	return unknownMode, fmt.Errorf("extsort: unknown generator mode %q", s)
}

func (m Mode) String() string {
	switch m {
	case ModeRandom:
		return "random"
	case ModeSorted:
		return "sorted"
	case ModeReverseSorted:
		return "reverse-sorted"
	}
	return fmt.Sprintf("Mode(%d)", m)
}

// Generate writes the given number of blocks of records to w. Random mode
// draws from rnd, which must not be nil in that mode.
func Generate(w io.Writer, blocks int, mode Mode, rnd *rand.Rand) error {
	bw := NewBlockWriter(w)
	if err := generate(bw, blocks, mode, rnd); err != nil {
		return err
	}
	return bw.Flush()
}

// GenerateFile creates a file and generates records into it.
func GenerateFile(name string, blocks int, mode Mode, rnd *rand.Rand) error {
	bw, err := CreateBlockWriter(name)
	if err != nil {
		return err
	}

	if err := generate(bw, blocks, mode, rnd); err != nil {
		_ = bw.Close()
		return errors.Wrapf(err, "extsort: generate %s", name)
	}
	return bw.Close()
}

func generate(bw *BlockWriter, blocks int, mode Mode, rnd *rand.Rand) error {
	if mode >= unknownMode {
		return fmt.Errorf("extsort: unknown generator mode %d", mode)
	}
	if mode == ModeRandom && rnd == nil {
		return errors.New("extsort: random mode requires a source")
	}

	obuf := NewOutputBuffer()
	var seq int64
	for i := 0; i < blocks; i++ {
		for j := 0; j < RecordsPerBlock; j++ {
			var r Record
			switch mode {
			case ModeRandom:
				r = Record{Tag: rnd.Int63(), Key: rnd.Float64()}
			case ModeSorted:
				r = Record{Tag: seq, Key: float64(seq) * 0.0001}
			case ModeReverseSorted:
				r = Record{Tag: seq, Key: 100000 - float64(seq)}
			}
			obuf.Add(r)
			seq++
		}
		if err := obuf.FlushTo(bw); err != nil {
			return err
		}
	}
	return nil
}
