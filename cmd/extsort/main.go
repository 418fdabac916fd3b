// Command extsort generates, sorts and verifies binary record files.
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/bsm/extsort"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func main() {
	flag.Usage = usage
	verbose := flag.Bool("v", false, "verbose logging")
	heapBlocks := flag.Int("heap-blocks", 8, "run generator memory budget, in blocks")
	tempDir := flag.String("tmp", os.TempDir(), "directory for intermediate run files")
	flag.Parse()

	logger, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	opt := &extsort.Options{
		HeapBlocks: *heapBlocks,
		TempDir:    *tempDir,
		Logger:     logger,
	}

	if err := run(flag.Args(), opt); err != nil {
		logger.Error("failed", zap.Error(err))
		os.Exit(1)
	}
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: extsort [options] <command> [arguments]\n\n")
	fmt.Fprintf(out, "Commands:\n")
	fmt.Fprintf(out, "  gen [-blocks N] [-mode M] [-seed S] FILE  - generate a record file\n")
	fmt.Fprintf(out, "  runs INPUT RUNFILE                        - generate sorted runs only\n")
	fmt.Fprintf(out, "  sort INPUT OUTPUT                         - sort a record file\n")
	fmt.Fprintf(out, "  verify FILE                               - count inversions\n\n")
	fmt.Fprintf(out, "Options:\n")
	flag.PrintDefaults()
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(args []string, opt *extsort.Options) error {
	if len(args) == 0 {
		flag.Usage()
		return errors.New("missing command")
	}

	switch cmd, args := args[0], args[1:]; cmd {
	case "gen":
		return gen(args, opt.Logger)
	case "runs":
		if len(args) != 2 {
			return errors.New("usage: extsort runs INPUT RUNFILE")
		}
		return runs(args[0], args[1], opt)
	case "sort":
		if len(args) != 2 {
			return errors.New("usage: extsort sort INPUT OUTPUT")
		}
		stats, err := extsort.Sort(args[0], args[1], opt)
		if err != nil {
			return err
		}
		opt.Logger.Info("sorted",
			zap.String("output", args[1]),
			zap.Int("runs", stats.Runs),
			zap.Int64("records", stats.Records),
		)
		return nil
	case "verify":
		if len(args) != 1 {
			return errors.New("usage: extsort verify FILE")
		}
		return verify(args[0], opt.Logger)
	default:
		return errors.Errorf("unknown command %q", cmd)
	}
}

func gen(args []string, logger *zap.Logger) error {
	fs := flag.NewFlagSet("gen", flag.ContinueOnError)
	blocks := fs.Int("blocks", 8, "number of blocks")
	mode := fs.String("mode", "random", "random, sorted or reverse-sorted")
	seed := fs.Int64("seed", time.Now().UnixNano(), "random seed")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: extsort gen [-blocks N] [-mode M] [-seed S] FILE")
	}

	m, err := extsort.ParseMode(*mode)
	if err != nil {
		return err
	}

	name := fs.Arg(0)
	if err := extsort.GenerateFile(name, *blocks, m, rand.New(rand.NewSource(*seed))); err != nil {
		return err
	}

	logger.Info("generated",
		zap.String("file", name),
		zap.Int("blocks", *blocks),
		zap.Stringer("mode", m),
		zap.Int64("seed", *seed),
	)
	return nil
}

func runs(input, output string, opt *extsort.Options) error {
	in, err := extsort.OpenBlockStore(input)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := extsort.CreateBlockWriter(output)
	if err != nil {
		return err
	}

	rg := extsort.NewRunGenerator(in, out, opt)
	rs, err := rg.Generate()
	if err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	src, err := extsort.OpenBlockStore(output)
	if err != nil {
		return err
	}
	defer src.Close()

	sum, err := extsort.Scan(src, rs)
	if err != nil {
		return err
	}

	for i, r := range rs {
		opt.Logger.Info("run",
			zap.Int("run", i+1),
			zap.Int64("offset", r.Offset),
			zap.Int64("records", r.Len),
		)
	}
	opt.Logger.Info("runs verified",
		zap.Int("runs", len(rs)),
		zap.Int64("records", sum.Records),
		zap.Int64("inversions", sum.Inversions),
	)
	return nil
}

func verify(name string, logger *zap.Logger) error {
	s, err := extsort.OpenBlockStore(name)
	if err != nil {
		return err
	}
	defer s.Close()

	sum, err := extsort.Scan(s, nil)
	if err != nil {
		return err
	}

	logger.Info("verified",
		zap.String("file", name),
		zap.Int("blocks", sum.Blocks),
		zap.Int64("records", sum.Records),
		zap.Int64("inversions", sum.Inversions),
		zap.Int64("trailing_bytes", sum.Trailing),
		zap.Uint64("digest", sum.Digest),
	)
	if !sum.Sorted() {
		return errors.Errorf("%s is not sorted", name)
	}
	return nil
}
