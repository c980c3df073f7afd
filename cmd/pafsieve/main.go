// Command pafsieve applies the filter pipeline (C1-C9) to a PAF-style
// alignment stream: it normalizes records, runs the primary and scaffold
// filters and the best-buddy chainer, rescues near-miss records, and emits
// the survivors with chain annotation tags appended.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"

	"github.com/grailbio/synteny/align"
	"github.com/grailbio/synteny/pipeline"
)

func usage() {
	fmt.Fprintln(os.Stderr, `
pafsieve filters a PAF alignment stream: it keeps the best-scoring
alignments per query/target axis, chains nearby survivors into scaffolds,
and rescues near-miss records close to a surviving scaffold. Records that
pass are re-emitted with ch:Z:/st:Z: annotation tags appended.

Usage:
  pafsieve -input in.paf[.gz] -output out.paf[.gz] [flags]

If -input is empty, pafsieve reads from stdin. If -output is empty,
pafsieve writes to stdout.
`)
	flag.PrintDefaults()
	os.Exit(2)
}

func main() {
	flag.Usage = usage

	var (
		inputPath  string
		outputPath string
		statsFlag  bool
	)
	flag.StringVar(&inputPath, "input", "", "PAF input path (default stdin). A .gz suffix is read as gzip.")
	flag.StringVar(&outputPath, "output", "", "PAF output path (default stdout). A .gz suffix is written as gzip.")
	flag.BoolVar(&statsFlag, "stats", false, "print a per-stage record count summary to stderr when done")

	cfg := pipeline.DefaultConfig
	flag.Int64Var(&cfg.MinBlockLength, "min-block-length", cfg.MinBlockLength, "drop records with block_length below this")
	flag.Float64Var(&cfg.MinIdentity, "min-identity", cfg.MinIdentity, "drop records with identity below this")
	flag.BoolVar(&cfg.KeepSelfAlignments, "keep-self-alignments", cfg.KeepSelfAlignments, "keep records where query_name == target_name")
	flag.StringVar(&cfg.PrimaryMode, "primary-mode", cfg.PrimaryMode, "primary filter mode: off, M:N, 1:1, or 1:N")
	flag.Float64Var(&cfg.PrimaryOverlap, "primary-overlap", cfg.PrimaryOverlap, "overlap fraction threshold for the primary filter")
	flag.Int64Var(&cfg.ScaffoldGap, "scaffold-gap", cfg.ScaffoldGap, "max gap between chained records; 0 disables scaffolding")
	flag.Int64Var(&cfg.MinScaffoldLength, "min-scaffold-length", cfg.MinScaffoldLength, "drop chains with span below this")
	flag.Float64Var(&cfg.MinScaffoldIdentity, "min-scaffold-identity", cfg.MinScaffoldIdentity, "drop chains with weighted identity below this")
	flag.StringVar(&cfg.ScaffoldMode, "scaffold-mode", cfg.ScaffoldMode, "scaffold filter mode: off, M:N, 1:1, or 1:N")
	flag.Float64Var(&cfg.ScaffoldOverlap, "scaffold-overlap", cfg.ScaffoldOverlap, "overlap fraction threshold for the scaffold filter")
	flag.Float64Var(&cfg.ScaffoldMaxDeviation, "scaffold-max-deviation", cfg.ScaffoldMaxDeviation, "rescue radius; 0 disables rescue")
	flag.StringVar(&cfg.ScoringFunction, "scoring-function", cfg.ScoringFunction, "Identity, Length, LengthIdentity, LogLengthIdentity, or Matches")
	flag.BoolVar(&cfg.UsePrefixGrouping, "use-prefix-grouping", cfg.UsePrefixGrouping, "derive genome pairs from a PanSN contig-name prefix")
	delim := flag.String("prefix-delimiter", string(cfg.PrefixDelimiter), "single-byte PanSN prefix delimiter")
	flag.IntVar(&cfg.Parallelism, "parallelism", cfg.Parallelism, "worker pool size for the primary filter; 0 means GOMAXPROCS")

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	if *delim != "" {
		cfg.PrefixDelimiter = (*delim)[0]
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("pafsieve: %v", err)
	}

	in, closeIn := openInput(ctx, inputPath)
	defer closeIn()
	out, closeOut := createOutput(ctx, outputPath)
	defer closeOut()

	start := time.Now()
	scoring, _ := align.ParseScoring(cfg.ScoringFunction)
	normalizer := align.NewNormalizer(scoring, cfg.PrefixDelimiter, cfg.UsePrefixGrouping, nil)
	lines, malformed, err := align.ReadAllLines(in, normalizer)
	if err != nil {
		log.Fatalf("pafsieve: reading %s: %v", displayPath(inputPath), err)
	}
	log.Printf("pafsieve: read %d records (%d malformed, skipped) from %s", len(lines), malformed, displayPath(inputPath))

	records := make([]align.RecordMeta, len(lines))
	for i, l := range lines {
		records[i] = l.Record
	}

	result, err := pipeline.Run(ctx, cfg, records)
	if err != nil {
		log.Fatalf("pafsieve: %v", err)
	}
	result.Report.RecordsMalformed = malformed

	lineByRank := make(map[int]string, len(lines))
	for _, l := range lines {
		lineByRank[l.Record.Rank] = l.Line
	}

	w := bufio.NewWriter(out)
	for i := range result.Records {
		r := &result.Records[i]
		if err := align.WriteLine(w, lineByRank[r.Rank], r); err != nil {
			log.Fatalf("pafsieve: writing %s: %v", displayPath(outputPath), err)
		}
	}
	if err := w.Flush(); err != nil {
		log.Fatalf("pafsieve: writing %s: %v", displayPath(outputPath), err)
	}

	log.Printf("pafsieve: wrote %d records to %s in %s", len(result.Records), displayPath(outputPath), time.Since(start))
	if statsFlag {
		fmt.Fprint(os.Stderr, result.Report.String())
	}
}

func displayPath(path string) string {
	if path == "" {
		return "<stdin/stdout>"
	}
	return path
}

// openInput opens inputPath (stdin if empty), transparently decompressing a
// .gz-suffixed path, mirroring pileup.LoadFa's fileio.DetermineType-gated
// gzip.NewReader wrapping.
func openInput(ctx context.Context, inputPath string) (io.Reader, func()) {
	if inputPath == "" {
		return os.Stdin, func() {}
	}
	f, err := file.Open(ctx, inputPath)
	if err != nil {
		log.Fatalf("pafsieve: open %s: %v", inputPath, err)
	}
	var r io.Reader = f.Reader(ctx)
	if fileio.DetermineType(inputPath) == fileio.Gzip {
		gz, err := gzip.NewReader(r)
		if err != nil {
			log.Fatalf("pafsieve: gzip %s: %v", inputPath, err)
		}
		r = gz
	}
	return r, func() {
		if err := f.Close(ctx); err != nil {
			log.Error.Printf("pafsieve: close %s: %v", inputPath, err)
		}
	}
}

// createOutput opens outputPath for writing (stdout if empty), transparently
// gzip-compressing a .gz-suffixed path.
func createOutput(ctx context.Context, outputPath string) (io.Writer, func()) {
	if outputPath == "" {
		return os.Stdout, func() {}
	}
	f, err := file.Create(ctx, outputPath)
	if err != nil {
		log.Fatalf("pafsieve: create %s: %v", outputPath, err)
	}
	if fileio.DetermineType(outputPath) == fileio.Gzip {
		gz := gzip.NewWriter(f.Writer(ctx))
		return gz, func() {
			if err := gz.Close(); err != nil {
				log.Error.Printf("pafsieve: close gzip %s: %v", outputPath, err)
			}
			if err := f.Close(ctx); err != nil {
				log.Error.Printf("pafsieve: close %s: %v", outputPath, err)
			}
		}
	}
	return f.Writer(ctx), func() {
		if err := f.Close(ctx); err != nil {
			log.Error.Printf("pafsieve: close %s: %v", outputPath, err)
		}
	}
}
