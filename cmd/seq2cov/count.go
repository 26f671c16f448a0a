package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/seq2cov/internal/alignment"
	"github.com/inodb/seq2cov/internal/coverage"
	"github.com/inodb/seq2cov/internal/duckdb"
	"github.com/inodb/seq2cov/internal/index"
	"github.com/inodb/seq2cov/internal/output"
	"github.com/inodb/seq2cov/internal/region"
	"github.com/inodb/seq2cov/internal/report"
)

// countOptions holds the resolved settings of a counting run.
type countOptions struct {
	BAM          string
	BED          string
	Sample       string
	LegacyLength bool
	Output       string
	Threads      int
	Index        index.Kind
	DuckDB       string
	Reuse        bool
	MinDepth     float64
	Verbose      bool
}

// loadOptions reads and validates the counting settings from v.
func loadOptions(v *viper.Viper) (countOptions, error) {
	opts := countOptions{
		BAM:          v.GetString("bam"),
		BED:          v.GetString("bed"),
		Sample:       v.GetString("sample-name"),
		LegacyLength: v.GetBool("legacy-length"),
		Output:       v.GetString("output"),
		Threads:      v.GetInt("threads"),
		DuckDB:       v.GetString("duckdb"),
		Reuse:        v.GetBool("reuse"),
		MinDepth:     v.GetFloat64("min-depth"),
		Verbose:      v.GetBool("verbose"),
	}

	switch {
	case opts.BAM == "":
		return opts, errors.New("--bam is required")
	case opts.BED == "":
		return opts, errors.New("--bed is required")
	case opts.Sample == "":
		return opts, errors.New("--sample-name is required")
	case opts.BAM == "-" && opts.BED == "-":
		return opts, errors.New("--bam and --bed cannot both read stdin")
	case opts.Threads < 1:
		return opts, fmt.Errorf("--threads must be at least 1, got %d", opts.Threads)
	case opts.Reuse && opts.DuckDB == "":
		return opts, errors.New("--reuse requires --duckdb")
	}

	kind, err := index.ParseKind(v.GetString("index"))
	if err != nil {
		return opts, err
	}
	opts.Index = kind

	return opts, nil
}

// runCount computes the depth report and writes it to the configured output.
// Rows are built in full before anything is written.
func runCount(ctx context.Context, opts countOptions, logger *zap.Logger, stdout io.Writer) error {
	var store *duckdb.Store
	if opts.DuckDB != "" {
		var err error
		store, err = duckdb.Open(opts.DuckDB)
		if err != nil {
			return fmt.Errorf("opening report store: %w", err)
		}
		defer store.Close()
	}

	run, fingerprinted := fingerprintRun(opts, logger)

	var rows []report.Row
	if opts.Reuse && fingerprinted {
		stored, err := store.LookupRun(opts.Sample)
		if err != nil {
			return err
		}
		if stored != nil && stored.Matches(run) {
			rows, err = store.LookupSample(opts.Sample)
			if err != nil {
				return err
			}
			logger.Info("reusing stored report",
				zap.String("sample", opts.Sample),
				zap.String("duckdb", opts.DuckDB),
				zap.Int("rows", len(rows)))
		}
	}

	computed := rows == nil
	if computed {
		var err error
		rows, err = computeRows(ctx, opts, logger)
		if err != nil {
			return err
		}
	}

	s := report.Summarize(rows, opts.MinDepth)
	logger.Info("depth summary",
		zap.Int("amplicons", s.Amplicons),
		zap.Float64("mean_depth", s.MeanDepth),
		zap.Float64("median_depth", s.MedianDepth),
		zap.Float64("min_depth", s.MinDepth),
		zap.Float64("max_depth", s.MaxDepth),
		zap.Int("below_min_depth", s.BelowMin),
		zap.Int("non_finite", s.NonFinite))

	if err := writeReport(opts.Output, stdout, rows); err != nil {
		return err
	}

	if store != nil && computed {
		if err := store.WriteRows(opts.Sample, rows); err != nil {
			return fmt.Errorf("storing report: %w", err)
		}
		if fingerprinted {
			if err := store.WriteRun(run); err != nil {
				return fmt.Errorf("storing run: %w", err)
			}
		}
		logger.Info("stored report",
			zap.String("duckdb", opts.DuckDB),
			zap.String("sample", opts.Sample),
			zap.Int("rows", len(rows)))
	}

	return nil
}

// fingerprintRun describes the inputs of a run. It reports false when an
// input is not a regular file on disk, in which case the run is not reusable.
func fingerprintRun(opts countOptions, logger *zap.Logger) (duckdb.Run, bool) {
	run := duckdb.Run{Sample: opts.Sample, LegacyLength: opts.LegacyLength}
	if opts.DuckDB == "" || opts.BAM == "-" || opts.BED == "-" {
		return run, false
	}

	var err error
	if run.BAM, err = duckdb.StatFile(opts.BAM); err != nil {
		logger.Debug("cannot fingerprint alignment file", zap.Error(err))
		return run, false
	}
	if run.BED, err = duckdb.StatFile(opts.BED); err != nil {
		logger.Debug("cannot fingerprint region file", zap.Error(err))
		return run, false
	}
	return run, true
}

// computeRows loads the regions, counts the alignments and builds the report.
func computeRows(ctx context.Context, opts countOptions, logger *zap.Logger) ([]report.Row, error) {
	cat, err := region.LoadBED(opts.BED)
	if err != nil {
		return nil, err
	}
	logger.Info("loaded regions",
		zap.String("bed", opts.BED),
		zap.Int("regions", cat.Len()),
		zap.Int("chromosomes", len(cat.Chromosomes())))

	acc, err := coverage.NewAccumulator(cat, opts.Index)
	if err != nil {
		return nil, err
	}
	acc.SetLogger(logger)
	logger.Debug("built region indexes", zap.String("index", string(opts.Index)))

	reader, err := alignment.Open(opts.BAM, opts.Threads)
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	logger.Debug("opened alignment file",
		zap.String("bam", opts.BAM),
		zap.String("format", string(reader.Format())))

	if _, err := acc.Consume(ctx, reader); err != nil {
		return nil, err
	}

	return report.Build(opts.Sample, cat, acc.Counts(), report.Options{LegacyLength: opts.LegacyLength}), nil
}

// writeReport writes rows to path, or to stdout when path is empty or "-".
func writeReport(path string, stdout io.Writer, rows []report.Row) error {
	if path == "" || path == "-" {
		return output.NewTabWriter(stdout).WriteAll(rows)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	if err := output.NewTabWriter(f).WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("writing report: %w", err)
	}
	return f.Close()
}
