// Package coverage accumulates alignment overlap lengths into target regions.
package coverage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/seq2cov/internal/alignment"
	"github.com/inodb/seq2cov/internal/index"
	"github.com/inodb/seq2cov/internal/region"
)

// Counters holds the summed overlap of every region, indexed by region ID.
type Counters []int64

// Count returns the summed overlap of a region.
func (c Counters) Count(id int) int64 {
	return c[id]
}

// Stats tallies how the records of a run were handled.
type Stats struct {
	Records        int
	Counted        int
	Unmapped       int
	Supplementary  int
	UntrackedChrom int
}

// Skipped returns the number of records that contributed nothing.
func (s Stats) Skipped() int {
	return s.Unmapped + s.Supplementary + s.UntrackedChrom
}

// checkEvery is how many records are consumed between context checks.
const checkEvery = 1 << 12

// Accumulator adds alignment overlaps to region counters.
// It is not safe for concurrent use; records must be fed from one goroutine.
type Accumulator struct {
	catalog *region.Catalog
	indexes map[string]index.Index
	counts  Counters
	stats   Stats
	logger  *zap.Logger
}

// NewAccumulator builds one index of the given kind per catalog chromosome.
func NewAccumulator(cat *region.Catalog, kind index.Kind) (*Accumulator, error) {
	a := &Accumulator{
		catalog: cat,
		indexes: make(map[string]index.Index, len(cat.Chromosomes())),
		counts:  make(Counters, cat.Len()),
		logger:  zap.NewNop(),
	}

	for _, chrom := range cat.Chromosomes() {
		regions := cat.Regions(chrom)
		intervals := make([]index.Interval, len(regions))
		for i, r := range regions {
			intervals[i] = index.Interval{ID: r.ID, Start: r.Start, End: r.End}
		}
		idx, err := index.Build(kind, intervals)
		if err != nil {
			return nil, fmt.Errorf("build index for %s: %w", chrom, err)
		}
		a.indexes[chrom] = idx
	}

	return a, nil
}

// SetLogger sets the logger for progress and summary messages.
func (a *Accumulator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// Overlap returns the overlap credited to a region for an alignment span.
// The span is 1-based inclusive while the region end is the stored half-open
// end, used as-is; an alignment ending on or past the region end therefore
// gets one more base than the geometric intersection.
func Overlap(span alignment.Span, r region.Region) int64 {
	return min(span.End, r.End) - max(span.Start, r.Start) + 1
}

// Add accumulates one record and reports whether it was counted.
// Unmapped and supplementary records, and records on chromosomes without
// regions, are skipped without error.
func (a *Accumulator) Add(rec *alignment.Record) bool {
	a.stats.Records++

	if rec.IsUnmapped() {
		a.stats.Unmapped++
		return false
	}
	if rec.IsSupplementary() {
		a.stats.Supplementary++
		return false
	}

	span := rec.Span()
	idx, ok := a.indexes[span.Chrom]
	if !ok {
		a.stats.UntrackedChrom++
		return false
	}

	// Pad one base each side so inclusive spans touching a region boundary are visited.
	idx.Query(span.Start-1, span.End+1, func(id int) {
		r := a.catalog.Region(id)
		if r.IsUnnamed() {
			return
		}
		a.counts[id] += Overlap(span, r)
	})

	a.stats.Counted++
	return true
}

// Consume reads src until it is exhausted. A read error or a cancelled
// context aborts the run, including a cancellation noticed only at the end
// of the stream.
func (a *Accumulator) Consume(ctx context.Context, src alignment.Source) (Stats, error) {
	for n := 1; ; n++ {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return a.stats, err
			}
		}

		rec, err := src.Next()
		if err != nil {
			return a.stats, fmt.Errorf("read alignment: %w", err)
		}
		if rec == nil {
			break
		}
		a.Add(rec)

		if a.stats.Records%1000000 == 0 {
			a.logger.Debug("processed alignments", zap.Int("records", a.stats.Records))
		}
	}
	if err := ctx.Err(); err != nil {
		return a.stats, err
	}

	a.logger.Info("finished counting alignments",
		zap.Int("records", a.stats.Records),
		zap.Int("counted", a.stats.Counted),
		zap.Int("unmapped", a.stats.Unmapped),
		zap.Int("supplementary", a.stats.Supplementary),
		zap.Int("untracked_chrom", a.stats.UntrackedChrom))

	return a.stats, nil
}

// Counts returns the region counters. Callers must not read them while records are still being added.
func (a *Accumulator) Counts() Counters {
	return a.counts
}

// Stats returns the tallies so far.
func (a *Accumulator) Stats() Stats {
	return a.stats
}

// Catalog returns the catalog the accumulator counts into.
func (a *Accumulator) Catalog() *region.Catalog {
	return a.catalog
}
