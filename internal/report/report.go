// Package report turns accumulated region overlaps into amplicon and gene depth rows.
package report

import (
	"sort"

	"github.com/inodb/seq2cov/internal/region"
)

// Row tags.
const (
	TagAmplicon  = "Amplicon"
	TagWholeGene = "Whole-Gene"
)

// Row is one line of the depth report.
type Row struct {
	Sample string
	Gene   string
	Chrom  string
	Start  int64
	End    int64
	Tag    string
	Length int64
	Depth  float64
}

// Counts provides the summed overlap of a region by ID.
type Counts interface {
	Count(id int) int64
}

// Options controls report arithmetic.
type Options struct {
	// LegacyLength adds one to every amplicon length, matching the
	// historical seq2c output.
	LegacyLength bool
}

// entry is a region paired with its final overlap, as sorted for output.
type entry struct {
	name    string
	start   int64
	end     int64
	overlap int64
}

// less orders entries by (name, start, end, overlap).
func (e entry) less(o entry) bool {
	if e.name != o.name {
		return e.name < o.name
	}
	if e.start != o.start {
		return e.start < o.start
	}
	if e.end != o.end {
		return e.end < o.end
	}
	return e.overlap < o.overlap
}

// Group accumulates consecutive same-named amplicons into a gene row.
type Group struct {
	Name    string
	Start   int64
	MaxEnd  int64
	Length  int64
	Overlap int64
}

// MeanDepth returns the summed overlap per base, or 0 for an empty group.
func (g Group) MeanDepth() float64 {
	if g.Length > 0 {
		return float64(g.Overlap) / float64(g.Length)
	}
	return 0
}

func (g Group) row(sample, chrom string) Row {
	return Row{
		Sample: sample,
		Gene:   g.Name,
		Chrom:  chrom,
		Start:  g.Start,
		End:    g.MaxEnd,
		Tag:    TagWholeGene,
		Length: g.Length,
		Depth:  g.MeanDepth(),
	}
}

// Build produces the report rows for every chromosome in catalog order.
//
// Within a chromosome, amplicons are sorted by (name, start, end, overlap) and
// each run of equal names is followed by its Whole-Gene row. The last group of
// a chromosome is always closed, even when it is the only one.
//
// Amplicon depth is a plain float division, so a zero-length amplicon yields
// +Inf (or NaN with no overlap).
func Build(sample string, cat *region.Catalog, counts Counts, opts Options) []Row {
	var rows []Row
	for _, chrom := range cat.Chromosomes() {
		rows = appendChrom(rows, sample, chrom, cat.Regions(chrom), counts, opts)
	}
	return rows
}

func appendChrom(rows []Row, sample, chrom string, regions []region.Region, counts Counts, opts Options) []Row {
	entries := make([]entry, len(regions))
	for i, r := range regions {
		entries[i] = entry{name: r.Name, start: r.Start, end: r.End, overlap: counts.Count(r.ID)}
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].less(entries[j])
	})

	// An empty name marks "no group yet".
	var g Group
	for _, e := range entries {
		if e.name != g.Name {
			if g.Name != "" {
				rows = append(rows, g.row(sample, chrom))
			}
			g = Group{Name: e.name, Start: e.start}
		}

		length := e.end - e.start
		if opts.LegacyLength {
			length++
		}
		g.MaxEnd = max(g.MaxEnd, e.end)

		rows = append(rows, Row{
			Sample: sample,
			Gene:   e.name,
			Chrom:  chrom,
			Start:  e.start,
			End:    e.end,
			Tag:    TagAmplicon,
			Length: length,
			Depth:  float64(e.overlap) / float64(length),
		})

		g.Length += length
		g.Overlap += e.overlap
	}

	return append(rows, g.row(sample, chrom))
}
