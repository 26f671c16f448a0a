package report

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes the amplicon depth distribution of a report.
type Summary struct {
	Amplicons   int
	MeanDepth   float64
	MedianDepth float64
	MinDepth    float64
	MaxDepth    float64
	// BelowMin counts amplicons with depth under the requested threshold.
	BelowMin int
	// NonFinite counts amplicons whose depth is NaN or infinite.
	NonFinite int
}

// Summarize computes depth statistics over the Amplicon rows. Amplicons with
// a non-finite depth are counted separately and excluded from the statistics.
func Summarize(rows []Row, minDepth float64) Summary {
	var s Summary
	var depths []float64
	for _, r := range rows {
		if r.Tag != TagAmplicon {
			continue
		}
		s.Amplicons++
		if math.IsNaN(r.Depth) || math.IsInf(r.Depth, 0) {
			s.NonFinite++
			continue
		}
		depths = append(depths, r.Depth)
		if r.Depth < minDepth {
			s.BelowMin++
		}
	}
	if len(depths) == 0 {
		return s
	}

	sort.Float64s(depths)
	s.MeanDepth = stat.Mean(depths, nil)
	s.MedianDepth = stat.Quantile(0.5, stat.Empirical, depths, nil)
	s.MinDepth = floats.Min(depths)
	s.MaxDepth = floats.Max(depths)
	return s
}
