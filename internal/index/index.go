// Package index provides static per-chromosome interval indexes over region IDs.
package index

import "fmt"

// Interval is a 0-based half-open range tagged with the ID of the region it belongs to.
type Interval struct {
	ID    int
	Start int64
	End   int64
}

// Overlaps reports whether the interval intersects the half-open range [start, end).
func (iv Interval) Overlaps(start, end int64) bool {
	return iv.Start < end && iv.End > start
}

// Index answers half-open range overlap queries over a fixed set of intervals.
// Implementations are built once and never modified afterwards.
type Index interface {
	// Query calls visit once with the ID of every interval that intersects
	// [start, end). Visit order is unspecified.
	Query(start, end int64, visit func(id int))

	// Len returns the number of indexed intervals.
	Len() int
}

// Kind selects an Index implementation.
type Kind string

const (
	// Sorted is a start-sorted slice searched as an implicit augmented tree.
	Sorted Kind = "sorted"
	// Tree is an augmented interval tree from biogo/store.
	Tree Kind = "tree"
)

// ParseKind converts a configuration value to a Kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Sorted, Tree:
		return k, nil
	case "":
		return Sorted, nil
	default:
		return "", fmt.Errorf("unknown index kind %q (want %q or %q)", s, Sorted, Tree)
	}
}

// Build creates an index of the given kind from intervals.
func Build(kind Kind, intervals []Interval) (Index, error) {
	switch kind {
	case Sorted, "":
		return BuildSorted(intervals), nil
	case Tree:
		return BuildTree(intervals)
	default:
		return nil, fmt.Errorf("unknown index kind %q", kind)
	}
}
