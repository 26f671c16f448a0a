package index

import (
	"fmt"

	"github.com/biogo/store/interval"
)

// TreeIndex wraps a biogo/store augmented interval tree.
type TreeIndex struct {
	tree interval.IntTree
}

// treeInterval adapts an Interval to interval.IntInterface.
// The tree refuses empty ranges, so zero-length intervals are stored one base
// wide and filtered against their true bounds at query time.
type treeInterval struct {
	id         int
	start, end int
}

func (iv treeInterval) Overlap(b interval.IntRange) bool {
	return iv.end > b.Start && iv.start < b.End
}

func (iv treeInterval) ID() uintptr { return uintptr(iv.id) }

func (iv treeInterval) Range() interval.IntRange {
	end := iv.end
	if end == iv.start {
		end++
	}
	return interval.IntRange{Start: iv.start, End: end}
}

// query is a half-open range used to walk the tree.
type query struct {
	start, end int
}

func (q query) Overlap(b interval.IntRange) bool {
	return b.End > q.start && b.Start < q.end
}

// BuildTree creates a TreeIndex. All intervals are inserted before ranges are
// adjusted once, so construction is O(n log n).
func BuildTree(intervals []Interval) (*TreeIndex, error) {
	t := &TreeIndex{}
	for _, iv := range intervals {
		ti := treeInterval{id: iv.ID, start: int(iv.Start), end: int(iv.End)}
		if err := t.tree.Insert(ti, true); err != nil {
			return nil, fmt.Errorf("insert interval %d [%d, %d): %w", iv.ID, iv.Start, iv.End, err)
		}
	}
	t.tree.AdjustRanges()
	return t, nil
}

// Query calls visit for every interval intersecting [start, end).
func (t *TreeIndex) Query(start, end int64, visit func(id int)) {
	if t.tree.Len() == 0 {
		return
	}
	q := query{start: int(start), end: int(end)}
	t.tree.DoMatching(func(e interval.IntInterface) bool {
		iv := e.(treeInterval)
		if iv.end > q.start && iv.start < q.end {
			visit(iv.id)
		}
		return false
	}, q)
}

// Len returns the number of indexed intervals.
func (t *TreeIndex) Len() int {
	return t.tree.Len()
}
