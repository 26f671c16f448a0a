package index

import "sort"

// SortedIndex provides overlap queries over a start-sorted slice laid out as
// an implicit balanced tree: the node of the range [lo, hi) is its midpoint,
// and maxEnd[mid] is the largest End in [lo, hi). A subtree is skipped as
// soon as nothing in it can reach the query start, and a right subtree as
// soon as its starts pass the query end, so a long interval only affects the
// subtrees that contain it.
type SortedIndex struct {
	intervals []Interval
	maxEnd    []int64
}

// BuildSorted creates a SortedIndex. The input slice is not modified.
func BuildSorted(intervals []Interval) *SortedIndex {
	if len(intervals) == 0 {
		return &SortedIndex{}
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	t := &SortedIndex{intervals: sorted, maxEnd: make([]int64, len(sorted))}
	t.augment(0, len(sorted))
	return t
}

// augment fills maxEnd for the subtree over [lo, hi) and returns its maximum.
func (t *SortedIndex) augment(lo, hi int) int64 {
	mid := int(uint(lo+hi) >> 1)
	m := t.intervals[mid].End
	if lo < mid {
		m = max(m, t.augment(lo, mid))
	}
	if mid+1 < hi {
		m = max(m, t.augment(mid+1, hi))
	}
	t.maxEnd[mid] = m
	return m
}

// Query calls visit for every interval intersecting [start, end).
func (t *SortedIndex) Query(start, end int64, visit func(id int)) {
	t.query(0, len(t.intervals), start, end, visit)
}

// query walks the subtree over [lo, hi) and returns the number of nodes inspected.
func (t *SortedIndex) query(lo, hi int, start, end int64, visit func(id int)) int {
	if lo >= hi {
		return 0
	}
	mid := int(uint(lo+hi) >> 1)
	if t.maxEnd[mid] <= start {
		return 1
	}

	n := 1 + t.query(lo, mid, start, end, visit)

	iv := t.intervals[mid]
	if iv.Start >= end {
		// Everything to the right starts at or after iv.
		return n
	}
	if iv.End > start {
		visit(iv.ID)
	}
	return n + t.query(mid+1, hi, start, end, visit)
}

// Len returns the number of indexed intervals.
func (t *SortedIndex) Len() int {
	return len(t.intervals)
}
