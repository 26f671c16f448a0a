// Package alignment provides alignment records and BAM/SAM sources for coverage counting.
package alignment

import (
	"github.com/biogo/hts/sam"
)

// Record holds the parts of an alignment that coverage counting needs.
type Record struct {
	// Chrom is the reference name; empty when no reference is assigned.
	Chrom string
	// Pos is the 0-based leftmost mapped position.
	Pos   int64
	Cigar sam.Cigar
	Flags sam.Flags
}

// FromSAM converts a biogo/hts record.
func FromSAM(r *sam.Record) *Record {
	rec := &Record{
		Pos:   int64(r.Pos),
		Cigar: r.Cigar,
		Flags: r.Flags,
	}
	if r.Ref != nil {
		rec.Chrom = r.Ref.Name()
	}
	return rec
}

// IsUnmapped reports whether the record has no assigned reference.
func (r *Record) IsUnmapped() bool {
	return r.Chrom == ""
}

// IsSupplementary reports whether the record is a supplementary alignment.
func (r *Record) IsSupplementary() bool {
	return r.Flags&sam.Supplementary != 0
}

// Span is the 1-based inclusive reference interval covered by an alignment.
type Span struct {
	Chrom string
	Start int64
	End   int64
}

// Span computes the reference span of the record. Only alignment match (M)
// and deletion (D) operations extend it; an alignment with neither has
// End == Start-1.
func (r *Record) Span() Span {
	start := r.Pos + 1
	var refLen int64
	for _, co := range r.Cigar {
		switch co.Type() {
		case sam.CigarMatch, sam.CigarDeletion:
			refLen += int64(co.Len())
		}
	}
	return Span{
		Chrom: r.Chrom,
		Start: start,
		End:   start - 1 + refLen,
	}
}

// Source is the interface for readers that deliver alignment records sequentially.
type Source interface {
	// Next reads the next record.
	// Returns nil, nil when there are no more records.
	Next() (*Record, error)

	// Close closes the source and releases resources.
	Close() error
}

// SliceSource serves records from memory.
type SliceSource struct {
	records []*Record
	pos     int
}

// NewSliceSource creates a Source over the given records.
func NewSliceSource(records ...*Record) *SliceSource {
	return &SliceSource{records: records}
}

// Next returns the next record, or nil at the end.
func (s *SliceSource) Next() (*Record, error) {
	if s.pos >= len(s.records) {
		return nil, nil
	}
	r := s.records[s.pos]
	s.pos++
	return r, nil
}

// Close is a no-op.
func (s *SliceSource) Close() error {
	return nil
}
