// Package region provides the target region catalog and BED loading.
package region

import (
	"fmt"
)

// Unnamed is the reserved name of a region that carries no gene name.
// Such regions are indexed and reported but never receive overlap credit.
const Unnamed = "."

// Region is a named, 0-based half-open interval on one chromosome.
type Region struct {
	ID    int
	Chrom string
	Start int64
	End   int64
	Name  string
}

// Len returns the number of bases covered by the region.
func (r Region) Len() int64 {
	return r.End - r.Start
}

// IsUnnamed reports whether the region carries the sentinel name.
func (r Region) IsUnnamed() bool {
	return r.Name == Unnamed
}

// Catalog holds target regions grouped by chromosome.
// Region IDs are dense and assigned in insertion order.
type Catalog struct {
	regions []Region
	// byChrom stores region IDs indexed by chromosome
	byChrom map[string][]int
	order   []string
}

// NewCatalog creates a new empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		byChrom: make(map[string][]int),
	}
}

// Add appends a region to the catalog and returns it with its assigned ID.
func (c *Catalog) Add(chrom string, start, end int64, name string) (Region, error) {
	if start < 0 {
		return Region{}, fmt.Errorf("region %s:%d-%d: negative start", chrom, start, end)
	}
	if end < start {
		return Region{}, fmt.Errorf("region %s:%d-%d: end before start", chrom, start, end)
	}

	r := Region{
		ID:    len(c.regions),
		Chrom: chrom,
		Start: start,
		End:   end,
		Name:  name,
	}
	c.regions = append(c.regions, r)

	if _, ok := c.byChrom[chrom]; !ok {
		c.order = append(c.order, chrom)
	}
	c.byChrom[chrom] = append(c.byChrom[chrom], r.ID)

	return r, nil
}

// AddRecord adds a parsed BED record. Records without a name column are rejected.
func (c *Catalog) AddRecord(rec *Record) error {
	if !rec.HasName {
		return fmt.Errorf("BED record %s:%d-%d at line %d does not define name",
			rec.Chrom, rec.Start, rec.End, rec.Line)
	}
	if _, err := c.Add(rec.Chrom, rec.Start, rec.End, rec.Name); err != nil {
		return fmt.Errorf("line %d: %w", rec.Line, err)
	}
	return nil
}

// Chromosomes returns chromosomes in the order they were first seen.
func (c *Catalog) Chromosomes() []string {
	return c.order
}

// Regions returns all regions of a chromosome in insertion order.
func (c *Catalog) Regions(chrom string) []Region {
	ids := c.byChrom[chrom]
	if len(ids) == 0 {
		return nil
	}
	result := make([]Region, len(ids))
	for i, id := range ids {
		result[i] = c.regions[id]
	}
	return result
}

// Region returns the region with the given ID.
func (c *Catalog) Region(id int) Region {
	return c.regions[id]
}

// Len returns the total number of regions.
func (c *Catalog) Len() int {
	return len(c.regions)
}
