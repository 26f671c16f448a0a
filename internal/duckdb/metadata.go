package duckdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"
)

// FileFingerprint holds stat-based identity for a file.
type FileFingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a FileFingerprint from an on-disk file.
func StatFile(path string) (FileFingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileFingerprint{}, err
	}
	return FileFingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// same reports whether two fingerprints describe the same file contents.
func (f FileFingerprint) same(o FileFingerprint) bool {
	return f.Path == o.Path && f.Size == o.Size && f.ModTime.UnixNano() == o.ModTime.UnixNano()
}

// Run records the inputs and options a sample's rows were computed from.
type Run struct {
	Sample       string
	BAM          FileFingerprint
	BED          FileFingerprint
	LegacyLength bool
}

// Matches reports whether a stored run was computed from the same inputs and options.
func (r Run) Matches(o Run) bool {
	return r.Sample == o.Sample && r.LegacyLength == o.LegacyLength &&
		r.BAM.same(o.BAM) && r.BED.same(o.BED)
}

// WriteRun stores the run record for a sample, replacing any previous one.
func (s *Store) WriteRun(r Run) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO runs VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Sample,
		r.BAM.Path, r.BAM.Size, r.BAM.ModTime.UnixNano(),
		r.BED.Path, r.BED.Size, r.BED.ModTime.UnixNano(),
		r.LegacyLength)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// LookupRun returns the stored run record for a sample, or nil if none exists.
func (s *Store) LookupRun(sample string) (*Run, error) {
	var r Run
	var bamMtime, bedMtime int64
	err := s.db.QueryRow(`SELECT
		sample, bam_path, bam_size, bam_mtime_ns,
		bed_path, bed_size, bed_mtime_ns, legacy_length
		FROM runs WHERE sample=?`, sample).Scan(
		&r.Sample, &r.BAM.Path, &r.BAM.Size, &bamMtime,
		&r.BED.Path, &r.BED.Size, &bedMtime, &r.LegacyLength)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	r.BAM.ModTime = time.Unix(0, bamMtime)
	r.BED.ModTime = time.Unix(0, bedMtime)
	return &r, nil
}
