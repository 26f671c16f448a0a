package duckdb

import (
	"context"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/seq2cov/internal/report"
)

// WriteRows replaces all stored rows of a sample with rows, batch-inserted
// using the Appender API. Row order is preserved.
func (s *Store) WriteRows(sample string, rows []report.Row) error {
	if err := s.DeleteSample(sample); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "depth_rows")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for i, r := range rows {
		if err := appender.AppendRow(
			sample, int64(i), r.Gene, r.Chrom,
			r.Start, r.End, r.Tag, r.Length, r.Depth,
		); err != nil {
			return fmt.Errorf("append depth row: %w", err)
		}
	}

	return appender.Flush()
}

// DeleteSample removes the stored rows and run record of a sample.
func (s *Store) DeleteSample(sample string) error {
	if _, err := s.db.Exec("DELETE FROM depth_rows WHERE sample=?", sample); err != nil {
		return fmt.Errorf("delete rows: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM runs WHERE sample=?", sample); err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	return nil
}

// LookupSample returns the stored rows of a sample in report order.
func (s *Store) LookupSample(sample string) ([]report.Row, error) {
	rows, err := s.db.Query(`SELECT
		sample, gene, chrom, start_pos, end_pos, tag, length, depth
		FROM depth_rows
		WHERE sample=?
		ORDER BY row_order`, sample)
	if err != nil {
		return nil, fmt.Errorf("query sample: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// SearchByGene returns the stored rows of a gene across all samples.
func (s *Store) SearchByGene(gene string) ([]report.Row, error) {
	rows, err := s.db.Query(`SELECT
		sample, gene, chrom, start_pos, end_pos, tag, length, depth
		FROM depth_rows
		WHERE gene=?
		ORDER BY sample, row_order`, gene)
	if err != nil {
		return nil, fmt.Errorf("query by gene: %w", err)
	}
	defer rows.Close()

	return scanRows(rows)
}

// Samples returns the names of all stored samples, sorted.
func (s *Store) Samples() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT sample FROM depth_rows ORDER BY sample")
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var samples []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		samples = append(samples, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return samples, nil
}

// scanRows scans query rows into report rows.
func scanRows(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]report.Row, error) {
	var result []report.Row
	for rows.Next() {
		var r report.Row
		if err := rows.Scan(
			&r.Sample, &r.Gene, &r.Chrom, &r.Start, &r.End, &r.Tag, &r.Length, &r.Depth,
		); err != nil {
			return nil, fmt.Errorf("scan depth row: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate depth rows: %w", err)
	}
	return result, nil
}
