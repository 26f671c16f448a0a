// Package output provides depth report formatters.
package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/seq2cov/internal/report"
)

// Columns is the header of the depth report.
var Columns = []string{
	"Sample",
	"Gene",
	"Chr",
	"Start",
	"End",
	"Tag",
	"Length",
	"MeanDepth",
}

// TabWriter writes report rows in tab-delimited format.
type TabWriter struct {
	w *bufio.Writer
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(Columns, "\t") + "\n")
	return err
}

// Write writes a single row. Depth is printed with two decimals; non-finite
// depths come out as +Inf or NaN.
func (tw *TabWriter) Write(r report.Row) error {
	values := []string{
		r.Sample,
		r.Gene,
		r.Chrom,
		strconv.FormatInt(r.Start, 10),
		strconv.FormatInt(r.End, 10),
		r.Tag,
		strconv.FormatInt(r.Length, 10),
		strconv.FormatFloat(r.Depth, 'f', 2, 64),
	}

	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// WriteAll writes the header, every row, and flushes.
func (tw *TabWriter) WriteAll(rows []report.Row) error {
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tw.Write(r); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}
