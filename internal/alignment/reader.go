package alignment

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
)

// Format identifies the on-disk alignment encoding.
type Format string

const (
	FormatBAM Format = "bam"
	FormatSAM Format = "sam"
)

// samReader is satisfied by both *bam.Reader and *sam.Reader.
type samReader interface {
	Read() (*sam.Record, error)
}

// Reader reads alignment records from a BAM or SAM file.
type Reader struct {
	file   *os.File
	bam    *bam.Reader
	r      samReader
	header *sam.Header
	format Format
	count  int
}

// Open opens a BAM or SAM file, detected from the BGZF magic bytes.
// threads sets the number of BGZF decompression goroutines for BAM input;
// records are still delivered one at a time through Next.
func Open(path string, threads int) (*Reader, error) {
	if path == "-" {
		return NewReader(os.Stdin, threads)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open alignment file: %w", err)
	}

	r, err := NewReader(file, threads)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.file = file
	return r, nil
}

// NewReader creates a Reader from an io.Reader.
func NewReader(in io.Reader, threads int) (*Reader, error) {
	br := bufio.NewReader(in)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read alignment header: %w", err)
	}

	r := &Reader{}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		if threads < 1 {
			threads = 1
		}
		bamr, err := bam.NewReader(br, threads)
		if err != nil {
			return nil, fmt.Errorf("open bam: %w", err)
		}
		r.bam = bamr
		r.r = bamr
		r.header = bamr.Header()
		r.format = FormatBAM
	} else {
		sr, err := sam.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open sam: %w", err)
		}
		r.r = sr
		r.header = sr.Header()
		r.format = FormatSAM
	}

	return r, nil
}

// Next reads the next record.
// Returns nil, nil when there are no more records.
func (r *Reader) Next() (*Record, error) {
	rec, err := r.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, &ReadError{Record: r.count + 1, Err: err}
	}
	r.count++
	return FromSAM(rec), nil
}

// Header returns the alignment file header.
func (r *Reader) Header() *sam.Header {
	return r.header
}

// Format returns the detected input format.
func (r *Reader) Format() Format {
	return r.format
}

// Count returns the number of records read so far.
func (r *Reader) Count() int {
	return r.count
}

// Close closes the reader and underlying file.
func (r *Reader) Close() error {
	var err error
	if r.bam != nil {
		err = r.bam.Close()
	}
	if r.file != nil {
		if cerr := r.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// ReadError reports a record that could not be decoded.
type ReadError struct {
	Record int
	Err    error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("alignment read error at record %d: %v", e.Record, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
