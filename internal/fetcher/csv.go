package fetcher

import (
	"encoding/csv"
	"io"
	"iter"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// CSVOptions configures the streaming CSV reader.
type CSVOptions struct {
	Delimiter  rune // default ','
	LazyQuotes bool
	TrimSpace  bool
}

// CSVReader decodes a CSV stream into values of T one row at a time. The
// first row supplies the column names matched against T's csv tags; columns
// T does not name are ignored. A CSVReader is not restartable.
type CSVReader[T any] struct {
	reader *csv.Reader
	dec    *csvutil.Decoder
	line   int
}

// NewCSVReader reads the header row from r and returns a reader positioned at
// the first data row. A leading byte order mark is stripped. An empty stream
// yields a reader that returns io.EOF immediately.
func NewCSVReader[T any](r io.Reader, opts CSVOptions) (*CSVReader[T], error) {
	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	if opts.Delimiter != 0 {
		reader.Comma = opts.Delimiter
	}
	reader.LazyQuotes = opts.LazyQuotes

	dec, err := csvutil.NewDecoder(reader)
	if err == io.EOF {
		return &CSVReader[T]{reader: reader}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "csv: read header")
	}
	if opts.TrimSpace {
		dec.Map = func(field, _ string, _ any) string {
			return strings.TrimSpace(field)
		}
	}
	return &CSVReader[T]{reader: reader, dec: dec, line: 1}, nil
}

// Header returns the column names read from the first row.
func (c *CSVReader[T]) Header() []string {
	if c.dec == nil {
		return nil
	}
	return c.dec.Header()
}

// Line returns the source line on which the most recently decoded row started.
func (c *CSVReader[T]) Line() int {
	return c.line
}

// Next decodes the next row. It returns io.EOF after the last row.
func (c *CSVReader[T]) Next() (T, error) {
	var v T
	if c.dec == nil {
		return v, io.EOF
	}
	if err := c.dec.Decode(&v); err != nil {
		if err == io.EOF {
			return v, io.EOF
		}
		return v, eris.Wrapf(err, "csv: decode row after line %d", c.line)
	}
	c.line, _ = c.reader.FieldPos(0)
	return v, nil
}

// All returns the remaining rows as a sequence. Iteration stops after the
// first error, which is yielded with a zero value.
func (c *CSVReader[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			v, err := c.Next()
			if err == io.EOF {
				return
			}
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}
