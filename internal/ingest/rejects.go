package ingest

import (
	"encoding/csv"
	"io"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/poi-ingest/internal/model"
)

// RejectSink receives rows skipped because of row-level errors.
type RejectSink interface {
	Reject(line int, row model.FilingRow, cause error) error
}

type rejectRecord struct {
	Line  int    `csv:"line"`
	Error string `csv:"error"`
	model.FilingRow
}

// CSVRejects writes rejected rows as CSV: the source line, the error text and
// the consumed columns of the row. The header is written with the first record.
type CSVRejects struct {
	w      *csv.Writer
	enc    *csvutil.Encoder
	closer io.Closer
}

// NewCSVRejects writes rejected rows to w.
func NewCSVRejects(w io.Writer) *CSVRejects {
	cw := csv.NewWriter(w)
	return &CSVRejects{w: cw, enc: csvutil.NewEncoder(cw)}
}

// CreateCSVRejects creates (or truncates) the file at path.
func CreateCSVRejects(path string) (*CSVRejects, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rejects: create %s", path)
	}
	r := NewCSVRejects(f)
	r.closer = f
	return r, nil
}

// Reject appends one record and flushes it.
func (r *CSVRejects) Reject(line int, row model.FilingRow, cause error) error {
	rec := rejectRecord{Line: line, FilingRow: row}
	if cause != nil {
		rec.Error = cause.Error()
	}
	if err := r.enc.Encode(rec); err != nil {
		return eris.Wrap(err, "rejects: encode")
	}
	r.w.Flush()
	return eris.Wrap(r.w.Error(), "rejects: flush")
}

// Close flushes buffered records and closes the underlying file, if any.
func (r *CSVRejects) Close() error {
	r.w.Flush()
	if err := r.w.Error(); err != nil {
		return eris.Wrap(err, "rejects: flush")
	}
	if r.closer != nil {
		return eris.Wrap(r.closer.Close(), "rejects: close")
	}
	return nil
}
