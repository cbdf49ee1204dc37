package ingest

import "fmt"

// StoreError wraps a failed store call. It aborts the run.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("ingest: store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// FetchError wraps a failure to obtain or decode the source stream: the
// request itself, a non-200 response, or a read or parse error mid-stream.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("ingest: fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
