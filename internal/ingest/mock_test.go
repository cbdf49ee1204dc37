package ingest

import (
	"context"
	"io"
	"strings"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/poi-ingest/internal/model"
)

// --- Store Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetPOI(ctx context.Context, id string) (*model.POI, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.POI), args.Error(1)
}

func (m *mockStore) CreatePOI(ctx context.Context, poi model.POI) (bool, error) {
	args := m.Called(ctx, poi)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) AddAnnotation(ctx context.Context, poiID string, kind model.AnnotationKind, payload any) (*model.Annotation, error) {
	args := m.Called(ctx, poiID, kind, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Annotation), args.Error(1)
}

// --- Fetcher Stub ---

type stubFetcher struct {
	body string
	err  error
}

func (f *stubFetcher) Download(_ context.Context, _ string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.body)), nil
}

// --- Reject Recorder ---

type recordingRejects struct {
	lines  []int
	rows   []model.FilingRow
	causes []error
}

func newRecordingRejects() *recordingRejects {
	return &recordingRejects{}
}

func (r *recordingRejects) Reject(line int, row model.FilingRow, cause error) error {
	r.lines = append(r.lines, line)
	r.rows = append(r.rows, row)
	r.causes = append(r.causes, cause)
	return nil
}
