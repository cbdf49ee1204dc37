// Package ingest streams bankruptcy filings from a spreadsheet export into
// the POI store, creating each POI and its annotations at most once.
package ingest

import (
	"context"
	"math/rand/v2"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/sells-group/poi-ingest/internal/model"
)

// POIStore is the subset of store.Store the writer needs.
type POIStore interface {
	GetPOI(ctx context.Context, id string) (*model.POI, error)
	CreatePOI(ctx context.Context, poi model.POI) (bool, error)
	AddAnnotation(ctx context.Context, poiID string, kind model.AnnotationKind, payload any) (*model.Annotation, error)
}

// Outcome reports how WriteIfAbsent settled a filing.
type Outcome int

const (
	OutcomeCreated Outcome = iota
	OutcomeExisting
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeExisting:
		return "existing"
	default:
		return "unknown"
	}
}

// Writer persists filings as POIs with their annotations.
type Writer struct {
	store  POIStore
	city   string
	random func() float64
	seen   *lru.Cache[string, struct{}]
	log    *zap.Logger
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithSeenCache remembers up to size identifiers this writer has already
// settled, so repeated rows skip the store lookup. POIs are never deleted,
// which keeps a cached identifier valid for the writer's lifetime.
func WithSeenCache(size int) WriterOption {
	return func(w *Writer) {
		if size <= 0 {
			return
		}
		cache, err := lru.New[string, struct{}](size)
		if err != nil {
			return
		}
		w.seen = cache
	}
}

// NewWriter creates a Writer. A nil random uses math/rand/v2.
func NewWriter(st POIStore, city string, random func() float64, opts ...WriterOption) *Writer {
	if random == nil {
		random = rand.Float64
	}
	w := &Writer{
		store:  st,
		city:   city,
		random: random,
		log:    zap.L().With(zap.String("component", "ingest.writer")),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Writer) remember(id string) {
	if w.seen != nil {
		w.seen.Add(id, struct{}{})
	}
}

// WriteIfAbsent creates the POI for f and its annotations unless a POI with
// the same identifier already exists. Nothing is rolled back when a later
// step fails.
func (w *Writer) WriteIfAbsent(ctx context.Context, f *model.Filing) (Outcome, error) {
	if w.seen != nil && w.seen.Contains(f.ID) {
		return OutcomeExisting, nil
	}

	existing, err := w.store.GetPOI(ctx, f.ID)
	if err != nil {
		return 0, &StoreError{Op: "get poi", Err: err}
	}
	if existing != nil {
		w.remember(f.ID)
		return OutcomeExisting, nil
	}

	created, err := w.store.CreatePOI(ctx, model.POI{
		ID:     f.ID,
		City:   w.city,
		Source: model.FilingSource,
		URL:    f.URL,
		Random: w.random(),
	})
	if err != nil {
		return 0, &StoreError{Op: "create poi", Err: err}
	}
	if !created {
		// Another writer inserted the record between the read and the create.
		w.log.Debug("poi created concurrently", zap.String("id", f.ID))
		w.remember(f.ID)
		return OutcomeExisting, nil
	}

	// The record exists from here on, even if an annotation write fails.
	w.remember(f.ID)

	if _, err := w.store.AddAnnotation(ctx, f.ID, model.AnnotationFiling, f); err != nil {
		return 0, &StoreError{Op: "add filing annotation", Err: err}
	}
	for _, addr := range f.EstablishmentAddresses() {
		payload := model.AddressAnnotation{Address: addr.Address}
		if _, err := w.store.AddAnnotation(ctx, f.ID, model.AnnotationAddress, payload); err != nil {
			return 0, &StoreError{Op: "add address annotation", Err: err}
		}
	}
	return OutcomeCreated, nil
}
