package store

import (
	"context"

	sq "github.com/Masterminds/squirrel"

	"github.com/sells-group/poi-ingest/internal/model"
)

// Store defines the persistence interface for ingested filings.
type Store interface {
	// POIs

	// GetPOI returns the POI with the given identifier, or nil if none exists.
	GetPOI(ctx context.Context, id string) (*model.POI, error)
	// CreatePOI inserts the POI unless one with the same identifier already
	// exists. It reports whether this call created the row.
	CreatePOI(ctx context.Context, poi model.POI) (bool, error)
	CountPOIs(ctx context.Context, source string) (int, error)

	// Annotations
	AddAnnotation(ctx context.Context, poiID string, kind model.AnnotationKind, payload any) (*model.Annotation, error)
	ListAnnotations(ctx context.Context, poiID string) ([]model.Annotation, error)

	// Runs
	StartRun(ctx context.Context, sourceURL string) (*model.IngestRun, error)
	CompleteRun(ctx context.Context, runID string, summary model.IngestSummary) error
	FailRun(ctx context.Context, runID string, summary model.IngestSummary, errMsg string) error
	ListRuns(ctx context.Context, filter RunFilter) ([]model.IngestRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// RunFilter specifies criteria for listing runs. Zero values are ignored.
type RunFilter struct {
	Status model.RunStatus
	Limit  int // default 20
}

var runColumns = []string{
	"id", "source_url", "status",
	"total_rows", "created", "existing", "invalid", "unclassified",
	"error", "started_at", "finished_at",
}

// listRunsQuery builds the newest-first run listing for the given
// placeholder dialect.
func listRunsQuery(filter RunFilter, ph sq.PlaceholderFormat) (string, []any, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	q := sq.Select(runColumns...).
		From("ingest_runs").
		OrderBy("started_at DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(ph)
	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": string(filter.Status)})
	}
	return q.ToSql()
}
