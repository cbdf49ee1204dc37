package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/poi-ingest/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS pois (
	id         TEXT PRIMARY KEY,
	city       TEXT NOT NULL,
	source     TEXT NOT NULL,
	url        TEXT NOT NULL DEFAULT '',
	random     REAL NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS annotations (
	id         TEXT PRIMARY KEY,
	poi_id     TEXT NOT NULL REFERENCES pois(id),
	kind       TEXT NOT NULL,
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id           TEXT PRIMARY KEY,
	source_url   TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	total_rows   INTEGER NOT NULL DEFAULT 0,
	created      INTEGER NOT NULL DEFAULT 0,
	existing     INTEGER NOT NULL DEFAULT 0,
	invalid      INTEGER NOT NULL DEFAULT 0,
	unclassified INTEGER NOT NULL DEFAULT 0,
	error        TEXT,
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at  DATETIME
);

CREATE INDEX IF NOT EXISTS idx_pois_source ON pois(source);
CREATE INDEX IF NOT EXISTS idx_pois_random ON pois(random);
CREATE INDEX IF NOT EXISTS idx_annotations_poi_id ON annotations(poi_id);
CREATE INDEX IF NOT EXISTS idx_ingest_runs_started_at ON ingest_runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetPOI(ctx context.Context, id string) (*model.POI, error) {
	var p model.POI
	err := s.db.QueryRowContext(ctx,
		`SELECT id, city, source, url, random, created_at FROM pois WHERE id = ?`,
		id,
	).Scan(&p.ID, &p.City, &p.Source, &p.URL, &p.Random, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get poi %s", id)
	}
	return &p, nil
}

func (s *SQLiteStore) CreatePOI(ctx context.Context, poi model.POI) (bool, error) {
	if poi.CreatedAt.IsZero() {
		poi.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pois (id, city, source, url, random, created_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		poi.ID, poi.City, poi.Source, poi.URL, poi.Random, poi.CreatedAt,
	)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: create poi %s", poi.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n == 1, nil
}

func (s *SQLiteStore) CountPOIs(ctx context.Context, source string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pois WHERE source = ?`, source).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count pois")
}

func (s *SQLiteStore) AddAnnotation(ctx context.Context, poiID string, kind model.AnnotationKind, payload any) (*model.Annotation, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal annotation")
	}
	a := &model.Annotation{
		ID:        uuid.New().String(),
		POIID:     poiID,
		Kind:      kind,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO annotations (id, poi_id, kind, data, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.POIID, string(a.Kind), string(data), a.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert %s annotation for %s", kind, poiID)
	}
	return a, nil
}

func (s *SQLiteStore) ListAnnotations(ctx context.Context, poiID string) ([]model.Annotation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, poi_id, kind, data, created_at FROM annotations WHERE poi_id = ? ORDER BY created_at, rowid`,
		poiID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list annotations")
	}
	defer rows.Close()

	var out []model.Annotation
	for rows.Next() {
		var a model.Annotation
		var data string
		if err := rows.Scan(&a.ID, &a.POIID, &a.Kind, &data, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan annotation")
		}
		a.Data = []byte(data)
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list annotations iterate")
}

func (s *SQLiteStore) StartRun(ctx context.Context, sourceURL string) (*model.IngestRun, error) {
	run := &model.IngestRun{
		ID:        uuid.New().String(),
		SourceURL: sourceURL,
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, source_url, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.SourceURL, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary model.IngestSummary) error {
	return s.finishRun(ctx, runID, model.RunStatusComplete, summary, nil)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, summary model.IngestSummary, errMsg string) error {
	return s.finishRun(ctx, runID, model.RunStatusFailed, summary, &errMsg)
}

func (s *SQLiteStore) finishRun(ctx context.Context, runID string, status model.RunStatus, sum model.IngestSummary, errMsg *string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE ingest_runs SET status = ?, total_rows = ?, created = ?, existing = ?, invalid = ?, unclassified = ?,
		 error = ?, finished_at = ? WHERE id = ?`,
		string(status), sum.Rows, sum.Created, sum.Existing, sum.Invalid, sum.Unclassified,
		errMsg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.IngestRun, error) {
	query, args, err := listRunsQuery(filter, sq.Question)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: build list runs query")
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.IngestRun
	for rows.Next() {
		var r model.IngestRun
		var errMsg sql.NullString
		var finished sql.NullTime
		err := rows.Scan(&r.ID, &r.SourceURL, &r.Status,
			&r.Summary.Rows, &r.Summary.Created, &r.Summary.Existing, &r.Summary.Invalid, &r.Summary.Unclassified,
			&errMsg, &r.StartedAt, &finished)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Error = errMsg.String
		if finished.Valid {
			t := finished.Time
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}
