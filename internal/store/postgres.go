package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/poi-ingest/internal/db"
	"github.com/sells-group/poi-ingest/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const sqlGetPOI = `SELECT id, city, source, url, random, created_at FROM pois WHERE id = $1`

const sqlCreatePOI = `INSERT INTO pois (id, city, source, url, random, created_at) VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (id) DO NOTHING`

const sqlInsertAnnotation = `INSERT INTO annotations (id, poi_id, kind, data, created_at) VALUES ($1, $2, $3, $4, $5)`

// preparedStatements lists the per-row queries of an ingest run, prepared on
// each new connection.
var preparedStatements = map[string]string{
	"get_poi":           sqlGetPOI,
	"create_poi":        sqlCreatePOI,
	"insert_annotation": sqlInsertAnnotation,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS pois (
	id         TEXT PRIMARY KEY,
	city       TEXT NOT NULL,
	source     TEXT NOT NULL,
	url        TEXT NOT NULL DEFAULT '',
	random     DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS annotations (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	poi_id     TEXT NOT NULL REFERENCES pois(id),
	kind       TEXT NOT NULL,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	source_url   TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	total_rows   INTEGER NOT NULL DEFAULT 0,
	created      INTEGER NOT NULL DEFAULT 0,
	existing     INTEGER NOT NULL DEFAULT 0,
	invalid      INTEGER NOT NULL DEFAULT 0,
	unclassified INTEGER NOT NULL DEFAULT 0,
	error        TEXT,
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at  TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_pois_source ON pois(source);
CREATE INDEX IF NOT EXISTS idx_pois_random ON pois(random);
CREATE INDEX IF NOT EXISTS idx_annotations_poi_id ON annotations(poi_id);
CREATE INDEX IF NOT EXISTS idx_ingest_runs_started_at ON ingest_runs(started_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetPOI(ctx context.Context, id string) (*model.POI, error) {
	var p model.POI
	err := s.pool.QueryRow(ctx, sqlGetPOI, id).
		Scan(&p.ID, &p.City, &p.Source, &p.URL, &p.Random, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get poi %s", id)
	}
	return &p, nil
}

func (s *PostgresStore) CreatePOI(ctx context.Context, poi model.POI) (bool, error) {
	if poi.CreatedAt.IsZero() {
		poi.CreatedAt = time.Now().UTC()
	}
	tag, err := s.pool.Exec(ctx, sqlCreatePOI,
		poi.ID, poi.City, poi.Source, poi.URL, poi.Random, poi.CreatedAt,
	)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: create poi %s", poi.ID)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStore) CountPOIs(ctx context.Context, source string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM pois WHERE source = $1`, source).Scan(&n)
	return n, eris.Wrap(err, "postgres: count pois")
}

func (s *PostgresStore) AddAnnotation(ctx context.Context, poiID string, kind model.AnnotationKind, payload any) (*model.Annotation, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal annotation")
	}
	a := &model.Annotation{
		ID:        uuid.New().String(),
		POIID:     poiID,
		Kind:      kind,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	_, err = s.pool.Exec(ctx, sqlInsertAnnotation,
		a.ID, a.POIID, string(a.Kind), data, a.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert %s annotation for %s", kind, poiID)
	}
	return a, nil
}

func (s *PostgresStore) ListAnnotations(ctx context.Context, poiID string) ([]model.Annotation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, poi_id, kind, data, created_at FROM annotations WHERE poi_id = $1 ORDER BY created_at, id`,
		poiID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list annotations")
	}
	defer rows.Close()

	var out []model.Annotation
	for rows.Next() {
		var a model.Annotation
		var data []byte
		if err := rows.Scan(&a.ID, &a.POIID, &a.Kind, &data, &a.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan annotation")
		}
		a.Data = data
		out = append(out, a)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list annotations iterate")
}

func (s *PostgresStore) StartRun(ctx context.Context, sourceURL string) (*model.IngestRun, error) {
	run := &model.IngestRun{
		ID:        uuid.New().String(),
		SourceURL: sourceURL,
		Status:    model.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO ingest_runs (id, source_url, status, started_at) VALUES ($1, $2, $3, $4)`,
		run.ID, run.SourceURL, string(run.Status), run.StartedAt,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return run, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, summary model.IngestSummary) error {
	return s.finishRun(ctx, runID, model.RunStatusComplete, summary, nil)
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, summary model.IngestSummary, errMsg string) error {
	return s.finishRun(ctx, runID, model.RunStatusFailed, summary, &errMsg)
}

func (s *PostgresStore) finishRun(ctx context.Context, runID string, status model.RunStatus, sum model.IngestSummary, errMsg *string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE ingest_runs SET status = $1, total_rows = $2, created = $3, existing = $4, invalid = $5, unclassified = $6,
		 error = $7, finished_at = now() WHERE id = $8`,
		string(status), sum.Rows, sum.Created, sum.Existing, sum.Invalid, sum.Unclassified, errMsg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.IngestRun, error) {
	query, args, err := listRunsQuery(filter, sq.Dollar)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build list runs query")
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.IngestRun
	for rows.Next() {
		var r model.IngestRun
		var errMsg *string
		err := rows.Scan(&r.ID, &r.SourceURL, &r.Status,
			&r.Summary.Rows, &r.Summary.Created, &r.Summary.Existing, &r.Summary.Invalid, &r.Summary.Unclassified,
			&errMsg, &r.StartedAt, &r.FinishedAt)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if errMsg != nil {
			r.Error = *errMsg
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}
