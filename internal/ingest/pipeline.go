package ingest

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/poi-ingest/internal/fetcher"
	"github.com/sells-group/poi-ingest/internal/filing"
	"github.com/sells-group/poi-ingest/internal/model"
)

// RunLog records the start and end of each pipeline run.
type RunLog interface {
	StartRun(ctx context.Context, sourceURL string) (*model.IngestRun, error)
	CompleteRun(ctx context.Context, runID string, summary model.IngestSummary) error
	FailRun(ctx context.Context, runID string, summary model.IngestSummary, errMsg string) error
}

// Options configures a Pipeline. Runs and Rejects are optional. CSV.Delimiter
// defaults to ','.
type Options struct {
	SourceURL string
	CSV       fetcher.CSVOptions
	Runs      RunLog
	Rejects   RejectSink
}

// Pipeline reads the filing export one row at a time and settles each row
// before pulling the next.
type Pipeline struct {
	fetcher fetcher.Fetcher
	writer  *Writer
	opts    Options
	log     *zap.Logger
}

// NewPipeline creates a Pipeline with all dependencies.
func NewPipeline(f fetcher.Fetcher, w *Writer, opts Options) *Pipeline {
	return &Pipeline{
		fetcher: f,
		writer:  w,
		opts:    opts,
		log:     zap.L().With(zap.String("component", "ingest.pipeline")),
	}
}

// Run ingests the whole source. Row-level errors are logged, counted and
// skipped. Store and fetch errors stop the run; rows already written stay
// written. The returned summary is non-nil whenever the run got started.
func (p *Pipeline) Run(ctx context.Context) (*model.IngestSummary, error) {
	log := p.log.With(zap.String("source_url", p.opts.SourceURL))
	summary := &model.IngestSummary{}

	var runID string
	if p.opts.Runs != nil {
		run, err := p.opts.Runs.StartRun(ctx, p.opts.SourceURL)
		if err != nil {
			return nil, &StoreError{Op: "start run", Err: err}
		}
		runID = run.ID
		log = log.With(zap.String("run_id", runID))
	}

	log.Info("ingest starting")

	if err := p.consume(ctx, log, summary); err != nil {
		p.fail(ctx, log, runID, summary, err)
		log.Error("ingest failed", append(summaryFields(summary), zap.Error(err))...)
		return summary, err
	}

	if runID != "" {
		if err := p.opts.Runs.CompleteRun(context.WithoutCancel(ctx), runID, *summary); err != nil {
			log.Warn("ingest: failed to complete run record", zap.Error(err))
		}
	}
	log.Info("ingest complete", summaryFields(summary)...)
	return summary, nil
}

func (p *Pipeline) consume(ctx context.Context, log *zap.Logger, summary *model.IngestSummary) error {
	body, err := p.fetcher.Download(ctx, p.opts.SourceURL)
	if err != nil {
		return &FetchError{URL: p.opts.SourceURL, Err: err}
	}
	defer body.Close() //nolint:errcheck

	csvOpts := p.opts.CSV
	if csvOpts.Delimiter == 0 {
		csvOpts.Delimiter = ','
	}
	rows, err := fetcher.NewCSVReader[model.FilingRow](body, csvOpts)
	if err != nil {
		return &FetchError{URL: p.opts.SourceURL, Err: err}
	}

	for row, err := range rows.All() {
		if err != nil {
			return &FetchError{URL: p.opts.SourceURL, Err: err}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return eris.Wrap(ctxErr, "ingest: interrupted")
		}
		summary.Rows++
		if err := p.settle(ctx, log, rows.Line(), row, summary); err != nil {
			return err
		}
	}
	return nil
}

// settle transforms and writes one row. Only fatal errors are returned.
func (p *Pipeline) settle(ctx context.Context, log *zap.Logger, line int, row model.FilingRow, summary *model.IngestSummary) error {
	f, err := filing.Transform(row)
	if err != nil {
		var prefixErr *filing.UnrecognizedAddressPrefixError
		switch {
		case errors.As(err, &prefixErr):
			summary.Unclassified++
			log.Warn("ingest: unrecognized address type",
				zap.Int("line", line),
				zap.String("kvk", row.KVK),
				zap.String("value", prefixErr.Value),
			)
		case errors.Is(err, filing.ErrInvalidRow):
			summary.Invalid++
			log.Warn("ingest: skipping invalid row",
				zap.Int("line", line),
				zap.Any("row", row),
				zap.Error(err),
			)
		default:
			return eris.Wrapf(err, "ingest: transform line %d", line)
		}
		p.reject(log, line, row, err)
		return nil
	}

	outcome, err := p.writer.WriteIfAbsent(ctx, f)
	if err != nil {
		return err
	}
	switch outcome {
	case OutcomeCreated:
		summary.Created++
	case OutcomeExisting:
		summary.Existing++
	}
	log.Debug("ingest: row settled",
		zap.Int("line", line),
		zap.String("id", f.ID),
		zap.Stringer("outcome", outcome),
	)
	return nil
}

func (p *Pipeline) reject(log *zap.Logger, line int, row model.FilingRow, cause error) {
	if p.opts.Rejects == nil {
		return
	}
	if err := p.opts.Rejects.Reject(line, row, cause); err != nil {
		log.Warn("ingest: failed to record rejected row", zap.Int("line", line), zap.Error(err))
	}
}

func (p *Pipeline) fail(ctx context.Context, log *zap.Logger, runID string, summary *model.IngestSummary, cause error) {
	if runID == "" {
		return
	}
	if err := p.opts.Runs.FailRun(context.WithoutCancel(ctx), runID, *summary, cause.Error()); err != nil {
		log.Warn("ingest: failed to record run failure", zap.Error(err))
	}
}

func summaryFields(s *model.IngestSummary) []zap.Field {
	return []zap.Field{
		zap.Int("rows", s.Rows),
		zap.Int("created", s.Created),
		zap.Int("existing", s.Existing),
		zap.Int("invalid", s.Invalid),
		zap.Int("unclassified", s.Unclassified),
	}
}
