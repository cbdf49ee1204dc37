package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/poi-ingest/internal/config"
	"github.com/sells-group/poi-ingest/internal/fetcher"
	"github.com/sells-group/poi-ingest/internal/ingest"
	"github.com/sells-group/poi-ingest/internal/model"
	"github.com/sells-group/poi-ingest/internal/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Stream the filing export into the POI store",
	Long: "Downloads the CSV export, transforms each row and creates the POI and its annotations " +
		"when the KvK number has not been ingested before. Invalid rows are logged and skipped; " +
		"a store or download failure stops the run.",
	RunE: executeIngest,
}

func init() {
	addIngestFlags(ingestCmd)
	rootCmd.AddCommand(ingestCmd)
}

func addIngestFlags(cmd *cobra.Command) {
	cmd.Flags().String("source-url", "", "CSV export to ingest (overrides source.url)")
	cmd.Flags().String("rejects", "", "write rejected rows to this CSV file, replacing it (overrides source.rejects_path)")
}

func executeIngest(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if v, _ := cmd.Flags().GetString("source-url"); v != "" {
		cfg.Source.URL = v
	}
	if v, _ := cmd.Flags().GetString("rejects"); v != "" {
		cfg.Source.RejectsPath = v
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:     cfg.Source.UserAgent,
		HeaderTimeout: time.Duration(cfg.Source.HeaderTimeoutSecs) * time.Second,
	})

	_, err = runIngest(ctx, cfg, st, f)
	return err
}

// runIngest wires the pipeline for one run against an open store.
func runIngest(ctx context.Context, c *config.Config, st store.Store, f fetcher.Fetcher) (*model.IngestSummary, error) {
	opts := ingest.Options{
		SourceURL: c.Source.URL,
		CSV: fetcher.CSVOptions{
			LazyQuotes: c.Source.CSVLazyQuotes,
			TrimSpace:  c.Source.CSVTrimSpace,
		},
		Runs: st,
	}

	if c.Source.RejectsPath != "" {
		rejects, err := ingest.CreateCSVRejects(c.Source.RejectsPath)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := rejects.Close(); err != nil {
				zap.L().Warn("ingest: close rejects file", zap.String("path", c.Source.RejectsPath), zap.Error(err))
			}
		}()
		opts.Rejects = rejects
	}

	p := ingest.NewPipeline(f, ingest.NewWriter(st, c.Source.City, nil, ingest.WithSeenCache(c.Source.SeenCacheSize)), opts)
	return p.Run(ctx)
}
