package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"pick4cli/internal/aggregate"
	"pick4cli/internal/config"
	"pick4cli/internal/encode"
	"pick4cli/internal/errors"
	"pick4cli/internal/exporter"
	"pick4cli/internal/infrastructure"
	"pick4cli/internal/merge"
	"pick4cli/internal/scrape"
	"pick4cli/internal/series"
	"pick4cli/pkg/contracts/domain"
)

// encodeWorkers bounds concurrent series encoding during EncodeAll.
const encodeWorkers = 4

// Fetcher fetches all draw results published on a URL. Satisfied by
// *scrape.Scraper; tests substitute a canned implementation.
type Fetcher interface {
	FetchPage(ctx context.Context, url string) ([]scrape.PageResult, error)
}

// Runner wires the pipeline steps over one data directory.
type Runner struct {
	cfg     *config.Config
	paths   *config.Paths
	store   *series.Store
	fetcher Fetcher
	metrics *infrastructure.PipelineMetrics
	logger  *slog.Logger
}

// NewRunner creates a pipeline runner. fetcher may be nil when the run
// will not scrape; metrics may be nil to disable instrumentation.
func NewRunner(cfg *config.Config, paths *config.Paths, store *series.Store, fetcher Fetcher, metrics *infrastructure.PipelineMetrics, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:     cfg,
		paths:   paths,
		store:   store,
		fetcher: fetcher,
		metrics: metrics,
		logger:  logger,
	}
}

// Paths exposes the runner's path layout to the CLIs.
func (r *Runner) Paths() *config.Paths {
	return r.paths
}

// Store exposes the series store.
func (r *Runner) Store() *series.Store {
	return r.store
}

// ScrapeSource fetches the target's page, filters the results for the
// series, and merges anything newer than the last date on file. The
// series file is rewritten only when the merge added records and
// dryRun is false.
func (r *Runner) ScrapeSource(ctx context.Context, target scrape.Target, dryRun bool) (merge.Result, error) {
	if r.fetcher == nil {
		return merge.Result{}, errors.NewConfigError("scraping requested without a fetcher", nil)
	}

	s, err := r.store.Load(ctx, target.Source)
	if err != nil {
		return merge.Result{}, err
	}

	page, err := r.fetcher.FetchPage(ctx, target.URL)
	if err != nil {
		return merge.Result{}, err
	}

	candidates := scrape.FilterForSource(page, target.Source)
	if last, ok := s.LastDate(); ok {
		fresh := candidates[:0]
		for _, c := range candidates {
			if domain.NormalizeDate(c.Date).After(last) {
				fresh = append(fresh, c)
			}
		}
		candidates = fresh
	}

	// Candidates arrive date-ascending, so the cap keeps the oldest
	// and the next run picks up the rest.
	if max := r.cfg.Scrape.MaxBatchSize; max > 0 && len(candidates) > max {
		r.logger.WarnContext(ctx, "capping candidate batch",
			slog.String("source", target.Source.Name),
			slog.Int("candidates", len(candidates)),
			slog.Int("max_batch_size", max))
		candidates = candidates[:max]
	}

	result := merge.Apply(ctx, s, candidates, r.logger)
	r.recordMergeMetrics(ctx, target.Source.Name, result)

	if result.Changed() && !dryRun {
		if err := r.store.Save(ctx, s); err != nil {
			return result, err
		}
	}
	if result.Changed() && dryRun {
		r.logger.InfoContext(ctx, "dry run, series file left untouched",
			slog.String("source", target.Source.Name),
			slog.Int("would_add", result.Added))
	}

	return result, nil
}

// MergeSource folds an externally supplied candidate batch into a
// source's series and persists the result.
func (r *Runner) MergeSource(ctx context.Context, id domain.SourceID, candidates []domain.DrawRecord) (merge.Result, error) {
	s, err := r.store.Load(ctx, id)
	if err != nil {
		return merge.Result{}, err
	}

	result := merge.Apply(ctx, s, candidates, r.logger)
	r.recordMergeMetrics(ctx, id.Name, result)

	if result.Changed() {
		if err := r.store.Save(ctx, s); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (r *Runner) recordMergeMetrics(ctx context.Context, source string, result merge.Result) {
	if r.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(infrastructure.SourceAttr(source))
	r.metrics.RecordsMerged.Add(ctx, int64(result.Added), attrs)
	r.metrics.RecordsRejected.Add(ctx,
		int64(result.RejectedInvalid+result.RejectedConflict()), attrs)
}

// EncodeSource regenerates a source's one-hot CSV from its series
// file. The encoded file is rewritten whole.
func (r *Runner) EncodeSource(ctx context.Context, id domain.SourceID) (int, error) {
	s, err := r.store.Load(ctx, id)
	if err != nil {
		return 0, err
	}

	rows, err := encode.Series(s)
	if err != nil {
		return 0, err
	}

	if err := encode.WriteCSV(r.paths.GetBinaryPath(id.Name), rows); err != nil {
		return 0, err
	}

	if r.metrics != nil {
		r.metrics.RowsEncoded.Add(ctx, int64(len(rows)),
			metric.WithAttributes(infrastructure.SourceAttr(id.Name)))
	}

	r.logger.InfoContext(ctx, "encoded series",
		slog.String("source", id.Name),
		slog.Int("rows", len(rows)))
	return len(rows), nil
}

// EncodeAll regenerates the one-hot CSVs of every series in the raw
// directory. Sources encode independently, so failures are collected
// rather than aborting the batch.
func (r *Runner) EncodeAll(ctx context.Context) (int, error) {
	ids, err := r.store.List()
	if err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(encodeWorkers)

	failures := make([]error, len(ids))
	for i, id := range ids {
		g.Go(func() error {
			if _, err := r.EncodeSource(gctx, id); err != nil {
				r.logger.ErrorContext(gctx, "failed to encode series",
					slog.String("source", id.Name),
					slog.String("error", err.Error()))
				failures[i] = fmt.Errorf("encode %s: %w", id.Name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	failed := 0
	var first error
	for _, err := range failures {
		if err != nil {
			failed++
			if first == nil {
				first = err
			}
		}
	}
	if failed > 0 {
		return len(ids) - failed, fmt.Errorf("%d of %d series failed to encode: %w",
			failed, len(ids), first)
	}
	return len(ids), nil
}

// LoadCohort reads a cohort manifest from the aggregates directory.
func (r *Runner) LoadCohort(manifest string) (domain.CohortConfig, error) {
	return domain.LoadCohortConfig(r.paths.GetManifestPath(manifest))
}

// AggregateCohort rebuilds one cohort's aggregate table from the
// reference series and the members' encoded CSVs, and rewrites the
// aggregate file. A member without an encoded file contributes zero
// and is logged, not fatal.
func (r *Runner) AggregateCohort(ctx context.Context, cfg domain.CohortConfig) (*aggregate.Table, error) {
	refID, err := cfg.ReferenceID()
	if err != nil {
		return nil, errors.NewConfigError("invalid cohort reference "+cfg.Reference, err)
	}

	ref, err := r.store.Load(ctx, refID)
	if err != nil {
		return nil, err
	}

	members := make(map[string][]encode.OneHotRow, len(cfg.Members))
	for _, name := range cfg.MemberNames() {
		rows, err := encode.ReadCSV(r.paths.GetBinaryPath(name))
		if err != nil {
			if errors.IsType(err, errors.ErrTypeNotFound) {
				r.logger.WarnContext(ctx, "cohort member has no encoded file",
					slog.String("cohort", cfg.Name),
					slog.String("source", name))
				continue
			}
			return nil, fmt.Errorf("read encoded rows for %s: %w", name, err)
		}
		members[name] = rows
	}

	table, err := aggregate.Build(ctx, cfg, ref, members, r.logger)
	if err != nil {
		return nil, err
	}

	if err := exporter.WriteAggregateCSV(r.paths.GetAggregatePath(cfg.Name), table); err != nil {
		return nil, err
	}

	if r.metrics != nil {
		r.metrics.AggregateRuns.Add(ctx, 1,
			metric.WithAttributes(infrastructure.CohortAttr(cfg.Name)))
	}
	return table, nil
}

// ValidateCohort runs the integrity validator over a table and records
// its findings.
func (r *Runner) ValidateCohort(ctx context.Context, cfg domain.CohortConfig, table *aggregate.Table) *aggregate.Report {
	report := aggregate.Validate(cfg, table)

	if r.metrics != nil {
		attrs := metric.WithAttributes(infrastructure.CohortAttr(cfg.Name))
		r.metrics.ValidationWarnings.Add(ctx, int64(len(report.Warnings)), attrs)
		r.metrics.ValidationErrors.Add(ctx, int64(len(report.Errors)), attrs)
	}

	level := slog.LevelInfo
	if !report.OK {
		level = slog.LevelError
	}
	r.logger.Log(ctx, level, "validated cohort aggregate",
		slog.String("cohort", cfg.Name),
		slog.Bool("ok", report.OK),
		slog.Int("warnings", len(report.Warnings)),
		slog.Int("errors", len(report.Errors)))

	return report
}
