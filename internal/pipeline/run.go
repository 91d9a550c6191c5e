package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"pick4cli/internal/aggregate"
	"pick4cli/internal/errors"
	"pick4cli/internal/exporter"
	"pick4cli/internal/infrastructure"
	"pick4cli/internal/merge"
	"pick4cli/internal/scrape"
	"pick4cli/pkg/contracts/domain"
)

// Step status values reported in a RunReport.
const (
	StepCompleted = "completed"
	StepDegraded  = "degraded"
	StepFailed    = "failed"
	StepSkipped   = "skipped"
)

// RunOptions controls which pipeline stages a full run executes.
type RunOptions struct {
	// DryRun scrapes and reports the would-be merges without writing
	// any file.
	DryRun bool
	// SkipScrape starts from the series already on disk.
	SkipScrape bool
	// SkipAggregates stops after encoding, leaving aggregate outputs
	// untouched.
	SkipAggregates bool
	// Sources restricts scraping to series whose name contains one of
	// the given fragments. Empty means all configured targets.
	Sources []string
}

// StepReport describes one stage of a run.
type StepReport struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
	Error  string `json:"error,omitempty"`
}

// RunReport summarizes a full pipeline run.
type RunReport struct {
	RunID     string                       `json:"run_id"`
	StartedAt time.Time                    `json:"started_at"`
	Duration  time.Duration                `json:"duration"`
	Steps     []StepReport                 `json:"steps"`
	Merges    map[string]merge.Result      `json:"merges,omitempty"`
	Reports   map[string]*aggregate.Report `json:"reports,omitempty"`
}

// OK reports whether no step failed outright.
func (r *RunReport) OK() bool {
	for _, s := range r.Steps {
		if s.Status == StepFailed {
			return false
		}
	}
	return true
}

// RunAll executes the full pipeline: scrape, encode, aggregate,
// export, validate. Every run gets its own run ID carried through the
// logging context.
func (r *Runner) RunAll(ctx context.Context, opts RunOptions) (*RunReport, error) {
	runID := uuid.New().String()
	ctx = infrastructure.WithRunID(ctx, runID)

	report := &RunReport{
		RunID:     runID,
		StartedAt: time.Now(),
		Merges:    make(map[string]merge.Result),
		Reports:   make(map[string]*aggregate.Report),
	}
	defer func() { report.Duration = time.Since(report.StartedAt) }()

	r.logger.InfoContext(ctx, "pipeline run starting",
		slog.String("run_id", runID),
		slog.Bool("dry_run", opts.DryRun),
		slog.Bool("skip_scrape", opts.SkipScrape),
		slog.Bool("skip_aggregates", opts.SkipAggregates))

	r.runScrapeStep(ctx, opts, report)

	if opts.DryRun {
		report.Steps = append(report.Steps,
			StepReport{Name: "encode", Status: StepSkipped, Detail: "dry run"},
			StepReport{Name: "aggregate", Status: StepSkipped, Detail: "dry run"})
		r.logger.InfoContext(ctx, "pipeline dry run complete", slog.String("run_id", runID))
		return report, nil
	}

	encoded, err := r.EncodeAll(ctx)
	step := StepReport{Name: "encode", Status: StepCompleted,
		Detail: fmt.Sprintf("%d series encoded", encoded)}
	if err != nil {
		step.Status = StepDegraded
		step.Error = err.Error()
	}
	report.Steps = append(report.Steps, step)

	if opts.SkipAggregates {
		report.Steps = append(report.Steps,
			StepReport{Name: "aggregate", Status: StepSkipped, Detail: "requested"})
		return report, nil
	}

	r.runAggregateStep(ctx, report)

	r.logger.InfoContext(ctx, "pipeline run complete",
		slog.String("run_id", runID),
		slog.Bool("ok", report.OK()),
		slog.Duration("duration", time.Since(report.StartedAt)))
	return report, nil
}

func (r *Runner) runScrapeStep(ctx context.Context, opts RunOptions, report *RunReport) {
	if opts.SkipScrape || r.fetcher == nil {
		report.Steps = append(report.Steps,
			StepReport{Name: "scrape", Status: StepSkipped, Detail: "requested"})
		return
	}

	targets, err := scrape.LoadLookup(r.paths.SourceLookupFile)
	if err != nil {
		report.Steps = append(report.Steps,
			StepReport{Name: "scrape", Status: StepFailed, Error: err.Error()})
		return
	}
	targets = filterTargets(targets, opts.Sources)

	failed := 0
	for _, target := range targets {
		result, err := r.ScrapeSource(ctx, target, opts.DryRun)
		if err != nil {
			failed++
			r.logger.ErrorContext(ctx, "source scrape failed",
				slog.String("source", target.Source.Name),
				slog.String("error", err.Error()))
			continue
		}
		report.Merges[target.Source.Name] = result
	}

	step := StepReport{Name: "scrape", Status: StepCompleted,
		Detail: fmt.Sprintf("%d of %d sources processed", len(targets)-failed, len(targets))}
	if failed == len(targets) && len(targets) > 0 {
		step.Status = StepFailed
	} else if failed > 0 {
		step.Status = StepDegraded
	}
	report.Steps = append(report.Steps, step)
}

func (r *Runner) runAggregateStep(ctx context.Context, report *RunReport) {
	var tables []*aggregate.Table
	var cfgs []domain.CohortConfig
	var refWritten bool
	failed := 0

	for _, manifest := range r.cfg.Cohorts.Manifests {
		cfg, err := r.LoadCohort(manifest)
		if err != nil {
			failed++
			r.logger.ErrorContext(ctx, "failed to load cohort manifest",
				slog.String("manifest", manifest),
				slog.String("error", err.Error()))
			continue
		}

		table, err := r.AggregateCohort(ctx, cfg)
		if err != nil {
			failed++
			r.logger.ErrorContext(ctx, "cohort aggregation failed",
				slog.String("cohort", cfg.Name),
				slog.String("error", err.Error()))
			continue
		}
		tables = append(tables, table)
		cfgs = append(cfgs, cfg)
		report.Reports[cfg.Name] = r.ValidateCohort(ctx, cfg, table)

		// All cohorts share the reference source; one results file
		// covers them.
		if !refWritten {
			if err := r.writeResults(ctx, cfg); err != nil {
				r.logger.ErrorContext(ctx, "failed to write results file",
					slog.String("error", err.Error()))
			} else {
				refWritten = true
			}
		}
	}

	step := StepReport{Name: "aggregate", Status: StepCompleted,
		Detail: fmt.Sprintf("%d cohorts aggregated", len(tables))}
	if failed > 0 && len(tables) == 0 {
		step.Status = StepFailed
	} else if failed > 0 {
		step.Status = StepDegraded
	}
	report.Steps = append(report.Steps, step)

	if combined := r.combineTables(ctx, tables, report); combined != nil {
		combinedCfg := CombinedCohortConfig(r.cfg.Cohorts.CombinedName, cfgs)
		report.Reports[combined.Cohort] = r.ValidateCohort(ctx, combinedCfg, combined)
		tables = append(tables, combined)
	}

	r.exportWorkbook(ctx, tables, report)
}

// CombinedCohortConfig describes the combined table for validation:
// a full-strength date has every cohort's members reporting.
func CombinedCohortConfig(name string, cfgs []domain.CohortConfig) domain.CohortConfig {
	combined := domain.CohortConfig{Name: name, Reference: cfgs[0].Reference}
	for _, c := range cfgs {
		combined.ExpectedContributors += c.ExpectedContributors
		combined.Members = append(combined.Members, c.Members...)
	}
	return combined
}

// combineTables unions all cohort tables into the combined table when
// more than one cohort was produced.
func (r *Runner) combineTables(ctx context.Context, tables []*aggregate.Table, report *RunReport) *aggregate.Table {
	if len(tables) < 2 {
		return nil
	}

	combined := tables[0]
	var err error
	for _, t := range tables[1:] {
		combined, err = aggregate.Combine(r.cfg.Cohorts.CombinedName, combined, t)
		if err != nil {
			report.Steps = append(report.Steps,
				StepReport{Name: "combine", Status: StepFailed, Error: err.Error()})
			return nil
		}
	}

	if err := exporter.WriteAggregateCSV(
		r.paths.GetAggregatePath(combined.Cohort), combined); err != nil {
		report.Steps = append(report.Steps,
			StepReport{Name: "combine", Status: StepFailed, Error: err.Error()})
		return nil
	}

	report.Steps = append(report.Steps, StepReport{Name: "combine", Status: StepCompleted,
		Detail: fmt.Sprintf("%d rows in %s", len(combined.Rows), combined.Cohort)})
	return combined
}

func (r *Runner) exportWorkbook(ctx context.Context, tables []*aggregate.Table, report *RunReport) {
	if len(tables) == 0 {
		return
	}
	path := exporter.WorkbookPath(r.paths)
	if err := exporter.WriteAggregateWorkbook(path, tables); err != nil {
		report.Steps = append(report.Steps,
			StepReport{Name: "export", Status: StepFailed, Error: err.Error()})
		return
	}
	report.Steps = append(report.Steps, StepReport{Name: "export", Status: StepCompleted,
		Detail: fmt.Sprintf("%d sheets in %s", len(tables), path)})
}

// writeResults rewrites the plain-text digit history of the cohort's
// reference source.
func (r *Runner) writeResults(ctx context.Context, cfg domain.CohortConfig) error {
	refID, err := cfg.ReferenceID()
	if err != nil {
		return errors.NewConfigError("invalid cohort reference "+cfg.Reference, err)
	}
	ref, err := r.store.Load(ctx, refID)
	if err != nil {
		return err
	}
	return exporter.WriteResults(r.paths.ResultsFile, ref)
}

func filterTargets(targets []scrape.Target, fragments []string) []scrape.Target {
	if len(fragments) == 0 {
		return targets
	}
	var out []scrape.Target
	for _, t := range targets {
		for _, f := range fragments {
			if f != "" && strings.Contains(
				strings.ToLower(t.Source.Name), strings.ToLower(f)) {
				out = append(out, t)
				break
			}
		}
	}
	return out
}
