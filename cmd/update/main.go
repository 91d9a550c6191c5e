package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"

	"pick4cli/internal/config"
	"pick4cli/internal/infrastructure"
	"pick4cli/internal/pipeline"
	"pick4cli/internal/scrape"
	"pick4cli/internal/series"
)

func main() {
	var logger *slog.Logger
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("PANIC RECOVERED: %v\n", r)
			fmt.Printf("Stack trace:\n%s\n", debug.Stack())
			if logger != nil {
				logger.Error("update run panicked",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))
			}
			os.Exit(1)
		}
	}()

	dryRun := flag.Bool("dry-run", false, "report would-be changes without writing any file")
	skipScrape := flag.Bool("skip-scrape", false, "start from the series already on disk")
	skipAggregates := flag.Bool("skip-aggregates", false, "stop after encoding")
	sources := flag.String("source", "", "comma-separated name fragments to restrict scraping")
	dataRoot := flag.String("data-root", "", "data root directory (defaults to the executable's directory)")
	headless := flag.Bool("headless", true, "run the browser headless")
	flag.Parse()

	paths, err := resolvePaths(*dataRoot)
	if err != nil {
		fmt.Printf("Error: failed to initialize paths: %v\n", err)
		os.Exit(1)
	}
	if err := paths.EnsureDirectories(); err != nil {
		fmt.Printf("Error: failed to create required directories: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Warning: failed to load config, using defaults: %v\n", err)
		cfg = &config.Config{Logging: infrastructure.DefaultConfig()}
		cfg.Cohorts.Manifests = append([]string(nil), config.DefaultCohortManifests...)
		cfg.Cohorts.CombinedName = "daily"
	}
	cfg.Logging.FilePath = paths.GetLogPath("update.log")
	cfg.Scrape.Headless = *headless

	logger, err = infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("Warning: failed to initialize logger, using default: %v\n", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	providers, err := infrastructure.InitializeOTel(nil, logger)
	if err != nil {
		logger.Warn("metrics disabled", slog.String("error", err.Error()))
	}
	var metrics *infrastructure.PipelineMetrics
	if providers != nil {
		metrics, err = infrastructure.NewPipelineMetrics(providers.Meter)
		if err != nil {
			logger.Warn("failed to create pipeline metrics", slog.String("error", err.Error()))
		}
		defer providers.Shutdown(context.Background())
	}

	var fetcher pipeline.Fetcher
	if !*skipScrape {
		scraper := scrape.New(cfg.Scrape, logger)
		defer scraper.Close()
		fetcher = scraper
	}

	store := series.NewStore(paths, logger)
	runner := pipeline.NewRunner(cfg, paths, store, fetcher, metrics, logger)

	opts := pipeline.RunOptions{
		DryRun:         *dryRun,
		SkipScrape:     *skipScrape,
		SkipAggregates: *skipAggregates,
	}
	if *sources != "" {
		opts.Sources = strings.Split(*sources, ",")
	}

	report, err := runner.RunAll(context.Background(), opts)
	if err != nil {
		logger.Error("pipeline run aborted", slog.String("error", err.Error()))
		os.Exit(1)
	}

	for _, step := range report.Steps {
		line := fmt.Sprintf("%-10s %-10s %s", step.Name, step.Status, step.Detail)
		if step.Error != "" {
			line += " (" + step.Error + ")"
		}
		fmt.Println(line)
	}
	for name, result := range report.Merges {
		if result.Changed() || result.RejectedConflict() > 0 {
			fmt.Printf("  %s: +%d added, %d conflicts\n",
				name, result.Added, result.RejectedConflict())
		}
	}

	if !report.OK() {
		os.Exit(1)
	}
}

func resolvePaths(root string) (*config.Paths, error) {
	if root != "" {
		return config.PathsForRoot(root), nil
	}
	return config.GetPaths()
}
