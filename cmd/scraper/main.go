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
				logger.Error("scraper panicked",
					slog.Any("panic", r),
					slog.String("stack", string(debug.Stack())))
			}
			os.Exit(1)
		}
	}()

	dryRun := flag.Bool("dry-run", false, "report would-be merges without writing any file")
	limit := flag.Int("limit", 0, "process only the first N lookup targets")
	source := flag.String("source", "", "process only targets whose name contains this fragment")
	headless := flag.Bool("headless", true, "run the browser headless")
	dataRoot := flag.String("data-root", "", "data root directory (defaults to the executable's directory)")
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
	}
	cfg.Logging.FilePath = paths.GetLogPath("scraper.log")
	cfg.Scrape.Headless = *headless

	logger, err = infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("Warning: failed to initialize logger, using default: %v\n", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	logger.Info("draw scraper starting",
		slog.Bool("dry_run", *dryRun),
		slog.Int("limit", *limit),
		slog.String("source", *source),
		slog.String("data_dir", paths.DataDir))

	targets, err := scrape.LoadLookup(paths.SourceLookupFile)
	if err != nil {
		logger.Error("failed to load source lookup", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if *source != "" {
		var filtered []scrape.Target
		for _, t := range targets {
			if strings.Contains(strings.ToLower(t.Source.Name), strings.ToLower(*source)) {
				filtered = append(filtered, t)
			}
		}
		targets = filtered
	}
	if *limit > 0 && *limit < len(targets) {
		targets = targets[:*limit]
	}
	if len(targets) == 0 {
		fmt.Println("No targets to process")
		return
	}

	scraper := scrape.New(cfg.Scrape, logger)
	defer scraper.Close()

	store := series.NewStore(paths, logger)
	runner := pipeline.NewRunner(cfg, paths, store, scraper, nil, logger)

	ctx := context.Background()
	failed := 0
	totalAdded := 0
	for _, target := range targets {
		result, err := runner.ScrapeSource(ctx, target, *dryRun)
		if err != nil {
			failed++
			logger.Error("source scrape failed",
				slog.String("source", target.Source.Name),
				slog.String("error", err.Error()))
			continue
		}
		totalAdded += result.Added
		fmt.Printf("%-35s +%d added, %d duplicate, %d invalid, %d conflicts\n",
			target.Source.Name, result.Added, result.SkippedDuplicate,
			result.RejectedInvalid, result.RejectedConflict())
	}

	logger.Info("draw scraper finished",
		slog.Int("targets", len(targets)),
		slog.Int("failed", failed),
		slog.Int("records_added", totalAdded))

	if failed > 0 {
		os.Exit(1)
	}
}

func resolvePaths(root string) (*config.Paths, error) {
	if root != "" {
		return config.PathsForRoot(root), nil
	}
	return config.GetPaths()
}
