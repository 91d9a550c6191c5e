package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"pick4cli/internal/aggregate"
	"pick4cli/internal/config"
	"pick4cli/internal/exporter"
	"pick4cli/internal/infrastructure"
	"pick4cli/internal/pipeline"
	"pick4cli/internal/series"
	"pick4cli/pkg/contracts/domain"
)

func main() {
	manifests := flag.String("manifests", "", "comma-separated cohort manifest files (defaults to configured set)")
	skipCombined := flag.Bool("skip-combined", false, "do not build the combined table")
	skipWorkbook := flag.Bool("skip-workbook", false, "do not export the Excel workbook")
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
		cfg.Cohorts.Manifests = append([]string(nil), config.DefaultCohortManifests...)
		cfg.Cohorts.CombinedName = "daily"
	}
	cfg.Logging.FilePath = paths.GetLogPath("aggregator.log")
	if *manifests != "" {
		cfg.Cohorts.Manifests = strings.Split(*manifests, ",")
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("Warning: failed to initialize logger, using default: %v\n", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	store := series.NewStore(paths, logger)
	runner := pipeline.NewRunner(cfg, paths, store, nil, nil, logger)

	ctx := context.Background()
	var tables []*aggregate.Table
	var cohortCfgs []domain.CohortConfig
	failed := 0

	for _, manifest := range cfg.Cohorts.Manifests {
		cohortCfg, err := runner.LoadCohort(strings.TrimSpace(manifest))
		if err != nil {
			failed++
			logger.Error("failed to load cohort manifest",
				slog.String("manifest", manifest),
				slog.String("error", err.Error()))
			continue
		}

		table, err := runner.AggregateCohort(ctx, cohortCfg)
		if err != nil {
			failed++
			logger.Error("cohort aggregation failed",
				slog.String("cohort", cohortCfg.Name),
				slog.String("error", err.Error()))
			continue
		}
		tables = append(tables, table)
		cohortCfgs = append(cohortCfgs, cohortCfg)

		report := runner.ValidateCohort(ctx, cohortCfg, table)
		fmt.Printf("%-12s %d rows, ok=%v, %d warnings, %d errors\n",
			table.Cohort, len(table.Rows), report.OK,
			len(report.Warnings), len(report.Errors))
		for _, issue := range report.Errors {
			fmt.Printf("  ERROR [%s] %s\n", issue.Field, issue.Message)
		}
	}

	if len(tables) >= 2 && !*skipCombined {
		combined := tables[0]
		for _, t := range tables[1:] {
			combined, err = aggregate.Combine(cfg.Cohorts.CombinedName, combined, t)
			if err != nil {
				logger.Error("failed to combine tables", slog.String("error", err.Error()))
				os.Exit(1)
			}
		}
		if err := exporter.WriteAggregateCSV(paths.GetAggregatePath(combined.Cohort), combined); err != nil {
			logger.Error("failed to write combined table", slog.String("error", err.Error()))
			os.Exit(1)
		}
		tables = append(tables, combined)

		report := runner.ValidateCohort(ctx,
			pipeline.CombinedCohortConfig(combined.Cohort, cohortCfgs), combined)
		fmt.Printf("%-12s %d rows (combined), ok=%v, %d warnings, %d errors\n",
			combined.Cohort, len(combined.Rows), report.OK,
			len(report.Warnings), len(report.Errors))
		for _, issue := range report.Errors {
			fmt.Printf("  ERROR [%s] %s\n", issue.Field, issue.Message)
		}
	}

	if len(tables) > 0 && !*skipWorkbook {
		if err := exporter.WriteAggregateWorkbook(exporter.WorkbookPath(paths), tables); err != nil {
			logger.Error("failed to export workbook", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

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
