package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"pick4cli/internal/config"
	"pick4cli/internal/infrastructure"
	"pick4cli/internal/pipeline"
	"pick4cli/internal/series"
	"pick4cli/pkg/contracts/domain"
)

func main() {
	source := flag.String("source", "", "encode only this series (file stem); empty encodes all")
	full := flag.Bool("full", false, "re-encode every series, including ones whose encoded file is newer than the raw file")
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
	cfg.Logging.FilePath = paths.GetLogPath("encoder.log")

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("Warning: failed to initialize logger, using default: %v\n", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	store := series.NewStore(paths, logger)
	runner := pipeline.NewRunner(cfg, paths, store, nil, nil, logger)

	ctx := context.Background()

	if *source != "" {
		id, err := domain.ParseSourceName(*source)
		if err != nil {
			logger.Error("invalid source name",
				slog.String("source", *source),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
		rows, err := runner.EncodeSource(ctx, id)
		if err != nil {
			logger.Error("encoding failed",
				slog.String("source", id.Name),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
		fmt.Printf("Encoded %s: %d rows\n", id.Name, rows)
		return
	}

	if *full {
		encoded, err := runner.EncodeAll(ctx)
		if err != nil {
			logger.Error("encoding finished with failures",
				slog.Int("encoded", encoded),
				slog.String("error", err.Error()))
			fmt.Printf("Encoded %d series, some failed: %v\n", encoded, err)
			os.Exit(1)
		}
		fmt.Printf("Encoded %d series\n", encoded)
		return
	}

	ids, err := store.List()
	if err != nil {
		logger.Error("failed to list series", slog.String("error", err.Error()))
		os.Exit(1)
	}

	encoded, skipped, failed := 0, 0, 0
	for _, id := range ids {
		if upToDate(paths, id.Name) {
			skipped++
			continue
		}
		if _, err := runner.EncodeSource(ctx, id); err != nil {
			failed++
			logger.Error("encoding failed",
				slog.String("source", id.Name),
				slog.String("error", err.Error()))
			continue
		}
		encoded++
	}

	fmt.Printf("Encoded %d series, %d up to date, %d failed\n", encoded, skipped, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// upToDate reports whether the encoded file exists and is at least as
// new as the raw series file.
func upToDate(paths *config.Paths, name string) bool {
	raw, err := os.Stat(paths.GetRawPath(name))
	if err != nil {
		return false
	}
	bin, err := os.Stat(paths.GetBinaryPath(name))
	if err != nil {
		return false
	}
	return !bin.ModTime().Before(raw.ModTime())
}

func resolvePaths(root string) (*config.Paths, error) {
	if root != "" {
		return config.PathsForRoot(root), nil
	}
	return config.GetPaths()
}
