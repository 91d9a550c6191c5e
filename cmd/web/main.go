package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"pick4cli/internal/config"
	"pick4cli/internal/infrastructure"
	"pick4cli/internal/pipeline"
	"pick4cli/internal/series"
	transport "pick4cli/internal/transport/http"
)

const version = "v1.0.0"

func main() {
	port := flag.Int("port", 0, "listen port (overrides configuration)")
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
		cfg.Server.Port = 8080
		cfg.Cohorts.Manifests = append([]string(nil), config.DefaultCohortManifests...)
	}
	cfg.Logging.FilePath = paths.GetLogPath("web.log")
	if *port != 0 {
		cfg.Server.Port = *port
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Printf("Warning: failed to initialize logger, using default: %v\n", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	providers, err := infrastructure.InitializeOTel(nil, logger)
	if err != nil {
		logger.Warn("metrics disabled", slog.String("error", err.Error()))
	}
	if providers != nil {
		defer providers.Shutdown(context.Background())
	}

	store := series.NewStore(paths, logger)
	service := pipeline.NewDataService(cfg, paths, store, logger)
	router := transport.NewRouter(service, providers, version, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("data API listening",
			slog.Int("port", cfg.Server.Port),
			slog.String("data_dir", paths.DataDir))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func resolvePaths(root string) (*config.Paths, error) {
	if root != "" {
		return config.PathsForRoot(root), nil
	}
	return config.GetPaths()
}
