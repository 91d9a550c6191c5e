package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
)

const (
	ServiceName    = "pick4-pipeline"
	ServiceVersion = "v1.0.0"
	MeterName      = "pick4cli"
)

// OTelConfig holds OpenTelemetry configuration.
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
}

// OTelProviders holds the OpenTelemetry providers.
type OTelProviders struct {
	MeterProvider  *sdkmetric.MeterProvider
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration.
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		MetricExporter: "prometheus",
		EnableMetrics:  true,
	}
}

// InitializeOTel initializes OpenTelemetry metrics.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
	)

	providers := &OTelProviders{
		Logger: logger,
	}

	if cfg.EnableMetrics && cfg.MetricExporter == "prometheus" {
		exporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		providers.PrometheusHTTP = promhttp.Handler()

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)

		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
		otel.SetMeterProvider(mp)
	} else {
		providers.Meter = otel.Meter(MeterName)
	}

	logger.InfoContext(ctx, "OpenTelemetry initialization complete",
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	return providers, nil
}

// Shutdown flushes and stops the providers.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	if p.MeterProvider != nil {
		return p.MeterProvider.Shutdown(ctx)
	}
	return nil
}

// PipelineMetrics bundles the instruments recorded by pipeline runs.
type PipelineMetrics struct {
	RecordsMerged      metric.Int64Counter
	RecordsRejected    metric.Int64Counter
	RowsEncoded        metric.Int64Counter
	AggregateRuns      metric.Int64Counter
	ValidationWarnings metric.Int64Counter
	ValidationErrors   metric.Int64Counter
}

// NewPipelineMetrics creates the pipeline instruments on a meter.
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	merged, err := meter.Int64Counter("pick4_records_merged_total",
		metric.WithDescription("Draw records added to series by the merger"))
	if err != nil {
		return nil, err
	}

	rejected, err := meter.Int64Counter("pick4_records_rejected_total",
		metric.WithDescription("Candidate records rejected as invalid or conflicting"))
	if err != nil {
		return nil, err
	}

	encoded, err := meter.Int64Counter("pick4_rows_encoded_total",
		metric.WithDescription("One-hot rows produced by the encoder"))
	if err != nil {
		return nil, err
	}

	runs, err := meter.Int64Counter("pick4_aggregate_runs_total",
		metric.WithDescription("Cohort aggregation runs completed"))
	if err != nil {
		return nil, err
	}

	warnings, err := meter.Int64Counter("pick4_validation_warnings_total",
		metric.WithDescription("Integrity validator warnings"))
	if err != nil {
		return nil, err
	}

	verrors, err := meter.Int64Counter("pick4_validation_errors_total",
		metric.WithDescription("Integrity validator errors"))
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		RecordsMerged:      merged,
		RecordsRejected:    rejected,
		RowsEncoded:        encoded,
		AggregateRuns:      runs,
		ValidationWarnings: warnings,
		ValidationErrors:   verrors,
	}, nil
}

// SourceAttr labels a metric sample with its originating series.
func SourceAttr(name string) attribute.KeyValue {
	return attribute.String("source", name)
}

// CohortAttr labels a metric sample with its cohort.
func CohortAttr(name string) attribute.KeyValue {
	return attribute.String("cohort", name)
}
