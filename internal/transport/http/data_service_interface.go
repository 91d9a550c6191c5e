package http

import (
	"context"

	"pick4cli/internal/aggregate"
	"pick4cli/internal/pipeline"
)

// DataServiceInterface is the read surface the handlers depend on.
// Satisfied by *pipeline.DataService; tests substitute a mock.
type DataServiceInterface interface {
	ListSources(ctx context.Context) ([]pipeline.SourceSummary, error)
	SourceDetail(ctx context.Context, name string) (*pipeline.SourceDetail, error)
	AggregateTable(ctx context.Context, cohort string) (*aggregate.Table, error)
	ValidationReport(ctx context.Context, cohort string) (*aggregate.Report, error)
}
