package pipeline

import (
	"context"
	"log/slog"

	"pick4cli/internal/aggregate"
	"pick4cli/internal/config"
	"pick4cli/internal/errors"
	"pick4cli/internal/exporter"
	"pick4cli/internal/series"
	"pick4cli/pkg/contracts/domain"
)

// SourceSummary is the API view of one series.
type SourceSummary struct {
	Name      string           `json:"name"`
	Region    string           `json:"region"`
	Slot      domain.SlotClass `json:"slot,omitempty"`
	TimeOfDay string           `json:"time_of_day,omitempty"`
	Records   int              `json:"records"`
	FirstDate string           `json:"first_date,omitempty"`
	LastDate  string           `json:"last_date,omitempty"`
}

// SourceDetail extends the summary with the most recent draws.
type SourceDetail struct {
	SourceSummary
	Recent []domain.DrawRecord `json:"recent"`
}

// recentDraws caps the record tail returned by SourceDetail.
const recentDraws = 30

// DataService serves read-only pipeline data to the HTTP layer.
type DataService struct {
	cfg    *config.Config
	paths  *config.Paths
	store  *series.Store
	logger *slog.Logger
}

// NewDataService creates a data service over the pipeline's data
// directory.
func NewDataService(cfg *config.Config, paths *config.Paths, store *series.Store, logger *slog.Logger) *DataService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DataService{cfg: cfg, paths: paths, store: store, logger: logger}
}

// ListSources summarizes every series in the raw directory.
func (d *DataService) ListSources(ctx context.Context) ([]SourceSummary, error) {
	ids, err := d.store.List()
	if err != nil {
		return nil, err
	}

	summaries := make([]SourceSummary, 0, len(ids))
	for _, id := range ids {
		s, err := d.store.Load(ctx, id)
		if err != nil {
			d.logger.WarnContext(ctx, "skipping unreadable series",
				slog.String("source", id.Name),
				slog.String("error", err.Error()))
			continue
		}
		summaries = append(summaries, summarize(s))
	}
	return summaries, nil
}

// SourceDetail returns one series with its recent draw tail.
func (d *DataService) SourceDetail(ctx context.Context, name string) (*SourceDetail, error) {
	id, err := domain.ParseSourceName(name)
	if err != nil {
		return nil, errors.NewAppValidationError("invalid source name " + name)
	}

	s, err := d.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	records := s.Records()
	tail := records
	if len(tail) > recentDraws {
		tail = tail[len(tail)-recentDraws:]
	}
	recent := make([]domain.DrawRecord, len(tail))
	copy(recent, tail)

	return &SourceDetail{
		SourceSummary: summarize(s),
		Recent:        recent,
	}, nil
}

// AggregateTable loads a cohort's aggregate table from disk.
func (d *DataService) AggregateTable(ctx context.Context, cohort string) (*aggregate.Table, error) {
	return exporter.ReadAggregateCSV(d.paths.GetAggregatePath(cohort), cohort)
}

// ValidationReport revalidates a cohort's persisted aggregate table
// against its manifest.
func (d *DataService) ValidationReport(ctx context.Context, cohort string) (*aggregate.Report, error) {
	cfg, err := d.findCohort(cohort)
	if err != nil {
		return nil, err
	}

	table, err := d.AggregateTable(ctx, cohort)
	if err != nil {
		return nil, err
	}
	return aggregate.Validate(cfg, table), nil
}

// findCohort locates a cohort by name among the configured manifests.
func (d *DataService) findCohort(name string) (domain.CohortConfig, error) {
	for _, manifest := range d.cfg.Cohorts.Manifests {
		cfg, err := domain.LoadCohortConfig(d.paths.GetManifestPath(manifest))
		if err != nil {
			continue
		}
		if cfg.Name == name {
			return cfg, nil
		}
	}
	return domain.CohortConfig{}, errors.NewNotFoundError("cohort " + name)
}

func summarize(s *series.Series) SourceSummary {
	sum := SourceSummary{
		Name:      s.ID.Name,
		Region:    s.ID.Region,
		Slot:      s.ID.Slot,
		TimeOfDay: s.ID.TimeOfDay,
		Records:   s.Len(),
	}
	if dates := s.Dates(); len(dates) > 0 {
		sum.FirstDate = dates[0].Format(config.ISODateFormat)
		sum.LastDate = dates[len(dates)-1].Format(config.ISODateFormat)
	}
	return sum
}
