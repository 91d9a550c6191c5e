package domain

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
)

// CohortMember names one series that contributes to a cohort.
type CohortMember struct {
	File   string `json:"file" validate:"required"`
	Region string `json:"state" validate:"required"`
}

// CohortConfig is the immutable specification of one aggregation
// cohort. It is loaded once per run from a versioned JSON manifest and
// passed by value into the aggregator and validator.
type CohortConfig struct {
	Name      string         `json:"name" validate:"required"`
	Reference string         `json:"reference" validate:"required"`
	Members   []CohortMember `json:"files" validate:"min=1,dive"`

	// ExpectedContributors is the full-strength per-date contributor
	// count: the number of member files expected to report on a normal
	// draw date.
	ExpectedContributors int `json:"expected_contributors" validate:"min=1"`

	// StartDate optionally truncates the reference index; dates before
	// it are dropped from the cohort's output. ISO format (2006-01-02).
	StartDate string `json:"start_date,omitempty" validate:"omitempty,datetime=2006-01-02"`

	Version  int    `json:"version,omitempty"`
	Modified string `json:"modified,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

var cohortValidate = validator.New()

// LoadCohortConfig reads and validates a cohort manifest.
func LoadCohortConfig(path string) (CohortConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CohortConfig{}, fmt.Errorf("read cohort manifest %s: %w", path, err)
	}

	var cfg CohortConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return CohortConfig{}, fmt.Errorf("parse cohort manifest %s: %w", path, err)
	}

	if err := cohortValidate.Struct(cfg); err != nil {
		return CohortConfig{}, fmt.Errorf("invalid cohort manifest %s: %w", path, err)
	}
	return cfg, nil
}

// MemberNames returns the member file stems in manifest order.
func (c CohortConfig) MemberNames() []string {
	names := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		names = append(names, m.File)
	}
	return names
}

// StartTime returns the parsed start date, if one is configured.
func (c CohortConfig) StartTime() (time.Time, bool) {
	if c.StartDate == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", c.StartDate)
	if err != nil {
		// Unreachable after LoadCohortConfig validation.
		return time.Time{}, false
	}
	return NormalizeDate(t), true
}

// ReferenceID parses the reference source name.
func (c CohortConfig) ReferenceID() (SourceID, error) {
	return ParseSourceName(c.Reference)
}
