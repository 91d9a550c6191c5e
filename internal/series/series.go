package series

import (
	"sort"
	"time"

	"pick4cli/internal/errors"
	"pick4cli/pkg/contracts/domain"
)

// Series is one source's draw history keyed by date.
type Series struct {
	ID      domain.SourceID
	records map[time.Time]domain.DrawRecord
}

// New creates an empty series for a source.
func New(id domain.SourceID) *Series {
	return &Series{
		ID:      id,
		records: make(map[time.Time]domain.DrawRecord),
	}
}

// Len returns the number of records in the series.
func (s *Series) Len() int {
	return len(s.records)
}

// Has reports whether a record exists for the date.
func (s *Series) Has(date time.Time) bool {
	_, ok := s.records[domain.NormalizeDate(date)]
	return ok
}

// Get returns the record for a date, if present.
func (s *Series) Get(date time.Time) (domain.DrawRecord, bool) {
	r, ok := s.records[domain.NormalizeDate(date)]
	return r, ok
}

// Add inserts a validated record. The date must not already be
// present; the merger is responsible for duplicate and conflict
// handling before calling Add.
func (s *Series) Add(r domain.DrawRecord) error {
	if err := r.Validate(); err != nil {
		return errors.NewInvalidRecordError(err.Error())
	}
	key := domain.NormalizeDate(r.Date)
	if _, ok := s.records[key]; ok {
		return errors.NewDuplicateDateError(
			"record already exists for " + key.Format("2006-01-02") + " in series " + s.ID.Name)
	}
	r.Date = key
	s.records[key] = r
	return nil
}

// Records returns all records sorted chronologically.
func (s *Series) Records() []domain.DrawRecord {
	out := make([]domain.DrawRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Dates returns the full ordered date index of the series. For a
// reference source this index anchors aggregate rows.
func (s *Series) Dates() []time.Time {
	out := make([]time.Time, 0, len(s.records))
	for d := range s.records {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// LastDate returns the most recent draw date, used by the scraper to
// fetch only newer results.
func (s *Series) LastDate() (time.Time, bool) {
	var last time.Time
	for d := range s.records {
		if d.After(last) {
			last = d
		}
	}
	return last, !last.IsZero()
}
