// Package merge folds freshly scraped candidate batches into a source
// series. The fold is idempotent and order-independent: duplicates are
// skipped, invalid digits are rejected per record, and a date already
// on file with different digits is a conflict surfaced for manual
// resolution, never overwritten.
package merge

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"pick4cli/internal/series"
	"pick4cli/pkg/contracts/domain"
)

// Conflict records a candidate that disagrees with the digits already
// on file for its date.
type Conflict struct {
	Date      time.Time     `json:"date"`
	Existing  domain.Digits `json:"existing"`
	Candidate domain.Digits `json:"candidate"`
}

// Result is the diff report of one merge.
type Result struct {
	Source           string     `json:"source"`
	Added            int        `json:"added"`
	SkippedDuplicate int        `json:"skipped_duplicate"`
	RejectedInvalid  int        `json:"rejected_invalid"`
	Conflicts        []Conflict `json:"conflicts,omitempty"`
}

// RejectedConflict returns the number of conflicting candidates.
func (r Result) RejectedConflict() int {
	return len(r.Conflicts)
}

// Changed reports whether the merge extended the series.
func (r Result) Changed() bool {
	return r.Added > 0
}

// Apply folds a candidate batch into the series and returns the diff
// report. The batch may be empty, overlap the series, or contain
// invalid records; none of these abort processing of the remaining
// candidates. Candidates are sorted before folding so the outcome does
// not depend on input ordering.
func Apply(ctx context.Context, s *series.Series, candidates []domain.DrawRecord, logger *slog.Logger) Result {
	if logger == nil {
		logger = slog.Default()
	}

	result := Result{Source: s.ID.Name}

	sorted := make([]domain.DrawRecord, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.Before(sorted[j].Date)
		}
		return sorted[i].Digits.String() < sorted[j].Digits.String()
	})

	for _, cand := range sorted {
		cand.Date = domain.NormalizeDate(cand.Date)

		if err := cand.Validate(); err != nil {
			result.RejectedInvalid++
			logger.WarnContext(ctx, "rejected invalid candidate record",
				slog.String("source", s.ID.Name),
				slog.String("error", err.Error()))
			continue
		}

		if existing, ok := s.Get(cand.Date); ok {
			if existing.Digits == cand.Digits {
				result.SkippedDuplicate++
				continue
			}
			result.Conflicts = append(result.Conflicts, Conflict{
				Date:      cand.Date,
				Existing:  existing.Digits,
				Candidate: cand.Digits,
			})
			logger.WarnContext(ctx, "conflicting candidate record requires manual resolution",
				slog.String("source", s.ID.Name),
				slog.String("date", cand.Date.Format("2006-01-02")),
				slog.String("existing", existing.Digits.String()),
				slog.String("candidate", cand.Digits.String()))
			continue
		}

		if err := s.Add(cand); err != nil {
			// Unreachable after the checks above; counted as invalid
			// rather than dropped silently.
			result.RejectedInvalid++
			logger.ErrorContext(ctx, "failed to add candidate record",
				slog.String("source", s.ID.Name),
				slog.String("error", err.Error()))
			continue
		}
		result.Added++
	}

	logger.InfoContext(ctx, "merged candidate batch",
		slog.String("source", s.ID.Name),
		slog.Int("candidates", len(candidates)),
		slog.Int("added", result.Added),
		slog.Int("skipped_duplicate", result.SkippedDuplicate),
		slog.Int("rejected_invalid", result.RejectedInvalid),
		slog.Int("conflicts", len(result.Conflicts)))

	return result
}
