package aggregate

import (
	"fmt"
	"time"

	"pick4cli/internal/encode"
	"pick4cli/pkg/contracts/domain"
)

// Issue describes one validator finding.
type Issue struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Report is the validator's structured output. Warnings are expected
// near source start dates and on reporting gaps; errors indicate an
// upstream invariant violation and make OK false.
type Report struct {
	Cohort   string  `json:"cohort"`
	OK       bool    `json:"ok"`
	Warnings []Issue `json:"warnings,omitempty"`
	Errors   []Issue `json:"errors,omitempty"`
}

// Validate inspects an aggregate table against its cohort
// configuration. It never mutates the table.
//
// Checks:
//   - a row total below ExpectedContributors x 4 is a warning
//     (partial-strength dates are expected, not fatal);
//   - a date appearing more than once in the index is an error
//     (upstream merge invariant violated);
//   - a row whose column count differs from the one-hot schema width
//     is an error (encoder/aggregator mismatch).
func Validate(cfg domain.CohortConfig, t *Table) *Report {
	report := &Report{Cohort: t.Cohort, OK: true}

	expected := cfg.ExpectedContributors * encode.Positions

	seen := make(map[time.Time]bool, len(t.Rows))
	for i, row := range t.Rows {
		dateStr := row.Date.Format("2006-01-02")

		if seen[row.Date] {
			report.Errors = append(report.Errors, Issue{
				Field:   "date",
				Message: fmt.Sprintf("date %s appears more than once in reference index", dateStr),
				Value:   dateStr,
			})
		}
		seen[row.Date] = true

		if len(row.Counts) != encode.Width {
			report.Errors = append(report.Errors, Issue{
				Field: "columns",
				Message: fmt.Sprintf("row %d (%s) has %d count columns, schema expects %d",
					i, dateStr, len(row.Counts), encode.Width),
				Value: len(row.Counts),
			})
			// Row totals are meaningless on a malformed row.
			continue
		}

		if total := row.Total(); total < expected {
			report.Warnings = append(report.Warnings, Issue{
				Field: "row_sum",
				Message: fmt.Sprintf("row %s total %d below full strength %d",
					dateStr, total, expected),
				Value: map[string]int{"total": total, "expected": expected},
			})
		}
	}

	report.OK = len(report.Errors) == 0
	return report
}
