package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"pick4cli/internal/encode"
	"pick4cli/internal/errors"
	"pick4cli/internal/series"
	"pick4cli/pkg/contracts/domain"
)

// Row is one aggregate output row: the reference date, the reference
// source's own digits as labels, and the summed one-hot counts of all
// contributing members. Counts is a slice rather than an array so that
// tables loaded from disk can carry a wrong width for the validator to
// flag.
type Row struct {
	Date   time.Time
	Target domain.Digits
	Counts []int
}

// Total returns the row's overall count sum. At full strength it
// equals the cohort's expected contributor count times four.
func (r Row) Total() int {
	sum := 0
	for _, c := range r.Counts {
		sum += c
	}
	return sum
}

// Table is a cohort's aggregate output, rows sorted by date.
type Table struct {
	Cohort    string
	Reference string
	Rows      []Row
}

// Build produces the aggregate table for a cohort. The reference
// series supplies the date index and the per-row target labels;
// members maps source names to their encoded rows. Members absent
// from the map or missing individual dates contribute zero. Member
// iteration follows the cohort manifest, but the integer reduction
// makes the result independent of that order.
func Build(ctx context.Context, cfg domain.CohortConfig, ref *series.Series, members map[string][]encode.OneHotRow, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dates := ref.Dates()
	if start, ok := cfg.StartTime(); ok {
		dates = truncateBefore(dates, start)
	}

	logger.InfoContext(ctx, "building cohort aggregate",
		slog.String("cohort", cfg.Name),
		slog.String("reference", cfg.Reference),
		slog.Int("reference_dates", len(dates)),
		slog.Int("members", len(cfg.Members)))

	// Running sums keyed by date: the stable key that lets partial
	// contributions combine in any order.
	sums := make(map[time.Time][]int, len(dates))
	for _, d := range dates {
		sums[d] = make([]int, encode.Width)
	}

	for _, name := range cfg.MemberNames() {
		if name == cfg.Reference {
			// The reference source is never summed; its digits are
			// carried as labels only.
			logger.WarnContext(ctx, "reference source listed as cohort member, skipping",
				slog.String("cohort", cfg.Name),
				slog.String("source", name))
			continue
		}

		rows, ok := members[name]
		if !ok {
			logger.WarnContext(ctx, "cohort member has no encoded rows, contributing zero",
				slog.String("cohort", cfg.Name),
				slog.String("source", name))
			continue
		}

		contributed := addMember(sums, rows)
		logger.DebugContext(ctx, "summed member contribution",
			slog.String("cohort", cfg.Name),
			slog.String("source", name),
			slog.Int("rows_contributed", contributed),
			slog.Int("rows_total", len(rows)))
	}

	table := &Table{
		Cohort:    cfg.Name,
		Reference: cfg.Reference,
		Rows:      make([]Row, 0, len(dates)),
	}

	for _, d := range dates {
		rec, ok := ref.Get(d)
		if !ok {
			// Unreachable: dates come from the reference series itself.
			return nil, errors.NewDuplicateDateError(
				fmt.Sprintf("reference %s lost record for %s during aggregation",
					cfg.Reference, d.Format("2006-01-02")))
		}
		table.Rows = append(table.Rows, Row{
			Date:   d,
			Target: rec.Digits,
			Counts: sums[d],
		})
	}

	return table, nil
}

// addMember folds one member's rows into the running sums, ignoring
// dates outside the reference index. A duplicate date within a
// member's rows contributes once only, first occurrence kept.
func addMember(sums map[time.Time][]int, rows []encode.OneHotRow) int {
	seen := make(map[time.Time]bool, len(rows))
	contributed := 0
	for _, row := range rows {
		dst, ok := sums[row.Date]
		if !ok || seen[row.Date] {
			continue
		}
		seen[row.Date] = true
		for i, c := range row.Counts {
			dst[i] += c
		}
		contributed++
	}
	return contributed
}

// Combine unions two aggregate tables date-by-date into a combined
// table: counts are summed where dates align; a date present in only
// one table keeps that table's counts. The output starts at the later
// of the two tables' first dates, so one cohort's start-date
// truncation carries into the combined table. Target labels must
// agree on shared dates since both tables anchor to the same
// reference.
func Combine(name string, a, b *Table) (*Table, error) {
	if a.Reference != b.Reference {
		return nil, errors.NewSchemaError(fmt.Sprintf(
			"cannot combine tables with different references: %s vs %s",
			a.Reference, b.Reference))
	}

	byDate := make(map[time.Time]Row, len(a.Rows))
	for _, row := range a.Rows {
		byDate[row.Date] = cloneRow(row)
	}

	for _, row := range b.Rows {
		existing, ok := byDate[row.Date]
		if !ok {
			byDate[row.Date] = cloneRow(row)
			continue
		}
		if existing.Target != row.Target {
			return nil, errors.NewSchemaError(fmt.Sprintf(
				"target label mismatch on %s: %s vs %s",
				row.Date.Format("2006-01-02"),
				existing.Target.String(), row.Target.String()))
		}
		if len(existing.Counts) != len(row.Counts) {
			return nil, errors.NewSchemaError(fmt.Sprintf(
				"column count mismatch on %s: %d vs %d",
				row.Date.Format("2006-01-02"),
				len(existing.Counts), len(row.Counts)))
		}
		for i, c := range row.Counts {
			existing.Counts[i] += c
		}
		byDate[row.Date] = existing
	}

	var start time.Time
	if len(a.Rows) > 0 && len(b.Rows) > 0 {
		start = a.Rows[0].Date
		if b.Rows[0].Date.After(start) {
			start = b.Rows[0].Date
		}
	}

	combined := &Table{
		Cohort:    name,
		Reference: a.Reference,
		Rows:      make([]Row, 0, len(byDate)),
	}
	for d, row := range byDate {
		if d.Before(start) {
			continue
		}
		combined.Rows = append(combined.Rows, row)
	}
	sort.Slice(combined.Rows, func(i, j int) bool {
		return combined.Rows[i].Date.Before(combined.Rows[j].Date)
	})

	return combined, nil
}

func cloneRow(r Row) Row {
	counts := make([]int, len(r.Counts))
	copy(counts, r.Counts)
	return Row{Date: r.Date, Target: r.Target, Counts: counts}
}

// truncateBefore drops dates earlier than start.
func truncateBefore(dates []time.Time, start time.Time) []time.Time {
	idx := sort.Search(len(dates), func(i int) bool {
		return !dates[i].Before(start)
	})
	return dates[idx:]
}
