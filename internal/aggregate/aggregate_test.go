package aggregate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pick4cli/internal/encode"
	"pick4cli/internal/series"
	"pick4cli/pkg/contracts/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func refSeries(t *testing.T, days ...time.Time) *series.Series {
	t.Helper()
	s := series.New(domain.SourceID{Name: "CA_Daily_4_dat", Region: "CA"})
	for i, d := range days {
		digits := domain.Digits{i % 10, (i + 1) % 10, (i + 2) % 10, (i + 3) % 10}
		require.NoError(t, s.Add(domain.DrawRecord{Date: d, Digits: digits}))
	}
	return s
}

func oneHot(t *testing.T, d time.Time, digits domain.Digits) encode.OneHotRow {
	t.Helper()
	row, err := encode.Record(domain.DrawRecord{Date: d, Digits: digits})
	require.NoError(t, err)
	return row
}

func cohort(members ...string) domain.CohortConfig {
	cfg := domain.CohortConfig{
		Name:                 "eve",
		Reference:            "CA_Daily_4_dat",
		ExpectedContributors: len(members),
	}
	for _, m := range members {
		cfg.Members = append(cfg.Members, domain.CohortMember{File: m, Region: "XX"})
	}
	return cfg
}

func TestBuildTwoMemberExample(t *testing.T) {
	d := date(2024, 3, 1)
	ref := refSeries(t, d)

	members := map[string][]encode.OneHotRow{
		"A": {oneHot(t, d, domain.Digits{1, 2, 3, 4})},
		"B": {oneHot(t, d, domain.Digits{1, 0, 3, 9})},
	}

	table, err := Build(context.Background(), cohort("A", "B"), ref, members, nil)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)

	row := table.Rows[0]
	assert.Equal(t, 2, row.Counts[encode.ColumnIndex(1, 1)])
	assert.Equal(t, 1, row.Counts[encode.ColumnIndex(2, 2)])
	assert.Equal(t, 1, row.Counts[encode.ColumnIndex(2, 0)])
	assert.Equal(t, 2, row.Counts[encode.ColumnIndex(3, 3)])
	assert.Equal(t, 1, row.Counts[encode.ColumnIndex(4, 4)])
	assert.Equal(t, 1, row.Counts[encode.ColumnIndex(4, 9)])
	assert.Equal(t, 8, row.Total())
}

func TestBuildCarriesReferenceDigitsAsLabels(t *testing.T) {
	d := date(2024, 3, 1)
	ref := series.New(domain.SourceID{Name: "CA_Daily_4_dat", Region: "CA"})
	require.NoError(t, ref.Add(domain.DrawRecord{Date: d, Digits: domain.Digits{7, 6, 3, 1}}))

	members := map[string][]encode.OneHotRow{
		"A": {oneHot(t, d, domain.Digits{1, 2, 3, 4})},
	}

	table, err := Build(context.Background(), cohort("A"), ref, members, nil)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)

	// The reference digits label the row but never join the sum.
	assert.Equal(t, domain.Digits{7, 6, 3, 1}, table.Rows[0].Target)
	assert.Equal(t, 4, table.Rows[0].Total())
}

func TestBuildMissingMemberContributesZero(t *testing.T) {
	d1, d2 := date(2024, 3, 1), date(2024, 3, 2)
	ref := refSeries(t, d1, d2)

	members := map[string][]encode.OneHotRow{
		"A": {
			oneHot(t, d1, domain.Digits{1, 2, 3, 4}),
			oneHot(t, d2, domain.Digits{5, 6, 7, 8}),
		},
		// B reports only the first date.
		"B": {oneHot(t, d1, domain.Digits{0, 0, 0, 0})},
	}

	table, err := Build(context.Background(), cohort("A", "B"), ref, members, nil)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, 8, table.Rows[0].Total())
	assert.Equal(t, 4, table.Rows[1].Total())
}

func TestBuildMemberOrderIrrelevant(t *testing.T) {
	d := date(2024, 3, 1)
	ref := refSeries(t, d)

	members := map[string][]encode.OneHotRow{
		"A": {oneHot(t, d, domain.Digits{1, 2, 3, 4})},
		"B": {oneHot(t, d, domain.Digits{5, 6, 7, 8})},
		"C": {oneHot(t, d, domain.Digits{9, 0, 1, 2})},
	}

	forward, err := Build(context.Background(), cohort("A", "B", "C"), ref, members, nil)
	require.NoError(t, err)
	reversed, err := Build(context.Background(), cohort("C", "B", "A"), ref, members, nil)
	require.NoError(t, err)

	assert.Equal(t, forward.Rows[0].Counts, reversed.Rows[0].Counts)
}

func TestBuildIgnoresDatesOutsideReferenceIndex(t *testing.T) {
	d := date(2024, 3, 1)
	ref := refSeries(t, d)

	members := map[string][]encode.OneHotRow{
		"A": {
			oneHot(t, d, domain.Digits{1, 2, 3, 4}),
			oneHot(t, date(2024, 3, 2), domain.Digits{5, 6, 7, 8}),
		},
	}

	table, err := Build(context.Background(), cohort("A"), ref, members, nil)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, d, table.Rows[0].Date)
}

func TestBuildStartDateTruncatesIndex(t *testing.T) {
	d1, d2, d3 := date(2008, 6, 7), date(2008, 6, 9), date(2008, 6, 10)
	ref := refSeries(t, d1, d2, d3)

	cfg := cohort("A")
	cfg.StartDate = "2008-06-09"

	members := map[string][]encode.OneHotRow{
		"A": {
			oneHot(t, d1, domain.Digits{1, 2, 3, 4}),
			oneHot(t, d2, domain.Digits{1, 2, 3, 4}),
			oneHot(t, d3, domain.Digits{1, 2, 3, 4}),
		},
	}

	table, err := Build(context.Background(), cfg, ref, members, nil)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, d2, table.Rows[0].Date)
	assert.Equal(t, d3, table.Rows[1].Date)
}

func TestBuildSkipsReferenceListedAsMember(t *testing.T) {
	d := date(2024, 3, 1)
	ref := refSeries(t, d)

	members := map[string][]encode.OneHotRow{
		"CA_Daily_4_dat": {oneHot(t, d, domain.Digits{1, 2, 3, 4})},
		"A":              {oneHot(t, d, domain.Digits{5, 6, 7, 8})},
	}

	table, err := Build(context.Background(), cohort("CA_Daily_4_dat", "A"), ref, members, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, table.Rows[0].Total())
}

func TestBuildDedupesMemberRows(t *testing.T) {
	d := date(2024, 3, 1)
	ref := refSeries(t, d)

	members := map[string][]encode.OneHotRow{
		"A": {
			oneHot(t, d, domain.Digits{1, 2, 3, 4}),
			oneHot(t, d, domain.Digits{1, 2, 3, 4}),
		},
	}

	table, err := Build(context.Background(), cohort("A"), ref, members, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, table.Rows[0].Total())
}

func TestCombineUnionsDates(t *testing.T) {
	d1, d2, d3 := date(2024, 3, 1), date(2024, 3, 2), date(2024, 3, 3)

	a := &Table{Cohort: "eve", Reference: "CA_Daily_4_dat", Rows: []Row{
		{Date: d1, Target: domain.Digits{1, 2, 3, 4}, Counts: counts(encode.ColumnIndex(1, 1))},
		{Date: d2, Target: domain.Digits{5, 6, 7, 8}, Counts: counts(encode.ColumnIndex(1, 5))},
	}}
	b := &Table{Cohort: "mid", Reference: "CA_Daily_4_dat", Rows: []Row{
		{Date: d2, Target: domain.Digits{5, 6, 7, 8}, Counts: counts(encode.ColumnIndex(1, 5))},
		{Date: d3, Target: domain.Digits{9, 0, 1, 2}, Counts: counts(encode.ColumnIndex(1, 9))},
	}}

	combined, err := Combine("daily", a, b)
	require.NoError(t, err)
	assert.Equal(t, "daily", combined.Cohort)
	require.Len(t, combined.Rows, 2)

	// d1 predates b's first date and is dropped. d2 sums both tables,
	// d3 keeps its single-table counts.
	assert.Equal(t, d2, combined.Rows[0].Date)
	assert.Equal(t, 2, combined.Rows[0].Counts[encode.ColumnIndex(1, 5)])
	assert.Equal(t, d3, combined.Rows[1].Date)
	assert.Equal(t, 1, combined.Rows[1].Counts[encode.ColumnIndex(1, 9)])
}

func TestCombineStartsAtLaterFirstDate(t *testing.T) {
	early, start := date(2008, 5, 19), date(2008, 6, 9)

	eve := &Table{Cohort: "eve", Reference: "CA_Daily_4_dat", Rows: []Row{
		{Date: early, Target: domain.Digits{1, 2, 3, 4}, Counts: counts(encode.ColumnIndex(1, 1))},
		{Date: start, Target: domain.Digits{5, 6, 7, 8}, Counts: counts(encode.ColumnIndex(1, 5))},
	}}
	mid := &Table{Cohort: "mid", Reference: "CA_Daily_4_dat", Rows: []Row{
		{Date: start, Target: domain.Digits{5, 6, 7, 8}, Counts: counts(encode.ColumnIndex(1, 5))},
	}}

	combined, err := Combine("daily", eve, mid)
	require.NoError(t, err)
	require.Len(t, combined.Rows, 1)
	assert.Equal(t, start, combined.Rows[0].Date)
	assert.Equal(t, 2, combined.Rows[0].Counts[encode.ColumnIndex(1, 5)])
}

func TestCombineDoesNotMutateInputs(t *testing.T) {
	d := date(2024, 3, 1)
	a := &Table{Cohort: "eve", Reference: "CA_Daily_4_dat", Rows: []Row{
		{Date: d, Target: domain.Digits{1, 2, 3, 4}, Counts: counts(0)},
	}}
	b := &Table{Cohort: "mid", Reference: "CA_Daily_4_dat", Rows: []Row{
		{Date: d, Target: domain.Digits{1, 2, 3, 4}, Counts: counts(0)},
	}}

	_, err := Combine("daily", a, b)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Rows[0].Counts[0])
	assert.Equal(t, 1, b.Rows[0].Counts[0])
}

func TestCombineRejectsMismatches(t *testing.T) {
	d := date(2024, 3, 1)

	a := &Table{Cohort: "eve", Reference: "CA_Daily_4_dat", Rows: []Row{
		{Date: d, Target: domain.Digits{1, 2, 3, 4}, Counts: counts(0)},
	}}

	diffRef := &Table{Cohort: "mid", Reference: "TX_Daily_4_dat"}
	_, err := Combine("daily", a, diffRef)
	assert.Error(t, err)

	diffTarget := &Table{Cohort: "mid", Reference: "CA_Daily_4_dat", Rows: []Row{
		{Date: d, Target: domain.Digits{9, 9, 9, 9}, Counts: counts(0)},
	}}
	_, err = Combine("daily", a, diffTarget)
	assert.Error(t, err)

	diffWidth := &Table{Cohort: "mid", Reference: "CA_Daily_4_dat", Rows: []Row{
		{Date: d, Target: domain.Digits{1, 2, 3, 4}, Counts: []int{1, 2}},
	}}
	_, err = Combine("daily", a, diffWidth)
	assert.Error(t, err)
}

// counts builds a full-width count slice with ones at the given
// offsets.
func counts(setAt ...int) []int {
	c := make([]int, encode.Width)
	for _, i := range setAt {
		c[i]++
	}
	return c
}
