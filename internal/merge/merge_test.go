package merge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pick4cli/internal/series"
	"pick4cli/pkg/contracts/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rec(y int, m time.Month, d int, digits ...int) domain.DrawRecord {
	var dg domain.Digits
	copy(dg[:], digits)
	return domain.DrawRecord{Date: date(y, m, d), Digits: dg}
}

func seeded(t *testing.T, records ...domain.DrawRecord) *series.Series {
	t.Helper()
	s := series.New(domain.SourceID{Name: "CA_Daily_4_dat"})
	for _, r := range records {
		require.NoError(t, s.Add(r))
	}
	return s
}

func TestApplyAddsNewRecords(t *testing.T) {
	s := seeded(t, rec(2024, 3, 1, 1, 2, 3, 4))

	result := Apply(context.Background(), s, []domain.DrawRecord{
		rec(2024, 3, 2, 5, 6, 7, 8),
		rec(2024, 3, 3, 9, 0, 1, 2),
	}, nil)

	assert.Equal(t, 2, result.Added)
	assert.Equal(t, 0, result.SkippedDuplicate)
	assert.Equal(t, 3, s.Len())
	assert.True(t, result.Changed())
}

func TestApplyIdempotent(t *testing.T) {
	s := seeded(t)
	batch := []domain.DrawRecord{
		rec(2024, 3, 1, 1, 2, 3, 4),
		rec(2024, 3, 2, 5, 6, 7, 8),
	}

	first := Apply(context.Background(), s, batch, nil)
	assert.Equal(t, 2, first.Added)

	second := Apply(context.Background(), s, batch, nil)
	assert.Equal(t, 0, second.Added)
	assert.Equal(t, 2, second.SkippedDuplicate)
	assert.False(t, second.Changed())
	assert.Equal(t, 2, s.Len())
}

func TestApplyOrderIndependent(t *testing.T) {
	batch := []domain.DrawRecord{
		rec(2024, 3, 1, 1, 2, 3, 4),
		rec(2024, 3, 2, 5, 6, 7, 8),
		rec(2024, 3, 3, 9, 0, 1, 2),
	}
	permutations := [][]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}

	var reference []domain.DrawRecord
	for i, perm := range permutations {
		s := seeded(t)
		ordered := make([]domain.DrawRecord, len(batch))
		for j, idx := range perm {
			ordered[j] = batch[idx]
		}

		result := Apply(context.Background(), s, ordered, nil)
		assert.Equal(t, 3, result.Added)

		if i == 0 {
			reference = s.Records()
			continue
		}
		assert.Equal(t, reference, s.Records())
	}
}

func TestApplyConflictNeverOverwrites(t *testing.T) {
	s := seeded(t, rec(2024, 3, 1, 1, 2, 3, 4))

	result := Apply(context.Background(), s, []domain.DrawRecord{
		rec(2024, 3, 1, 9, 9, 9, 9),
	}, nil)

	assert.Equal(t, 0, result.Added)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, domain.Digits{1, 2, 3, 4}, result.Conflicts[0].Existing)
	assert.Equal(t, domain.Digits{9, 9, 9, 9}, result.Conflicts[0].Candidate)
	assert.Equal(t, 1, result.RejectedConflict())

	// The record on file is untouched.
	got, ok := s.Get(date(2024, 3, 1))
	require.True(t, ok)
	assert.Equal(t, domain.Digits{1, 2, 3, 4}, got.Digits)
}

func TestApplyRejectsInvalidWithoutAborting(t *testing.T) {
	s := seeded(t)

	result := Apply(context.Background(), s, []domain.DrawRecord{
		rec(2024, 3, 1, 1, 2, 3, 12),
		rec(2024, 3, 2, 5, 6, 7, 8),
		{Digits: domain.Digits{1, 2, 3, 4}}, // zero date
	}, nil)

	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 2, result.RejectedInvalid)
	assert.Equal(t, 1, s.Len())
}

func TestApplyEmptyBatch(t *testing.T) {
	s := seeded(t, rec(2024, 3, 1, 1, 2, 3, 4))

	result := Apply(context.Background(), s, nil, nil)
	assert.Equal(t, 0, result.Added)
	assert.False(t, result.Changed())
	assert.Equal(t, 1, s.Len())
}

func TestApplyNormalizesCandidateDates(t *testing.T) {
	s := seeded(t)

	noisy := domain.DrawRecord{
		Date:   time.Date(2024, 3, 1, 22, 30, 0, 0, time.FixedZone("PST", -8*3600)),
		Digits: domain.Digits{1, 2, 3, 4},
	}
	result := Apply(context.Background(), s, []domain.DrawRecord{noisy}, nil)
	assert.Equal(t, 1, result.Added)

	_, ok := s.Get(date(2024, 3, 1))
	assert.True(t, ok)
}
