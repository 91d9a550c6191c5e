package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pick4cli/internal/errors"
	"pick4cli/pkg/contracts/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSeriesAddAndGet(t *testing.T) {
	s := New(domain.SourceID{Name: "CA_Daily_4_dat", Region: "CA"})

	rec := domain.DrawRecord{Date: date(2024, 3, 1), Digits: domain.Digits{1, 2, 3, 4}}
	require.NoError(t, s.Add(rec))
	assert.Equal(t, 1, s.Len())

	got, ok := s.Get(date(2024, 3, 1))
	require.True(t, ok)
	assert.Equal(t, rec.Digits, got.Digits)

	// Dates key on the day regardless of time-of-day noise.
	noisy := time.Date(2024, 3, 1, 19, 30, 0, 0, time.UTC)
	assert.True(t, s.Has(noisy))
}

func TestSeriesAddRejectsDuplicateDate(t *testing.T) {
	s := New(domain.SourceID{Name: "CA_Daily_4_dat"})
	require.NoError(t, s.Add(domain.DrawRecord{Date: date(2024, 3, 1), Digits: domain.Digits{1, 2, 3, 4}}))

	err := s.Add(domain.DrawRecord{Date: date(2024, 3, 1), Digits: domain.Digits{5, 6, 7, 8}})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeDuplicateDate))
	assert.Equal(t, 1, s.Len())
}

func TestSeriesAddRejectsInvalidRecord(t *testing.T) {
	s := New(domain.SourceID{Name: "CA_Daily_4_dat"})

	err := s.Add(domain.DrawRecord{Date: date(2024, 3, 1), Digits: domain.Digits{1, 2, 3, 11}})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeInvalidRecord))
	assert.Equal(t, 0, s.Len())
}

func TestSeriesRecordsSorted(t *testing.T) {
	s := New(domain.SourceID{Name: "CA_Daily_4_dat"})
	for _, d := range []time.Time{date(2024, 3, 3), date(2024, 3, 1), date(2024, 3, 2)} {
		require.NoError(t, s.Add(domain.DrawRecord{Date: d, Digits: domain.Digits{1, 2, 3, 4}}))
	}

	records := s.Records()
	require.Len(t, records, 3)
	assert.Equal(t, date(2024, 3, 1), records[0].Date)
	assert.Equal(t, date(2024, 3, 3), records[2].Date)

	last, ok := s.LastDate()
	require.True(t, ok)
	assert.Equal(t, date(2024, 3, 3), last)
}
