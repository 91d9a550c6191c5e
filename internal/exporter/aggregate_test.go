package exporter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pick4cli/internal/aggregate"
	"pick4cli/internal/encode"
	"pick4cli/pkg/contracts/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sampleTable() *aggregate.Table {
	c1 := make([]int, encode.Width)
	c1[encode.ColumnIndex(1, 1)] = 2
	c1[encode.ColumnIndex(4, 9)] = 1

	c2 := make([]int, encode.Width)
	c2[encode.ColumnIndex(2, 0)] = 1

	return &aggregate.Table{
		Cohort:    "eve",
		Reference: "CA_Daily_4_dat",
		Rows: []aggregate.Row{
			{Date: date(2024, 3, 1), Target: domain.Digits{7, 6, 3, 1}, Counts: c1},
			{Date: date(2024, 3, 2), Target: domain.Digits{0, 0, 4, 5}, Counts: c2},
		},
	}
}

func TestAggregateHeader(t *testing.T) {
	header := AggregateHeader("CA_Daily_4_dat")
	require.Len(t, header, 1+encode.Positions+encode.Width)
	assert.Equal(t, "date", header[0])
	assert.Equal(t, "CA_QS1", header[1])
	assert.Equal(t, "CA_QS4", header[4])
	assert.Equal(t, "QS1_0", header[5])
	assert.Equal(t, "QS4_9", header[len(header)-1])
}

func TestWriteReadAggregateCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eve_aggregate.csv")
	table := sampleTable()

	require.NoError(t, WriteAggregateCSV(path, table))

	loaded, err := ReadAggregateCSV(path, "eve")
	require.NoError(t, err)
	assert.Equal(t, "eve", loaded.Cohort)
	assert.Equal(t, "CA", loaded.Reference)
	require.Len(t, loaded.Rows, 2)

	assert.Equal(t, table.Rows[0].Date, loaded.Rows[0].Date)
	assert.Equal(t, table.Rows[0].Target, loaded.Rows[0].Target)
	assert.Equal(t, table.Rows[0].Counts, loaded.Rows[0].Counts)
	assert.Equal(t, table.Rows[1].Counts, loaded.Rows[1].Counts)
}

func TestWriteAggregateCSVUsesUnpaddedDates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eve_aggregate.csv")
	require.NoError(t, WriteAggregateCSV(path, sampleTable()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "3/1/2024,7,6,3,1,"))
}

func TestReadAggregateCSVKeepsWrongWidthForValidator(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad_aggregate.csv")
	content := "date,CA_QS1,CA_QS2,CA_QS3,CA_QS4,QS1_0,QS1_1\n3/1/2024,1,2,3,4,1,0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	table, err := ReadAggregateCSV(path, "bad")
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	// Short width survives loading so Validate can flag it.
	assert.Len(t, table.Rows[0].Counts, 2)
}

func TestReadAggregateCSVMissingFile(t *testing.T) {
	_, err := ReadAggregateCSV(filepath.Join(t.TempDir(), "absent.csv"), "eve")
	assert.Error(t, err)
}
