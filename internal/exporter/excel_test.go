package exporter

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"pick4cli/internal/aggregate"
	"pick4cli/internal/encode"
	"pick4cli/pkg/contracts/domain"
)

func TestWriteAggregateWorkbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aggregates.xlsx")

	eve := sampleTable()
	mid := &aggregate.Table{
		Cohort:    "mid",
		Reference: "CA_Daily_4_dat",
		Rows: []aggregate.Row{
			{Date: date(2024, 3, 1), Target: domain.Digits{7, 6, 3, 1}, Counts: make([]int, encode.Width)},
		},
	}

	require.NoError(t, WriteAggregateWorkbook(path, []*aggregate.Table{eve, mid}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.ElementsMatch(t, []string{"eve", "mid"}, f.GetSheetList())

	rows, err := f.GetRows("eve")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "date", rows[0][0])
	assert.Equal(t, "CA_QS1", rows[0][1])
	assert.Equal(t, "2024-03-01", rows[1][0])
	assert.Equal(t, "7", rows[1][1])
}

func TestWriteAggregateWorkbookRejectsEmpty(t *testing.T) {
	err := WriteAggregateWorkbook(filepath.Join(t.TempDir(), "x.xlsx"), nil)
	assert.Error(t, err)
}
