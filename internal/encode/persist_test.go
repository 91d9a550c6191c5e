package encode

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pick4cli/internal/errors"
	"pick4cli/pkg/contracts/domain"
)

func TestWriteReadCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "CA_Daily_4_dat_binary.csv")

	r1, err := Record(domain.DrawRecord{Date: date(2024, 3, 1), Digits: domain.Digits{1, 2, 3, 4}})
	require.NoError(t, err)
	r2, err := Record(domain.DrawRecord{Date: date(2024, 3, 2), Digits: domain.Digits{9, 0, 9, 0}})
	require.NoError(t, err)

	require.NoError(t, WriteCSV(path, []OneHotRow{r1, r2}))

	rows, err := ReadCSV(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, r1, rows[0])
	assert.Equal(t, r2, rows[1])
}

func TestWriteCSVRewritesWhole(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out_binary.csv")

	r1, err := Record(domain.DrawRecord{Date: date(2024, 3, 1), Digits: domain.Digits{1, 2, 3, 4}})
	require.NoError(t, err)
	require.NoError(t, WriteCSV(path, []OneHotRow{r1, r1, r1}))
	require.NoError(t, WriteCSV(path, []OneHotRow{r1}))

	rows, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestReadCSVWrongWidthFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad_binary.csv")
	require.NoError(t, os.WriteFile(path, []byte("date,QS1_0\n3/1/2024,1\n"), 0644))

	_, err := ReadCSV(path)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeSchema))
}

func TestReadCSVMissingFile(t *testing.T) {
	_, err := ReadCSV(filepath.Join(t.TempDir(), "absent_binary.csv"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
}
