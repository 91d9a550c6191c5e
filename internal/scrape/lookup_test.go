package scrape

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pick4cli/pkg/contracts/domain"
)

func writeLookup(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source_lookup.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadLookup(t *testing.T) {
	path := writeLookup(t, `file,URL
CA_Daily_4_dat,https://example.com/ca
DC-4_TODeve_750pm_dat,https://example.com/dc
DC-4_TODmid_150pm_dat,https://example.com/dc
`)

	targets, err := LoadLookup(path)
	require.NoError(t, err)
	require.Len(t, targets, 3)

	assert.Equal(t, "CA_Daily_4_dat", targets[0].Source.Name)
	assert.Equal(t, domain.SlotNone, targets[0].Source.Slot)
	assert.Equal(t, "https://example.com/ca", targets[0].URL)

	assert.Equal(t, domain.SlotEve, targets[1].Source.Slot)
	assert.Equal(t, "750pm", targets[1].Source.TimeOfDay)

	// Two series can share one URL.
	assert.Equal(t, targets[1].URL, targets[2].URL)
}

func TestLoadLookupColumnOrderIrrelevant(t *testing.T) {
	path := writeLookup(t, "URL,file\nhttps://example.com/ca,CA_Daily_4_dat\n")

	targets, err := LoadLookup(path)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "CA_Daily_4_dat", targets[0].Source.Name)
}

func TestLoadLookupSkipsIncompleteRows(t *testing.T) {
	path := writeLookup(t, "file,URL\nCA_Daily_4_dat,\n,https://example.com/x\nDC-4_TODeve_750pm_dat,https://example.com/dc\n")

	targets, err := LoadLookup(path)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "DC-4_TODeve_750pm_dat", targets[0].Source.Name)
}

func TestLoadLookupMissingColumns(t *testing.T) {
	path := writeLookup(t, "name,link\nx,y\n")
	_, err := LoadLookup(path)
	assert.Error(t, err)
}

func TestLoadLookupMissingFile(t *testing.T) {
	_, err := LoadLookup(filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
}
