package scrape

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"pick4cli/internal/errors"
	"pick4cli/pkg/contracts/domain"
)

// Target pairs one draw series with the URL its results are published
// on. Several targets may share a URL.
type Target struct {
	Source domain.SourceID
	URL    string
}

// LoadLookup reads the source lookup CSV mapping series file stems to
// their scrape URLs. Columns are matched by header name so column
// order does not matter; rows missing either value are skipped.
func LoadLookup(path string) ([]Target, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("source lookup " + filepath.Base(path))
		}
		return nil, errors.NewStorageError("failed to open source lookup", err).
			WithContext("path", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.NewParsingError("failed to read source lookup", err).
			WithContext("path", path)
	}
	if len(records) == 0 {
		return nil, errors.NewParsingError("source lookup is empty", nil).
			WithContext("path", path)
	}

	fileCol, urlCol := -1, -1
	for i, name := range records[0] {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "file":
			fileCol = i
		case "url":
			urlCol = i
		}
	}
	if fileCol < 0 || urlCol < 0 {
		return nil, errors.NewSchemaError(
			"source lookup header must contain 'file' and 'URL' columns")
	}

	var targets []Target
	for _, rec := range records[1:] {
		if fileCol >= len(rec) || urlCol >= len(rec) {
			continue
		}
		name := strings.TrimSpace(rec[fileCol])
		url := strings.TrimSpace(rec[urlCol])
		if name == "" || url == "" {
			continue
		}

		id, err := domain.ParseSourceName(name)
		if err != nil {
			return nil, errors.NewParsingError("invalid source name in lookup", err).
				WithContext("name", name)
		}
		targets = append(targets, Target{Source: id, URL: url})
	}

	return targets, nil
}
