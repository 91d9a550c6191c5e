package exporter

import (
	"bufio"
	"os"
	"path/filepath"

	"pick4cli/internal/errors"
	"pick4cli/internal/series"
)

// WriteResults writes the reference source's draw digits to a plain
// text file, one concatenated draw per line, oldest first. The file is
// rewritten whole on every run.
func WriteResults(path string, ref *series.Series) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create results directory", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create results file", err).
			WithContext("path", path)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	for _, rec := range ref.Records() {
		if _, err := w.WriteString(rec.Digits.String() + "\n"); err != nil {
			return errors.NewStorageError("failed to write results line", err)
		}
	}

	if err := w.Flush(); err != nil {
		return errors.NewStorageError("failed to flush results file", err)
	}
	return nil
}
