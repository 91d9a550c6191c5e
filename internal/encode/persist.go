package encode

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pick4cli/internal/config"
	"pick4cli/internal/errors"
	"pick4cli/pkg/contracts/domain"
)

// WriteCSV writes one-hot rows to a binary CSV file with the standard
// header. Output is rewritten whole on every call; encoded files are
// derived artifacts and never patched in place.
func WriteCSV(path string, rows []OneHotRow) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create directory for binary CSV", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create binary CSV", err).
			WithContext("path", path)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(binaryHeader); err != nil {
		return errors.NewStorageError("failed to write binary CSV header", err)
	}

	record := make([]string, Width+1)
	for _, row := range rows {
		record[0] = row.Date.Format(config.CSVDateFormat)
		for i, c := range row.Counts {
			record[i+1] = strconv.Itoa(c)
		}
		if err := writer.Write(record); err != nil {
			return errors.NewStorageError("failed to write binary CSV row", err)
		}
	}

	return writer.Error()
}

// ReadCSV loads one-hot rows from a binary CSV file. A row with the
// wrong column count is a schema mismatch, fatal for the file.
func ReadCSV(path string) ([]OneHotRow, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("binary CSV " + filepath.Base(path))
		}
		return nil, errors.NewStorageError("failed to open binary CSV", err).
			WithContext("path", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.NewParsingError("failed to read binary CSV", err).
			WithContext("path", path)
	}

	var rows []OneHotRow
	for i, rec := range records {
		if len(rec) == 0 {
			continue
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "date") {
			continue
		}
		if len(rec) != Width+1 {
			return nil, errors.NewSchemaError(
				fmt.Sprintf("binary CSV %s line %d: expected %d columns, got %d",
					filepath.Base(path), i+1, Width+1, len(rec)))
		}

		date, err := parseDate(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, errors.NewParsingError(
				fmt.Sprintf("binary CSV %s line %d", filepath.Base(path), i+1), err)
		}

		row := OneHotRow{Date: date}
		for j := 0; j < Width; j++ {
			v, err := strconv.Atoi(strings.TrimSpace(rec[j+1]))
			if err != nil {
				return nil, errors.NewParsingError(
					fmt.Sprintf("binary CSV %s line %d column %d",
						filepath.Base(path), i+1, j+2), err)
			}
			row.Counts[j] = v
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{config.CSVDateFormat, config.ISODateFormat} {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.NormalizeDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}
