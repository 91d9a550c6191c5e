package exporter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"pick4cli/internal/aggregate"
	"pick4cli/internal/config"
	"pick4cli/internal/encode"
	"pick4cli/internal/errors"
	"pick4cli/pkg/contracts/domain"
)

// AggregateHeader returns the column names of an aggregate CSV: the
// date, the four target label columns prefixed with the reference
// region, then the forty summed one-hot columns.
func AggregateHeader(reference string) []string {
	region := referenceRegion(reference)
	cols := make([]string, 0, 1+encode.Positions+encode.Width)
	cols = append(cols, "date")
	for pos := 1; pos <= encode.Positions; pos++ {
		cols = append(cols, fmt.Sprintf("%s_QS%d", region, pos))
	}
	cols = append(cols, encode.Header()[1:]...)
	return cols
}

func referenceRegion(reference string) string {
	if id, err := domain.ParseSourceName(reference); err == nil {
		return id.Region
	}
	return reference
}

// WriteAggregateCSV writes a cohort aggregate table, rewriting the
// target file whole.
func WriteAggregateCSV(path string, t *aggregate.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create aggregates directory", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create aggregate CSV", err).
			WithContext("path", path)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(AggregateHeader(t.Reference)); err != nil {
		return errors.NewStorageError("failed to write aggregate CSV header", err)
	}

	for _, row := range t.Rows {
		record := make([]string, 0, 1+encode.Positions+len(row.Counts))
		record = append(record, row.Date.Format(config.CSVDateFormat))
		for _, digit := range row.Target {
			record = append(record, strconv.Itoa(digit))
		}
		for _, c := range row.Counts {
			record = append(record, strconv.Itoa(c))
		}
		if err := writer.Write(record); err != nil {
			return errors.NewStorageError("failed to write aggregate CSV row", err).
				WithContext("date", row.Date.Format(config.ISODateFormat))
		}
	}

	return writer.Error()
}

// ReadAggregateCSV loads a previously written aggregate table. Rows
// with unexpected column counts are kept with their actual width so
// the validator can flag them; rows that fail to parse are fatal.
func ReadAggregateCSV(path, cohort string) (*aggregate.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("aggregate CSV " + filepath.Base(path))
		}
		return nil, errors.NewStorageError("failed to open aggregate CSV", err).
			WithContext("path", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.NewParsingError("failed to read aggregate CSV", err).
			WithContext("path", path)
	}

	table := &aggregate.Table{Cohort: cohort}
	for i, rec := range records {
		if len(rec) == 0 {
			continue
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(rec[0]), "date") {
			table.Reference = regionFromHeader(rec)
			continue
		}
		if len(rec) < 1+encode.Positions {
			return nil, errors.NewSchemaError(fmt.Sprintf(
				"aggregate CSV %s line %d: %d columns, need at least %d",
				filepath.Base(path), i+1, len(rec), 1+encode.Positions))
		}

		date, err := parseAggregateDate(strings.TrimSpace(rec[0]))
		if err != nil {
			return nil, errors.NewParsingError(
				fmt.Sprintf("aggregate CSV %s line %d", filepath.Base(path), i+1), err)
		}

		row := aggregate.Row{Date: date}
		for pos := 0; pos < encode.Positions; pos++ {
			v, err := strconv.Atoi(strings.TrimSpace(rec[pos+1]))
			if err != nil {
				return nil, errors.NewParsingError(
					fmt.Sprintf("aggregate CSV %s line %d target column %d",
						filepath.Base(path), i+1, pos+2), err)
			}
			row.Target[pos] = v
		}

		row.Counts = make([]int, len(rec)-1-encode.Positions)
		for j := range row.Counts {
			v, err := strconv.Atoi(strings.TrimSpace(rec[j+1+encode.Positions]))
			if err != nil {
				return nil, errors.NewParsingError(
					fmt.Sprintf("aggregate CSV %s line %d count column %d",
						filepath.Base(path), i+1, j+2+encode.Positions), err)
			}
			row.Counts[j] = v
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

// regionFromHeader recovers the reference region from a target label
// column like "CA_QS1".
func regionFromHeader(header []string) string {
	if len(header) < 2 {
		return ""
	}
	return strings.TrimSuffix(header[1], "_QS1")
}

func parseAggregateDate(s string) (time.Time, error) {
	for _, layout := range []string{config.CSVDateFormat, config.ISODateFormat} {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.NormalizeDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}
