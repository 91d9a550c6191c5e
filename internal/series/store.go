package series

import (
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"pick4cli/internal/config"
	"pick4cli/internal/errors"
	"pick4cli/pkg/contracts/domain"
)

// rawHeader is the column set of a raw series CSV.
var rawHeader = []string{"date", "QS1", "QS2", "QS3", "QS4"}

// Store loads and saves series CSVs under the raw data directory.
type Store struct {
	paths  *config.Paths
	logger *slog.Logger
}

// NewStore creates a series store.
func NewStore(paths *config.Paths, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{paths: paths, logger: logger}
}

// Load reads a source's series from disk. A duplicate date in the
// persisted file violates the series invariant and is fatal for that
// source.
func (st *Store) Load(ctx context.Context, id domain.SourceID) (*Series, error) {
	path := st.paths.GetRawPath(id.Name)

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("series " + id.Name)
		}
		return nil, errors.NewStorageError("failed to open series file", err).
			WithContext("path", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.NewParsingError("failed to read series CSV", err).
			WithContext("path", path)
	}

	s := New(id)
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if i == 0 && strings.EqualFold(strings.TrimSpace(row[0]), "date") {
			continue
		}
		rec, err := parseRawRow(row)
		if err != nil {
			st.logger.WarnContext(ctx, "skipping malformed series row",
				slog.String("source", id.Name),
				slog.Int("line", i+1),
				slog.String("error", err.Error()))
			continue
		}
		if s.Has(rec.Date) {
			return nil, errors.NewDuplicateDateError(
				fmt.Sprintf("series %s holds date %s more than once",
					id.Name, rec.Date.Format(config.ISODateFormat)))
		}
		if err := s.Add(rec); err != nil {
			st.logger.WarnContext(ctx, "skipping invalid persisted record",
				slog.String("source", id.Name),
				slog.Int("line", i+1),
				slog.String("error", err.Error()))
		}
	}

	st.logger.DebugContext(ctx, "loaded series",
		slog.String("source", id.Name),
		slog.Int("records", s.Len()))

	return s, nil
}

// Save writes a series to disk sorted chronologically, header first.
func (st *Store) Save(ctx context.Context, s *Series) error {
	path := st.paths.GetRawPath(s.ID.Name)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create raw directory", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.NewStorageError("failed to create series file", err).
			WithContext("path", path)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(rawHeader); err != nil {
		return errors.NewStorageError("failed to write series header", err)
	}

	for _, rec := range s.Records() {
		row := []string{
			rec.Date.Format(config.CSVDateFormat),
			strconv.Itoa(rec.Digits[0]),
			strconv.Itoa(rec.Digits[1]),
			strconv.Itoa(rec.Digits[2]),
			strconv.Itoa(rec.Digits[3]),
		}
		if err := writer.Write(row); err != nil {
			return errors.NewStorageError("failed to write series row", err)
		}
	}

	st.logger.InfoContext(ctx, "saved series",
		slog.String("source", s.ID.Name),
		slog.Int("records", s.Len()))

	return writer.Error()
}

// List scans the raw directory for series files, excluding encoded
// *_binary.csv outputs.
func (st *Store) List() ([]domain.SourceID, error) {
	entries, err := os.ReadDir(st.paths.RawDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.NewStorageError("failed to read raw directory", err)
	}

	var ids []domain.SourceID
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		stem := strings.TrimSuffix(name, ".csv")
		if strings.HasSuffix(stem, config.BinarySuffix) {
			continue
		}
		id, err := domain.ParseSourceName(stem)
		if err != nil {
			st.logger.Warn("skipping unrecognized series file",
				slog.String("file", name),
				slog.String("error", err.Error()))
			continue
		}
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i].Name < ids[j].Name })
	return ids, nil
}

// parseRawRow converts one CSV row to a draw record.
func parseRawRow(row []string) (domain.DrawRecord, error) {
	if len(row) < 5 {
		return domain.DrawRecord{}, fmt.Errorf("expected 5 columns, got %d", len(row))
	}

	date, err := parseDrawDate(strings.TrimSpace(row[0]))
	if err != nil {
		return domain.DrawRecord{}, err
	}

	var digits domain.Digits
	for i := 0; i < domain.DigitCount; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(row[i+1]))
		if err != nil {
			return domain.DrawRecord{}, fmt.Errorf("column QS%d: %w", i+1, err)
		}
		digits[i] = v
	}

	return domain.DrawRecord{Date: date, Digits: digits}, nil
}

// parseDrawDate accepts both the historical M/D/YYYY format and ISO
// dates.
func parseDrawDate(s string) (time.Time, error) {
	for _, layout := range []string{config.CSVDateFormat, config.ISODateFormat} {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.NormalizeDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}
