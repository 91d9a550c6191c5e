// Package encode maps draw records to their one-hot positional
// representation: each of the four positions expands into ten binary
// columns, one per digit value, position-major with digit values
// ascending. Encoding is pure and deterministic; the digit-range check
// duplicates the merger's validation as defense in depth.
package encode

import (
	"fmt"
	"time"

	"pick4cli/internal/errors"
	"pick4cli/internal/series"
	"pick4cli/pkg/contracts/domain"
)

const (
	// Positions is the number of digit positions per draw.
	Positions = domain.DigitCount
	// DigitValues is the number of possible values per position.
	DigitValues = 10
	// Width is the total one-hot column count.
	Width = Positions * DigitValues
)

// OneHotRow is the encoded form of one draw record: 40 binary counts,
// exactly one set per position.
type OneHotRow struct {
	Date   time.Time
	Counts [Width]int
}

var binaryHeader = buildHeader()

func buildHeader() []string {
	cols := make([]string, 0, Width+1)
	cols = append(cols, "date")
	for pos := 1; pos <= Positions; pos++ {
		for digit := 0; digit < DigitValues; digit++ {
			cols = append(cols, fmt.Sprintf("QS%d_%d", pos, digit))
		}
	}
	return cols
}

// Header returns the binary CSV column names: date, QS1_0..QS4_9.
func Header() []string {
	out := make([]string, len(binaryHeader))
	copy(out, binaryHeader)
	return out
}

// ColumnIndex returns the offset of (position, digit) within the
// counts, position in 1..4 and digit in 0..9.
func ColumnIndex(position, digit int) int {
	return (position-1)*DigitValues + digit
}

// Record encodes a single draw record.
func Record(r domain.DrawRecord) (OneHotRow, error) {
	row := OneHotRow{Date: domain.NormalizeDate(r.Date)}
	for pos, digit := range r.Digits {
		if digit < 0 || digit > 9 {
			return OneHotRow{}, errors.NewInvalidRecordError(
				fmt.Sprintf("digit %d at position %d outside [0,9] on %s",
					digit, pos+1, r.Date.Format("2006-01-02")))
		}
		row.Counts[ColumnIndex(pos+1, digit)] = 1
	}
	return row, nil
}

// Decode recovers the digit sequence from a one-hot row. Each
// position's ten counts must contain exactly one 1.
func Decode(row OneHotRow) (domain.Digits, error) {
	var digits domain.Digits
	for pos := 1; pos <= Positions; pos++ {
		found := -1
		for digit := 0; digit < DigitValues; digit++ {
			if row.Counts[ColumnIndex(pos, digit)] == 1 {
				if found >= 0 {
					return domain.Digits{}, errors.NewSchemaError(
						fmt.Sprintf("position %d has multiple set counts on %s",
							pos, row.Date.Format("2006-01-02")))
				}
				found = digit
			}
		}
		if found < 0 {
			return domain.Digits{}, errors.NewSchemaError(
				fmt.Sprintf("position %d has no set count on %s",
					pos, row.Date.Format("2006-01-02")))
		}
		digits[pos-1] = found
	}
	return digits, nil
}

// Series encodes a full series in chronological order.
func Series(s *series.Series) ([]OneHotRow, error) {
	records := s.Records()
	rows := make([]OneHotRow, 0, len(records))
	for _, rec := range records {
		row, err := Record(rec)
		if err != nil {
			return nil, fmt.Errorf("encode series %s: %w", s.ID.Name, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
