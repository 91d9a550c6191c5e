package exporter

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"pick4cli/internal/aggregate"
	"pick4cli/internal/config"
	"pick4cli/internal/errors"
)

// WriteAggregateWorkbook writes one or more aggregate tables into a
// single Excel workbook, one sheet per cohort. Intended for spreadsheet
// review of aggregate output; the CSV files remain the canonical form.
func WriteAggregateWorkbook(path string, tables []*aggregate.Table) error {
	if len(tables) == 0 {
		return errors.NewAppValidationError("no aggregate tables to export")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewStorageError("failed to create workbook directory", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, t := range tables {
		sheet := sheetName(t.Cohort)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet); err != nil {
				return errors.NewStorageError("failed to rename workbook sheet", err)
			}
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return errors.NewStorageError("failed to add workbook sheet", err).
					WithContext("cohort", t.Cohort)
			}
		}
		if err := writeSheet(f, sheet, t); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return errors.NewStorageError("failed to save workbook", err).
			WithContext("path", path)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, t *aggregate.Table) error {
	header := AggregateHeader(t.Reference)
	row := make([]interface{}, 0, len(header))
	for _, h := range header {
		row = append(row, h)
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return errors.NewStorageError("failed to write workbook header", err).
			WithContext("cohort", t.Cohort)
	}

	for i, r := range t.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.NewStorageError("failed to compute workbook cell", err)
		}
		row = row[:0]
		row = append(row, r.Date.Format(config.ISODateFormat))
		for _, digit := range r.Target {
			row = append(row, digit)
		}
		for _, c := range r.Counts {
			row = append(row, c)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.NewStorageError("failed to write workbook row", err).
				WithContext("cohort", t.Cohort).
				WithContext("date", r.Date.Format(config.ISODateFormat))
		}
	}
	return nil
}

// sheetName truncates a cohort name to Excel's 31-character sheet
// name limit.
func sheetName(cohort string) string {
	if cohort == "" {
		return "aggregate"
	}
	if len(cohort) > 31 {
		return cohort[:31]
	}
	return cohort
}

// WorkbookPath returns the workbook location for a set of cohorts,
// placed next to the aggregate CSVs.
func WorkbookPath(paths *config.Paths) string {
	return filepath.Join(paths.AggregatesDir, "aggregates.xlsx")
}
