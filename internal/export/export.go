// Package export serializes a result set into a spreadsheet workbook.
package export

import (
	"fmt"

	"github.com/coop-records-api/internal/models"
	"github.com/xuri/excelize/v2"
)

// Workbook builds an XLSX workbook holding one sheet named after the
// domain: a header row of canonical column names, then the result set
// in display order. Cells keep their coerced types, so money columns
// come out numeric.
func Workbook(d models.Domain, columns []string, records []models.Record) (*excelize.File, error) {
	f := excelize.NewFile()

	sheet := string(d)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}

	for i, rec := range records {
		row := make([]any, len(columns))
		for j, c := range columns {
			row[j] = rec[c]
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	return f, nil
}
