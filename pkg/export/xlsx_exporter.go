package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	defaultSheet   = "Report"
	baseColumnWide = 12.0
)

// XLSXExporter renders datasets as a single-sheet workbook with a bold header row.
type XLSXExporter struct {
	sheet string
}

// NewXLSXExporter builds an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{sheet: defaultSheet}
}

// Render produces the workbook bytes for the dataset.
func (e *XLSXExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	if err := f.SetSheetName("Sheet1", e.sheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	headers := data.Headers()
	if err := f.SetSheetRow(e.sheet, "A1", &headers); err != nil {
		return nil, fmt.Errorf("write xlsx headers: %w", err)
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(headers), 1)
	if err := f.SetCellStyle(e.sheet, "A1", lastHeader, style); err != nil {
		return nil, fmt.Errorf("style xlsx headers: %w", err)
	}

	for i := range data.Rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(e.sheet, cell, &data.Rows[i]); err != nil {
			return nil, fmt.Errorf("write xlsx row %d: %w", i+1, err)
		}
	}

	for i, col := range data.Columns {
		name, _ := excelize.ColumnNumberToName(i + 1)
		weight := col.Width
		if weight <= 0 {
			weight = 1
		}
		if err := f.SetColWidth(e.sheet, name, name, baseColumnWide*weight); err != nil {
			return nil, fmt.Errorf("size column %s: %w", name, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
