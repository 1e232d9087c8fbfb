// =============================================================================
// Xero Bills Converter - XLSX Export Parser
// =============================================================================
//
// Marketplace reports can be downloaded as .xlsx instead of CSV. This module
// reads one worksheet of such a workbook into the same table shape the CSV
// parser produces, so the rest of the pipeline does not care which format
// was uploaded.
//
// Cells are read as formatted text (what the user sees in the spreadsheet),
// so "£12.50" and "25/12/2023" arrive exactly as they would in a CSV export.
//
// =============================================================================

package xlsxparser

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/xero-bills-converter/internal/config"
	"github.com/ginjaninja78/xero-bills-converter/internal/types"
)

// ErrSheetNotFound is returned when the configured sheet is not in the workbook.
var ErrSheetNotFound = errors.New("sheet not found")

// Parse reads an .xlsx workbook from r.
//
// PARAMETERS:
//   - r: The workbook content.
//   - settings: Sheet, HeaderRow and DataStartRow are honoured; the CSV-only
//     settings (delimiter, encoding) are ignored.
//   - sourceName: The file name, recorded on the table.
func Parse(r io.Reader, settings config.CSVSettings, sourceName string) (*types.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	return parseWorkbook(f, settings, sourceName)
}

func parseWorkbook(f *excelize.File, settings config.CSVSettings, sourceName string) (*types.Table, error) {
	sheet, err := pickSheet(f, settings.Sheet)
	if err != nil {
		return nil, err
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	headerRow := settings.HeaderRow
	if headerRow <= 0 {
		headerRow = 1
	}
	dataStart := settings.DataStartRow
	if dataStart <= headerRow {
		dataStart = headerRow + 1
	}

	tbl := &types.Table{SourceFile: filepath.Base(sourceName)}

	for i, row := range rows {
		number := i + 1
		switch {
		case number == headerRow:
			tbl.Headers = cleanHeaders(row)
		case number < dataStart:
		case isRowEmpty(row):
		default:
			tbl.Rows = append(tbl.Rows, types.Row{Number: number, Cells: row})
		}
	}

	return tbl, nil
}

// pickSheet returns the named sheet, or the first sheet when name is empty.
func pickSheet(f *excelize.File, name string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("%w: workbook has no sheets", ErrSheetNotFound)
	}
	if name == "" {
		return sheets[0], nil
	}
	for _, s := range sheets {
		if strings.EqualFold(s, name) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrSheetNotFound, name)
}

func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = h
	}
	return cleaned
}

// isRowEmpty checks if a row contains only empty values.
// excelize returns nil for rows with no cells at all.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
