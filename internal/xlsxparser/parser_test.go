package xlsxparser

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/xero-bills-converter/internal/config"
)

func workbook(t *testing.T, sheet string, rows [][]interface{}) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { f.Close() })

	if sheet != "Sheet1" {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	return f
}

func TestParse(t *testing.T) {
	f := workbook(t, "Sheet1", [][]interface{}{
		{"Order ID", "", " Supplier "},
		{"1001", "25/12/2023", "Acme Ltd"},
		{},
		{"1002", "26/12/2023", "Widget Co"},
	})
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	tbl, err := Parse(bytes.NewReader(buf.Bytes()), config.DefaultLayout().CSVSettings, "exports/orders.xlsx")
	require.NoError(t, err)

	assert.Equal(t, "orders.xlsx", tbl.SourceFile)
	assert.Equal(t, []string{"Order ID", "Column_2", "Supplier"}, tbl.Headers)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, 2, tbl.Rows[0].Number)
	assert.Equal(t, "Acme Ltd", tbl.Rows[0].Cell(2))
	assert.Equal(t, 4, tbl.Rows[1].Number)
	assert.Equal(t, "", tbl.Rows[1].Cell(2))
}

func TestParse_NamedSheet(t *testing.T) {
	f := workbook(t, "Cancellations", [][]interface{}{
		{"Report"},
		{"Original Order ID"},
		{"1001"},
	})
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	data := buf.Bytes()

	settings := config.DefaultLayout().CSVSettings
	settings.Sheet = "cancellations"
	settings.HeaderRow = 2
	settings.DataStartRow = 3

	tbl, err := Parse(bytes.NewReader(data), settings, "cancellations.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []string{"Original Order ID"}, tbl.Headers)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "1001", tbl.Rows[0].Cell(0))

	settings.Sheet = "Orders"
	_, err = Parse(bytes.NewReader(data), settings, "cancellations.xlsx")
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestParse_NotAWorkbook(t *testing.T) {
	_, err := Parse(bytes.NewReader([]byte("Order ID,Supplier\n")), config.CSVSettings{}, "orders.xlsx")
	assert.Error(t, err)
}
