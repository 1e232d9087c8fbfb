package converter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/xero-bills-converter/internal/config"
	"github.com/ginjaninja78/xero-bills-converter/internal/types"
)

const ordersCSV = `Order ID,Order Date,Invoice,Checkout Price,VAT Amount,Supplier,VAT == 1/6 Checkout Price
1001,25/12/2023,INV-1,£120.00,£20.00,Acme Ltd,1
1002,26/12/2023,INV-2,£100.00,£20.00,Widget Co,0
`

func TestConvert(t *testing.T) {
	out, err := Convert(strings.NewReader(ordersCSV), "orders.csv", Options{})
	require.NoError(t, err)

	require.Len(t, out.Lines, 3)
	assert.Equal(t, 2, out.Stats.RowsRead)
	assert.Equal(t, 2, out.Stats.RecordsConverted)
	assert.Equal(t, 2, out.Stats.StockLines)
	assert.Equal(t, 1, out.Stats.DiscountLines)
	assert.Equal(t, "220.00", out.Stats.Total.StringFixed(2))
	assert.Equal(t, "12/25/2023", out.Lines[0].InvoiceDate)
}

func TestConvert_DateFormatOverride(t *testing.T) {
	out, err := Convert(strings.NewReader(ordersCSV), "orders.csv", Options{OutputDateFormat: DayMonthYear})
	require.NoError(t, err)
	assert.Equal(t, "25/12/2023", out.Lines[0].InvoiceDate)

	_, err = Convert(strings.NewReader(ordersCSV), "orders.csv", Options{InputDateFormat: MonthDayYear})
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestConvert_UnsupportedFile(t *testing.T) {
	_, err := Convert(strings.NewReader(ordersCSV), "orders.pdf", Options{})
	assert.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestConvert_HeaderOnly(t *testing.T) {
	_, err := Convert(strings.NewReader("Order ID,Order Date\n"), "orders.csv", Options{})
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func testMainConfig(t *testing.T) *config.MainConfig {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.LoadMainConfig(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	cfg.InputDir = filepath.Join(dir, "input")
	cfg.OutputDir = filepath.Join(dir, "output")
	cfg.InputArchiveDir = filepath.Join(dir, "archive")
	require.NoError(t, os.MkdirAll(cfg.InputDir, 0o755))
	return cfg
}

func TestConverterRun(t *testing.T) {
	cfg := testMainConfig(t)
	input := filepath.Join(cfg.InputDir, "orders.csv")
	require.NoError(t, os.WriteFile(input, []byte(ordersCSV), 0o644))

	res := New(input, cfg, Options{Archive: true}).Run(context.Background())
	require.NoError(t, res.Error)
	require.True(t, res.Success)

	assert.Equal(t, cfg.OutputDir, filepath.Dir(res.OutputFile))
	assert.True(t, strings.HasPrefix(filepath.Base(res.OutputFile), "orders_xero_"))
	assert.Equal(t, ".csv", filepath.Ext(res.OutputFile))

	data, err := os.ReadFile(res.OutputFile)
	require.NoError(t, err)
	assert.Equal(t, "*ContactName,*InvoiceNumber,*InvoiceDate,*DueDate,*Quantity,*UnitAmount,*AccountCode,*TaxType\n"+
		"Acme Ltd,1001,12/25/2023,12/25/2023,1,120.00,Stock,20% (VAT on Expenses)\n"+
		"Widget Co,1002,12/26/2023,12/26/2023,1,120.00,Stock,20% (VAT on Expenses)\n"+
		"Widget Co,1002,12/26/2023,12/26/2023,1,-20.00,Discounts,No VAT\n", string(data))

	_, err = os.Stat(input)
	assert.True(t, os.IsNotExist(err), "input should have been archived")
}

func TestConverterRun_DryRun(t *testing.T) {
	cfg := testMainConfig(t)
	input := filepath.Join(cfg.InputDir, "orders.csv")
	require.NoError(t, os.WriteFile(input, []byte(ordersCSV), 0o644))

	res := New(input, cfg, Options{DryRun: true, Archive: true}).Run(context.Background())
	require.True(t, res.Success)
	assert.Empty(t, res.OutputFile)
	assert.FileExists(t, input)
	assert.NoDirExists(t, cfg.OutputDir)
}

func TestConverterRun_Failure(t *testing.T) {
	cfg := testMainConfig(t)
	input := filepath.Join(cfg.InputDir, "orders.csv")
	bad := strings.Replace(ordersCSV, "£100.00", "£1OO.00", 1)
	require.NoError(t, os.WriteFile(input, []byte(bad), 0o644))

	res := New(input, cfg, Options{Archive: true}).Run(context.Background())
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Error, ErrInvalidAmount)
	assert.Equal(t, 3, RowOf(res.Error))
	assert.FileExists(t, input)
}

func TestConverterRun_Cancellations(t *testing.T) {
	cfg := testMainConfig(t)
	input := filepath.Join(cfg.InputDir, "cancellations.csv")
	csv := strings.Join(cancellationHeaders, ",") + "\n" +
		"1001,25/12/2023,INV-1,£100.00,£20.00,Acme Ltd,0,CN-1,02/01/2024,1\n" +
		"1001,25/12/2023,INV-1,£100.00,£20.00,Acme Ltd,0,CN-2,03/01/2024,1\n"
	require.NoError(t, os.WriteFile(input, []byte(csv), 0o644))

	out := filepath.Join(cfg.OutputDir, "nested", "credit.csv")
	res := New(input, cfg, Options{Kind: types.KindCancellations, OutputPath: out}).Run(context.Background())
	require.NoError(t, res.Error)
	assert.Equal(t, out, res.OutputFile)
	assert.Equal(t, 1, res.Stats.RecordsSkipped)
	assert.Equal(t, "-100.00", res.Stats.Total.StringFixed(2))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Acme Ltd,CN-1,01/02/2024,01/02/2024,1,-120.00,Stock,20% (VAT on Expenses)\n")
	assert.Contains(t, string(data), "Acme Ltd,CN-1,01/02/2024,01/02/2024,1,20.00,Discounts,No VAT\n")
	assert.NotContains(t, string(data), "CN-2")
}
