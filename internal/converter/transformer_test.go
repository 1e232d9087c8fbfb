package converter

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/xero-bills-converter/internal/types"
)

func order(row int, checkout, vat, flag string) types.SourceRecord {
	return types.SourceRecord{
		Kind:          types.KindOrders,
		RowNumber:     row,
		OrderID:       "1001",
		ContactName:   "Acme Ltd",
		InvoiceNumber: "1001",
		Date:          "25/12/2023",
		DateField:     "Order Date",
		CheckoutPrice: checkout,
		VATAmount:     vat,
		VatIsSixth:    flag,
	}
}

func cancellation(row int, checkout, vat, flag string) types.SourceRecord {
	r := order(row, checkout, vat, flag)
	r.Kind = types.KindCancellations
	r.InvoiceNumber = "CN-1"
	r.Date = "02/01/2024"
	r.DateField = "Cancellation Date"
	return r
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestTransform_VatIsSixth(t *testing.T) {
	lines, err := NewTransformer(TransformOptions{}).Transform([]types.SourceRecord{
		order(2, "£120.00", "£20.00", "1"),
	})
	require.NoError(t, err)
	require.Len(t, lines, 1)

	l := lines[0]
	assert.Equal(t, "Acme Ltd", l.ContactName)
	assert.Equal(t, "1001", l.InvoiceNumber)
	assert.Equal(t, "12/25/2023", l.InvoiceDate)
	assert.Equal(t, l.InvoiceDate, l.DueDate)
	assert.Equal(t, 1, l.Quantity)
	assert.True(t, l.UnitAmount.Equal(dec("120.00")), l.UnitAmount.String())
	assert.Equal(t, types.AccountStock, l.AccountCode)
	assert.Equal(t, types.TaxVATOnExpenses, l.TaxType)
	assert.Equal(t, 2, l.SourceRow)
}

func TestTransform_DiscountLine(t *testing.T) {
	lines, err := NewTransformer(TransformOptions{}).Transform([]types.SourceRecord{
		order(2, "£100.00", "£20.00", "0"),
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.Equal(t, types.AccountStock, lines[0].AccountCode)
	assert.True(t, lines[0].UnitAmount.Equal(dec("120.00")), lines[0].UnitAmount.String())

	assert.Equal(t, types.AccountDiscounts, lines[1].AccountCode)
	assert.Equal(t, types.TaxNoVAT, lines[1].TaxType)
	assert.True(t, lines[1].UnitAmount.Equal(dec("-20.00")), lines[1].UnitAmount.String())
	assert.Equal(t, lines[0].InvoiceNumber, lines[1].InvoiceNumber)
	assert.Equal(t, lines[0].InvoiceDate, lines[1].InvoiceDate)
}

func TestTransform_CancellationFlipsSigns(t *testing.T) {
	lines, err := NewTransformer(TransformOptions{}).Transform([]types.SourceRecord{
		cancellation(2, "£100.00", "£20.00", "0"),
	})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	assert.True(t, lines[0].UnitAmount.Equal(dec("-120.00")), lines[0].UnitAmount.String())
	assert.True(t, lines[1].UnitAmount.Equal(dec("20.00")), lines[1].UnitAmount.String())
	assert.Equal(t, "CN-1", lines[0].InvoiceNumber)
	assert.Equal(t, "01/02/2024", lines[0].InvoiceDate)
}

func TestTransform_LinesSumToCheckoutPrice(t *testing.T) {
	cases := []struct {
		checkout, vat, flag string
	}{
		{"£120.00", "£20.00", "1"},
		{"£100.00", "£20.00", "0"},
		{"£9.99", "£1.95", "0"},
		{"£1,049.50", "£180.00", "0"},
		{"£0.00", "£0.00", "0"},
		{"£35.00", "", "1"},
	}
	tr := NewTransformer(TransformOptions{})

	for _, c := range cases {
		checkout, err := ParseAmount(c.checkout, "£")
		require.NoError(t, err)

		for _, rec := range []types.SourceRecord{order(2, c.checkout, c.vat, c.flag), cancellation(2, c.checkout, c.vat, c.flag)} {
			lines, err := tr.TransformRecord(rec)
			require.NoError(t, err)

			wantLines := 1
			if c.flag == "0" {
				wantLines = 2
			}
			assert.Len(t, lines, wantLines)

			sum := decimal.Zero
			for _, l := range lines {
				sum = sum.Add(l.UnitAmount)
			}
			want := checkout
			if rec.Kind == types.KindCancellations {
				want = checkout.Neg()
			}
			assert.True(t, sum.Equal(want), "%s %s: sum %s, want %s", rec.Kind, c.checkout, sum, want)
		}
	}
}

func TestTransform_PreservesOrder(t *testing.T) {
	a := order(2, "£50.00", "£5.00", "0")
	a.InvoiceNumber = "A"
	b := order(3, "£60.00", "£10.00", "1")
	b.InvoiceNumber = "B"
	c := order(4, "£70.00", "£10.00", "0")
	c.InvoiceNumber = "C"

	lines, err := NewTransformer(TransformOptions{}).Transform([]types.SourceRecord{a, b, c})
	require.NoError(t, err)

	var got []string
	for _, l := range lines {
		got = append(got, l.InvoiceNumber+":"+string(l.AccountCode))
	}
	assert.Equal(t, []string{"A:Stock", "A:Discounts", "B:Stock", "C:Stock", "C:Discounts"}, got)
}

func TestTransform_DateFormats(t *testing.T) {
	rec := order(2, "£10.00", "£1.67", "1")
	rec.Date = "3/4/2024"

	lines, err := NewTransformer(TransformOptions{InputDateFormat: MonthDayYear, OutputDateFormat: DayMonthYear}).Transform([]types.SourceRecord{rec})
	require.NoError(t, err)
	assert.Equal(t, "04/03/2024", lines[0].InvoiceDate)
}

func TestTransform_Errors(t *testing.T) {
	tr := NewTransformer(TransformOptions{})

	t.Run("bad checkout price", func(t *testing.T) {
		_, err := tr.Transform([]types.SourceRecord{order(2, "£10.00", "£1.00", "1"), order(3, "n/a", "£1.00", "1")})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidAmount))
		assert.Equal(t, 3, RowOf(err))
		assert.Equal(t, "CheckoutPrice", FieldOf(err))
	})

	t.Run("bad vat amount", func(t *testing.T) {
		_, err := tr.Transform([]types.SourceRecord{order(5, "£10.00", "ten", "1")})
		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.Equal(t, "VATAmount", FieldOf(err))
	})

	t.Run("blank vat needed for discount", func(t *testing.T) {
		_, err := tr.Transform([]types.SourceRecord{order(5, "£10.00", "", "0")})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("fractions of a penny", func(t *testing.T) {
		_, err := tr.Transform([]types.SourceRecord{order(8, "£10.005", "£1.6675", "0")})
		require.ErrorIs(t, err, ErrInvalidAmount)
		assert.Equal(t, 8, RowOf(err))
		assert.Equal(t, "CheckoutPrice", FieldOf(err))

		_, err = tr.Transform([]types.SourceRecord{order(9, "£10.00", "£1.6675", "0")})
		require.ErrorIs(t, err, ErrInvalidAmount)
		assert.Equal(t, "VATAmount", FieldOf(err))
	})

	t.Run("doubled sign", func(t *testing.T) {
		_, err := tr.Transform([]types.SourceRecord{order(10, "-£-5.00", "£1.00", "1")})
		assert.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("bad flag", func(t *testing.T) {
		_, err := tr.Transform([]types.SourceRecord{order(6, "£10.00", "£1.00", "maybe")})
		assert.ErrorIs(t, err, ErrInvalidFlag)
		assert.Equal(t, 6, RowOf(err))
	})

	t.Run("date in wrong format", func(t *testing.T) {
		rec := order(7, "£10.00", "£1.00", "1")
		rec.Date = "12/25/2023"
		lines, err := tr.Transform([]types.SourceRecord{rec})
		assert.Nil(t, lines)
		require.ErrorIs(t, err, ErrInvalidDate)

		var de *DateParseError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, 7, de.Row)
		assert.Equal(t, "Order Date", de.Field)
		assert.Contains(t, err.Error(), "row 7")
	})
}
