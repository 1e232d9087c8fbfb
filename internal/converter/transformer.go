// =============================================================================
// Xero Bills Converter - Transformation Engine
// =============================================================================
//
// This module turns source records (orders or cancellations) into the lines
// of a Xero bulk-bill import.
//
// RULES (per record):
//   1. CheckoutPrice and VATAmount are parsed as currency.
//   2. When the VAT-is-sixth flag is 1 the VAT is already a sixth of the
//      gross, so the bill amount is the checkout price.
//      When the flag is 0 the checkout price was discounted and the bill
//      amount is rebuilt from the VAT: VATAmount x 6.
//   3. One "Stock" line carries the bill amount at 20% VAT.
//   4. When the flag is 0 a "Discounts" line at No VAT carries the
//      difference, so the lines of a record always sum to the checkout price.
//   5. Cancellations produce the same lines with the sign flipped.
//   6. The date is rewritten from the input format to the output format and
//      used as both the invoice date and the due date.
//
// A record that fails any step fails the whole conversion. There is no
// partial-row recovery.
//
// =============================================================================

package converter

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/xero-bills-converter/internal/types"
)

// vatMultiplier rebuilds the VAT-inclusive gross from a 20% VAT amount.
var vatMultiplier = decimal.NewFromInt(6)

// =============================================================================
// TRANSFORMER
// =============================================================================

// TransformOptions configure a Transformer.
type TransformOptions struct {
	// CurrencySymbol is stripped from amount cells. Default "£".
	CurrencySymbol string

	// InputDateFormat is the day/month order of the source dates.
	// Default dd/mm/yyyy.
	InputDateFormat DateFormat

	// OutputDateFormat is the day/month order written to the import file.
	// Default mm/dd/yyyy.
	OutputDateFormat DateFormat
}

// Transformer applies the bill rules to source records.
// It holds no state between calls and is safe for concurrent use.
type Transformer struct {
	opts TransformOptions
}

// NewTransformer creates a new Transformer, filling unset options with defaults.
func NewTransformer(opts TransformOptions) *Transformer {
	if opts.CurrencySymbol == "" {
		opts.CurrencySymbol = "£"
	}
	if opts.InputDateFormat == "" {
		opts.InputDateFormat = DayMonthYear
	}
	if opts.OutputDateFormat == "" {
		opts.OutputDateFormat = MonthDayYear
	}
	return &Transformer{opts: opts}
}

// =============================================================================
// TRANSFORMATION FUNCTIONS
// =============================================================================

// Transform converts records into invoice lines.
//
// PARAMETERS:
//   - records: The source records in file order.
//
// RETURNS:
//   - The invoice lines in record order, each Stock line immediately followed
//     by its Discounts line when there is one.
//   - The first *ParseError or *DateParseError encountered. No lines are
//     returned with an error.
func (t *Transformer) Transform(records []types.SourceRecord) ([]types.InvoiceLine, error) {
	lines := make([]types.InvoiceLine, 0, len(records)*2)
	for _, rec := range records {
		out, err := t.TransformRecord(rec)
		if err != nil {
			return nil, err
		}
		lines = append(lines, out...)
	}
	return lines, nil
}

// TransformRecord converts a single record into one or two invoice lines.
func (t *Transformer) TransformRecord(rec types.SourceRecord) ([]types.InvoiceLine, error) {
	checkout, err := ParseAmount(rec.CheckoutPrice, t.opts.CurrencySymbol)
	if err != nil {
		return nil, withRow(err, rec.RowNumber, "CheckoutPrice")
	}

	vatIsSixth, err := ParseFlag(rec.VatIsSixth)
	if err != nil {
		return nil, withRow(err, rec.RowNumber, "VatIsSixth")
	}

	// The VAT cell is always checked, but may be blank when it is not needed.
	var vat decimal.Decimal
	if strings.TrimSpace(rec.VATAmount) != "" || !vatIsSixth {
		vat, err = ParseAmount(rec.VATAmount, t.opts.CurrencySymbol)
		if err != nil {
			return nil, withRow(err, rec.RowNumber, "VATAmount")
		}
	}

	unitAmount := checkout
	if !vatIsSixth {
		unitAmount = vat.Mul(vatMultiplier)
	}

	date, err := ReformatDate(rec.Date, t.opts.InputDateFormat, t.opts.OutputDateFormat)
	if err != nil {
		field := rec.DateField
		if field == "" {
			field = "Date"
		}
		return nil, withRow(err, rec.RowNumber, field)
	}

	sign := decimal.NewFromInt(1)
	if rec.Kind == types.KindCancellations {
		sign = sign.Neg()
	}

	base := types.InvoiceLine{
		ContactName:   rec.ContactName,
		InvoiceNumber: rec.InvoiceNumber,
		InvoiceDate:   date,
		DueDate:       date,
		Quantity:      1,
		SourceRow:     rec.RowNumber,
	}

	stock := base
	stock.UnitAmount = unitAmount.Mul(sign)
	stock.AccountCode = types.AccountStock
	stock.TaxType = types.TaxVATOnExpenses

	if vatIsSixth {
		return []types.InvoiceLine{stock}, nil
	}

	discount := base
	discount.UnitAmount = unitAmount.Sub(checkout).Mul(sign).Neg()
	discount.AccountCode = types.AccountDiscounts
	discount.TaxType = types.TaxNoVAT

	return []types.InvoiceLine{stock, discount}, nil
}
