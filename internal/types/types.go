// =============================================================================
// Xero Bills Converter - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - converter
//   - validation
//   - csvwriter
//   - server
//
// =============================================================================

package types

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// SOURCE RECORD TYPES
// =============================================================================

// RecordKind identifies which export a file came from.
type RecordKind string

const (
	// KindOrders is the purchase order export.
	KindOrders RecordKind = "orders"

	// KindCancellations is the cancellation export.
	KindCancellations RecordKind = "cancellations"
)

// OrderRecord is one row of the purchase order export.
// Amounts are kept as the raw currency strings from the file; they are
// parsed by the transformer so a bad value can be reported against its row.
type OrderRecord struct {
	OrderID       string
	OrderDate     string
	Invoice       string
	CheckoutPrice string
	VATAmount     string
	Supplier      string

	// VatIsSixthFlag is the raw "VAT == 1/6 Checkout Price" cell.
	VatIsSixthFlag string
}

// CancellationRecord is one row of the cancellation export.
// It carries the order fields plus the credit note details.
type CancellationRecord struct {
	OrderRecord

	CreditNoteNumber   string
	CancellationDate   string
	FullyCancelledFlag string
}

// SourceRecord is the common shape handed to the row transformer.
// Orders and cancellations are both reduced to it so the rule set is
// written once; Kind decides the sign of the emitted amounts.
type SourceRecord struct {
	// Kind is the export the record came from.
	Kind RecordKind

	// RowNumber is the 1-indexed row in the source file (header included).
	RowNumber int

	// OrderID is the underlying order identifier.
	OrderID string

	// ContactName becomes *ContactName (the supplier).
	ContactName string

	// InvoiceNumber becomes *InvoiceNumber.
	InvoiceNumber string

	// Date is the raw date string in the input date format.
	Date string

	// DateField is the source column the date came from, for error messages.
	DateField string

	CheckoutPrice string
	VATAmount     string
	VatIsSixth    string
}

// =============================================================================
// TARGET INVOICE LINE
// =============================================================================

// AccountCode is the Xero account a line is posted to.
type AccountCode string

const (
	AccountStock     AccountCode = "Stock"
	AccountDiscounts AccountCode = "Discounts"
)

// TaxType is the Xero tax rate name of a line.
type TaxType string

const (
	TaxVATOnExpenses TaxType = "20% (VAT on Expenses)"
	TaxNoVAT         TaxType = "No VAT"
)

// InvoiceLine is one row of the Xero bulk-bill import file.
type InvoiceLine struct {
	ContactName   string
	InvoiceNumber string
	InvoiceDate   string

	// DueDate always equals InvoiceDate.
	DueDate string

	// Quantity is always 1.
	Quantity int

	UnitAmount  decimal.Decimal
	AccountCode AccountCode
	TaxType     TaxType

	// SourceRow is the source row the line was produced from. Not exported.
	SourceRow int
}

// =============================================================================
// PARSED TABLE
// =============================================================================

// Table is a parsed input file, independent of whether it came from a CSV
// or an XLSX export.
type Table struct {
	// SourceFile is the name of the file the table was read from.
	SourceFile string

	// Headers are the trimmed column names of the header row.
	Headers []string

	// Rows are the non-blank data rows in file order.
	Rows []Row
}

// Row is one data row of a Table.
type Row struct {
	// Number is the 1-indexed line of the row in the source file.
	Number int

	Cells []string
}

// Cell returns the cell at index i, or "" when the row is short.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return r.Cells[i]
}
