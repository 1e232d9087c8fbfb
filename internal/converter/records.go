package converter

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/xero-bills-converter/internal/config"
	"github.com/ginjaninja78/xero-bills-converter/internal/types"
)

// ResolveColumns maps the wanted column names to indexes in headers.
//
// mode is the layout's match_columns_by: "name" looks every column up by its
// header (case and surrounding whitespace ignored), "position" takes the
// first len(wanted) columns in order, and "auto" tries by name and falls back
// to position when the file has exactly len(wanted) columns.
func ResolveColumns(headers, wanted []string, mode string) ([]int, error) {
	byName, missing := resolveByName(headers, wanted)

	switch strings.ToLower(mode) {
	case "position":
		return resolveByPosition(headers, wanted)
	case "auto":
		if len(missing) == 0 {
			return byName, nil
		}
		if len(headers) == len(wanted) {
			return resolveByPosition(headers, wanted)
		}
	default:
		if len(missing) == 0 {
			return byName, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(quoteAll(missing), ", "))
}

func resolveByName(headers, wanted []string) ([]int, []string) {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		key := normalizeHeader(h)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	idx := make([]int, len(wanted))
	var missing []string
	for i, name := range wanted {
		j, ok := index[normalizeHeader(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		idx[i] = j
	}
	return idx, missing
}

func resolveByPosition(headers, wanted []string) ([]int, error) {
	if len(headers) < len(wanted) {
		return nil, fmt.Errorf("%w: file has %d columns, layout needs %d", ErrMissingColumn, len(headers), len(wanted))
	}
	idx := make([]int, len(wanted))
	for i := range idx {
		idx[i] = i
	}
	return idx, nil
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.Join(strings.Fields(h), " "))
}

func quoteAll(s []string) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[i] = fmt.Sprintf("%q", v)
	}
	return out
}

// =============================================================================
// ORDERS
// =============================================================================

// OrdersFromTable reads the order export into source records.
// Every data row becomes one record; the invoice number of the bill is the
// order id.
func OrdersFromTable(tbl *types.Table, layout *config.LayoutConfig) ([]types.SourceRecord, error) {
	if tbl == nil || len(tbl.Rows) == 0 {
		return nil, ErrEmptyInput
	}

	cols := layout.OrderColumns
	idx, err := ResolveColumns(tbl.Headers, cols.Ordered(), layout.CSVSettings.MatchColumnsBy)
	if err != nil {
		return nil, err
	}

	records := make([]types.SourceRecord, 0, len(tbl.Rows))
	for _, row := range tbl.Rows {
		o := orderFromRow(row, idx)
		records = append(records, types.SourceRecord{
			Kind:          types.KindOrders,
			RowNumber:     row.Number,
			OrderID:       o.OrderID,
			ContactName:   o.Supplier,
			InvoiceNumber: o.OrderID,
			Date:          o.OrderDate,
			DateField:     cols.OrderDate,
			CheckoutPrice: o.CheckoutPrice,
			VATAmount:     o.VATAmount,
			VatIsSixth:    o.VatIsSixthFlag,
		})
	}
	return records, nil
}

func orderFromRow(row types.Row, idx []int) types.OrderRecord {
	cell := func(i int) string { return strings.TrimSpace(row.Cell(idx[i])) }
	return types.OrderRecord{
		OrderID:        cell(0),
		OrderDate:      cell(1),
		Invoice:        cell(2),
		CheckoutPrice:  cell(3),
		VATAmount:      cell(4),
		Supplier:       cell(5),
		VatIsSixthFlag: cell(6),
	}
}

// =============================================================================
// CANCELLATIONS
// =============================================================================

// CancellationsFromTable reads the cancellation export into source records.
//
// Only fully cancelled rows are kept, and an order cancelled more than once
// is kept once: the first occurrence wins and file order is preserved. Rows
// without an order id are never treated as repeats. The credit note number
// and the cancellation date replace the order's invoice number and date.
func CancellationsFromTable(tbl *types.Table, layout *config.LayoutConfig) ([]types.SourceRecord, error) {
	if tbl == nil || len(tbl.Rows) == 0 {
		return nil, ErrEmptyInput
	}

	cols := layout.CancellationColumns
	idx, err := ResolveColumns(tbl.Headers, cols.Ordered(), layout.CSVSettings.MatchColumnsBy)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var records []types.SourceRecord
	for _, row := range tbl.Rows {
		c := cancellationFromRow(row, idx)

		full, err := ParseFlag(c.FullyCancelledFlag)
		if err != nil {
			return nil, withRow(err, row.Number, cols.FullyCancelled)
		}
		if !full {
			continue
		}
		if c.OrderID != "" {
			if _, dup := seen[c.OrderID]; dup {
				continue
			}
			seen[c.OrderID] = struct{}{}
		}

		records = append(records, types.SourceRecord{
			Kind:          types.KindCancellations,
			RowNumber:     row.Number,
			OrderID:       c.OrderID,
			ContactName:   c.Supplier,
			InvoiceNumber: c.CreditNoteNumber,
			Date:          c.CancellationDate,
			DateField:     cols.CancellationDate,
			CheckoutPrice: c.CheckoutPrice,
			VATAmount:     c.VATAmount,
			VatIsSixth:    c.VatIsSixthFlag,
		})
	}
	return records, nil
}

func cancellationFromRow(row types.Row, idx []int) types.CancellationRecord {
	cell := func(i int) string { return strings.TrimSpace(row.Cell(idx[i])) }
	return types.CancellationRecord{
		OrderRecord:        orderFromRow(row, idx[:7]),
		CreditNoteNumber:   cell(7),
		CancellationDate:   cell(8),
		FullyCancelledFlag: cell(9),
	}
}

// RecordsFromTable dispatches on kind.
func RecordsFromTable(tbl *types.Table, layout *config.LayoutConfig, kind types.RecordKind) ([]types.SourceRecord, error) {
	switch kind {
	case types.KindOrders, "":
		return OrdersFromTable(tbl, layout)
	case types.KindCancellations:
		return CancellationsFromTable(tbl, layout)
	}
	return nil, fmt.Errorf("unknown record kind %q", kind)
}

// ParseKind parses a record kind as typed on a form or a flag.
func ParseKind(s string) (types.RecordKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "orders", "order":
		return types.KindOrders, nil
	case "cancellations", "cancellation", "cancelled":
		return types.KindCancellations, nil
	}
	return "", fmt.Errorf("unknown record kind %q (want orders or cancellations)", s)
}
