// =============================================================================
// Xero Bills Converter - CSV Writer Module
// =============================================================================
//
// This module writes invoice lines as a Xero bulk-bill import file.
//
// FILE FORMAT:
//   *ContactName,*InvoiceNumber,*InvoiceDate,*DueDate,*Quantity,*UnitAmount,*AccountCode,*TaxType
//   Acme Ltd,1001,12/25/2023,12/25/2023,1,120.00,Stock,20% (VAT on Expenses)
//   Acme Ltd,1001,12/25/2023,12/25/2023,1,-20.00,Discounts,No VAT
//
//   The leading "*" marks the columns Xero requires. UnitAmount is always
//   written with two decimals.
//
// =============================================================================

package csvwriter

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/jszwec/csvutil"

	"github.com/ginjaninja78/xero-bills-converter/internal/types"
)

// billRow is the CSV shape of one invoice line. The tags are the column
// header of the import file.
type billRow struct {
	ContactName   string `csv:"*ContactName"`
	InvoiceNumber string `csv:"*InvoiceNumber"`
	InvoiceDate   string `csv:"*InvoiceDate"`
	DueDate       string `csv:"*DueDate"`
	Quantity      int    `csv:"*Quantity"`
	UnitAmount    string `csv:"*UnitAmount"`
	AccountCode   string `csv:"*AccountCode"`
	TaxType       string `csv:"*TaxType"`
}

func toRow(l types.InvoiceLine) billRow {
	return billRow{
		ContactName:   l.ContactName,
		InvoiceNumber: l.InvoiceNumber,
		InvoiceDate:   l.InvoiceDate,
		DueDate:       l.DueDate,
		Quantity:      l.Quantity,
		UnitAmount:    l.UnitAmount.StringFixed(2),
		AccountCode:   string(l.AccountCode),
		TaxType:       string(l.TaxType),
	}
}

// Write encodes lines to w. The header is written even when lines is empty
// so the file is still a valid (empty) import.
func Write(w io.Writer, lines []types.InvoiceLine) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if err := enc.EncodeHeader(billRow{}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, l := range lines {
		if err := enc.Encode(toRow(l)); err != nil {
			return fmt.Errorf("failed to write line %d: %w", i+1, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// WriteFile writes lines to path, replacing any existing file.
func WriteFile(path string, lines []types.InvoiceLine) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	bw := bufio.NewWriter(f)
	if err := Write(bw, lines); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
