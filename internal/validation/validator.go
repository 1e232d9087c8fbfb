// =============================================================================
// Xero Bills Converter - Validation Engine
// =============================================================================
//
// This module checks an export without writing anything. Conversion stops at
// the first bad row; validation keeps going and reports every row that would
// fail, so a user can fix the whole file in one pass.
//
// CHECKS:
//   1. File-level: the layout's columns are present (fatal)
//   2. Row-level: amounts, flags and dates parse (fatal per row)
//   3. Row-level: identifiers and supplier are not blank (warning)
//   4. File-level: duplicate order ids in an order export (warning)
//   5. File-level: a UTF-8 profile reading non-UTF-8 bytes (warning)
//
// ERROR HANDLING:
//   - Errors are collected, not returned immediately
//   - Each error includes the file row, the column and the raw value
//
// =============================================================================

package validation

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ginjaninja78/xero-bills-converter/internal/config"
	"github.com/ginjaninja78/xero-bills-converter/internal/converter"
	"github.com/ginjaninja78/xero-bills-converter/internal/csvparser"
	"github.com/ginjaninja78/xero-bills-converter/internal/types"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// ValidationError represents a single validation finding.
type ValidationError struct {
	// Severity is "error" (the file would not convert) or "warning".
	Severity string

	// Field is the column that failed validation, if any.
	Field string

	// Value is the raw cell content.
	Value string

	// Message is a human-readable error message.
	Message string

	// RowNumber is the 1-indexed row of the source file, 0 for file-level findings.
	RowNumber int

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", strings.ToUpper(e.Severity))
	if e.RowNumber > 0 {
		fmt.Fprintf(&b, " Row %d,", e.RowNumber)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " Field '%s':", e.Field)
	}
	fmt.Fprintf(&b, " %s", e.Message)
	if e.Value != "" {
		fmt.Fprintf(&b, " (value: '%s')", e.Value)
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// ValidationResult contains the results of validation.
type ValidationResult struct {
	// IsValid is true if there are no fatal errors.
	IsValid bool

	// Errors contains all findings, warnings included, in row order.
	Errors []*ValidationError

	ErrorCount   int
	WarningCount int

	// RowsValidated is the number of data rows checked.
	RowsValidated int

	// RecordsValidated is the number of records left after the
	// cancellation filter.
	RecordsValidated int
}

func (r *ValidationResult) add(e *ValidationError) {
	r.Errors = append(r.Errors, e)
	if e.Severity == SeverityWarning {
		r.WarningCount++
	} else {
		r.ErrorCount++
	}
}

// =============================================================================
// VALIDATOR
// =============================================================================

// Validator checks exports against a layout profile.
type Validator struct {
	layout  *config.LayoutConfig
	options ValidationOptions
}

// ValidationOptions contains options for validation.
type ValidationOptions struct {
	// Kind is orders or cancellations.
	Kind types.RecordKind

	// InputDateFormat overrides the layout's input date format when set.
	InputDateFormat types.DateFormat

	// StopOnFirstError stops validation after the first fatal error.
	// Default: false
	StopOnFirstError bool

	// TreatWarningsAsErrors makes warnings fail IsValid.
	// Default: false
	TreatWarningsAsErrors bool
}

// NewValidator creates a new Validator instance. A nil layout means the
// built-in default.
func NewValidator(layout *config.LayoutConfig, options ValidationOptions) *Validator {
	if layout == nil {
		layout = config.DefaultLayout()
	}
	if options.Kind == "" {
		options.Kind = types.KindOrders
	}
	return &Validator{layout: layout, options: options}
}

// =============================================================================
// MAIN VALIDATION FUNCTIONS
// =============================================================================

// ValidateFile reads and validates the file at path.
// The returned error is reserved for files that cannot be read or parsed at
// all; everything else is reported in the result.
func (v *Validator) ValidateFile(path string) (*ValidationResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	tbl, err := converter.ReadTable(bytes.NewReader(data), path, v.layout.CSVSettings)
	if err != nil {
		if errors.Is(err, converter.ErrEmptyInput) {
			res := &ValidationResult{}
			res.add(&ValidationError{Severity: SeverityError, Message: "file has no data rows", Err: err})
			return res, nil
		}
		return nil, err
	}

	res := v.ValidateTable(tbl)

	if isUTF8(v.layout.CSVSettings.Encoding) && strings.HasSuffix(strings.ToLower(path), ".csv") && !csvparser.LooksUTF8(data) {
		res.add(&ValidationError{
			Severity: SeverityWarning,
			Message:  "file is not valid UTF-8; set csv_settings.encoding to Windows-1252 if amounts fail to parse",
		})
		v.finish(res)
	}

	return res, nil
}

// ValidateTable validates a parsed table.
func (v *Validator) ValidateTable(tbl *types.Table) *ValidationResult {
	res := &ValidationResult{RowsValidated: len(tbl.Rows)}
	defer v.finish(res)

	wanted := v.layout.RequiredColumns(v.options.Kind)
	idx, err := converter.ResolveColumns(tbl.Headers, wanted, v.layout.CSVSettings.MatchColumnsBy)
	if err != nil {
		res.add(&ValidationError{Severity: SeverityError, Message: err.Error(), Err: err})
		return res
	}

	if v.options.Kind == types.KindCancellations {
		if v.checkFullyCancelled(tbl, idx[len(idx)-1], res) {
			return res
		}
	}

	records, err := converter.RecordsFromTable(tbl, v.layout, v.options.Kind)
	if err != nil {
		res.add(fromError(err))
		return res
	}
	res.RecordsValidated = len(records)

	t := v.transformer()
	seen := make(map[string]int)
	for _, rec := range records {
		for _, w := range blankWarnings(rec) {
			res.add(w)
		}

		if rec.Kind == types.KindOrders && rec.OrderID != "" {
			if first, dup := seen[rec.OrderID]; dup {
				res.add(&ValidationError{
					Severity:  SeverityWarning,
					Field:     v.layout.OrderColumns.OrderID,
					Value:     rec.OrderID,
					Message:   fmt.Sprintf("order id already used on row %d", first),
					RowNumber: rec.RowNumber,
				})
			} else {
				seen[rec.OrderID] = rec.RowNumber
			}
		}

		if _, err := t.TransformRecord(rec); err != nil {
			res.add(fromError(err))
			if v.options.StopOnFirstError {
				return res
			}
		}
	}

	return res
}

// checkFullyCancelled reports unreadable "fully cancelled" flags. It returns
// true when any were found, since the records cannot be filtered then.
func (v *Validator) checkFullyCancelled(tbl *types.Table, col int, res *ValidationResult) bool {
	bad := false
	for _, row := range tbl.Rows {
		raw := strings.TrimSpace(row.Cell(col))
		if _, err := converter.ParseFlag(raw); err != nil {
			bad = true
			res.add(&ValidationError{
				Severity:  SeverityError,
				Field:     v.layout.CancellationColumns.FullyCancelled,
				Value:     raw,
				Message:   "expected 0 or 1",
				RowNumber: row.Number,
				Err:       err,
			})
			if v.options.StopOnFirstError {
				return true
			}
		}
	}
	return bad
}

func (v *Validator) transformer() *converter.Transformer {
	in, out, _ := v.layout.DateFormats()
	if v.options.InputDateFormat != "" {
		in = v.options.InputDateFormat
	}
	return converter.NewTransformer(converter.TransformOptions{
		CurrencySymbol:   v.layout.CurrencySymbol,
		InputDateFormat:  in,
		OutputDateFormat: out,
	})
}

func (v *Validator) finish(res *ValidationResult) {
	res.IsValid = res.ErrorCount == 0
	if v.options.TreatWarningsAsErrors && res.WarningCount > 0 {
		res.IsValid = false
	}
}

func blankWarnings(rec types.SourceRecord) []*ValidationError {
	var out []*ValidationError
	check := func(field, value string) {
		if value == "" {
			out = append(out, &ValidationError{
				Severity:  SeverityWarning,
				Field:     field,
				Message:   "value is blank",
				RowNumber: rec.RowNumber,
			})
		}
	}
	check("ContactName", rec.ContactName)
	check("InvoiceNumber", rec.InvoiceNumber)
	return out
}

// fromError turns a converter error into a finding.
func fromError(err error) *ValidationError {
	ve := &ValidationError{
		Severity:  SeverityError,
		Field:     converter.FieldOf(err),
		RowNumber: converter.RowOf(err),
		Err:       err,
	}

	var pe *converter.ParseError
	var de *converter.DateParseError
	switch {
	case errors.As(err, &pe):
		ve.Value = pe.Value
		ve.Message = unwrapMessage(pe.Err)
	case errors.As(err, &de):
		ve.Value = de.Value
		ve.Message = fmt.Sprintf("date does not match %s", de.Format)
	default:
		ve.Message = err.Error()
	}
	return ve
}

func unwrapMessage(err error) string {
	switch {
	case errors.Is(err, converter.ErrInvalidAmount):
		return "not a valid amount"
	case errors.Is(err, converter.ErrInvalidFlag):
		return "expected 0 or 1"
	}
	return err.Error()
}

func isUTF8(encoding string) bool {
	switch strings.ToUpper(strings.TrimSpace(encoding)) {
	case "", "UTF-8", "UTF8":
		return true
	}
	return false
}

// =============================================================================
// ERROR OUTPUT
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errs []*ValidationError) string {
	if len(errs) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d finding(s):\n\n", len(errs)))

	for i, err := range errs {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}

// WriteErrorLog writes validation errors to a log file with a timestamped header.
func WriteErrorLog(errs []*ValidationError, sourceFile, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	fmt.Fprintf(writer, "Source: %s\nChecked: %s\n\n", sourceFile, time.Now().Format(time.RFC3339))
	writer.WriteString(FormatErrors(errs))
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write error log: %w", err)
	}
	return nil
}
