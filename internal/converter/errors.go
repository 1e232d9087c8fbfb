package converter

import (
	"errors"
	"fmt"

	"github.com/ginjaninja78/xero-bills-converter/internal/types"
)

// Conversion errors. Every row-level failure wraps one of these so callers
// can branch with errors.Is.
var (
	// ErrInvalidAmount is returned when a currency cell holds non-numeric content.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidFlag is returned when a 0/1 flag cell holds anything else.
	ErrInvalidFlag = errors.New("invalid flag")

	// ErrInvalidDate is returned when a date does not match the input format.
	ErrInvalidDate = errors.New("invalid date")

	// ErrMissingColumn is returned when the file lacks a column of the layout.
	ErrMissingColumn = errors.New("missing column")

	// ErrEmptyInput is returned when a file has no header or no data rows.
	ErrEmptyInput = errors.New("empty input")

	// ErrUnsupportedFile is returned for file extensions other than .csv and .xlsx.
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrUnknownDateFormat is returned for a date-format selector that is not recognised.
	ErrUnknownDateFormat = types.ErrUnknownDateFormat
)

// ParseError reports a cell that could not be parsed as an amount or a flag.
type ParseError struct {
	// Row is the 1-indexed row of the source file, 0 when unknown.
	Row int

	// Field is the column name.
	Field string

	// Value is the raw cell content.
	Value string

	// Err is ErrInvalidAmount or ErrInvalidFlag, possibly wrapping a
	// lower-level error.
	Err error
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s %q: %v", e.Row, e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// DateParseError reports a date that does not match the selected input format.
type DateParseError struct {
	Row    int
	Field  string
	Value  string
	Format types.DateFormat
	Err    error
}

func (e *DateParseError) Error() string {
	msg := fmt.Sprintf("%s %q does not match %s", e.Field, e.Value, e.Format)
	if e.Row > 0 {
		msg = fmt.Sprintf("row %d: %s", e.Row, msg)
	}
	return msg
}

// Unwrap exposes the sentinel first so errors.Is(err, ErrInvalidDate) holds,
// then the time package error.
func (e *DateParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidDate}
	}
	return []error{ErrInvalidDate, e.Err}
}

// withRow stamps a row number on a row-level error that was raised before
// the row was known.
func withRow(err error, row int, field string) error {
	var pe *ParseError
	if errors.As(err, &pe) {
		cp := *pe
		cp.Row = row
		if cp.Field == "" {
			cp.Field = field
		}
		return &cp
	}
	var de *DateParseError
	if errors.As(err, &de) {
		cp := *de
		cp.Row = row
		if cp.Field == "" {
			cp.Field = field
		}
		return &cp
	}
	return err
}

// RowOf returns the source row carried by a row-level error, or 0.
func RowOf(err error) int {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Row
	}
	var de *DateParseError
	if errors.As(err, &de) {
		return de.Row
	}
	return 0
}

// FieldOf returns the column carried by a row-level error, or "".
func FieldOf(err error) string {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Field
	}
	var de *DateParseError
	if errors.As(err, &de) {
		return de.Field
	}
	return ""
}
