package converter

import (
	"strings"
	"time"

	"github.com/ginjaninja78/xero-bills-converter/internal/types"
)

// DateFormat is re-exported so callers of the converter need not import types.
type DateFormat = types.DateFormat

const (
	DayMonthYear = types.DayMonthYear
	MonthDayYear = types.MonthDayYear
)

// ParseDateFormat parses a date-format selector.
func ParseDateFormat(s string) (DateFormat, error) {
	return types.ParseDateFormat(s)
}

// ReformatDate reads value in the in format and writes it in the out format,
// zero-padded. Impossible dates such as 31/02/2024 are rejected.
//
// Exports written by spreadsheet tools sometimes carry a midnight time after
// the date ("25/12/2023 00:00:00"); the time part is dropped.
func ReformatDate(value string, in, out DateFormat) (string, error) {
	s := strings.TrimSpace(value)
	if i := strings.IndexByte(s, ' '); i > 0 {
		s = s[:i]
	}

	t, err := time.Parse(in.ParseLayout(), s)
	if err != nil {
		return "", &DateParseError{Value: value, Format: in, Err: err}
	}
	return t.Format(out.FormatLayout()), nil
}
