package types

import (
	"errors"
	"fmt"
	"strings"
)

// DateFormat is the day/month order of a date column.
// Exports carry dates as plain strings, so the order cannot be detected and
// has to be selected by the user.
type DateFormat string

const (
	DayMonthYear DateFormat = "dd/mm/yyyy"
	MonthDayYear DateFormat = "mm/dd/yyyy"
)

// ErrUnknownDateFormat is returned for a selector that is neither format.
var ErrUnknownDateFormat = errors.New("unknown date format")

// ParseDateFormat accepts the selector as typed on a form or a flag.
// Case and surrounding whitespace are ignored, and "dmy"/"mdy" are
// accepted as short forms.
func ParseDateFormat(s string) (DateFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dd/mm/yyyy", "dmy", "uk":
		return DayMonthYear, nil
	case "mm/dd/yyyy", "mdy", "us":
		return MonthDayYear, nil
	}
	return "", fmt.Errorf("%w: %q (want dd/mm/yyyy or mm/dd/yyyy)", ErrUnknownDateFormat, s)
}

// ParseLayout is the time layout used to read a date in this format.
// Single-digit days and months are accepted.
func (f DateFormat) ParseLayout() string {
	if f == MonthDayYear {
		return "1/2/2006"
	}
	return "2/1/2006"
}

// FormatLayout is the time layout used to write a date in this format.
func (f DateFormat) FormatLayout() string {
	if f == MonthDayYear {
		return "01/02/2006"
	}
	return "02/01/2006"
}

func (f DateFormat) String() string { return string(f) }
