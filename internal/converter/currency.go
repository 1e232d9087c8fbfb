package converter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// amountPattern is an unsigned amount in pounds and pence: digits with
// optional thousands groups and at most two decimals.
var amountPattern = regexp.MustCompile(`^(?:\d{1,3}(?:,\d{3})+|\d+)(?:\.\d{1,2})?$|^\.\d{1,2}$`)

// ParseAmount converts a currency cell such as "£1,234.50" to a decimal.
//
// The cell holds at most one sign, before or after the symbol ("-£5.00",
// "£-5.00"), and the symbol at most once, as a prefix or a suffix.
// Thousands separators must form groups of three. More than two decimals,
// exponents and an empty cell are errors.
func ParseAmount(raw, symbol string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)

	neg, signed := takeSign(&s)
	if symbol != "" {
		if strings.HasPrefix(s, symbol) {
			s = strings.TrimSpace(strings.TrimPrefix(s, symbol))
		} else if strings.HasSuffix(s, symbol) {
			s = strings.TrimSpace(strings.TrimSuffix(s, symbol))
		}
	}
	if !signed {
		neg, _ = takeSign(&s)
	}

	if s == "" {
		return decimal.Zero, &ParseError{Value: raw, Err: fmt.Errorf("%w: empty", ErrInvalidAmount)}
	}
	if !amountPattern.MatchString(s) {
		return decimal.Zero, &ParseError{Value: raw, Err: ErrInvalidAmount}
	}

	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return decimal.Zero, &ParseError{Value: raw, Err: fmt.Errorf("%w: %v", ErrInvalidAmount, err)}
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// takeSign removes a leading "-" or "+" from s.
func takeSign(s *string) (neg, found bool) {
	switch {
	case strings.HasPrefix(*s, "-"):
		neg = true
	case strings.HasPrefix(*s, "+"):
	default:
		return false, false
	}
	*s = strings.TrimSpace((*s)[1:])
	return neg, true
}

// ParseFlag reads a 0/1 cell. Spreadsheet tools also write the flag as
// true/false or yes/no, and a numeric column may come out as "1.0".
func ParseFlag(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "1.0", "true", "yes", "y":
		return true, nil
	case "0", "0.0", "false", "no", "n":
		return false, nil
	}
	return false, &ParseError{Value: raw, Err: ErrInvalidFlag}
}
