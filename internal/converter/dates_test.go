package converter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReformatDate(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		in, out DateFormat
		want    string
	}{
		{"uk to us", "25/12/2023", DayMonthYear, MonthDayYear, "12/25/2023"},
		{"us to uk", "12/25/2023", MonthDayYear, DayMonthYear, "25/12/2023"},
		{"same format", "05/01/2024", DayMonthYear, DayMonthYear, "05/01/2024"},
		{"single digits padded", "5/1/2024", DayMonthYear, MonthDayYear, "01/05/2024"},
		{"midnight time dropped", "25/12/2023 00:00:00", DayMonthYear, MonthDayYear, "12/25/2023"},
		{"leap day", "29/02/2024", DayMonthYear, MonthDayYear, "02/29/2024"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReformatDate(tt.value, tt.in, tt.out)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReformatDate_Invalid(t *testing.T) {
	tests := []struct {
		value string
		in    DateFormat
	}{
		{"12/25/2023", DayMonthYear},
		{"25/12/2023", MonthDayYear},
		{"31/02/2024", DayMonthYear},
		{"2023-12-25", DayMonthYear},
		{"", DayMonthYear},
		{"25/12/23", DayMonthYear},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			_, err := ReformatDate(tt.value, tt.in, MonthDayYear)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidDate))

			var de *DateParseError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.value, de.Value)
			assert.Equal(t, tt.in, de.Format)
		})
	}
}

func TestParseDateFormat(t *testing.T) {
	f, err := ParseDateFormat(" DD/MM/YYYY ")
	require.NoError(t, err)
	assert.Equal(t, DayMonthYear, f)

	f, err = ParseDateFormat("mdy")
	require.NoError(t, err)
	assert.Equal(t, MonthDayYear, f)

	_, err = ParseDateFormat("yyyy-mm-dd")
	assert.ErrorIs(t, err, ErrUnknownDateFormat)
}
