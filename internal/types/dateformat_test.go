package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateFormat(t *testing.T) {
	tests := []struct {
		in   string
		want DateFormat
	}{
		{"dd/mm/yyyy", DayMonthYear},
		{" DD/MM/YYYY ", DayMonthYear},
		{"dmy", DayMonthYear},
		{"mm/dd/yyyy", MonthDayYear},
		{"MDY", MonthDayYear},
		{"us", MonthDayYear},
	}
	for _, tt := range tests {
		got, err := ParseDateFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseDateFormat("yyyy-mm-dd")
	assert.ErrorIs(t, err, ErrUnknownDateFormat)
}

func TestDateFormatLayouts(t *testing.T) {
	d, err := time.Parse(DayMonthYear.ParseLayout(), "5/1/2024")
	require.NoError(t, err)
	assert.Equal(t, "01/05/2024", d.Format(MonthDayYear.FormatLayout()))

	d, err = time.Parse(MonthDayYear.ParseLayout(), "12/25/2023")
	require.NoError(t, err)
	assert.Equal(t, "25/12/2023", d.Format(DayMonthYear.FormatLayout()))
}
