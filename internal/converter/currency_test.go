package converter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"£120.00", "120"},
		{"£1,234.50", "1234.5"},
		{"  £ 19.99 ", "19.99"},
		{"20", "20"},
		{"-£5.00", "-5"},
		{"£-5.00", "-5"},
		{"0.1", "0.1"},
		{".5", "0.5"},
		{"+£3.10", "3.1"},
		{"12.50£", "12.5"},
		{"£12,345,678.90", "12345678.9"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseAmount(tt.raw, "£")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, raw := range []string{
		"", "£", "-", "abc", "£12.3.4", "$12.00",
		"--5", "-£-5", "+-5", "£1,2,3", "£12,34.00", ",100", "1e2", "£1E2", "£5£", "££5",
		"£10.005", "£1.6675",
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseAmount(raw, "£")
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidAmount))

			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, raw, pe.Value)
		})
	}
}

func TestParseFlag(t *testing.T) {
	for _, raw := range []string{"1", " 1 ", "1.0", "TRUE", "yes"} {
		got, err := ParseFlag(raw)
		require.NoError(t, err, raw)
		assert.True(t, got, raw)
	}
	for _, raw := range []string{"0", "0.0", "false", "No"} {
		got, err := ParseFlag(raw)
		require.NoError(t, err, raw)
		assert.False(t, got, raw)
	}

	_, err := ParseFlag("2")
	assert.ErrorIs(t, err, ErrInvalidFlag)
	_, err = ParseFlag("")
	assert.ErrorIs(t, err, ErrInvalidFlag)
}
