package pysheet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBlank(t *testing.T) {
	assert.True(t, IsBlank(""))
	assert.True(t, IsBlank("   "))
	assert.True(t, IsBlank("\t\n"))
	assert.False(t, IsBlank("0"))
	assert.False(t, IsBlank(" x "))
}

func TestParseNumber(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want float64
	}{
		{"3", 3},
		{" 3.5 ", 3.5},
		{"-2e3", -2000},
		{"50%", 0.5},
		{"50 %", 0.5},
		{"0.1%", 0.001},
	} {
		got, err := ParseNumber(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseNumberErrors(t *testing.T) {
	for _, in := range []string{"", "abc", "%", "1.2.3"} {
		_, err := ParseNumber(in)
		var np *NumericParseError
		require.ErrorAs(t, err, &np, in)
		assert.Equal(t, in, np.Value)
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "3", FormatNumber(3))
	assert.Equal(t, "3.5", FormatNumber(3.5))
	assert.Equal(t, "0.75", FormatNumber(0.75))
	// large totals stay in plain notation
	assert.Equal(t, "12345678", FormatNumber(12345678))
	assert.Equal(t, "0.0001", FormatNumber(0.0001))
}
