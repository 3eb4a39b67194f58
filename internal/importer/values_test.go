package importer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"$1,234.56", "1234.56"},
		{"(15.99)", "-15.99"},
		{"($15.99)", "-15.99"},
		{"-12.99", "-12.99"},
		{"+7.50", "7.5"},
		{" 42 ", "42"},
		{"€ 9,99", "999"}, // comma is always a thousands separator
		{"1 200.00", "1200"},
	}
	for _, tt := range tests {
		got, err := ParseAmount(tt.input)
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got.String(), "input %q", tt.input)
	}
}

func TestParseAmount_Rejects(t *testing.T) {
	for _, input := range []string{"", "   ", "0", "0.00", "$0", "(0.00)", "abc", "12..5", "()",
		"1e999999999", "1e-999999999", "1E6", "12.5e2", "0x1F", "--5", "5-", "NaN", "Inf",
	} {
		_, err := ParseAmount(input)
		assert.Error(t, err, "expected error for %q", input)
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)
	for _, input := range []string{
		"2026-02-05",
		"02/05/2026",
		"2/5/2026",
		"02/05/2026 00:00:00",
		"  2026-02-05 13:45 ",
		"2026-02-05T13:45:00",
	} {
		got, err := ParseDate(input)
		require.NoError(t, err, "input %q", input)
		assert.True(t, want.Equal(got), "input %q: got %s", input, got)
	}
}

func TestParseDate_Rejects(t *testing.T) {
	for _, input := range []string{"", "not-a-date", "13/01/2026", "2026/02/05", "05.02.2026", "2026-2-5"} {
		_, err := ParseDate(input)
		assert.Error(t, err, "expected error for %q", input)
	}
}
