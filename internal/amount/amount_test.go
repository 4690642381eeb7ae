package amount

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/donormap/internal/model"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want float64
	}{
		{"$1,234.50", 1234.50},
		{"  100 ", 100},
		{"50.25", 50.25},
		{"-25", -25},
		{"", 0},
		{"   ", 0},
		{"abc", 0},
		{"$", 0},
		{"1,000,000", 1000000},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, Parse(tt.in), 1e-12)
		})
	}
}

func TestParse_OutOfRange(t *testing.T) {
	t.Parallel()

	assert.True(t, math.IsInf(Parse("1e400"), 1))
	assert.True(t, math.IsInf(Parse("-1e400"), -1))
	assert.Equal(t, Parse("inf"), Parse("1e400"))
	assert.Equal(t, 0.0, Parse("1e-400"))
}

func TestFormat_NonFinite(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "inf", Format(math.Inf(1)))
	assert.Equal(t, "-inf", Format(math.Inf(-1)))
	assert.Equal(t, "nan", Format(math.NaN()))
}

func TestParseOptional_AbsentEqualsEmpty(t *testing.T) {
	t.Parallel()

	empty := ""
	assert.Equal(t, 0.0, ParseOptional(nil))
	assert.Equal(t, ParseOptional(nil), ParseOptional(&empty))

	v := "$10"
	assert.Equal(t, 10.0, ParseOptional(&v))
}

func TestField_ExactAliasBeatsSubstring(t *testing.T) {
	t.Parallel()

	r := model.NewRecord([]string{"NAME", "AMENDED", "Amount"}, []string{"x", "5", "10"})
	col, ok := Field(r)
	assert.True(t, ok)
	assert.Equal(t, "Amount", col)
	assert.Equal(t, 10.0, FromRecord(r))
}

func TestField_SubstringFallbackFirstEncountered(t *testing.T) {
	t.Parallel()

	r := model.NewRecord([]string{"NAME", "DAMT", "CAMPAIGN"}, []string{"Jane Doe", "$7.50", "yes"})
	col, ok := Field(r)
	assert.True(t, ok)
	assert.Equal(t, "NAME", col, "NAME contains the marker and comes first")

	r = model.NewRecord([]string{"CITY", "CONTRIB_AMT"}, []string{"Helena", "$7.50"})
	assert.Equal(t, 7.5, FromRecord(r))
}

func TestFromRecord_NoAmountColumn(t *testing.T) {
	t.Parallel()

	r := model.NewRecord([]string{"CITY", "ZIP"}, []string{"Helena", "59601"})
	_, ok := Field(r)
	assert.False(t, ok)
	assert.Equal(t, 0.0, FromRecord(r))
}

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   float64
		want string
	}{
		{60, "60"},
		{100, "100"},
		{50.25, "50.25"},
		{0, "0"},
		{-0.0000000001, "0"},
		{59.9999999999, "60"},
		{1234.5, "1234.5"},
		{-12, "-12"},
		{0.0001, "0.0001"},
		{0.00001, "1e-05"},
		{-0.00005, "-5e-05"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Format(tt.in))
		})
	}
}

func TestFormatDollars(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "$1,234", FormatDollars(1234))
	assert.Equal(t, "$1,234.5", FormatDollars(1234.5))
	assert.Equal(t, "$0", FormatDollars(0))
	assert.Equal(t, "-$2,000", FormatDollars(-2000))
}
