package dashboard

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRecommendationColor(t *testing.T) {
	assert.Equal(t, "blue", RecommendationColor("buy"))
	assert.Equal(t, "orange", RecommendationColor("hold"))
	assert.Equal(t, "red", RecommendationColor("sell"))
	assert.Equal(t, "grey", RecommendationColor("strong_buy"))
	assert.Equal(t, "grey", RecommendationColor(""))
	assert.Equal(t, "grey", RecommendationColor("Buy"))
}

func TestFormatMarketCap(t *testing.T) {
	tests := []struct {
		name string
		in   decimal.NullDecimal
		out  string
	}{
		{"trillions", decimal.NewNullDecimal(decimal.NewFromFloat(2.5e12)), "$2.50T"},
		{"billions", decimal.NewNullDecimal(decimal.NewFromInt(48_123_456_789)), "$48.12B"},
		{"millions", decimal.NewNullDecimal(decimal.NewFromFloat(750e6)), "$750.00M"},
		{"exact boundary", decimal.NewNullDecimal(decimal.NewFromInt(1_000_000_000)), "$1.00B"},
		{"rounds", decimal.NewNullDecimal(decimal.NewFromInt(1_999_999)), "$2.00M"},
		{"small", decimal.NewNullDecimal(decimal.NewFromInt(512)), "$512.00"},
		{"missing", decimal.NullDecimal{}, "N/A"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.out, FormatMarketCap(test.in))
		})
	}
}

func TestFormatRatio(t *testing.T) {
	assert.Equal(t, "N/A", FormatRatio(decimal.NullDecimal{}))
	assert.Equal(t, "64.2", FormatRatio(decimal.NewNullDecimal(decimal.RequireFromString("64.2"))))
}

func Test_capitalize(t *testing.T) {
	assert.Equal(t, "Buy", capitalize("buy"))
	assert.Equal(t, "Strong_buy", capitalize("STRONG_BUY"))
	assert.Equal(t, "No recommendation at this time", capitalize("No recommendation at this time"))
	assert.Equal(t, "", capitalize(""))
}
