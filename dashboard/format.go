package dashboard

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// NotAvailable is shown for numeric fields the provider did not supply.
const NotAvailable = "N/A"

const (
	ColorBlue   = "blue"
	ColorOrange = "orange"
	ColorRed    = "red"
	ColorGrey   = "grey"
)

var (
	trillion = decimal.New(1, 12)
	billion  = decimal.New(1, 9)
	million  = decimal.New(1, 6)
)

// RecommendationColor maps an analyst recommendation key to a label color.
func RecommendationColor(key string) string {
	switch key {
	case "buy":
		return ColorBlue
	case "hold":
		return ColorOrange
	case "sell":
		return ColorRed
	default:
		return ColorGrey
	}
}

// FormatMarketCap renders a market capitalization with a T/B/M unit suffix.
func FormatMarketCap(v decimal.NullDecimal) string {
	if !v.Valid {
		return NotAvailable
	}
	d := v.Decimal
	switch {
	case d.GreaterThanOrEqual(trillion):
		return "$" + d.Div(trillion).StringFixed(2) + "T"
	case d.GreaterThanOrEqual(billion):
		return "$" + d.Div(billion).StringFixed(2) + "B"
	case d.GreaterThanOrEqual(million):
		return "$" + d.Div(million).StringFixed(2) + "M"
	default:
		return "$" + d.StringFixed(2)
	}
}

// FormatRatio renders an optional ratio such as trailing P/E.
func FormatRatio(v decimal.NullDecimal) string {
	if !v.Valid {
		return NotAvailable
	}
	return v.Decimal.String()
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
