package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MaxSymbolLength is the longest ticker symbol accepted anywhere.
const MaxSymbolLength = 5

const (
	// DefaultIndustry is used when the provider has no industry for a symbol.
	DefaultIndustry = "Others"
	// NoRecommendation is used when the provider has no analyst consensus.
	NoRecommendation = "No recommendation at this time"
)

const dateLayout = "2006-01-02"

// DefaultStart is the default beginning of the price history range when
// nothing else is configured.
var DefaultStart = time.Date(2010, time.January, 1, 0, 0, 0, 0, time.UTC)

var (
	// ErrInvalidSymbol means the provider has no metadata for the symbol.
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrNoData means the symbol is known but has no prices in the range.
	ErrNoData = errors.New("no price data in range")
)

// ProviderError is any other transport or parsing failure.
type ProviderError struct {
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ErrorKind classifies lookup failures for display and logging.
type ErrorKind string

const (
	KindNone          ErrorKind = ""
	KindInvalidSymbol ErrorKind = "invalid_symbol"
	KindNoData        ErrorKind = "no_data"
	KindProvider      ErrorKind = "provider_error"
)

// Classify maps a lookup error onto its kind. Unknown errors are provider errors.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidSymbol):
		return KindInvalidSymbol
	case errors.Is(err, ErrNoData):
		return KindNoData
	default:
		return KindProvider
	}
}

// NormalizeSymbol uppercases and truncates user input to a ticker symbol.
func NormalizeSymbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if r := []rune(s); len(r) > MaxSymbolLength {
		s = string(r[:MaxSymbolLength])
	}
	return s
}

// DateRange bounds a price history query. Both ends are calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// DefaultRange returns the range from DefaultStart to the given day.
func DefaultRange(now time.Time) DateRange {
	return RangeFrom(DefaultStart, now)
}

// RangeFrom returns the range from start to the day of now.
func RangeFrom(start, now time.Time) DateRange {
	return DateRange{Start: truncateDay(start), End: truncateDay(now)}
}

// ParseDateRange parses both ends as dates. Inputs may be plain dates or
// timestamps; only the part before "T" is used. Empty values fall back to
// the ends of def.
func ParseDateRange(start, end string, def DateRange) (DateRange, error) {
	r := def
	if start != "" {
		t, err := parseDate(start)
		if err != nil {
			return DateRange{}, fmt.Errorf("parsing start date: %w", err)
		}
		r.Start = t
	}
	if end != "" {
		t, err := parseDate(end)
		if err != nil {
			return DateRange{}, fmt.Errorf("parsing end date: %w", err)
		}
		r.End = t
	}
	if err := r.Validate(); err != nil {
		return DateRange{}, err
	}
	return r, nil
}

// Validate checks that the range is not inverted.
func (r DateRange) Validate() error {
	if r.Start.After(r.End) {
		return fmt.Errorf("start date %s is after end date %s", r.Start.Format(dateLayout), r.End.Format(dateLayout))
	}
	return nil
}

func (r DateRange) String() string {
	return r.Start.Format(dateLayout) + ".." + r.End.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	s, _, _ = strings.Cut(strings.TrimSpace(s), "T")
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// PricePoint is a single daily close.
type PricePoint struct {
	Date  time.Time
	Close decimal.Decimal
}

// Snapshot is the result of a successful lookup. Optional numeric fields
// are already defaulted by the backend.
type Snapshot struct {
	Symbol         string
	CompanyName    string
	Price          decimal.Decimal
	Currency       string
	Industry       string
	DividendYield  decimal.Decimal // percent, two decimals
	Recommendation string
	MarketCap      decimal.NullDecimal
	TrailingPE     decimal.NullDecimal
	History        []PricePoint
}

// Backend looks up a quote snapshot for a symbol over a date range.
type Backend interface {
	Lookup(ctx context.Context, symbol string, r DateRange) (*Snapshot, error)
}
