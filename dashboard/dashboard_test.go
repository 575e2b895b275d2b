package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nanzhong/stonkboard/favorites"
	"github.com/nanzhong/stonkboard/logging"
	"github.com/nanzhong/stonkboard/market"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func fakeBackend() *market.FakeBackend {
	return &market.FakeBackend{
		Snapshots: map[string]market.Snapshot{
			"NVDA": {
				CompanyName:    "NVIDIA Corporation",
				Price:          decimal.RequireFromString("612.5"),
				Currency:       "USD",
				Industry:       "Semiconductors",
				DividendYield:  decimal.RequireFromString("0.03"),
				Recommendation: "buy",
				MarketCap:      decimal.NewNullDecimal(decimal.NewFromFloat(2.5e12)),
				TrailingPE:     decimal.NewNullDecimal(decimal.RequireFromString("64.2")),
				History: []market.PricePoint{
					{Date: day(2), Close: decimal.RequireFromString("481.68")},
					{Date: day(3), Close: decimal.RequireFromString("475.69")},
				},
			},
			"TINY": {
				CompanyName:    "Tiny Company",
				Price:          decimal.RequireFromString("1.25"),
				Currency:       "USD",
				Industry:       market.DefaultIndustry,
				Recommendation: market.NoRecommendation,
				History: []market.PricePoint{
					{Date: day(2), Close: decimal.RequireFromString("1.25")},
				},
			},
		},
	}
}

var fullRange = market.DateRange{Start: market.DefaultStart, End: day(31)}

func TestUpdateQuote(t *testing.T) {
	d := New(fakeBackend(), logging.Discard())

	view := d.UpdateQuote(context.Background(), "nvda", fullRange)

	assert.Equal(t, QuoteView{
		Symbol:              "NVDA",
		Status:              StatusOK,
		CompanyName:         "Company Name: NVIDIA Corporation",
		Price:               "Recently Price: $612.5 USD",
		Industry:            "Industry: Semiconductors",
		Dividend:            "Dividend: 0.03%",
		Recommendation:      "Recommendation: Buy",
		RecommendationColor: "blue",
		MarketCap:           "Market Cap: $2.50T",
		PERatio:             "Price To Earnings Ratio(PE): 64.2",
		Chart: &Chart{
			Title:  "NVDA",
			Dates:  []string{"2024-01-02", "2024-01-03"},
			Closes: []float64{481.68, 475.69},
		},
	}, view)
}

func TestUpdateQuote_defaults(t *testing.T) {
	d := New(fakeBackend(), logging.Discard())

	view := d.UpdateQuote(context.Background(), "TINY", fullRange)

	assert.Equal(t, StatusOK, view.Status)
	assert.Equal(t, "Industry: Others", view.Industry)
	assert.Equal(t, "Dividend: 0%", view.Dividend)
	assert.Equal(t, "Recommendation: No recommendation at this time", view.Recommendation)
	assert.Equal(t, "grey", view.RecommendationColor)
	assert.Equal(t, "Market Cap: N/A", view.MarketCap)
	assert.Equal(t, "Price To Earnings Ratio(PE): N/A", view.PERatio)
}

func TestUpdateQuote_invalidSymbol(t *testing.T) {
	d := New(fakeBackend(), logging.Discard())

	view := d.UpdateQuote(context.Background(), "zzzzz", fullRange)

	assert.Equal(t, QuoteView{
		Symbol:      "ZZZZZ",
		Status:      StatusInvalidSymbol,
		CompanyName: "Invalid stock symbol entered.",
	}, view)
}

func TestUpdateQuote_noData(t *testing.T) {
	d := New(fakeBackend(), logging.Discard())

	view := d.UpdateQuote(context.Background(), "NVDA", market.DateRange{Start: day(20), End: day(25)})

	assert.Equal(t, StatusNoData, view.Status)
	assert.Equal(t, MsgNoData, view.ChartMessage)
	assert.Nil(t, view.Chart)
	assert.Empty(t, view.CompanyName)
	assert.Empty(t, view.Price)
}

func TestUpdateQuote_providerError(t *testing.T) {
	backend := &market.FakeBackend{Err: &market.ProviderError{Message: "getting price history"}}
	d := New(backend, logging.Discard())

	view := d.UpdateQuote(context.Background(), "NVDA", fullRange)

	assert.Equal(t, QuoteView{
		Symbol:       "NVDA",
		Status:       StatusProviderError,
		CompanyName:  "Error retrieving company name: getting price history",
		ChartMessage: "Error retrieving stock data.",
	}, view)
}

func TestUpdateQuote_logsFailures(t *testing.T) {
	var buf bytes.Buffer
	d := New(fakeBackend(), logging.New("info", "json", &buf))

	d.UpdateQuote(context.Background(), "zzzz", market.DateRange{Start: day(2), End: day(3)})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "ZZZZ", entry["symbol"])
	assert.Equal(t, "2024-01-02", entry["start"])
	assert.Equal(t, "2024-01-03", entry["end"])
	assert.Equal(t, string(market.KindInvalidSymbol), entry["kind"])
	assert.Contains(t, entry["error"], "invalid symbol")
}

func TestNormalizeInput(t *testing.T) {
	assert.Equal(t, "NVDA", NormalizeInput("nvda"))
	assert.Equal(t, "GOOGL", NormalizeInput("googlexyz"))
	assert.Equal(t, "", NormalizeInput(""))
}

func TestUpdateFavorites(t *testing.T) {
	s := &Session{ID: "test"}
	add := favorites.AddControl

	view := UpdateFavorites(s, favorites.Event{})
	assert.Equal(t, favorites.List{}, view.Favorites)
	assert.Empty(t, view.Rows)

	view = UpdateFavorites(s, favorites.Event{Trigger: &add, AddClicks: 1, Symbol: "nvda"})
	require.Equal(t, favorites.List{"NVDA"}, view.Favorites)
	assert.Equal(t, favorites.List{"NVDA"}, s.Favorites)
	assert.Equal(t, []favorites.Row{{Symbol: "NVDA", Control: favorites.RemoveControl("NVDA")}}, view.Rows)

	view = UpdateFavorites(s, favorites.Event{Trigger: &add, AddClicks: 2, Symbol: "amd"})
	assert.Equal(t, favorites.List{"NVDA", "AMD"}, view.Favorites)

	remove := view.Rows[0].Control
	view = UpdateFavorites(s, favorites.Event{Trigger: &remove, AddClicks: 2, Symbol: "amd"})
	assert.Equal(t, favorites.List{"AMD"}, view.Favorites)
	assert.Equal(t, []favorites.Row{{Symbol: "AMD", Control: favorites.RemoveControl("AMD")}}, view.Rows)
}

func TestRestoreFavorites(t *testing.T) {
	assert.Equal(t, favorites.List{}, RestoreFavorites(nil))
	assert.Equal(t, favorites.List{"NVDA", "AAPL"}, RestoreFavorites([]string{"nvda", "", "AAPL", "NVDA", "  "}))
}
