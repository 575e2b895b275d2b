// Package dashboard holds the per-interaction update functions of the stock
// dashboard. Each function maps the current inputs of one interaction point
// onto its new outputs and knows nothing about how the interaction arrived.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/nanzhong/stonkboard/favorites"
	"github.com/nanzhong/stonkboard/market"
	"github.com/phuslu/log"
)

const (
	MsgInvalidSymbol = "Invalid stock symbol entered."
	MsgProviderError = "Error retrieving stock data."
	MsgNoData        = "No price data for the selected range."
)

// Status is the outcome of a quote update.
type Status string

const (
	StatusOK            Status = "ok"
	StatusInvalidSymbol Status = "invalid_symbol"
	StatusNoData        Status = "no_data"
	StatusProviderError Status = "provider_error"
)

// Session is the client state an interaction runs against. ID is the key
// its favorites are stored under.
type Session struct {
	ID        string
	Favorites favorites.List
}

// Chart is a closing price series.
type Chart struct {
	Title  string    `json:"title"`
	Dates  []string  `json:"dates"`
	Closes []float64 `json:"closes"`
}

// QuoteView holds the display outputs of a quote update. Fields are blank
// when the lookup failed.
type QuoteView struct {
	Symbol              string `json:"symbol"`
	Status              Status `json:"status"`
	CompanyName         string `json:"company_name"`
	Price               string `json:"price"`
	Industry            string `json:"industry"`
	Dividend            string `json:"dividend"`
	Recommendation      string `json:"recommendation"`
	RecommendationColor string `json:"recommendation_color"`
	MarketCap           string `json:"market_cap"`
	PERatio             string `json:"pe_ratio"`
	Chart               *Chart `json:"chart,omitempty"`
	ChartMessage        string `json:"chart_message,omitempty"`
}

// FavoritesView holds the display outputs of a favorites update.
type FavoritesView struct {
	Favorites favorites.List  `json:"favorites"`
	Rows      []favorites.Row `json:"rows"`
}

// Dashboard runs quote updates against a market backend.
type Dashboard struct {
	backend market.Backend
	log     *log.Logger
}

func New(backend market.Backend, logger *log.Logger) *Dashboard {
	return &Dashboard{backend: backend, log: logger}
}

// NormalizeInput is the output of the ticker input for a changed value.
func NormalizeInput(value string) string {
	return market.NormalizeSymbol(value)
}

// UpdateQuote looks up symbol over r and renders the result. Failures are
// logged and turned into display text; they never escape as errors.
func (d *Dashboard) UpdateQuote(ctx context.Context, symbol string, r market.DateRange) QuoteView {
	symbol = market.NormalizeSymbol(symbol)
	start := time.Now()

	snap, err := d.backend.Lookup(ctx, symbol, r)
	if err != nil {
		kind := market.Classify(err)
		event := d.log.Error()
		if kind != market.KindProvider {
			event = d.log.Warn()
		}
		event.Str("symbol", symbol).
			Str("start", r.Start.Format("2006-01-02")).
			Str("end", r.End.Format("2006-01-02")).
			Str("kind", string(kind)).
			Err(err).
			Msg("quote lookup failed")
	} else {
		d.log.Debug().Str("symbol", symbol).Str("range", r.String()).Int("points", len(snap.History)).
			Dur("took", time.Since(start)).Msg("quote lookup")
	}

	view := RenderQuote(snap, err)
	view.Symbol = symbol
	return view
}

// RenderQuote maps a lookup result onto display outputs.
func RenderQuote(snap *market.Snapshot, err error) QuoteView {
	switch market.Classify(err) {
	case market.KindInvalidSymbol:
		return QuoteView{Status: StatusInvalidSymbol, CompanyName: MsgInvalidSymbol}
	case market.KindNoData:
		return QuoteView{Status: StatusNoData, ChartMessage: MsgNoData}
	case market.KindProvider:
		return QuoteView{
			Status:       StatusProviderError,
			CompanyName:  "Error retrieving company name: " + err.Error(),
			ChartMessage: MsgProviderError,
		}
	}

	chart := &Chart{
		Title:  snap.Symbol,
		Dates:  make([]string, 0, len(snap.History)),
		Closes: make([]float64, 0, len(snap.History)),
	}
	for _, p := range snap.History {
		chart.Dates = append(chart.Dates, p.Date.Format("2006-01-02"))
		chart.Closes = append(chart.Closes, p.Close.InexactFloat64())
	}

	return QuoteView{
		Symbol:              snap.Symbol,
		Status:              StatusOK,
		CompanyName:         "Company Name: " + snap.CompanyName,
		Price:               fmt.Sprintf("Recently Price: $%s %s", snap.Price.String(), snap.Currency),
		Industry:            "Industry: " + snap.Industry,
		Dividend:            "Dividend: " + snap.DividendYield.String() + "%",
		Recommendation:      "Recommendation: " + capitalize(snap.Recommendation),
		RecommendationColor: RecommendationColor(snap.Recommendation),
		MarketCap:           "Market Cap: " + FormatMarketCap(snap.MarketCap),
		PERatio:             "Price To Earnings Ratio(PE): " + FormatRatio(snap.TrailingPE),
		Chart:               chart,
	}
}

// UpdateFavorites applies one favorites interaction to the session and
// renders the resulting list.
func UpdateFavorites(s *Session, ev favorites.Event) FavoritesView {
	ev.Symbol = market.NormalizeSymbol(ev.Symbol)
	s.Favorites = favorites.Dispatch(ev, s.Favorites)
	if s.Favorites == nil {
		s.Favorites = favorites.List{}
	}
	return FavoritesView{
		Favorites: s.Favorites,
		Rows:      favorites.Render(s.Favorites),
	}
}

// RestoreFavorites rebuilds a list from persisted client state, normalizing
// each symbol and dropping blanks and duplicates.
func RestoreFavorites(stored []string) favorites.List {
	l := favorites.List{}
	for _, s := range stored {
		l = favorites.Add(market.NormalizeSymbol(s), l)
	}
	return l
}
