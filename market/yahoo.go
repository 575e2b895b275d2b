package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/phuslu/log"
	"github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/shopspring/decimal"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// chartIter is the subset of *chart.Iter the backend consumes.
type chartIter interface {
	Next() bool
	Bar() *finance.ChartBar
	Err() error
}

// YahooBackend looks up quotes from Yahoo Finance. Core fields come from
// piquette/finance-go; industry, analyst recommendation and dividend yield
// come from the quoteSummary endpoint and are optional.
type YahooBackend struct {
	log     *log.Logger
	summary *summaryClient

	getEquity func(symbol string) (*finance.Equity, error)
	getChart  func(params *chart.Params) chartIter
}

// YahooOption configures a YahooBackend.
type YahooOption func(*YahooBackend)

// WithLogger sets the logger used for non-fatal enrichment failures.
func WithLogger(l *log.Logger) YahooOption {
	return func(y *YahooBackend) { y.log = l }
}

// WithTimeout sets the timeout of quoteSummary requests.
func WithTimeout(d time.Duration) YahooOption {
	return func(y *YahooBackend) {
		if d > 0 {
			y.summary.client.Timeout = d
		}
	}
}

func NewYahooBackend(opts ...YahooOption) *YahooBackend {
	y := &YahooBackend{
		log:       &log.DefaultLogger,
		summary:   newSummaryClient(10 * time.Second),
		getEquity: equity.Get,
		getChart: func(p *chart.Params) chartIter {
			return chart.Get(p)
		},
	}
	for _, opt := range opts {
		opt(y)
	}
	return y
}

func (y *YahooBackend) Lookup(ctx context.Context, symbol string, r DateRange) (*Snapshot, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, ErrInvalidSymbol
	}

	eq, err := y.getEquity(symbol)
	if err != nil {
		return nil, &ProviderError{Message: "getting equity metadata", Err: err}
	}
	if eq == nil || (eq.LongName == "" && eq.ShortName == "") {
		return nil, fmt.Errorf("%s: %w", symbol, ErrInvalidSymbol)
	}

	history, err := y.history(symbol, r)
	if err != nil {
		return nil, err
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("%s %s: %w", symbol, r, ErrNoData)
	}

	snap := &Snapshot{
		Symbol:         symbol,
		CompanyName:    eq.LongName,
		Price:          history[len(history)-1].Close,
		Currency:       eq.CurrencyID,
		Industry:       DefaultIndustry,
		DividendYield:  percent(eq.TrailingAnnualDividendYield),
		Recommendation: NoRecommendation,
	}
	if snap.CompanyName == "" {
		snap.CompanyName = eq.ShortName
	}
	if eq.RegularMarketPrice > 0 {
		snap.Price = decimal.NewFromFloat(eq.RegularMarketPrice)
	}
	if eq.MarketCap > 0 {
		snap.MarketCap = decimal.NewNullDecimal(decimal.NewFromInt(eq.MarketCap))
	}
	if eq.TrailingPE > 0 {
		snap.TrailingPE = decimal.NewNullDecimal(decimal.NewFromFloat(eq.TrailingPE))
	}
	snap.History = history

	sum, err := y.summary.fetch(ctx, symbol)
	if err != nil {
		y.log.Warn().Str("symbol", symbol).Err(err).Msg("quote summary unavailable, using defaults")
		return snap, nil
	}
	if sum.Industry != "" {
		snap.Industry = sum.Industry
	}
	if sum.RecommendationKey != "" && sum.RecommendationKey != "none" {
		snap.Recommendation = sum.RecommendationKey
	}
	if sum.DividendYield != nil {
		snap.DividendYield = percent(*sum.DividendYield)
	}
	if sum.FinancialCurrency != "" {
		snap.Currency = sum.FinancialCurrency
	}
	return snap, nil
}

func (y *YahooBackend) history(symbol string, r DateRange) ([]PricePoint, error) {
	start := r.Start
	// The chart endpoint treats the end as exclusive.
	end := r.End.AddDate(0, 0, 1)
	iter := y.getChart(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	})

	var points []PricePoint
	for iter.Next() {
		bar := iter.Bar()
		if bar == nil || bar.Close.IsZero() {
			continue
		}
		points = append(points, PricePoint{
			Date:  truncateDay(time.Unix(int64(bar.Timestamp), 0).UTC()),
			Close: bar.Close,
		})
	}
	if err := iter.Err(); err != nil {
		return nil, &ProviderError{Message: "getting price history", Err: err}
	}
	return points, nil
}

// percent converts a fractional yield into a percentage rounded to two places.
func percent(fraction float64) decimal.Decimal {
	return decimal.NewFromFloat(fraction).Shift(2).Round(2)
}

type summary struct {
	Industry          string
	RecommendationKey string
	FinancialCurrency string
	DividendYield     *float64
}

type rawValue struct {
	Raw *float64 `json:"raw"`
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile struct {
				Industry string `json:"industry"`
			} `json:"assetProfile"`
			FinancialData struct {
				RecommendationKey string `json:"recommendationKey"`
				FinancialCurrency string `json:"financialCurrency"`
			} `json:"financialData"`
			SummaryDetail struct {
				DividendYield rawValue `json:"dividendYield"`
			} `json:"summaryDetail"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// summaryClient talks to the quoteSummary endpoint, which needs a session
// cookie and a crumb obtained from the Yahoo front page.
type summaryClient struct {
	client     *http.Client
	cookieURL  string
	crumbURL   string
	summaryURL string

	mu    sync.Mutex
	crumb string
}

func newSummaryClient(timeout time.Duration) *summaryClient {
	jar, _ := cookiejar.New(nil)
	return &summaryClient{
		client:     &http.Client{Jar: jar, Timeout: timeout},
		cookieURL:  "https://finance.yahoo.com",
		crumbURL:   "https://query1.finance.yahoo.com/v1/test/getcrumb",
		summaryURL: "https://query2.finance.yahoo.com/v10/finance/quoteSummary/",
	}
}

func (c *summaryClient) fetch(ctx context.Context, symbol string) (*summary, error) {
	crumb, err := c.getCrumb(ctx)
	if err != nil {
		return nil, err
	}

	u := c.summaryURL + url.PathEscape(symbol) + "?" + url.Values{
		"modules": {"assetProfile,financialData,summaryDetail"},
		"crumb":   {crumb},
	}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building quote summary request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting quote summary: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.resetCrumb()
	}
	var payload quoteSummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding quote summary (status %d): %w", resp.StatusCode, err)
	}
	if e := payload.QuoteSummary.Error; e != nil {
		return nil, fmt.Errorf("quote summary error %s: %s", e.Code, e.Description)
	}
	if len(payload.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("quote summary: empty result")
	}

	res := payload.QuoteSummary.Result[0]
	return &summary{
		Industry:          res.AssetProfile.Industry,
		RecommendationKey: res.FinancialData.RecommendationKey,
		FinancialCurrency: res.FinancialData.FinancialCurrency,
		DividendYield:     res.SummaryDetail.DividendYield.Raw,
	}, nil
}

func (c *summaryClient) getCrumb(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.crumb != "" {
		return c.crumb, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cookieURL, nil)
	if err != nil {
		return "", fmt.Errorf("building cookie request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("getting cookie: %w", err)
	}
	resp.Body.Close()

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.crumbURL, nil)
	if err != nil {
		return "", fmt.Errorf("building crumb request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err = c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("getting crumb: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil {
		return "", fmt.Errorf("reading crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(body))
	if resp.StatusCode != http.StatusOK || crumb == "" || strings.Contains(crumb, "html") {
		return "", fmt.Errorf("invalid crumb received (status %d)", resp.StatusCode)
	}
	c.crumb = crumb
	return crumb, nil
}

func (c *summaryClient) resetCrumb() {
	c.mu.Lock()
	c.crumb = ""
	c.mu.Unlock()
}
