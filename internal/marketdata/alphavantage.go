package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"TradePilot/internal/model"
)

const alphaVantageBaseURL = "https://www.alphavantage.co/query"

// AlphaVantageProvider fetches daily series from Alpha Vantage. It only
// supports the 1day timespan; the router falls through to it last.
type AlphaVantageProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewAlphaVantageProvider(apiKey string, timeout time.Duration) *AlphaVantageProvider {
	return &AlphaVantageProvider{
		BaseURL: alphaVantageBaseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (p *AlphaVantageProvider) Name() string { return "alphavantage" }

func (p *AlphaVantageProvider) fetchDaily(ctx context.Context, symbol string) (map[string]map[string]string, error) {
	params := url.Values{
		"function": {"TIME_SERIES_DAILY"},
		"symbol":   {symbol},
		"apikey":   {p.APIKey},
	}
	endpoint := fmt.Sprintf("%s?%s", p.BaseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alphavantage fetch: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("alphavantage read body: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("alphavantage: %w", ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alphavantage: status %d", resp.StatusCode)
	}
	var payload struct {
		Note        string                       `json:"Note"`
		Information string                       `json:"Information"`
		Series      map[string]map[string]string `json:"Time Series (Daily)"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("alphavantage decode: %w", err)
	}
	// Alpha Vantage signals throttling with a 200 and a "Note" payload.
	if payload.Note != "" || strings.Contains(payload.Information, "rate limit") {
		return nil, fmt.Errorf("alphavantage: %w", ErrRateLimited)
	}
	if len(payload.Series) == 0 {
		return nil, fmt.Errorf("alphavantage daily series for %s: %w", symbol, ErrNoData)
	}
	return payload.Series, nil
}

func (p *AlphaVantageProvider) Price(ctx context.Context, symbol string) (model.Price, error) {
	symbol = strings.ToUpper(symbol)
	series, err := p.fetchDaily(ctx, symbol)
	if err != nil {
		return model.Price{}, err
	}
	dates := sortedDates(series)
	latest := series[dates[len(dates)-1]]
	value, err := strconv.ParseFloat(latest["4. close"], 64)
	if err != nil || value <= 0 {
		return model.Price{}, fmt.Errorf("alphavantage price for %s: %w", symbol, ErrNoData)
	}
	asOf, _ := time.Parse("2006-01-02", dates[len(dates)-1])
	return model.Price{Symbol: symbol, Value: value, AsOf: asOf}, nil
}

func (p *AlphaVantageProvider) Bars(ctx context.Context, symbol, timespan string, limit int) ([]model.Bar, error) {
	if strings.ToLower(timespan) != "1day" {
		return nil, fmt.Errorf("alphavantage only supports 1day bars, got %q", timespan)
	}
	symbol = strings.ToUpper(symbol)
	series, err := p.fetchDaily(ctx, symbol)
	if err != nil {
		return nil, err
	}
	dates := sortedDates(series)
	if len(dates) > limit {
		dates = dates[len(dates)-limit:]
	}
	bars := make([]model.Bar, 0, len(dates))
	for _, d := range dates {
		entry := series[d]
		ts, err := time.Parse("2006-01-02", d)
		if err != nil {
			continue
		}
		bars = append(bars, model.Bar{
			Time:   ts,
			Open:   parseFloat(entry["1. open"]),
			High:   parseFloat(entry["2. high"]),
			Low:    parseFloat(entry["3. low"]),
			Close:  parseFloat(entry["4. close"]),
			Volume: parseFloat(entry["5. volume"]),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("alphavantage bars for %s: %w", symbol, ErrNoData)
	}
	return bars, nil
}

func sortedDates(series map[string]map[string]string) []string {
	dates := make([]string, 0, len(series))
	for d := range series {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates
}
