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

const twelveDataBaseURL = "https://api.twelvedata.com"

// TwelveDataProvider fetches quotes and time series from TwelveData.
type TwelveDataProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewTwelveDataProvider(apiKey string, timeout time.Duration) *TwelveDataProvider {
	return &TwelveDataProvider{
		BaseURL: twelveDataBaseURL,
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (p *TwelveDataProvider) Name() string { return "twelvedata" }

func (p *TwelveDataProvider) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	params.Set("apikey", p.APIKey)
	endpoint := fmt.Sprintf("%s%s?%s", p.BaseURL, path, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twelvedata fetch: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("twelvedata read body: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("twelvedata: %w", ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("twelvedata: status %d, body: %s", resp.StatusCode, string(body))
	}
	// TwelveData reports credit exhaustion as HTTP 200 with code 429 in the body.
	var apiErr struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != 0 {
		if apiErr.Code == http.StatusTooManyRequests {
			return nil, fmt.Errorf("twelvedata: %s: %w", apiErr.Message, ErrRateLimited)
		}
		return nil, fmt.Errorf("twelvedata api error %d: %s", apiErr.Code, apiErr.Message)
	}
	return body, nil
}

func (p *TwelveDataProvider) Price(ctx context.Context, symbol string) (model.Price, error) {
	symbol = strings.ToUpper(symbol)
	body, err := p.get(ctx, "/price", url.Values{"symbol": {symbol}})
	if err != nil {
		return model.Price{}, err
	}
	var payload struct {
		Price string `json:"price"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return model.Price{}, fmt.Errorf("twelvedata decode: %w", err)
	}
	value, err := strconv.ParseFloat(payload.Price, 64)
	if err != nil || value <= 0 {
		return model.Price{}, fmt.Errorf("twelvedata price for %s: %w", symbol, ErrNoData)
	}
	return model.Price{Symbol: symbol, Value: value, AsOf: time.Now()}, nil
}

func (p *TwelveDataProvider) Bars(ctx context.Context, symbol, timespan string, limit int) ([]model.Bar, error) {
	symbol = strings.ToUpper(symbol)
	params := url.Values{
		"symbol":     {symbol},
		"interval":   {twelveDataInterval(timespan)},
		"outputsize": {strconv.Itoa(limit)},
	}
	body, err := p.get(ctx, "/time_series", params)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Values []struct {
			Datetime string `json:"datetime"`
			Open     string `json:"open"`
			High     string `json:"high"`
			Low      string `json:"low"`
			Close    string `json:"close"`
			Volume   string `json:"volume"`
		} `json:"values"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("twelvedata decode: %w", err)
	}
	if len(payload.Values) == 0 {
		return nil, fmt.Errorf("twelvedata bars for %s: %w", symbol, ErrNoData)
	}
	bars := make([]model.Bar, 0, len(payload.Values))
	for _, v := range payload.Values {
		ts, err := parseTwelveDataTime(v.Datetime)
		if err != nil {
			continue
		}
		bars = append(bars, model.Bar{
			Time:   ts,
			Open:   parseFloat(v.Open),
			High:   parseFloat(v.High),
			Low:    parseFloat(v.Low),
			Close:  parseFloat(v.Close),
			Volume: parseFloat(v.Volume),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("twelvedata bars for %s: %w", symbol, ErrNoData)
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func twelveDataInterval(timespan string) string {
	switch strings.ToLower(timespan) {
	case "1day":
		return "1day"
	case "1hour":
		return "1h"
	default:
		return strings.ToLower(timespan)
	}
}

func parseTwelveDataTime(s string) (time.Time, error) {
	if ts, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", s)
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
