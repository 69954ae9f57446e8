package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"TradePilot/internal/model"
)

// AlpacaProvider fetches quotes and bars from the Alpaca market data API.
type AlpacaProvider struct {
	BaseURL string
	Key     string
	Secret  string
	Client  *http.Client
}

// NewAlpacaProvider creates the provider. Callers must not construct one
// without credentials; the router excludes credential-less adapters entirely.
func NewAlpacaProvider(baseURL, key, secret string, timeout time.Duration) *AlpacaProvider {
	return &AlpacaProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Key:     key,
		Secret:  secret,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (p *AlpacaProvider) Name() string { return "alpaca" }

func (p *AlpacaProvider) do(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("APCA-API-KEY-ID", p.Key)
	req.Header.Set("APCA-API-SECRET-KEY", p.Secret)
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("alpaca fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("alpaca: %w", ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("alpaca: status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("alpaca decode: %w", err)
	}
	return nil
}

func (p *AlpacaProvider) Price(ctx context.Context, symbol string) (model.Price, error) {
	symbol = strings.ToUpper(symbol)
	endpoint := fmt.Sprintf("%s/stocks/%s/trades/latest", p.BaseURL, url.PathEscape(symbol))
	var payload struct {
		Trade struct {
			Price     float64   `json:"p"`
			Timestamp time.Time `json:"t"`
		} `json:"trade"`
	}
	if err := p.do(ctx, endpoint, &payload); err != nil {
		return model.Price{}, err
	}
	if payload.Trade.Price <= 0 {
		return model.Price{}, fmt.Errorf("alpaca price for %s: %w", symbol, ErrNoData)
	}
	asOf := payload.Trade.Timestamp
	if asOf.IsZero() {
		asOf = time.Now()
	}
	return model.Price{Symbol: symbol, Value: payload.Trade.Price, AsOf: asOf}, nil
}

// alpacaTimeframe maps pipeline timespans ("1day", "30min"...) to the Alpaca
// timeframe grammar.
func alpacaTimeframe(timespan string) (string, error) {
	timespan = strings.ToLower(timespan)
	switch {
	case timespan == "1day":
		return "1Day", nil
	case timespan == "1hour":
		return "1Hour", nil
	case strings.HasSuffix(timespan, "min"):
		return strings.TrimSuffix(timespan, "min") + "Min", nil
	}
	return "", fmt.Errorf("unsupported timespan %q for alpaca", timespan)
}

func (p *AlpacaProvider) Bars(ctx context.Context, symbol, timespan string, limit int) ([]model.Bar, error) {
	symbol = strings.ToUpper(symbol)
	timeframe, err := alpacaTimeframe(timespan)
	if err != nil {
		return nil, err
	}
	endpoint := fmt.Sprintf("%s/stocks/%s/bars?timeframe=%s&limit=%d",
		p.BaseURL, url.PathEscape(symbol), timeframe, limit)
	var payload struct {
		Bars []struct {
			Time   time.Time `json:"t"`
			Open   float64   `json:"o"`
			High   float64   `json:"h"`
			Low    float64   `json:"l"`
			Close  float64   `json:"c"`
			Volume float64   `json:"v"`
		} `json:"bars"`
	}
	if err := p.do(ctx, endpoint, &payload); err != nil {
		return nil, err
	}
	if len(payload.Bars) == 0 {
		return nil, fmt.Errorf("alpaca bars for %s: %w", symbol, ErrNoData)
	}
	bars := make([]model.Bar, len(payload.Bars))
	for i, b := range payload.Bars {
		bars[i] = model.Bar{Time: b.Time, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
