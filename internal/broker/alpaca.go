package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"TradePilot/internal/model"
)

// AlpacaBroker talks to the Alpaca trading REST API (paper or live,
// depending on the base URL).
type AlpacaBroker struct {
	BaseURL string
	Key     string
	Secret  string
	Client  *http.Client
}

func NewAlpacaBroker(baseURL, key, secret string, timeout time.Duration) *AlpacaBroker {
	return &AlpacaBroker{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Key:     key,
		Secret:  secret,
		Client:  &http.Client{Timeout: timeout},
	}
}

func (b *AlpacaBroker) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.BaseURL+path, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("APCA-API-KEY-ID", b.Key)
	req.Header.Set("APCA-API-SECRET-KEY", b.Secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("%w: read body: %v", ErrUnavailable, err)
	}
	if resp.StatusCode >= 500 {
		return resp.StatusCode, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return resp.StatusCode, fmt.Errorf("alpaca: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return resp.StatusCode, fmt.Errorf("alpaca decode: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func (b *AlpacaBroker) SubmitBracketOrder(ctx context.Context, order BracketOrder) (string, error) {
	side := "buy"
	if order.Side == model.ActionSell {
		side = "sell"
	}
	payload := map[string]any{
		"symbol":        strings.ToUpper(order.Symbol),
		"qty":           strconv.Itoa(order.Qty),
		"side":          side,
		"type":          "market",
		"time_in_force": "day",
		"order_class":   "bracket",
		"take_profit":   map[string]string{"limit_price": formatPrice(order.TakeProfit)},
		"stop_loss":     map[string]string{"stop_price": formatPrice(order.StopLoss)},
	}
	if order.ClientOrderID != "" {
		payload["client_order_id"] = order.ClientOrderID
	}
	var resp struct {
		ID string `json:"id"`
	}
	if _, err := b.do(ctx, http.MethodPost, "/v2/orders", payload, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

type alpacaPosition struct {
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	QtyAvailable  string `json:"qty_available"`
	AvgEntryPrice string `json:"avg_entry_price"`
	CurrentPrice  string `json:"current_price"`
}

func (b *AlpacaBroker) ListOpenPositions(ctx context.Context) ([]model.Position, error) {
	var raw []alpacaPosition
	if _, err := b.do(ctx, http.MethodGet, "/v2/positions", nil, &raw); err != nil {
		return nil, err
	}
	positions := make([]model.Position, 0, len(raw))
	for _, p := range raw {
		positions = append(positions, model.Position{
			Symbol:       p.Symbol,
			Qty:          atof(p.Qty),
			AvailableQty: atof(p.QtyAvailable),
			EntryPrice:   atof(p.AvgEntryPrice),
			CurrentPrice: atof(p.CurrentPrice),
		})
	}
	return positions, nil
}

func (b *AlpacaBroker) ClosePosition(ctx context.Context, symbol string) error {
	path := "/v2/positions/" + url.PathEscape(strings.ToUpper(symbol))
	status, err := b.do(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		// 404: no position; 403: qty held by pending orders. Both benign.
		if status == http.StatusNotFound || status == http.StatusForbidden {
			return fmt.Errorf("%w: %v", ErrBenignClose, err)
		}
		return err
	}
	return nil
}

func (b *AlpacaBroker) GetBuyingPower(ctx context.Context) (float64, error) {
	var resp struct {
		BuyingPower string `json:"buying_power"`
		Cash        string `json:"cash"`
	}
	if _, err := b.do(ctx, http.MethodGet, "/v2/account", nil, &resp); err != nil {
		return 0, err
	}
	if bp := atof(resp.BuyingPower); bp > 0 {
		return bp, nil
	}
	return atof(resp.Cash), nil
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
