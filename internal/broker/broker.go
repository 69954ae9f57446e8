package broker

import (
	"context"
	"errors"

	"TradePilot/internal/model"
)

// BracketOrder is a market entry paired atomically with a take-profit limit
// and a stop-loss stop.
type BracketOrder struct {
	Symbol        string
	Qty           int
	Side          model.Action // BUY or SELL
	TakeProfit    float64
	StopLoss      float64
	ClientOrderID string
}

// Broker is the brokerage contract. Implementations honor ctx timeouts and
// return ErrUnavailable (wrapped) when the brokerage itself cannot be
// reached, so the execution phase can abort gracefully for the cycle.
type Broker interface {
	SubmitBracketOrder(ctx context.Context, order BracketOrder) (orderID string, err error)
	ListOpenPositions(ctx context.Context) ([]model.Position, error)
	ClosePosition(ctx context.Context, symbol string) error
	GetBuyingPower(ctx context.Context) (float64, error)
}

// ErrUnavailable marks a brokerage connectivity failure.
var ErrUnavailable = errors.New("brokerage unavailable")

// ErrBenignClose marks close failures that mean the position is already
// gone ("no position", "insufficient qty"). Callers treat it as a no-op.
var ErrBenignClose = errors.New("position already closed or reserved")
