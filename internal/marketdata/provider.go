package marketdata

import (
	"context"
	"errors"
	"fmt"

	"TradePilot/internal/model"
)

// Provider is one external market data source. Implementations normalize
// symbols to uppercase, honor the request timeout carried by ctx, and return
// ErrRateLimited (wrapped) when the source throttles them.
type Provider interface {
	Name() string
	Price(ctx context.Context, symbol string) (model.Price, error)
	Bars(ctx context.Context, symbol, timespan string, limit int) ([]model.Bar, error)
}

// ErrRateLimited marks a provider response that indicates throttling. The
// router backs the provider off for a cooldown window instead of retrying it.
var ErrRateLimited = errors.New("provider rate limited")

// ErrNoData marks a syntactically valid but empty provider payload.
var ErrNoData = errors.New("provider returned no data")

// AllProvidersFailedError is returned when every adapter in the chain failed
// for one call. Callers treat it as "data unavailable for this symbol this
// cycle", never as fatal to the run.
type AllProvidersFailedError struct {
	Symbol string
	Op     string
	Last   error
}

func (e *AllProvidersFailedError) Error() string {
	return fmt.Sprintf("all providers failed to return %s for %s: %v", e.Op, e.Symbol, e.Last)
}

func (e *AllProvidersFailedError) Unwrap() error { return e.Last }
