package marketdata

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"TradePilot/internal/model"
)

// rateLimitCooldown is how long a provider sits out after a throttling
// response before the router tries it again.
const rateLimitCooldown = 60 * time.Second

// routedProvider wraps one adapter with its circuit breaker, token bucket
// and rate-limit cooldown timestamp.
type routedProvider struct {
	provider Provider
	breaker  *gobreaker.CircuitBreaker
	limiter  *rate.Limiter

	mu            sync.Mutex
	cooldownUntil time.Time
}

func (rp *routedProvider) coolingDown(now time.Time) bool {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	return now.Before(rp.cooldownUntil)
}

func (rp *routedProvider) backOff(now time.Time) {
	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.cooldownUntil = now.Add(rateLimitCooldown)
}

// Router tries an ordered list of providers and returns the first success.
// The order is fixed at startup from available credentials; adapters without
// credentials are excluded, not merely deprioritized.
type Router struct {
	providers []*routedProvider
}

// NewRouter builds the failover chain. Each provider gets its own breaker
// and token bucket so one noisy source cannot starve the others.
func NewRouter(rps float64, providers ...Provider) *Router {
	routed := make([]*routedProvider, 0, len(providers))
	for _, p := range providers {
		settings := gobreaker.Settings{
			Name:     p.Name(),
			Interval: 60 * time.Second,
			Timeout:  60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}
		routed = append(routed, &routedProvider{
			provider: p,
			breaker:  gobreaker.NewCircuitBreaker(settings),
			limiter:  rate.NewLimiter(rate.Limit(rps), 1),
		})
	}
	return &Router{providers: routed}
}

// ProviderNames returns the chain order, for startup logging.
func (r *Router) ProviderNames() []string {
	names := make([]string, len(r.providers))
	for i, rp := range r.providers {
		names[i] = rp.provider.Name()
	}
	return names
}

// GetPrice returns the first successful price in chain order.
func (r *Router) GetPrice(ctx context.Context, symbol string) (model.Price, error) {
	result, err := r.fallback(ctx, symbol, "price", func(ctx context.Context, p Provider) (any, error) {
		return p.Price(ctx, symbol)
	})
	if err != nil {
		return model.Price{}, err
	}
	return result.(model.Price), nil
}

// GetBars returns the first successful non-empty bar series in chain order.
// A series always comes from exactly one provider; there is no cross-provider
// merge within one call.
func (r *Router) GetBars(ctx context.Context, symbol, timespan string, limit int) ([]model.Bar, error) {
	result, err := r.fallback(ctx, symbol, "bars", func(ctx context.Context, p Provider) (any, error) {
		return p.Bars(ctx, symbol, timespan, limit)
	})
	if err != nil {
		return nil, err
	}
	return result.([]model.Bar), nil
}

func (r *Router) fallback(ctx context.Context, symbol, op string, call func(context.Context, Provider) (any, error)) (any, error) {
	var lastErr error = ErrNoData
	for _, rp := range r.providers {
		name := rp.provider.Name()
		if rp.coolingDown(time.Now()) {
			log.Debug().Str("provider", name).Str("symbol", symbol).
				Msg("provider in rate-limit cooldown, skipping")
			continue
		}
		if err := rp.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		result, err := rp.breaker.Execute(func() (any, error) {
			return call(ctx, rp.provider)
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrRateLimited) {
			rp.backOff(time.Now())
			log.Warn().Str("provider", name).Str("symbol", symbol).Str("op", op).
				Str("reason", "rate_limited").Msg("provider throttled, backing off")
			continue
		}
		log.Warn().Str("provider", name).Str("symbol", symbol).Str("op", op).
			Err(err).Msg("provider failed, trying next")
	}
	return nil, &AllProvidersFailedError{Symbol: symbol, Op: op, Last: lastErr}
}
