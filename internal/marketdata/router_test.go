package marketdata

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TradePilot/internal/model"
)

type fakeProvider struct {
	name      string
	price     model.Price
	bars      []model.Bar
	err       error
	priceCall int
	barsCall  int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Price(_ context.Context, _ string) (model.Price, error) {
	f.priceCall++
	if f.err != nil {
		return model.Price{}, f.err
	}
	return f.price, nil
}

func (f *fakeProvider) Bars(_ context.Context, _, _ string, _ int) ([]model.Bar, error) {
	f.barsCall++
	if f.err != nil {
		return nil, f.err
	}
	return f.bars, nil
}

func TestRouterFirstSuccessWins(t *testing.T) {
	first := &fakeProvider{name: "first", price: model.Price{Symbol: "AAPL", Value: 101}}
	second := &fakeProvider{name: "second", price: model.Price{Symbol: "AAPL", Value: 999}}
	r := NewRouter(1000, first, second)

	price, err := r.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 101.0, price.Value)
	assert.Equal(t, 1, first.priceCall)
	assert.Zero(t, second.priceCall, "later providers must not be called after a success")
}

func TestRouterFailsOver(t *testing.T) {
	first := &fakeProvider{name: "first", err: errors.New("boom")}
	second := &fakeProvider{name: "second", bars: []model.Bar{{Close: 50}}}
	r := NewRouter(1000, first, second)

	bars, err := r.GetBars(context.Background(), "AAPL", "1day", 10)
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 1, first.barsCall)
	assert.Equal(t, 1, second.barsCall)
}

func TestRouterAllProvidersFailed(t *testing.T) {
	last := errors.New("down")
	first := &fakeProvider{name: "first", err: errors.New("boom")}
	second := &fakeProvider{name: "second", err: last}
	r := NewRouter(1000, first, second)

	_, err := r.GetPrice(context.Background(), "AAPL")
	require.Error(t, err)
	var apf *AllProvidersFailedError
	require.ErrorAs(t, err, &apf)
	assert.Equal(t, "AAPL", apf.Symbol)
	assert.Equal(t, "price", apf.Op)
	assert.ErrorIs(t, err, last)
}

func TestRouterRateLimitCooldown(t *testing.T) {
	throttled := &fakeProvider{name: "throttled", err: ErrRateLimited}
	backup := &fakeProvider{name: "backup", price: model.Price{Symbol: "AAPL", Value: 42}}
	r := NewRouter(1000, throttled, backup)

	// First call hits the throttled provider, backs it off, falls through.
	price, err := r.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 42.0, price.Value)
	assert.Equal(t, 1, throttled.priceCall)

	// Second call skips the cooling-down provider entirely.
	_, err = r.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 1, throttled.priceCall)
	assert.Equal(t, 2, backup.priceCall)

	// Once the cooldown lapses the provider is retried.
	r.providers[0].mu.Lock()
	r.providers[0].cooldownUntil = time.Now().Add(-time.Second)
	r.providers[0].mu.Unlock()
	_, err = r.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Equal(t, 2, throttled.priceCall)
}

func TestRouterProviderNames(t *testing.T) {
	r := NewRouter(1000, &fakeProvider{name: "a"}, &fakeProvider{name: "b"})
	assert.Equal(t, []string{"a", "b"}, r.ProviderNames())
}
