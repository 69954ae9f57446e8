package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlpacaTimeframeMapping(t *testing.T) {
	cases := map[string]string{
		"1day":  "1Day",
		"1hour": "1Hour",
		"5min":  "5Min",
		"30min": "30Min",
	}
	for in, want := range cases {
		got, err := alpacaTimeframe(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := alpacaTimeframe("fortnight")
	assert.Error(t, err)
}

func TestAlpacaPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stocks/AAPL/trades/latest", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("APCA-API-KEY-ID"))
		w.Write([]byte(`{"trade":{"p":187.23,"t":"2026-08-26T14:30:00Z"}}`))
	}))
	defer srv.Close()

	p := NewAlpacaProvider(srv.URL, "test-key", "test-secret", time.Second)
	price, err := p.Price(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", price.Symbol)
	assert.Equal(t, 187.23, price.Value)
}

func TestAlpacaBarsSortedAscending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1Day", r.URL.Query().Get("timeframe"))
		w.Write([]byte(`{"bars":[
			{"t":"2026-08-26T00:00:00Z","o":2,"h":3,"l":1,"c":2.5,"v":200},
			{"t":"2026-08-25T00:00:00Z","o":1,"h":2,"l":0.5,"c":1.5,"v":100}
		]}`))
	}))
	defer srv.Close()

	p := NewAlpacaProvider(srv.URL, "k", "s", time.Second)
	bars, err := p.Bars(context.Background(), "AAPL", "1day", 2)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.True(t, bars[0].Time.Before(bars[1].Time))
	assert.Equal(t, 1.5, bars[0].Close)
}

func TestAlpacaRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewAlpacaProvider(srv.URL, "k", "s", time.Second)
	_, err := p.Price(context.Background(), "AAPL")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestAlpacaEmptyBarsIsNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"bars":[]}`))
	}))
	defer srv.Close()

	p := NewAlpacaProvider(srv.URL, "k", "s", time.Second)
	_, err := p.Bars(context.Background(), "AAPL", "1day", 10)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestTwelveDataPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/price", r.URL.Path)
		assert.Equal(t, "MSFT", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"price":"415.5600"}`))
	}))
	defer srv.Close()

	p := NewTwelveDataProvider("key", time.Second)
	p.BaseURL = srv.URL
	price, err := p.Price(context.Background(), "msft")
	require.NoError(t, err)
	assert.Equal(t, 415.56, price.Value)
}

func TestTwelveDataBodyRateLimit(t *testing.T) {
	// Credit exhaustion arrives as HTTP 200 with code 429 in the body.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"code":429,"message":"You have run out of API credits"}`))
	}))
	defer srv.Close()

	p := NewTwelveDataProvider("key", time.Second)
	p.BaseURL = srv.URL
	_, err := p.Price(context.Background(), "MSFT")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestTwelveDataBars(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/time_series", r.URL.Path)
		assert.Equal(t, "1day", r.URL.Query().Get("interval"))
		w.Write([]byte(`{"values":[
			{"datetime":"2026-08-26","open":"2","high":"3","low":"1","close":"2.5","volume":"200"},
			{"datetime":"2026-08-25","open":"1","high":"2","low":"0.5","close":"1.5","volume":"100"}
		]}`))
	}))
	defer srv.Close()

	p := NewTwelveDataProvider("key", time.Second)
	p.BaseURL = srv.URL
	bars, err := p.Bars(context.Background(), "MSFT", "1day", 2)
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.True(t, bars[0].Time.Before(bars[1].Time))
	assert.Equal(t, 2.5, bars[1].Close)
	assert.Equal(t, 100.0, bars[0].Volume)
}
