package strategy

import (
	"context"
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"TradePilot/internal/calculator"
	"TradePilot/internal/model"
)

// BarsFetcher pulls a bar series for a symbol; the router's GetBars satisfies it.
type BarsFetcher func(ctx context.Context, symbol, timespan string, limit int) ([]model.Bar, error)

// Pair is a cointegrated long/short ticker pair.
type Pair struct {
	Long  string
	Short string
}

// DefaultPairs are the tracked cointegrated pairs.
var DefaultPairs = []Pair{
	{Long: "IWM", Short: "URTY"},
	{Long: "AMD", Short: "SMH"},
	{Long: "NVDA", Short: "SOXX"},
}

// ETFArbitrage trades the spread between cointegrated pairs. Refresh scans
// all pairs once per cycle; Evaluate then answers per-symbol lookups so the
// strategy plugs into the same interface as the single-symbol ones.
type ETFArbitrage struct {
	Pairs    []Pair
	Timespan string
	Limit    int

	mu      sync.Mutex
	signals map[string]model.Signal
}

func NewETFArbitrage(timespan string) *ETFArbitrage {
	return &ETFArbitrage{
		Pairs:    DefaultPairs,
		Timespan: timespan,
		Limit:    60,
		signals:  map[string]model.Signal{},
	}
}

func (s *ETFArbitrage) Name() string { return "etf_arbitrage" }

// Refresh recomputes pair z-scores for the cycle. Pair data failures are
// logged and skipped; the previous cycle's signals are discarded either way.
func (s *ETFArbitrage) Refresh(ctx context.Context, fetch BarsFetcher) {
	signals := map[string]model.Signal{}
	for _, pair := range s.Pairs {
		longBars, err := fetch(ctx, pair.Long, s.Timespan, s.Limit)
		if err != nil {
			log.Warn().Str("pair", pair.Long+"/"+pair.Short).Err(err).Msg("pair data unavailable")
			continue
		}
		shortBars, err := fetch(ctx, pair.Short, s.Timespan, s.Limit)
		if err != nil {
			log.Warn().Str("pair", pair.Long+"/"+pair.Short).Err(err).Msg("pair data unavailable")
			continue
		}
		n := len(longBars)
		if len(shortBars) < n {
			n = len(shortBars)
		}
		if n < 20 {
			continue
		}
		spread := make([]float64, n)
		for i := 0; i < n; i++ {
			spread[i] = longBars[len(longBars)-n+i].Close - shortBars[len(shortBars)-n+i].Close
		}
		z, err := calculator.CalculateZScore(spread)
		if err != nil {
			continue
		}
		confidence := math.Min(0.9, math.Abs(z)/3)
		switch {
		case z > 2:
			signals[pair.Long] = s.signal(pair.Long, model.ActionSell, confidence)
			signals[pair.Short] = s.signal(pair.Short, model.ActionBuy, confidence)
		case z < -2:
			signals[pair.Long] = s.signal(pair.Long, model.ActionBuy, confidence)
			signals[pair.Short] = s.signal(pair.Short, model.ActionSell, confidence)
		}
	}
	s.mu.Lock()
	s.signals = signals
	s.mu.Unlock()
}

func (s *ETFArbitrage) signal(symbol string, action model.Action, confidence float64) model.Signal {
	return model.Signal{
		Symbol:     symbol,
		Action:     action,
		Confidence: confidence,
		Label:      s.Name(),
		TPMultiple: 2.0,
		SLMultiple: 1.0,
	}
}

func (s *ETFArbitrage) Evaluate(symbol string, _ []model.Bar, _ Features, _ float64, _ bool) model.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sig, ok := s.signals[symbol]; ok {
		return sig
	}
	return model.Hold(symbol, s.Name())
}
