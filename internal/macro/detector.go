package macro

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"TradePilot/internal/model"
)

// DataSource is the slice of the price router the detector needs.
type DataSource interface {
	GetPrice(ctx context.Context, symbol string) (model.Price, error)
	GetBars(ctx context.Context, symbol, timespan string, limit int) ([]model.Bar, error)
}

// Config holds the macro filter thresholds.
type Config struct {
	IndexSymbol     string  // reference index, e.g. SPY
	VolSymbol       string  // volatility proxy, e.g. VIX
	TrendMinutes    int     // bar width for the index trend check
	VolThreshold    float64 // vol index level that triggers a reduction
	IndexReduce     float64 // size multiplier on negative index trend
	VolReduce       float64 // size multiplier on elevated vol
	MinSizeFactor   float64 // floor below which trading halts for the cycle
	CrashDropPct    float64 // two-bar fractional drop tripping crash mode
	CrashBarMinutes int     // bar width for the crash check
}

// Detector computes the per-cycle global risk posture.
type Detector struct {
	source DataSource
	cfg    Config
}

func NewDetector(source DataSource, cfg Config) *Detector {
	return &Detector{source: source, cfg: cfg}
}

// Evaluate recomputes the MacroState. Data failures reduce nothing and are
// logged; they never abort the cycle.
func (d *Detector) Evaluate(ctx context.Context) model.MacroState {
	sizeFactor := 1.0
	var reasons []string

	timespan := fmt.Sprintf("%dmin", d.cfg.TrendMinutes)
	bars, err := d.source.GetBars(ctx, d.cfg.IndexSymbol, timespan, 2)
	if err != nil {
		log.Warn().Str("symbol", d.cfg.IndexSymbol).Err(err).Msg("unable to evaluate index macro trend")
	} else if len(bars) >= 2 && bars[len(bars)-1].Close-bars[len(bars)-2].Close < 0 {
		sizeFactor *= d.cfg.IndexReduce
		reasons = append(reasons, "index_trend_negative")
		log.Warn().Str("symbol", d.cfg.IndexSymbol).Msg("index trend negative, reducing size")
	}

	volPrice, err := d.source.GetPrice(ctx, d.cfg.VolSymbol)
	if err != nil {
		log.Warn().Str("symbol", d.cfg.VolSymbol).Err(err).Msg("unable to evaluate volatility filter")
	} else if volPrice.Value > d.cfg.VolThreshold {
		sizeFactor *= d.cfg.VolReduce
		reasons = append(reasons, "vol_elevated")
		log.Warn().Str("symbol", d.cfg.VolSymbol).Float64("price", volPrice.Value).Msg("volatility index above threshold, reducing size")
	}

	state := model.MacroState{
		SizeFactor: sizeFactor,
		MinFactor:  d.cfg.MinSizeFactor,
		Reasons:    reasons,
		CrashMode:  d.crashMode(ctx),
	}
	if !state.AllowTrades() {
		log.Warn().Str("reasons", strings.Join(reasons, ",")).Msg("macro filters blocking trades")
	}
	return state
}

// crashMode trips when the fast-timeframe index drop between the last two
// bars meets the configured threshold. Data failures report false and log
// the cause.
func (d *Detector) crashMode(ctx context.Context) bool {
	timespan := fmt.Sprintf("%dmin", d.cfg.CrashBarMinutes)
	bars, err := d.source.GetBars(ctx, d.cfg.IndexSymbol, timespan, 10)
	if err != nil {
		log.Warn().Str("symbol", d.cfg.IndexSymbol).Err(err).Msg("crash detector unavailable")
		return false
	}
	if len(bars) < 2 {
		log.Warn().Str("symbol", d.cfg.IndexSymbol).Int("bars", len(bars)).Msg("crash detector: insufficient bars")
		return false
	}
	prev := bars[len(bars)-2].Close
	last := bars[len(bars)-1].Close
	if prev == 0 {
		return false
	}
	drop := (last - prev) / prev
	if drop <= -d.cfg.CrashDropPct {
		log.Warn().Float64("drop", drop).Msg("crash mode tripped")
		return true
	}
	return false
}
