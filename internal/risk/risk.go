package risk

import (
	"math"
	"time"

	"TradePilot/internal/model"
)

// Params names every risk threshold. All values come from configuration;
// nothing in this package hard-codes a policy number.
type Params struct {
	InitialEquity      float64
	DailyBudget        float64
	MaxPositions       int
	MaxPositionsCrash  int
	MaxPositionPct     float64
	RiskPerTradePct    float64
	MaxDailyLossPct    float64
	MinConfidence      float64
	ATRMultiplier      float64
	AllocationRatio    float64
	TakeProfitPct      float64
	StopLossPct        float64
	CrashTakeProfitPct float64
	CrashStopLossPct   float64
	HoldMax            time.Duration
	CrashHoldMax       time.Duration
}

// Rejection is a machine-readable reason a trade was deliberately skipped.
// It is not an error.
type Rejection string

const (
	RejectNone             Rejection = ""
	RejectBudgetExhausted  Rejection = "daily_budget_exhausted"
	RejectDailyLossCap     Rejection = "daily_loss_cap"
	RejectMaxPositions     Rejection = "max_positions_reached"
	RejectNotionalCap      Rejection = "notional_cap_exceeded"
	RejectZeroQty          Rejection = "quantity_below_one"
	RejectInsufficientCash Rejection = "insufficient_cash"
)

// ExitReason attributes a forced exit to exactly one cause.
type ExitReason string

const (
	ExitNone          ExitReason = ""
	ExitTakeProfit    ExitReason = "take_profit"
	ExitStopLoss      ExitReason = "stop_loss"
	ExitTimeStop      ExitReason = "time_stop"
	ExitTechnical     ExitReason = "technical_exit"
	ExitDataUnavailable ExitReason = "price_unavailable"
)

// ATRTargets computes bracket target prices from the winning signal's ATR
// multiples. A zero ATR falls back to 2% of price.
func ATRTargets(price, atr float64, action model.Action, tpMult, slMult float64) (tp, sl float64) {
	if atr == 0 {
		atr = price * 0.02
	}
	if action == model.ActionBuy {
		tp = price + atr*tpMult
		sl = price - atr*slMult
	} else {
		tp = price - atr*tpMult
		sl = price + atr*slMult
	}
	return round2(tp), round2(sl)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// MaxPositionsFor returns the open-position cap for the mode.
func (p Params) MaxPositionsFor(crashMode bool) int {
	if crashMode {
		return p.MaxPositionsCrash
	}
	return p.MaxPositions
}

// PerPositionCap returns the per-position notional cap for the mode.
func (p Params) PerPositionCap(crashMode bool) float64 {
	if crashMode {
		return 0.8 * p.DailyBudget / math.Max(float64(p.MaxPositionsCrash), 1)
	}
	return p.DailyBudget / math.Max(float64(p.MaxPositions), 1)
}

func (p Params) clampConfidence(confidence float64) float64 {
	return math.Max(p.MinConfidence, math.Min(confidence, 1.0))
}

// SizeByAllocation sizes a position from a flat confidence-scaled allocation,
// bounded by the per-trade cap and the remaining daily budget.
func (p Params) SizeByAllocation(confidence, equity, price, remainingBudget float64) int {
	if price <= 0 || equity <= 0 {
		return 0
	}
	allocation := p.clampConfidence(confidence) * equity * p.MaxPositionPct
	perTradeCap := p.DailyBudget * p.AllocationRatio
	bounded := math.Min(allocation, math.Min(perTradeCap, remainingBudget))
	qty := int(math.Floor(bounded / price))
	if qty < 0 {
		return 0
	}
	return qty
}

// SizeByRisk sizes a position off risk-per-share: the confidence-scaled
// allocation divided by the ATR-derived stop distance.
func (p Params) SizeByRisk(confidence, equity, price, atr float64) int {
	if price <= 0 || equity <= 0 {
		return 0
	}
	if atr == 0 {
		atr = price * 0.02
	}
	allocation := p.clampConfidence(confidence) * equity * p.MaxPositionPct
	stopDistance := math.Max(atr*p.ATRMultiplier, price*0.01)
	if stopDistance <= 0 {
		return 0
	}
	qty := int(allocation / stopDistance)
	if qty < 0 {
		return 0
	}
	return qty
}

// MaxQtyByRisk caps quantity so the loss at the stop distance stays within
// the per-trade risk budget (equity times RiskPerTradePct). Returns 0 when
// the budget is unset, meaning no cap applies.
func (p Params) MaxQtyByRisk(equity, price, atr float64) int {
	if p.RiskPerTradePct <= 0 || equity <= 0 || price <= 0 {
		return 0
	}
	if atr == 0 {
		atr = price * 0.02
	}
	stopDistance := math.Max(atr*p.ATRMultiplier, price*0.01)
	if stopDistance <= 0 {
		return 0
	}
	return int(equity * p.RiskPerTradePct / stopDistance)
}

// BoundQty caps a sized quantity so its notional fits under both the
// per-position cap for the mode and the remaining daily budget.
func (p Params) BoundQty(qty int, price, remainingBudget float64, crashMode bool) int {
	if qty <= 0 || price <= 0 {
		return 0
	}
	maxNotional := math.Min(p.PerPositionCap(crashMode), remainingBudget)
	if float64(qty)*price > maxNotional {
		qty = int(math.Floor(maxNotional / price))
	}
	if qty < 0 {
		return 0
	}
	return qty
}

// EvaluateEntry applies the entry guards in order against a sized trade.
// Any rejection blocks the trade; RejectBudgetExhausted additionally tells
// the caller to stop evaluating remaining symbols this cycle.
func (p Params) EvaluateEntry(qty int, price, remainingBudget, dailyPnL, equity float64, openPositions int, crashMode bool) Rejection {
	if remainingBudget <= 0 {
		return RejectBudgetExhausted
	}
	if equity <= 0 {
		equity = p.InitialEquity
	}
	if math.Abs(dailyPnL) >= p.MaxDailyLossPct*equity {
		return RejectDailyLossCap
	}
	if openPositions >= p.MaxPositionsFor(crashMode) {
		return RejectMaxPositions
	}
	notional := float64(qty) * price
	if notional > p.PerPositionCap(crashMode) {
		return RejectNotionalCap
	}
	if qty <= 0 {
		return RejectZeroQty
	}
	return RejectNone
}

// ShouldExit evaluates an open position against the mode's exit policy.
// technicalExit is the latest bar series' exit-filter verdict; dataOK is
// false when price data could not be refreshed, which forces an exit rather
// than holding blind.
func (p Params) ShouldExit(pos model.Position, crashMode, technicalExit, dataOK bool, now time.Time) (bool, ExitReason) {
	if !dataOK {
		return true, ExitDataUnavailable
	}

	tpPct, slPct := p.TakeProfitPct, p.StopLossPct
	holdMax := p.HoldMax
	if crashMode {
		tpPct, slPct = p.CrashTakeProfitPct, p.CrashStopLossPct
		holdMax = p.CrashHoldMax
	}

	gain := pos.Gain()
	if gain >= tpPct {
		return true, ExitTakeProfit
	}
	if gain <= -slPct {
		return true, ExitStopLoss
	}
	if !pos.EnteredAt.IsZero() && now.Sub(pos.EnteredAt) > holdMax {
		return true, ExitTimeStop
	}
	if technicalExit {
		return true, ExitTechnical
	}
	return false, ExitNone
}
