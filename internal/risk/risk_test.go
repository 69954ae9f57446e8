package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"TradePilot/internal/model"
)

func testParams() Params {
	return Params{
		InitialEquity:      100000,
		DailyBudget:        10000,
		MaxPositions:       10,
		MaxPositionsCrash:  3,
		MaxPositionPct:     0.10,
		RiskPerTradePct:    0.02,
		MaxDailyLossPct:    0.03,
		MinConfidence:      0.45,
		ATRMultiplier:      2.5,
		AllocationRatio:    0.10,
		TakeProfitPct:      0.04,
		StopLossPct:        0.02,
		CrashTakeProfitPct: 0.02,
		CrashStopLossPct:   0.01,
		HoldMax:            90 * time.Minute,
		CrashHoldMax:       60 * time.Minute,
	}
}

func TestATRTargetsBuy(t *testing.T) {
	tp, sl := ATRTargets(100, 2, model.ActionBuy, 3, 1.5)
	assert.Equal(t, 106.00, tp)
	assert.Equal(t, 97.00, sl)
}

func TestATRTargetsSellMirrors(t *testing.T) {
	tp, sl := ATRTargets(100, 2, model.ActionSell, 3, 1.5)
	assert.Equal(t, 94.00, tp)
	assert.Equal(t, 103.00, sl)
}

func TestATRTargetsZeroATRFallback(t *testing.T) {
	// ATR falls back to 2% of price.
	tp, sl := ATRTargets(100, 0, model.ActionBuy, 3, 1.5)
	assert.Equal(t, 106.00, tp)
	assert.Equal(t, 97.00, sl)
}

func TestSizeByRisk(t *testing.T) {
	p := testParams()
	// allocation 0.8*100000*0.10 = 8000, stop distance max(1*2.5, 50*0.01) = 2.5
	qty := p.SizeByRisk(0.8, 100000, 50, 1)
	assert.Equal(t, 3200, qty)
}

func TestSizeByRiskClampsLowConfidence(t *testing.T) {
	p := testParams()
	// confidence below the floor sizes as if at the floor
	assert.Equal(t, p.SizeByRisk(0.45, 100000, 50, 1), p.SizeByRisk(0.10, 100000, 50, 1))
}

func TestSizeByRiskZeroPrice(t *testing.T) {
	p := testParams()
	assert.Equal(t, 0, p.SizeByRisk(0.8, 100000, 0, 1))
}

func TestMaxPositionsFor(t *testing.T) {
	p := testParams()
	assert.Equal(t, 10, p.MaxPositionsFor(false))
	assert.Equal(t, 3, p.MaxPositionsFor(true))
}

func TestMaxQtyByRisk(t *testing.T) {
	p := testParams()
	// 100000*0.02 = 2000 risk dollars over the 2.5 stop distance
	assert.Equal(t, 800, p.MaxQtyByRisk(100000, 50, 1))

	// An unset per-trade risk budget means no cap.
	p.RiskPerTradePct = 0
	assert.Equal(t, 0, p.MaxQtyByRisk(100000, 50, 1))
}

func TestSizeByAllocationBoundedByBudget(t *testing.T) {
	p := testParams()
	// per-trade cap 10000*0.10 = 1000 binds before the 8000 allocation
	qty := p.SizeByAllocation(0.8, 100000, 50, 10000)
	assert.Equal(t, 20, qty)

	// remaining budget binds tighter still
	qty = p.SizeByAllocation(0.8, 100000, 50, 500)
	assert.Equal(t, 10, qty)
}

func TestEvaluateEntryGuardOrder(t *testing.T) {
	p := testParams()

	// Budget guard fires first even when other guards would also trip.
	rej := p.EvaluateEntry(0, 50, 0, -5000, 100000, 20, false)
	assert.Equal(t, RejectBudgetExhausted, rej)

	// Then the daily loss cap.
	rej = p.EvaluateEntry(0, 50, 5000, -3000, 100000, 20, false)
	assert.Equal(t, RejectDailyLossCap, rej)

	// Then max positions.
	rej = p.EvaluateEntry(0, 50, 5000, 0, 100000, 10, false)
	assert.Equal(t, RejectMaxPositions, rej)

	// Then the notional cap: 100*50 = 5000 > 10000/10.
	rej = p.EvaluateEntry(100, 50, 5000, 0, 100000, 0, false)
	assert.Equal(t, RejectNotionalCap, rej)

	// Then zero quantity.
	rej = p.EvaluateEntry(0, 50, 5000, 0, 100000, 0, false)
	assert.Equal(t, RejectZeroQty, rej)

	// A sized trade inside every bound passes: 10*50 = 500 <= 1000.
	rej = p.EvaluateEntry(10, 50, 5000, 0, 100000, 0, false)
	assert.Equal(t, RejectNone, rej)
}

func TestEvaluateEntryCrashModeTightens(t *testing.T) {
	p := testParams()

	// Crash cap is 3 positions, not 10.
	rej := p.EvaluateEntry(5, 50, 5000, 0, 100000, 3, true)
	assert.Equal(t, RejectMaxPositions, rej)

	// Crash notional cap 0.8*10000/3 ≈ 2666; 10*50=500 passes normal and crash.
	rej = p.EvaluateEntry(10, 50, 5000, 0, 100000, 0, true)
	assert.Equal(t, RejectNone, rej)

	// 60*50 = 3000 exceeds the crash notional cap.
	rej = p.EvaluateEntry(60, 50, 5000, 0, 100000, 0, true)
	assert.Equal(t, RejectNotionalCap, rej)
}

func TestBoundQty(t *testing.T) {
	p := testParams()

	// 3200 shares at $50 is far over the $1000 per-position cap.
	assert.Equal(t, 20, p.BoundQty(3200, 50, 10000, false))

	// Remaining budget binds when tighter than the cap.
	assert.Equal(t, 8, p.BoundQty(3200, 50, 400, false))

	// Under the cap the quantity passes through untouched.
	assert.Equal(t, 10, p.BoundQty(10, 50, 10000, false))

	assert.Equal(t, 0, p.BoundQty(0, 50, 10000, false))
	assert.Equal(t, 0, p.BoundQty(10, 0, 10000, false))
}

func TestPerPositionCap(t *testing.T) {
	p := testParams()
	assert.InDelta(t, 1000, p.PerPositionCap(false), 1e-9)
	assert.InDelta(t, 0.8*10000/3, p.PerPositionCap(true), 1e-9)
}

func TestShouldExitPolicy(t *testing.T) {
	p := testParams()
	now := time.Now()
	pos := model.Position{
		Symbol:       "AAPL",
		Qty:          10,
		EntryPrice:   100,
		CurrentPrice: 100,
		EnteredAt:    now.Add(-10 * time.Minute),
	}

	exit, reason := p.ShouldExit(pos, false, false, true, now)
	assert.False(t, exit)
	assert.Equal(t, ExitNone, reason)

	// Take profit at +4%.
	tp := pos
	tp.CurrentPrice = 104.5
	exit, reason = p.ShouldExit(tp, false, false, true, now)
	assert.True(t, exit)
	assert.Equal(t, ExitTakeProfit, reason)

	// Stop loss at -2%.
	sl := pos
	sl.CurrentPrice = 97.5
	exit, reason = p.ShouldExit(sl, false, false, true, now)
	assert.True(t, exit)
	assert.Equal(t, ExitStopLoss, reason)

	// Time stop after 90 minutes.
	old := pos
	old.EnteredAt = now.Add(-2 * time.Hour)
	exit, reason = p.ShouldExit(old, false, false, true, now)
	assert.True(t, exit)
	assert.Equal(t, ExitTimeStop, reason)

	// Technical exit verdict.
	exit, reason = p.ShouldExit(pos, false, true, true, now)
	assert.True(t, exit)
	assert.Equal(t, ExitTechnical, reason)

	// Missing data forces an exit before anything else.
	exit, reason = p.ShouldExit(tp, false, false, false, now)
	assert.True(t, exit)
	assert.Equal(t, ExitDataUnavailable, reason)

	// A short position mirrors: price down 5% is a winner.
	short := pos
	short.Qty = -10
	short.CurrentPrice = 95
	exit, reason = p.ShouldExit(short, false, false, true, now)
	assert.True(t, exit)
	assert.Equal(t, ExitTakeProfit, reason)

	// And price up 2.5% on a short is past the 2% stop.
	short.CurrentPrice = 102.5
	exit, reason = p.ShouldExit(short, false, false, true, now)
	assert.True(t, exit)
	assert.Equal(t, ExitStopLoss, reason)
}

func TestShouldExitCrashTightens(t *testing.T) {
	p := testParams()
	now := time.Now()
	pos := model.Position{
		Symbol:       "AAPL",
		Qty:          10,
		EntryPrice:   100,
		CurrentPrice: 102.5, // +2.5%: inside normal tp, beyond crash tp
		EnteredAt:    now.Add(-70 * time.Minute),
	}

	exit, _ := p.ShouldExit(pos, false, false, true, now)
	assert.False(t, exit)

	exit, reason := p.ShouldExit(pos, true, false, true, now)
	assert.True(t, exit)
	assert.Equal(t, ExitTakeProfit, reason)

	// Crash time stop is 60 minutes.
	flat := pos
	flat.CurrentPrice = 100
	exit, reason = p.ShouldExit(flat, true, false, true, now)
	assert.True(t, exit)
	assert.Equal(t, ExitTimeStop, reason)
}
