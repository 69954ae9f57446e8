package executor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"TradePilot/internal/broker"
	"TradePilot/internal/model"
	"TradePilot/internal/notifier"
	"TradePilot/internal/portfolio"
	"TradePilot/internal/recorder"
	"TradePilot/internal/risk"
	"TradePilot/internal/strategy"
)

// BarSource is the slice of the price router the exit check needs.
type BarSource interface {
	GetBars(ctx context.Context, symbol, timespan string, limit int) ([]model.Bar, error)
}

// Result is the outcome of executing one decision.
type Result struct {
	Executed  bool
	Rejection risk.Rejection
	// StopCycle tells the caller to skip the remaining symbols this cycle
	// (daily budget exhausted).
	StopCycle bool
}

// Executor turns decisions into bracket orders and enforces the risk guards,
// idempotency, and the write-through ledger.
type Executor struct {
	broker   broker.Broker
	store    *portfolio.Store
	params   risk.Params
	rec      recorder.Recorder
	notify   notifier.Notifier
	bars     BarSource
	timespan string
	barLimit int

	now   func() time.Time
	newID func() string
}

func New(b broker.Broker, store *portfolio.Store, params risk.Params, rec recorder.Recorder, notify notifier.Notifier, bars BarSource, timespan string, barLimit int) *Executor {
	return &Executor{
		broker:   b,
		store:    store,
		params:   params,
		rec:      rec,
		notify:   notify,
		bars:     bars,
		timespan: timespan,
		barLimit: barLimit,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func heldSymbols(open []model.Position) map[string]bool {
	held := make(map[string]bool, len(open))
	for _, p := range open {
		held[p.Symbol] = true
	}
	return held
}

// Execute sizes and submits one decision. The open position list is the
// broker snapshot taken at the start of the execution phase; re-checking it
// per decision keeps submissions idempotent when a signal repeats across
// cycles. A returned error means the brokerage is unreachable and the caller
// should abort the execution phase; everything else is a logged skip.
func (e *Executor) Execute(ctx context.Context, d model.Decision, macro model.MacroState, open []model.Position) (Result, error) {
	if d.Action == model.ActionHold {
		return Result{}, nil
	}

	evt := &recorder.DecisionEvent{
		Symbol:     d.Symbol,
		Action:     string(d.Action),
		Label:      d.Label,
		Confidence: d.Confidence,
		EntryPrice: d.EntryPrice,
		TakeProfit: d.TakeProfit,
		StopLoss:   d.StopLoss,
		ATR:        d.ATR,
		MLScore:    d.MLScore,
		CrashMode:  macro.CrashMode,
	}

	if heldSymbols(open)[d.Symbol] {
		log.Debug().Str("symbol", d.Symbol).Msg("position already held, skipping duplicate signal")
		evt.Rejection = "already_held"
		e.recordDecision(evt)
		return Result{}, nil
	}

	state := e.store.State()
	remaining := e.store.RemainingBudget(e.params.DailyBudget)

	qty := e.params.SizeByRisk(d.Confidence, state.Equity, d.EntryPrice, d.ATR)
	if riskCap := e.params.MaxQtyByRisk(state.Equity, d.EntryPrice, d.ATR); riskCap > 0 && qty > riskCap {
		qty = riskCap
	}
	qty = e.params.BoundQty(qty, d.EntryPrice, remaining, macro.CrashMode)
	qty = int(float64(qty) * macro.SizeFactor)

	if rej := e.params.EvaluateEntry(qty, d.EntryPrice, remaining, state.DailyPnL, state.Equity, len(open), macro.CrashMode); rej != risk.RejectNone {
		log.Info().Str("symbol", d.Symbol).Str("reason", string(rej)).
			Int("qty", qty).Float64("remaining_budget", remaining).
			Msg("trade skipped")
		evt.Rejection = string(rej)
		e.recordDecision(evt)
		return Result{Rejection: rej, StopCycle: rej == risk.RejectBudgetExhausted}, nil
	}

	// Guards passed on ledger state; confirm the live account can actually
	// fund the order before submitting.
	notional := float64(qty) * d.EntryPrice
	buyingPower, err := e.broker.GetBuyingPower(ctx)
	if err != nil {
		if errors.Is(err, broker.ErrUnavailable) {
			return Result{}, err
		}
		log.Warn().Str("symbol", d.Symbol).Err(err).Msg("buying power check failed, proceeding on ledger equity")
	} else if notional > buyingPower {
		log.Info().Str("symbol", d.Symbol).Str("reason", string(risk.RejectInsufficientCash)).
			Float64("notional", notional).Float64("buying_power", buyingPower).
			Msg("trade skipped")
		evt.Rejection = string(risk.RejectInsufficientCash)
		e.recordDecision(evt)
		return Result{Rejection: risk.RejectInsufficientCash}, nil
	}
	e.recordDecision(evt)

	order := broker.BracketOrder{
		Symbol:        d.Symbol,
		Qty:           qty,
		Side:          d.Action,
		TakeProfit:    d.TakeProfit,
		StopLoss:      d.StopLoss,
		ClientOrderID: e.newID(),
	}
	orderID, err := e.broker.SubmitBracketOrder(ctx, order)
	if err != nil {
		if errors.Is(err, broker.ErrUnavailable) {
			return Result{}, err
		}
		// Rejected by the brokerage. No retry within the cycle; the next
		// cycle re-evaluates from scratch.
		log.Error().Str("symbol", d.Symbol).Err(err).Msg("order submission failed")
		return Result{}, nil
	}

	rec := model.TradeRecord{
		Symbol:     d.Symbol,
		Action:     d.Action,
		Qty:        qty,
		Price:      d.EntryPrice,
		TakeProfit: d.TakeProfit,
		StopLoss:   d.StopLoss,
		Confidence: d.Confidence,
		Timestamp:  e.now(),
	}
	if err := e.store.RecordTrade(rec); err != nil {
		log.Error().Str("symbol", d.Symbol).Err(err).Msg("ledger write failed after submission")
	}

	tradeEvt := &recorder.TradeEvent{
		Symbol:        d.Symbol,
		Action:        string(d.Action),
		Qty:           qty,
		Price:         d.EntryPrice,
		TakeProfit:    d.TakeProfit,
		StopLoss:      d.StopLoss,
		Confidence:    d.Confidence,
		OrderID:       orderID,
		ClientOrderID: order.ClientOrderID,
	}
	if err := e.rec.RecordTrade(tradeEvt); err != nil {
		log.Warn().Err(err).Msg("trade journal write failed")
	}
	if err := e.notify.Send(notifier.FormatTrade(tradeEvt)); err != nil {
		log.Warn().Err(err).Msg("trade notification failed")
	}

	log.Info().Str("symbol", d.Symbol).Str("action", string(d.Action)).
		Int("qty", qty).Float64("price", d.EntryPrice).
		Float64("tp", d.TakeProfit).Float64("sl", d.StopLoss).
		Str("order_id", orderID).Msg("order submitted")
	return Result{Executed: true}, nil
}

// ExitCheck walks the open positions and closes any that hit the mode's exit
// policy. Returns the number of positions closed. A returned error means the
// position list itself could not be fetched.
func (e *Executor) ExitCheck(ctx context.Context, crashMode bool) (int, error) {
	open, err := e.broker.ListOpenPositions(ctx)
	if err != nil {
		return 0, err
	}

	entered := e.entryTimes()
	exits := 0
	for _, pos := range open {
		if pos.AvailableQty == 0 {
			// Qty reserved by the bracket legs; the brokerage will
			// release or close it on its own.
			log.Debug().Str("symbol", pos.Symbol).Msg("position qty reserved, skipping exit check")
			continue
		}
		if t, ok := entered[pos.Symbol]; ok {
			pos.EnteredAt = t
		}

		bars, err := e.bars.GetBars(ctx, pos.Symbol, e.timespan, e.barLimit)
		dataOK := err == nil && len(bars) > 0
		if err != nil {
			log.Warn().Str("symbol", pos.Symbol).Err(err).Msg("bars unavailable for exit check")
		}
		technicalExit := dataOK && strategy.PassesExitFilter(bars)

		shouldExit, reason := e.params.ShouldExit(pos, crashMode, technicalExit, dataOK, e.now())
		if !shouldExit {
			continue
		}
		if e.closePosition(ctx, pos, reason, crashMode) {
			exits++
		}
	}
	return exits, nil
}

func (e *Executor) closePosition(ctx context.Context, pos model.Position, reason risk.ExitReason, crashMode bool) bool {
	if err := e.broker.ClosePosition(ctx, pos.Symbol); err != nil {
		if errors.Is(err, broker.ErrBenignClose) {
			log.Debug().Str("symbol", pos.Symbol).Err(err).Msg("position already gone")
			return false
		}
		log.Error().Str("symbol", pos.Symbol).Err(err).Msg("close position failed")
		return false
	}

	gain := pos.Gain()
	realized := (pos.CurrentPrice - pos.EntryPrice) * pos.Qty
	if err := e.store.UpdateDailyPnL(realized); err != nil {
		log.Error().Str("symbol", pos.Symbol).Err(err).Msg("ledger pnl update failed")
	}

	exitEvt := &recorder.ExitEvent{
		Symbol:    pos.Symbol,
		Qty:       pos.Qty,
		Gain:      gain,
		Reason:    string(reason),
		CrashMode: crashMode,
	}
	if err := e.rec.RecordExit(exitEvt); err != nil {
		log.Warn().Err(err).Msg("exit journal write failed")
	}
	if err := e.notify.Send(notifier.FormatExit(exitEvt)); err != nil {
		log.Warn().Err(err).Msg("exit notification failed")
	}

	log.Info().Str("symbol", pos.Symbol).Str("reason", string(reason)).
		Float64("gain", gain).Float64("realized", realized).Msg("position closed")
	return true
}

// entryTimes maps each held symbol to its earliest entry today, from the
// ledger. Positions opened before today fall back to a zero time, which
// disables the time stop for them.
func (e *Executor) entryTimes() map[string]time.Time {
	state := e.store.State()
	out := make(map[string]time.Time, len(state.Positions))
	for _, rec := range state.Positions {
		if t, ok := out[rec.Symbol]; !ok || rec.Timestamp.Before(t) {
			out[rec.Symbol] = rec.Timestamp
		}
	}
	return out
}

func (e *Executor) recordDecision(evt *recorder.DecisionEvent) {
	if err := e.rec.RecordDecision(evt); err != nil {
		log.Warn().Err(err).Msg("decision journal write failed")
	}
}
