package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"TradePilot/internal/broker"
	"TradePilot/internal/executor"
	"TradePilot/internal/macro"
	"TradePilot/internal/marketdata"
	"TradePilot/internal/model"
	"TradePilot/internal/notifier"
	"TradePilot/internal/portfolio"
	"TradePilot/internal/recorder"
	"TradePilot/internal/strategy"
)

// Config holds the scheduling knobs.
type Config struct {
	Symbols         []string
	IntervalSeconds int
	MarketOpen      string // HH:MM, exchange local time
	MarketClose     string // HH:MM
	Timezone        string
	FetchWorkers    int
	Timespan        string
	BarLimit        int
	IndexSymbol     string
}

// Scheduler drives the interval pipeline and the daily ledger reset.
type Scheduler struct {
	cron   *cron.Cron
	cfg    Config
	data   *marketdata.Router
	router *strategy.Router
	arb    *strategy.ETFArbitrage
	detect *macro.Detector
	exec   *executor.Executor
	brk    broker.Broker
	store  *portfolio.Store
	rec    recorder.Recorder
	notify notifier.Notifier

	loc     *time.Location
	running sync.Mutex
	now     func() time.Time
}

func New(cfg Config, data *marketdata.Router, router *strategy.Router, arb *strategy.ETFArbitrage, detect *macro.Detector, exec *executor.Executor, brk broker.Broker, store *portfolio.Store, rec recorder.Recorder, notify notifier.Notifier) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		cfg:    cfg,
		data:   data,
		router: router,
		arb:    arb,
		detect: detect,
		exec:   exec,
		brk:    brk,
		store:  store,
		rec:    rec,
		notify: notify,
		loc:    loc,
		now:    time.Now,
	}, nil
}

// RegisterAll registers the interval pipeline and the midnight ledger reset.
func (s *Scheduler) RegisterAll() error {
	spec := fmt.Sprintf("@every %ds", s.cfg.IntervalSeconds)
	if _, err := s.cron.AddFunc(spec, s.RunCycle); err != nil {
		return fmt.Errorf("register cycle task: %w", err)
	}
	// Shortly after midnight exchange time so the first market cycle sees a
	// fresh ledger even if no cycle ran overnight.
	if _, err := s.cron.AddFunc("0 5 0 * * *", s.resetDay); err != nil {
		return fmt.Errorf("register daily reset: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Int("interval_seconds", s.cfg.IntervalSeconds).Msg("scheduler started")
}

// Stop stops the scheduler and blocks until the in-flight cycle finishes, so
// an order submission is never cut off mid-write.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) resetDay() {
	if err := s.store.ResetDay(); err != nil {
		log.Error().Err(err).Msg("daily ledger reset failed")
	}
}

// isMarketOpen reports whether t falls inside the configured session window,
// weekdays only.
func (s *Scheduler) isMarketOpen(t time.Time) bool {
	local := t.In(s.loc)
	switch local.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	open, _ := time.Parse("15:04", s.cfg.MarketOpen)
	close_, _ := time.Parse("15:04", s.cfg.MarketClose)
	minutes := local.Hour()*60 + local.Minute()
	return minutes >= open.Hour()*60+open.Minute() && minutes < close_.Hour()*60+close_.Minute()
}

// RunCycle executes one full pipeline pass. Overlapping runs are skipped;
// a panic inside a cycle is contained so the scheduler keeps running.
func (s *Scheduler) RunCycle() {
	if !s.running.TryLock() {
		log.Warn().Msg("previous cycle still running, skipping")
		return
	}
	defer s.running.Unlock()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("cycle panicked")
		}
	}()

	if !s.isMarketOpen(s.now()) {
		log.Debug().Msg("market closed, skipping cycle")
		return
	}

	start := s.now()
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.IntervalSeconds)*time.Second)
	defer cancel()

	log.Info().Msg("cycle started")
	macroState := s.detect.Evaluate(ctx)
	s.arb.Refresh(ctx, s.data.GetBars)

	indexBars, err := s.data.GetBars(ctx, s.cfg.IndexSymbol, s.cfg.Timespan, s.cfg.BarLimit)
	if err != nil {
		log.Warn().Str("symbol", s.cfg.IndexSymbol).Err(err).Msg("index bars unavailable")
	}

	barsBySymbol := s.fetchBars(ctx)

	signals, trades := s.runEntries(ctx, macroState, indexBars, barsBySymbol)

	exits, err := s.exec.ExitCheck(ctx, macroState.CrashMode)
	if err != nil {
		log.Error().Err(err).Msg("exit check aborted, positions unreadable")
	}

	evt := &recorder.CycleEvent{
		SymbolsScanned: len(barsBySymbol),
		Signals:        signals,
		Trades:         trades,
		Exits:          exits,
		SizeFactor:     macroState.SizeFactor,
		CrashMode:      macroState.CrashMode,
		DurationMS:     time.Since(start).Milliseconds(),
	}
	if err := s.rec.RecordCycle(evt); err != nil {
		log.Warn().Err(err).Msg("cycle journal write failed")
	}
	if trades > 0 || exits > 0 || macroState.CrashMode {
		if err := s.notify.Send(notifier.FormatCycle(evt, macroState)); err != nil {
			log.Warn().Err(err).Msg("cycle notification failed")
		}
	}
	log.Info().Int("symbols", evt.SymbolsScanned).Int("signals", signals).
		Int("trades", trades).Int("exits", exits).
		Int64("duration_ms", evt.DurationMS).Msg("cycle complete")
}

// fetchBars pulls bar series for the whole universe with a bounded worker
// pool. Symbols whose data cannot be fetched are dropped from the cycle.
func (s *Scheduler) fetchBars(ctx context.Context) map[string][]model.Bar {
	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, s.cfg.FetchWorkers)
		out = make(map[string][]model.Bar, len(s.cfg.Symbols))
	)
	for _, sym := range s.cfg.Symbols {
		wg.Add(1)
		sem <- struct{}{}
		go func(sym string) {
			defer wg.Done()
			defer func() { <-sem }()
			bars, err := s.data.GetBars(ctx, sym, s.cfg.Timespan, s.cfg.BarLimit)
			if err != nil {
				log.Warn().Str("symbol", sym).Err(err).Msg("bars unavailable, symbol skipped this cycle")
				return
			}
			mu.Lock()
			out[sym] = bars
			mu.Unlock()
		}(sym)
	}
	wg.Wait()
	return out
}

// runEntries evaluates and executes decisions sequentially so each accepted
// trade shrinks the budget seen by the next. Returns (signals, trades).
func (s *Scheduler) runEntries(ctx context.Context, macroState model.MacroState, indexBars []model.Bar, barsBySymbol map[string][]model.Bar) (int, int) {
	s.router.BeginCycle()

	if !macroState.AllowTrades() {
		log.Warn().Float64("size_factor", macroState.SizeFactor).Msg("macro posture below floor, entries suspended")
		return 0, 0
	}

	open, err := s.brk.ListOpenPositions(ctx)
	if err != nil {
		log.Error().Err(err).Msg("open positions unreadable, entries suspended")
		return 0, 0
	}

	signals, trades := 0, 0
	for _, sym := range s.cfg.Symbols {
		bars, ok := barsBySymbol[sym]
		if !ok {
			continue
		}
		if s.router.CapReached(macroState.CrashMode) {
			log.Info().Msg("crash-mode signal cap reached, remaining symbols skipped")
			break
		}

		decision := s.router.Evaluate(sym, bars, indexBars, nil, 0, macroState)
		if decision.Action != model.ActionHold {
			signals++
		}

		result, err := s.exec.Execute(ctx, decision, macroState, open)
		if err != nil {
			log.Error().Err(err).Msg("brokerage unavailable, execution phase aborted")
			break
		}
		if result.Executed {
			trades++
			open = append(open, model.Position{
				Symbol:       decision.Symbol,
				EntryPrice:   decision.EntryPrice,
				CurrentPrice: decision.EntryPrice,
				EnteredAt:    s.now(),
			})
		}
		if result.StopCycle {
			log.Info().Msg("daily budget exhausted, remaining symbols skipped")
			break
		}
	}
	return signals, trades
}
