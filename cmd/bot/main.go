package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"TradePilot/internal/broker"
	"TradePilot/internal/config"
	"TradePilot/internal/executor"
	"TradePilot/internal/macro"
	"TradePilot/internal/marketdata"
	"TradePilot/internal/notifier"
	"TradePilot/internal/portfolio"
	"TradePilot/internal/recorder"
	"TradePilot/internal/risk"
	"TradePilot/internal/scheduler"
	"TradePilot/internal/strategy"
	"TradePilot/internal/universe"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Info().Msg("TradePilot starting")

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("config validation")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	}

	symbols, err := universe.Load(cfg.Universe.Symbols, cfg.Universe.FallbackCSV)
	if err != nil {
		log.Fatal().Err(err).Msg("load universe")
	}
	log.Info().Int("count", len(symbols)).Msg("universe resolved")

	// Providers are registered only when credentials exist; failover order
	// follows registration order.
	timeout := time.Duration(cfg.Providers.TimeoutSeconds) * time.Second
	var providers []marketdata.Provider
	if cfg.Providers.AlpacaKey != "" {
		providers = append(providers, marketdata.NewAlpacaProvider(cfg.Providers.AlpacaDataURL, cfg.Providers.AlpacaKey, cfg.Providers.AlpacaSecret, timeout))
	}
	if cfg.Providers.TwelveDataKey != "" {
		providers = append(providers, marketdata.NewTwelveDataProvider(cfg.Providers.TwelveDataKey, timeout))
	}
	if cfg.Providers.AlphaVantageKey != "" {
		providers = append(providers, marketdata.NewAlphaVantageProvider(cfg.Providers.AlphaVantageKey, timeout))
	}
	if len(providers) == 0 {
		log.Fatal().Msg("no market data provider credentials configured")
	}
	data := marketdata.NewRouter(cfg.Providers.RateLimitRPS, providers...)
	for _, p := range providers {
		log.Info().Str("provider", p.Name()).Msg("market data provider registered")
	}

	store, err := portfolio.NewStore(cfg.Portfolio.StateFile, cfg.Risk.InitialEquity)
	if err != nil {
		log.Fatal().Err(err).Msg("init portfolio store")
	}

	brk := broker.NewAlpacaBroker(cfg.Broker.TradingURL, cfg.Providers.AlpacaKey, cfg.Providers.AlpacaSecret, timeout)

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
			defer sr.Close()
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	var notify notifier.Notifier
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		notify = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, "")
		log.Info().Msg("telegram notifier enabled")
	} else {
		notify = notifier.NewNoopNotifier()
	}

	classifier := strategy.NewLogisticClassifier()
	arb := strategy.NewETFArbitrage(cfg.Strategy.Timespan)
	router := strategy.NewRouter(classifier, cfg.Strategy.CrashSignalCap,
		strategy.NewMomentum(cfg.Strategy.MinMLScore, cfg.Strategy.CrashMLDelta),
		strategy.NewMeanReversion(cfg.Strategy.MinMLScoreMeanRev, cfg.Strategy.CrashMLDelta),
		arb,
		strategy.NewMLProbability(cfg.Strategy.CrashMLDelta),
	)

	detect := macro.NewDetector(data, macro.Config{
		IndexSymbol:     cfg.Macro.IndexSymbol,
		VolSymbol:       cfg.Macro.VolSymbol,
		TrendMinutes:    cfg.Macro.TrendMinutes,
		VolThreshold:    cfg.Macro.VolThreshold,
		IndexReduce:     cfg.Macro.IndexReduce,
		VolReduce:       cfg.Macro.VolReduce,
		MinSizeFactor:   cfg.Macro.MinSizeFactor,
		CrashDropPct:    cfg.Macro.CrashDropPct,
		CrashBarMinutes: cfg.Macro.CrashBarMinutes,
	})

	params := risk.Params{
		InitialEquity:      cfg.Risk.InitialEquity,
		DailyBudget:        cfg.Risk.DailyBudget,
		MaxPositions:       cfg.Risk.MaxPositions,
		MaxPositionsCrash:  cfg.Risk.MaxPositionsCrash,
		MaxPositionPct:     cfg.Risk.MaxPositionPct,
		RiskPerTradePct:    cfg.Risk.RiskPerTradePct,
		MaxDailyLossPct:    cfg.Risk.MaxDailyLossPct,
		MinConfidence:      cfg.Risk.MinConfidence,
		ATRMultiplier:      cfg.Risk.ATRMultiplier,
		AllocationRatio:    cfg.Risk.AllocationRatio,
		TakeProfitPct:      cfg.Risk.TakeProfitPct,
		StopLossPct:        cfg.Risk.StopLossPct,
		CrashTakeProfitPct: cfg.Risk.CrashTakeProfitPct,
		CrashStopLossPct:   cfg.Risk.CrashStopLossPct,
		HoldMax:            time.Duration(cfg.Risk.HoldMinutes) * time.Minute,
		CrashHoldMax:       time.Duration(cfg.Risk.CrashHoldMinutes) * time.Minute,
	}

	exec := executor.New(brk, store, params, rec, notify, data, cfg.Strategy.Timespan, cfg.Strategy.BarLimit)

	sched, err := scheduler.New(scheduler.Config{
		Symbols:         symbols,
		IntervalSeconds: cfg.Schedule.IntervalSeconds,
		MarketOpen:      cfg.Schedule.MarketOpen,
		MarketClose:     cfg.Schedule.MarketClose,
		Timezone:        cfg.Schedule.Timezone,
		FetchWorkers:    cfg.Schedule.FetchWorkers,
		Timespan:        cfg.Strategy.Timespan,
		BarLimit:        cfg.Strategy.BarLimit,
		IndexSymbol:     cfg.Macro.IndexSymbol,
	}, data, router, arb, detect, exec, brk, store, rec, notify)
	if err != nil {
		log.Fatal().Err(err).Msg("init scheduler")
	}
	if err := sched.RegisterAll(); err != nil {
		log.Fatal().Err(err).Msg("register cron tasks")
	}
	sched.Start()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, executing cycle now")
		go sched.RunCycle()
	}

	log.Info().Msg("TradePilot is running, press Ctrl+C to stop")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping")
	sched.Stop()
	log.Info().Msg("TradePilot stopped")
}
