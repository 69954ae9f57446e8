package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Providers struct {
		AlpacaKey       string `yaml:"alpaca_key"`
		AlpacaSecret    string `yaml:"alpaca_secret"`
		AlpacaDataURL   string `yaml:"alpaca_data_url"`
		TwelveDataKey   string `yaml:"twelvedata_key"`
		AlphaVantageKey string `yaml:"alphavantage_key"`
		TimeoutSeconds  int    `yaml:"timeout_seconds"`
		RateLimitRPS    float64 `yaml:"rate_limit_rps"`
	} `yaml:"providers"`
	Broker struct {
		TradingURL string `yaml:"trading_url"`
	} `yaml:"broker"`
	Universe struct {
		Symbols     []string `yaml:"symbols"`
		FallbackCSV string   `yaml:"fallback_csv"`
	} `yaml:"universe"`
	Macro struct {
		IndexSymbol      string  `yaml:"index_symbol"`
		VolSymbol        string  `yaml:"vol_symbol"`
		TrendMinutes     int     `yaml:"trend_minutes"`
		VolThreshold     float64 `yaml:"vol_threshold"`
		IndexReduce      float64 `yaml:"index_reduce_factor"`
		VolReduce        float64 `yaml:"vol_reduce_factor"`
		MinSizeFactor    float64 `yaml:"min_size_factor"`
		CrashDropPct     float64 `yaml:"crash_drop_pct"` // two-bar drop tripping crash mode
		CrashBarMinutes  int     `yaml:"crash_bar_minutes"`
	} `yaml:"macro"`
	Risk struct {
		InitialEquity      float64 `yaml:"initial_equity"`
		DailyBudget        float64 `yaml:"daily_budget"`
		MaxPositions       int     `yaml:"max_positions"`
		MaxPositionsCrash  int     `yaml:"max_positions_crash"`
		MaxPositionPct     float64 `yaml:"max_position_pct"`
		RiskPerTradePct    float64 `yaml:"risk_per_trade_pct"`
		MaxDailyLossPct    float64 `yaml:"max_daily_loss_pct"`
		MinConfidence      float64 `yaml:"min_confidence"`
		ATRMultiplier      float64 `yaml:"atr_multiplier"`
		AllocationRatio    float64 `yaml:"allocation_ratio"`
		TakeProfitPct      float64 `yaml:"take_profit_pct"`
		StopLossPct        float64 `yaml:"stop_loss_pct"`
		CrashTakeProfitPct float64 `yaml:"crash_take_profit_pct"`
		CrashStopLossPct   float64 `yaml:"crash_stop_loss_pct"`
		HoldMinutes        int     `yaml:"hold_minutes"`
		CrashHoldMinutes   int     `yaml:"crash_hold_minutes"`
	} `yaml:"risk"`
	Strategy struct {
		Timespan          string  `yaml:"timespan"`
		BarLimit          int     `yaml:"bar_limit"`
		MinMLScore        float64 `yaml:"min_ml_score"`
		MinMLScoreMeanRev float64 `yaml:"min_ml_score_mean_reversion"`
		CrashMLDelta      float64 `yaml:"crash_ml_delta"` // subtracted from cutoffs in crash mode
		CrashSignalCap    int     `yaml:"crash_signal_cap"`
	} `yaml:"strategy"`
	Schedule struct {
		IntervalSeconds int    `yaml:"interval_seconds"`
		MarketOpen      string `yaml:"market_open"`  // HH:MM, exchange local time
		MarketClose     string `yaml:"market_close"` // HH:MM
		Timezone        string `yaml:"timezone"`
		FetchWorkers    int    `yaml:"fetch_workers"`
	} `yaml:"schedule"`
	Portfolio struct {
		StateFile string `yaml:"state_file"`
	} `yaml:"portfolio"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	LogLevel string `yaml:"log_level"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Providers.AlpacaKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Providers.AlpacaSecret = v
	}
	if v := os.Getenv("TWELVEDATA_API_KEY"); v != "" {
		cfg.Providers.TwelveDataKey = v
	}
	if v := os.Getenv("ALPHAVANTAGE_API_KEY"); v != "" {
		cfg.Providers.AlphaVantageKey = v
	}
	if v := os.Getenv("ALPACA_TRADING_URL"); v != "" {
		cfg.Broker.TradingURL = v
	}
	if v := os.Getenv("UNIVERSE_SYMBOLS"); v != "" {
		cfg.Universe.Symbols = splitSymbols(v)
	}
	if v := os.Getenv("DAILY_BUDGET_USD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Risk.DailyBudget = f
		}
	}
	if v := os.Getenv("MAX_POSITIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Risk.MaxPositions = n
		}
	}
	if v := os.Getenv("SCHEDULER_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Schedule.IntervalSeconds = n
		}
	}
	if v := os.Getenv("PORTFOLIO_STATE_PATH"); v != "" {
		cfg.Portfolio.StateFile = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func splitSymbols(s string) []string {
	var out []string
	for _, tok := range strings.Split(s, ",") {
		tok = strings.ToUpper(strings.TrimSpace(tok))
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

func (c *Config) applyDefaults() {
	if c.Providers.AlpacaDataURL == "" {
		c.Providers.AlpacaDataURL = "https://data.alpaca.markets/v2"
	}
	if c.Providers.TimeoutSeconds == 0 {
		c.Providers.TimeoutSeconds = 5
	}
	if c.Providers.RateLimitRPS == 0 {
		c.Providers.RateLimitRPS = 3
	}
	if c.Broker.TradingURL == "" {
		c.Broker.TradingURL = "https://paper-api.alpaca.markets"
	}
	if len(c.Universe.Symbols) == 0 && c.Universe.FallbackCSV == "" {
		c.Universe.Symbols = []string{"AAPL", "MSFT", "TSLA"}
	}
	if c.Macro.IndexSymbol == "" {
		c.Macro.IndexSymbol = "SPY"
	}
	if c.Macro.VolSymbol == "" {
		c.Macro.VolSymbol = "VIX"
	}
	if c.Macro.TrendMinutes == 0 {
		c.Macro.TrendMinutes = 30
	}
	if c.Macro.VolThreshold == 0 {
		c.Macro.VolThreshold = 25.0
	}
	if c.Macro.IndexReduce == 0 {
		c.Macro.IndexReduce = 0.5
	}
	if c.Macro.VolReduce == 0 {
		c.Macro.VolReduce = 0.5
	}
	if c.Macro.MinSizeFactor == 0 {
		c.Macro.MinSizeFactor = 0.2
	}
	if c.Macro.CrashDropPct == 0 {
		c.Macro.CrashDropPct = 0.002
	}
	if c.Macro.CrashBarMinutes == 0 {
		c.Macro.CrashBarMinutes = 5
	}
	if c.Risk.InitialEquity == 0 {
		c.Risk.InitialEquity = 100000
	}
	if c.Risk.DailyBudget == 0 {
		c.Risk.DailyBudget = 10000
	}
	if c.Risk.MaxPositions == 0 {
		c.Risk.MaxPositions = 10
	}
	if c.Risk.MaxPositionsCrash == 0 {
		c.Risk.MaxPositionsCrash = 3
	}
	if c.Risk.MaxPositionPct == 0 {
		c.Risk.MaxPositionPct = 0.10
	}
	if c.Risk.RiskPerTradePct == 0 {
		c.Risk.RiskPerTradePct = 0.02
	}
	if c.Risk.MaxDailyLossPct == 0 {
		c.Risk.MaxDailyLossPct = 0.03
	}
	if c.Risk.MinConfidence == 0 {
		c.Risk.MinConfidence = 0.45
	}
	if c.Risk.ATRMultiplier == 0 {
		c.Risk.ATRMultiplier = 2.5
	}
	if c.Risk.AllocationRatio == 0 {
		c.Risk.AllocationRatio = 0.10
	}
	if c.Risk.TakeProfitPct == 0 {
		c.Risk.TakeProfitPct = 0.04
	}
	if c.Risk.StopLossPct == 0 {
		c.Risk.StopLossPct = 0.02
	}
	if c.Risk.CrashTakeProfitPct == 0 {
		c.Risk.CrashTakeProfitPct = 0.02
	}
	if c.Risk.CrashStopLossPct == 0 {
		c.Risk.CrashStopLossPct = 0.01
	}
	if c.Risk.HoldMinutes == 0 {
		c.Risk.HoldMinutes = 90
	}
	if c.Risk.CrashHoldMinutes == 0 {
		c.Risk.CrashHoldMinutes = 60
	}
	if c.Strategy.Timespan == "" {
		c.Strategy.Timespan = "1day"
	}
	if c.Strategy.BarLimit == 0 {
		c.Strategy.BarLimit = 120
	}
	if c.Strategy.MinMLScore == 0 {
		c.Strategy.MinMLScore = 0.60
	}
	if c.Strategy.MinMLScoreMeanRev == 0 {
		c.Strategy.MinMLScoreMeanRev = 0.50
	}
	if c.Strategy.CrashMLDelta == 0 {
		c.Strategy.CrashMLDelta = 0.10
	}
	if c.Strategy.CrashSignalCap == 0 {
		c.Strategy.CrashSignalCap = 3
	}
	if c.Schedule.IntervalSeconds == 0 {
		c.Schedule.IntervalSeconds = 900
	}
	if c.Schedule.MarketOpen == "" {
		c.Schedule.MarketOpen = "09:30"
	}
	if c.Schedule.MarketClose == "" {
		c.Schedule.MarketClose = "16:00"
	}
	if c.Schedule.Timezone == "" {
		c.Schedule.Timezone = "America/New_York"
	}
	if c.Schedule.FetchWorkers == 0 {
		c.Schedule.FetchWorkers = 4
	}
	if c.Portfolio.StateFile == "" {
		c.Portfolio.StateFile = "data/portfolio_state.json"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Validate checks that all required fields are set and sane.
func (c *Config) Validate() error {
	if c.Risk.DailyBudget <= 0 {
		return fmt.Errorf("risk.daily_budget must be positive")
	}
	if c.Risk.MaxPositions <= 0 {
		return fmt.Errorf("risk.max_positions must be positive")
	}
	if c.Risk.MinConfidence < 0 || c.Risk.MinConfidence > 1 {
		return fmt.Errorf("risk.min_confidence must be in [0,1]")
	}
	if c.Macro.MinSizeFactor <= 0 || c.Macro.MinSizeFactor > 1 {
		return fmt.Errorf("macro.min_size_factor must be in (0,1]")
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	for _, field := range []struct {
		name, val string
	}{
		{"schedule.market_open", c.Schedule.MarketOpen},
		{"schedule.market_close", c.Schedule.MarketClose},
	} {
		if _, err := time.Parse("15:04", field.val); err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
	}
	return nil
}
