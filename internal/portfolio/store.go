package portfolio

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"TradePilot/internal/model"
)

// Store owns the persisted daily ledger. All reads and mutations go through
// one mutex; the date invariant (state.Date == today) is re-established on
// every access.
type Store struct {
	mu       sync.Mutex
	state    *model.PortfolioState
	filePath string
	now      func() time.Time
}

// NewStore loads or initializes the ledger from disk.
func NewStore(filePath string, initialEquity float64) (*Store, error) {
	s := &Store{
		state:    LoadState(filePath),
		filePath: filePath,
		now:      time.Now,
	}
	if s.state.Equity == 0 {
		s.state.Equity = initialEquity
	}
	s.ensureTodayLocked()
	if err := s.saveLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) today() string {
	return s.now().Format("2006-01-02")
}

// ensureTodayLocked resets the ledger at the day boundary, carrying equity
// forward. Caller holds the lock (or is inside construction).
func (s *Store) ensureTodayLocked() {
	today := s.today()
	if s.state.Date == today {
		return
	}
	if s.state.Date != "" {
		log.Info().Str("from", s.state.Date).Str("to", today).Msg("portfolio day boundary, resetting ledger")
	}
	s.state.Date = today
	s.state.DailyPnL = 0
	s.state.BudgetUsed = 0
	s.state.Positions = nil
}

func (s *Store) saveLocked() error {
	return SaveState(s.filePath, s.state)
}

// State returns a copy of the current ledger, reset to today if stale.
func (s *Store) State() model.PortfolioState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureTodayLocked()
	copied := *s.state
	copied.Positions = append([]model.TradeRecord(nil), s.state.Positions...)
	return copied
}

// RemainingBudget returns how much of the daily budget is still unspent.
func (s *Store) RemainingBudget(dailyBudget float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureTodayLocked()
	remaining := dailyBudget - s.state.BudgetUsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecordTrade appends an executed entry and persists immediately.
func (s *Store) RecordTrade(rec model.TradeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureTodayLocked()
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}
	s.state.Positions = append(s.state.Positions, rec)
	s.state.BudgetUsed += float64(rec.Qty) * rec.Price
	return s.saveLocked()
}

// UpdateDailyPnL adds a realized P&L delta and persists.
func (s *Store) UpdateDailyPnL(delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureTodayLocked()
	s.state.DailyPnL += delta
	return s.saveLocked()
}

// ResetDay forces the day-boundary reset, for the scheduled midnight job.
func (s *Store) ResetDay() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Date = "" // force
	s.ensureTodayLocked()
	return s.saveLocked()
}
