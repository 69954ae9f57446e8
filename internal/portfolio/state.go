package portfolio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"TradePilot/internal/model"
)

// LoadState reads the portfolio ledger from a JSON file. A missing file
// yields a zero state; a corrupt file is logged as a warning and also yields
// a zero state, never an error the caller must handle.
func LoadState(filePath string) *model.PortfolioState {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", filePath).Msg("portfolio state unreadable, starting empty")
		}
		return &model.PortfolioState{}
	}
	var state model.PortfolioState
	if err := json.Unmarshal(data, &state); err != nil {
		log.Warn().Err(err).Str("path", filePath).Msg("portfolio state corrupted, starting empty")
		return &model.PortfolioState{}
	}
	return &state
}

// SaveState writes the ledger to disk. Write-through: called after every
// mutation so a crash loses at most the in-flight trade.
func SaveState(filePath string, state *model.PortfolioState) error {
	if dir := filepath.Dir(filePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	return os.WriteFile(filePath, data, 0644)
}
