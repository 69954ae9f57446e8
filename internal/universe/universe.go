package universe

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// Load resolves the tradable symbol list: configured symbols first, then the
// first column of the fallback CSV, with a recognizable header row skipped.
// Symbols are upper-cased and de-duplicated, order preserved.
func Load(configured []string, fallbackCSV string) ([]string, error) {
	if len(configured) > 0 {
		return dedupe(configured), nil
	}
	if fallbackCSV == "" {
		return nil, fmt.Errorf("no symbols configured and no fallback csv")
	}

	f, err := os.Open(fallbackCSV)
	if err != nil {
		return nil, fmt.Errorf("open universe csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse universe csv: %w", err)
	}

	var symbols []string
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		sym := strings.TrimSpace(row[0])
		if sym == "" {
			continue
		}
		if i == 0 && isHeader(sym) {
			continue
		}
		symbols = append(symbols, sym)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("universe csv %s contains no symbols", fallbackCSV)
	}
	log.Info().Int("count", len(symbols)).Str("path", fallbackCSV).Msg("universe loaded from csv")
	return dedupe(symbols), nil
}

func isHeader(s string) bool {
	switch strings.ToLower(s) {
	case "symbol", "symbols", "ticker", "tickers":
		return true
	}
	return false
}

func dedupe(symbols []string) []string {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		sym := strings.ToUpper(strings.TrimSpace(s))
		if sym == "" {
			continue
		}
		if _, ok := seen[sym]; ok {
			continue
		}
		seen[sym] = struct{}{}
		out = append(out, sym)
	}
	return out
}
