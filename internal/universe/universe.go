package universe

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v2"
)

// DefaultSymbols seeds a fresh watchlist: large-cap momentum names plus a
// handful of high-beta growth candidates
var DefaultSymbols = []string{
	"NVDA", "AMD", "SMCI", "AVGO", "MRVL",
	"TSLA", "RIVN", "PLTR", "CRWD", "NET",
	"DDOG", "ANET", "PANW", "COIN", "MSTR",
}

// Universe is the candidate watchlist the scanner and scorer operate on
type Universe struct {
	Symbols []string `yaml:"symbols"`
}

// Default returns a universe seeded with the default watchlist
func Default() *Universe {
	return &Universe{Symbols: append([]string(nil), DefaultSymbols...)}
}

// Load reads a watchlist file, falling back to the default seed when the
// file does not exist
func Load(path string) (*Universe, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		log.Info().Str("path", path).Msg("no universe file, using default watchlist")
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read universe: %w", err)
	}

	var u Universe
	if err := yaml.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("failed to parse universe YAML: %w", err)
	}
	if len(u.Symbols) == 0 {
		return nil, fmt.Errorf("universe file %s lists no symbols", path)
	}
	u.normalize()
	return &u, nil
}

// Save writes the watchlist to disk
func (u *Universe) Save(path string) error {
	data, err := yaml.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal universe: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write universe: %w", err)
	}
	return nil
}

// Contains reports whether the symbol is on the watchlist
func (u *Universe) Contains(symbol string) bool {
	symbol = canonical(symbol)
	for _, s := range u.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

// Add puts a symbol on the watchlist, false when already present
func (u *Universe) Add(symbol string) bool {
	symbol = canonical(symbol)
	if symbol == "" || u.Contains(symbol) {
		return false
	}
	u.Symbols = append(u.Symbols, symbol)
	sort.Strings(u.Symbols)
	return true
}

// Remove takes a symbol off the watchlist, false when absent
func (u *Universe) Remove(symbol string) bool {
	symbol = canonical(symbol)
	for i, s := range u.Symbols {
		if s == symbol {
			u.Symbols = append(u.Symbols[:i], u.Symbols[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the watchlist size
func (u *Universe) Len() int {
	return len(u.Symbols)
}

func (u *Universe) normalize() {
	seen := make(map[string]bool, len(u.Symbols))
	out := u.Symbols[:0]
	for _, s := range u.Symbols {
		s = canonical(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	u.Symbols = out
	sort.Strings(u.Symbols)
}

func canonical(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
