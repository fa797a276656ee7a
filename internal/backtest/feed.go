package backtest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/quantbyte/rotor/internal/market"
)

// ErrNoData is returned when a feed has nothing for a symbol at a date
var ErrNoData = errors.New("no data for symbol at date")

// HistoricalFeed supplies point-in-time series to the simulator. SeriesUpTo
// must never return candles after asOf: lookahead in a backtest is a silent
// correctness bug, not a performance concern.
type HistoricalFeed interface {
	SeriesUpTo(symbol string, asOf time.Time) (market.Series, error)
	PriceAt(symbol string, asOf time.Time) (float64, error)
}

// MemoryFeed serves preloaded series, used by tests and the CSV loader
type MemoryFeed struct {
	series map[string]market.Series
}

// NewMemoryFeed creates an empty in-memory feed
func NewMemoryFeed() *MemoryFeed {
	return &MemoryFeed{series: make(map[string]market.Series)}
}

// Add registers the full series for a symbol, replacing any previous one
func (f *MemoryFeed) Add(symbol string, s market.Series) {
	f.series[symbol] = s
}

// Symbols returns the symbols the feed knows about
func (f *MemoryFeed) Symbols() []string {
	out := make([]string, 0, len(f.series))
	for symbol := range f.series {
		out = append(out, symbol)
	}
	return out
}

// SeriesUpTo returns the candles at or before asOf
func (f *MemoryFeed) SeriesUpTo(symbol string, asOf time.Time) (market.Series, error) {
	s, ok := f.series[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoData, symbol)
	}
	trimmed := s.UpTo(asOf)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: %s before %s", ErrNoData, symbol, asOf.Format("2006-01-02"))
	}
	return trimmed, nil
}

// PriceAt returns the most recent close at or before asOf
func (f *MemoryFeed) PriceAt(symbol string, asOf time.Time) (float64, error) {
	s, err := f.SeriesUpTo(symbol, asOf)
	if err != nil {
		return 0, err
	}
	return s.LastClose(), nil
}

// LoadCSVDir builds a feed from a directory of <SYMBOL>.csv files with the
// header date,open,high,low,close,volume and dates formatted 2006-01-02
func LoadCSVDir(dir string) (*MemoryFeed, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	feed := NewMemoryFeed()
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".csv") {
			continue
		}
		symbol := strings.ToUpper(strings.TrimSuffix(name, ".csv"))
		series, err := loadCSVFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", name, err)
		}
		feed.Add(symbol, series)
	}
	if len(feed.series) == 0 {
		return nil, fmt.Errorf("no csv files in %s", dir)
	}
	return feed, nil
}

func loadCSVFile(path string) (market.Series, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 6

	// Header row
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("missing header: %w", err)
	}

	var series market.Series
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		candle, err := parseCandle(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		series = append(series, candle)
	}
	if len(series) == 0 {
		return nil, errors.New("no rows")
	}
	return series, nil
}

func parseCandle(record []string) (market.Candle, error) {
	var c market.Candle

	t, err := time.Parse("2006-01-02", record[0])
	if err != nil {
		return c, fmt.Errorf("bad date %q: %w", record[0], err)
	}
	c.Time = t

	fields := []struct {
		name string
		dst  *float64
	}{
		{"open", &c.Open},
		{"high", &c.High},
		{"low", &c.Low},
		{"close", &c.Close},
		{"volume", &c.Volume},
	}
	for i, f := range fields {
		v, err := strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return c, fmt.Errorf("bad %s %q: %w", f.name, record[i+1], err)
		}
		*f.dst = v
	}
	return c, nil
}
