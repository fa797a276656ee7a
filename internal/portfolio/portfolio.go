package portfolio

import (
	"math"
	"sort"
	"time"
)

// Portfolio owns cash, at most one position per instrument, and the trade
// ledger. It is single-writer: one Portfolio, one owner; callers must
// serialize access, and every mutation either fully applies or leaves the
// state untouched.
type Portfolio struct {
	initialCapital float64
	cash           float64
	peakValue      float64
	positions      map[string]*Position
	ledger         *Ledger
	now            func() time.Time
}

// New creates a portfolio funded with the given capital. The capital baseline
// is immutable after construction.
func New(initialCapital float64) *Portfolio {
	return &Portfolio{
		initialCapital: initialCapital,
		cash:           initialCapital,
		peakValue:      initialCapital,
		positions:      make(map[string]*Position),
		ledger:         NewLedger(),
		now:            time.Now,
	}
}

// SetClock injects a deterministic clock, used by tests and the backtester
func (p *Portfolio) SetClock(now func() time.Time) {
	p.now = now
}

// Cash returns the current cash balance
func (p *Portfolio) Cash() float64 { return p.cash }

// InitialCapital returns the immutable funding baseline
func (p *Portfolio) InitialCapital() float64 { return p.initialCapital }

// PeakValue returns the highest total value observed so far
func (p *Portfolio) PeakValue() float64 { return p.peakValue }

// Ledger returns the portfolio's trade ledger
func (p *Portfolio) Ledger() *Ledger { return p.ledger }

// NumPositions returns the number of open positions
func (p *Portfolio) NumPositions() int { return len(p.positions) }

// HoldingsValue returns the market value of all open positions
func (p *Portfolio) HoldingsValue() float64 {
	total := 0.0
	for _, pos := range p.positions {
		total += pos.Value()
	}
	return total
}

// TotalValue returns cash plus holdings value
func (p *Portfolio) TotalValue() float64 {
	return p.cash + p.HoldingsValue()
}

// UnrealizedPnL returns the open profit or loss across all positions
func (p *Portfolio) UnrealizedPnL() float64 {
	total := 0.0
	for _, pos := range p.positions {
		total += pos.UnrealizedPnL()
	}
	return total
}

// UnrealizedPnLPercent returns open P&L as a percentage of the capital
// baseline, 0 when the baseline is zero
func (p *Portfolio) UnrealizedPnLPercent() float64 {
	if p.initialCapital == 0 {
		return 0
	}
	return p.UnrealizedPnL() / p.initialCapital * 100
}

// RealizedPnL returns the profit or loss already banked through closed trades
func (p *Portfolio) RealizedPnL() float64 {
	return p.TotalValue() - p.initialCapital - p.UnrealizedPnL()
}

// TotalReturnPercent returns the total return against the capital baseline
func (p *Portfolio) TotalReturnPercent() float64 {
	if p.initialCapital == 0 {
		return 0
	}
	return (p.TotalValue() - p.initialCapital) / p.initialCapital * 100
}

// CashPercent returns cash as a percentage of total value
func (p *Portfolio) CashPercent() float64 {
	value := p.TotalValue()
	if value == 0 {
		return 0
	}
	return p.cash / value * 100
}

// MaxDrawdownPercent returns the decline of the current total value from the
// peak, as a non-positive percentage
func (p *Portfolio) MaxDrawdownPercent() float64 {
	if p.peakValue == 0 {
		return 0
	}
	return (p.TotalValue() - p.peakValue) / p.peakValue * 100
}

// IsCircuitBreakerHit reports whether the drawdown from peak breached the
// threshold, e.g. -30 for a 30% portfolio-wide breaker
func (p *Portfolio) IsCircuitBreakerHit(thresholdPercent float64) bool {
	return p.MaxDrawdownPercent() <= thresholdPercent
}

// Position returns a copy of the position for the symbol
func (p *Portfolio) Position(symbol string) (Position, bool) {
	pos, ok := p.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Positions returns copies of all open positions, ordered by symbol
func (p *Portfolio) Positions() []Position {
	out := make([]Position, 0, len(p.positions))
	for _, symbol := range p.Held() {
		out = append(out, *p.positions[symbol])
	}
	return out
}

// Held returns the held symbols in sorted order
func (p *Portfolio) Held() []string {
	symbols := make([]string, 0, len(p.positions))
	for symbol := range p.positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}

// AddPosition buys shares at the price, merging into an existing position for
// the same symbol. Returns false without mutating anything when the cost
// exceeds available cash or the inputs are invalid.
func (p *Portfolio) AddPosition(symbol string, price float64, shares int64, score float64) bool {
	if shares <= 0 || price <= 0 {
		return false
	}
	cost := price * float64(shares)
	if cost > p.cash {
		return false
	}

	if pos, ok := p.positions[symbol]; ok {
		pos.Shares += shares
		pos.updatePrice(price)
	} else {
		p.positions[symbol] = &Position{
			Symbol:       symbol,
			Shares:       shares,
			EntryPrice:   price,
			CurrentPrice: price,
			EntryScore:   score,
			EntryTime:    p.now(),
			PeakPrice:    price,
		}
	}

	p.cash -= cost
	s := score
	p.ledger.Append(Trade{
		Timestamp: p.now(),
		Symbol:    symbol,
		Kind:      TradeBuy,
		Price:     price,
		Shares:    shares,
		Score:     &s,
	})
	p.updatePeak()
	return true
}

// RemovePosition closes the position at the price, crediting the proceeds.
// Returns false when no such position exists.
func (p *Portfolio) RemovePosition(symbol string, price float64) bool {
	return p.closePosition(symbol, price, TradeSell, "")
}

// RotatePosition closes one position and opens another funded entirely by the
// proceeds. Returns false without mutating anything when the source position
// is missing or the proceeds buy zero shares.
func (p *Portfolio) RotatePosition(from string, fromPrice float64, to string, toPrice float64, newScore float64) bool {
	pos, ok := p.positions[from]
	if !ok || fromPrice <= 0 || toPrice <= 0 {
		return false
	}

	proceeds := float64(pos.Shares) * fromPrice
	newShares := int64(math.Floor(proceeds / toPrice))
	if newShares == 0 {
		return false
	}

	if !p.closePosition(from, fromPrice, TradeRotationOut, "rotation to "+to) {
		return false
	}

	cost := float64(newShares) * toPrice
	p.cash -= cost
	s := newScore
	p.ledger.Append(Trade{
		Timestamp: p.now(),
		Symbol:    to,
		Kind:      TradeRotationIn,
		Price:     toPrice,
		Shares:    newShares,
		Score:     &s,
		Reason:    "rotation from " + from,
	})
	p.positions[to] = &Position{
		Symbol:       to,
		Shares:       newShares,
		EntryPrice:   toPrice,
		CurrentPrice: toPrice,
		EntryScore:   newScore,
		EntryTime:    p.now(),
		PeakPrice:    toPrice,
	}
	p.updatePeak()
	return true
}

// UpdatePrices marks every held instrument present in the map to its new
// price, ratcheting per-position peaks and the portfolio peak
func (p *Portfolio) UpdatePrices(prices map[string]float64) {
	for symbol, price := range prices {
		if pos, ok := p.positions[symbol]; ok {
			pos.updatePrice(price)
		}
	}
	p.updatePeak()
}

func (p *Portfolio) closePosition(symbol string, price float64, kind TradeKind, reason string) bool {
	pos, ok := p.positions[symbol]
	if !ok || price <= 0 {
		return false
	}

	proceeds := float64(pos.Shares) * price
	s := pos.EntryScore
	p.ledger.Append(Trade{
		Timestamp: p.now(),
		Symbol:    symbol,
		Kind:      kind,
		Price:     price,
		Shares:    pos.Shares,
		Score:     &s,
		Reason:    reason,
	})
	p.cash += proceeds
	delete(p.positions, symbol)
	p.updatePeak()
	return true
}

// updatePeak ratchets the peak total value after value-increasing events
func (p *Portfolio) updatePeak() {
	if value := p.TotalValue(); value > p.peakValue {
		p.peakValue = value
	}
}
