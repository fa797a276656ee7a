package portfolio

import (
	"time"
)

// Position is a single holding, owned exclusively by one Portfolio. Callers
// receive value copies; mutation happens only through Portfolio operations.
type Position struct {
	Symbol       string    `json:"symbol"`
	Shares       int64     `json:"shares"`
	EntryPrice   float64   `json:"entry_price"`
	CurrentPrice float64   `json:"current_price"`
	EntryScore   float64   `json:"entry_score"`
	EntryTime    time.Time `json:"entry_time"`
	PeakPrice    float64   `json:"peak_price"` // >= max(entry, current), ratchets on update
}

// EntryValue returns the position's cost basis
func (p *Position) EntryValue() float64 {
	return float64(p.Shares) * p.EntryPrice
}

// Value returns the position's current market value
func (p *Position) Value() float64 {
	return float64(p.Shares) * p.CurrentPrice
}

// UnrealizedPnL returns the open profit or loss in currency units
func (p *Position) UnrealizedPnL() float64 {
	return p.Value() - p.EntryValue()
}

// UnrealizedPnLPercent returns the open profit or loss as a percentage of the
// cost basis, 0 when the basis is zero
func (p *Position) UnrealizedPnLPercent() float64 {
	basis := p.EntryValue()
	if basis == 0 {
		return 0
	}
	return p.UnrealizedPnL() / basis * 100
}

// DrawdownFromPeakPercent returns the decline of the current price from the
// position's peak price, as a non-positive percentage
func (p *Position) DrawdownFromPeakPercent() float64 {
	if p.PeakPrice == 0 {
		return 0
	}
	return (p.CurrentPrice - p.PeakPrice) / p.PeakPrice * 100
}

// IsStopLossHit reports whether the unrealized P&L breached the threshold,
// e.g. -15 for a 15% stop
func (p *Position) IsStopLossHit(thresholdPercent float64) bool {
	return p.UnrealizedPnLPercent() <= thresholdPercent
}

// updatePrice sets the current price and ratchets the peak upward
func (p *Position) updatePrice(price float64) {
	p.CurrentPrice = price
	if price > p.PeakPrice {
		p.PeakPrice = price
	}
}
