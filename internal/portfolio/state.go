package portfolio

import (
	"time"
)

// State is the serializable snapshot of a portfolio. The core mandates no
// persistence format; callers that want durability marshal this however they
// like and restore with FromState.
type State struct {
	CreatedAt      time.Time  `json:"created_at"`
	InitialCapital float64    `json:"initial_capital"`
	Cash           float64    `json:"cash"`
	PeakValue      float64    `json:"peak_value"`
	Positions      []Position `json:"positions"`
	Trades         []Trade    `json:"trades"`
}

// State captures the portfolio for serialization
func (p *Portfolio) State() State {
	return State{
		CreatedAt:      p.now(),
		InitialCapital: p.initialCapital,
		Cash:           p.cash,
		PeakValue:      p.peakValue,
		Positions:      p.Positions(),
		Trades:         p.ledger.Trades(),
	}
}

// FromState reconstructs a portfolio from a captured snapshot
func FromState(s State) *Portfolio {
	p := New(s.InitialCapital)
	p.cash = s.Cash
	if s.PeakValue > 0 {
		p.peakValue = s.PeakValue
	}
	for i := range s.Positions {
		pos := s.Positions[i]
		p.positions[pos.Symbol] = &pos
	}
	for _, t := range s.Trades {
		p.ledger.trades = append(p.ledger.trades, t)
		if t.ID >= p.ledger.nextID {
			p.ledger.nextID = t.ID + 1
		}
	}
	return p
}
