package portfolio

import (
	"time"
)

// TradeKind classifies a ledger record
type TradeKind int

const (
	TradeBuy TradeKind = iota
	TradeSell
	TradeRotationIn
	TradeRotationOut
)

func (k TradeKind) String() string {
	switch k {
	case TradeBuy:
		return "BUY"
	case TradeSell:
		return "SELL"
	case TradeRotationIn:
		return "ROTATION_IN"
	case TradeRotationOut:
		return "ROTATION_OUT"
	default:
		return "UNKNOWN"
	}
}

// Trade is an immutable append-only execution record
type Trade struct {
	ID         int64     `json:"id" db:"id"`
	Timestamp  time.Time `json:"timestamp" db:"ts"`
	Symbol     string    `json:"symbol" db:"symbol"`
	Kind       TradeKind `json:"kind" db:"kind"`
	Price      float64   `json:"price" db:"price"`
	Shares     int64     `json:"shares" db:"shares"`
	TotalValue float64   `json:"total_value" db:"total_value"`
	Score      *float64  `json:"score,omitempty" db:"score"`
	Reason     string    `json:"reason,omitempty" db:"reason"`
}

// Ledger owns the append-only trade sequence and assigns monotonically
// increasing ids. Records are never mutated or deleted except by an explicit
// Reset before re-running a backtest.
type Ledger struct {
	nextID int64
	trades []Trade
}

// NewLedger creates an empty trade ledger
func NewLedger() *Ledger {
	return &Ledger{nextID: 1}
}

// Append records a trade, assigning its id and total value
func (l *Ledger) Append(t Trade) Trade {
	t.ID = l.nextID
	l.nextID++
	t.TotalValue = t.Price * float64(t.Shares)
	l.trades = append(l.trades, t)
	return t
}

// Trades returns a copy of the recorded sequence
func (l *Ledger) Trades() []Trade {
	out := make([]Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// Len returns the number of recorded trades
func (l *Ledger) Len() int {
	return len(l.trades)
}

// Reset clears the ledger. Used only when re-running a backtest.
func (l *Ledger) Reset() {
	l.nextID = 1
	l.trades = nil
}
