package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/quantbyte/rotor/internal/persistence"
	"github.com/quantbyte/rotor/internal/portfolio"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id          BIGSERIAL PRIMARY KEY,
	ledger_id   BIGINT           NOT NULL,
	ts          TIMESTAMPTZ      NOT NULL,
	symbol      TEXT             NOT NULL,
	kind        TEXT             NOT NULL,
	price       DOUBLE PRECISION NOT NULL,
	shares      BIGINT           NOT NULL,
	total_value DOUBLE PRECISION NOT NULL,
	score       DOUBLE PRECISION,
	reason      TEXT             NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ      NOT NULL DEFAULT now(),
	UNIQUE (ledger_id, ts, symbol)
);
CREATE INDEX IF NOT EXISTS trades_symbol_ts_idx ON trades (symbol, ts DESC);
`

// tradesRepo implements persistence.TradeSink for PostgreSQL
type tradesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewTradesRepo creates a PostgreSQL trade sink
func NewTradesRepo(db *sqlx.DB, timeout time.Duration) persistence.TradeSink {
	return &tradesRepo{db: db, timeout: timeout}
}

// Connect opens and pings a PostgreSQL pool for the DSN
func Connect(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the trades table when missing
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure trades schema: %w", err)
	}
	return nil
}

// Insert records one ledger trade. A replayed ledger id for the same
// timestamp and symbol is reported as a duplicate.
func (r *tradesRepo) Insert(ctx context.Context, trade portfolio.Trade) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		INSERT INTO trades (ledger_id, ts, symbol, kind, price, shares, total_value, score, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.ExecContext(ctx, query,
		trade.ID, trade.Timestamp, trade.Symbol, trade.Kind.String(),
		trade.Price, trade.Shares, trade.TotalValue, trade.Score, trade.Reason)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return fmt.Errorf("duplicate trade %d: %w", trade.ID, err)
		}
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

// InsertBatch records a run of ledger trades atomically
func (r *tradesRepo) InsertBatch(ctx context.Context, trades []portfolio.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout*time.Duration(len(trades)/100+1))
	defer cancel()

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trades (ledger_id, ts, symbol, kind, price, shares, total_value, score, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, trade := range trades {
		if _, err := stmt.ExecContext(ctx,
			trade.ID, trade.Timestamp, trade.Symbol, trade.Kind.String(),
			trade.Price, trade.Shares, trade.TotalValue, trade.Score, trade.Reason); err != nil {
			return fmt.Errorf("failed to insert trade %d in batch: %w", trade.ID, err)
		}
	}
	return tx.Commit()
}

// tradeRow mirrors the trades table for sqlx scanning
type tradeRow struct {
	LedgerID   int64     `db:"ledger_id"`
	Timestamp  time.Time `db:"ts"`
	Symbol     string    `db:"symbol"`
	Kind       string    `db:"kind"`
	Price      float64   `db:"price"`
	Shares     int64     `db:"shares"`
	TotalValue float64   `db:"total_value"`
	Score      *float64  `db:"score"`
	Reason     string    `db:"reason"`
}

// ListBySymbol returns trades for a symbol within the window, newest first
func (r *tradesRepo) ListBySymbol(ctx context.Context, symbol string, tr persistence.TimeRange, limit int) ([]portfolio.Trade, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT ledger_id, ts, symbol, kind, price, shares, total_value, score, reason
		FROM trades
		WHERE symbol = $1 AND ts >= $2 AND ts <= $3
		ORDER BY ts DESC
		LIMIT $4`

	var rows []tradeRow
	if err := r.db.SelectContext(ctx, &rows, query, symbol, tr.From, tr.To, limit); err != nil {
		return nil, fmt.Errorf("failed to query trades by symbol: %w", err)
	}

	trades := make([]portfolio.Trade, 0, len(rows))
	for _, row := range rows {
		kind, err := parseTradeKind(row.Kind)
		if err != nil {
			return nil, err
		}
		trades = append(trades, portfolio.Trade{
			ID:         row.LedgerID,
			Timestamp:  row.Timestamp,
			Symbol:     row.Symbol,
			Kind:       kind,
			Price:      row.Price,
			Shares:     row.Shares,
			TotalValue: row.TotalValue,
			Score:      row.Score,
			Reason:     row.Reason,
		})
	}
	return trades, nil
}

func parseTradeKind(s string) (portfolio.TradeKind, error) {
	switch s {
	case "BUY":
		return portfolio.TradeBuy, nil
	case "SELL":
		return portfolio.TradeSell, nil
	case "ROTATION_IN":
		return portfolio.TradeRotationIn, nil
	case "ROTATION_OUT":
		return portfolio.TradeRotationOut, nil
	default:
		return 0, fmt.Errorf("unknown trade kind %q", s)
	}
}
