package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/trailing_stop/internal/domain"
)

const defaultListLimit = 100

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Prices are stored as TEXT so decimals round-trip exactly.
func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS replacements (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			tick_price TEXT NOT NULL,
			old_order_id INTEGER NOT NULL,
			new_order_id INTEGER NOT NULL DEFAULT 0,
			old_stop TEXT NOT NULL,
			old_limit TEXT NOT NULL,
			new_stop TEXT NOT NULL,
			new_limit TEXT NOT NULL,
			quantity TEXT NOT NULL,
			outcome TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_replacements_created ON replacements(created_at);`,
		`CREATE TABLE IF NOT EXISTS order_trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol TEXT NOT NULL,
			order_id INTEGER NOT NULL,
			side TEXT NOT NULL,
			order_type TEXT NOT NULL,
			price TEXT NOT NULL,
			stop_price TEXT NOT NULL,
			quantity TEXT NOT NULL,
			last_price TEXT NOT NULL,
			execution_type TEXT NOT NULL,
			order_status TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_order_trades_order ON order_trades(order_id);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

// ReplacementRepository Implementation

func (s *SQLiteStore) SaveReplacement(ctx context.Context, rec *domain.ReplacementRecord) error {
	query := `INSERT INTO replacements (id, symbol, tick_price, old_order_id, new_order_id, old_stop, old_limit, new_stop, new_limit, quantity, outcome, error, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Symbol, rec.TickPrice, rec.OldOrderID, rec.NewOrderID,
		rec.OldStop, rec.OldLimit, rec.NewStop, rec.NewLimit, rec.Quantity,
		string(rec.Outcome), rec.Error, rec.CreatedAt)
	return err
}

// ListReplacements returns the newest records first.
func (s *SQLiteStore) ListReplacements(ctx context.Context, limit int) ([]*domain.ReplacementRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `SELECT id, symbol, tick_price, old_order_id, new_order_id, old_stop, old_limit, new_stop, new_limit, quantity, outcome, error, created_at
			  FROM replacements ORDER BY created_at DESC, rowid DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.ReplacementRecord
	for rows.Next() {
		var r domain.ReplacementRecord
		var outcome string
		if err := rows.Scan(&r.ID, &r.Symbol, &r.TickPrice, &r.OldOrderID, &r.NewOrderID,
			&r.OldStop, &r.OldLimit, &r.NewStop, &r.NewLimit, &r.Quantity,
			&outcome, &r.Error, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Outcome = domain.ReplacementOutcome(outcome)
		records = append(records, &r)
	}
	return records, rows.Err()
}

// AccountEventRepository Implementation

func (s *SQLiteStore) SaveOrderTrade(ctx context.Context, trade *domain.OrderTrade) error {
	query := `INSERT INTO order_trades (symbol, order_id, side, order_type, price, stop_price, quantity, last_price, execution_type, order_status, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		trade.Symbol, trade.OrderID, string(trade.Side), trade.OrderType,
		trade.Price, trade.StopPrice, trade.Quantity, trade.LastPrice,
		trade.ExecutionType, trade.OrderStatus, trade.Time)
	return err
}

func (s *SQLiteStore) ListOrderTrades(ctx context.Context, limit int) ([]*domain.OrderTrade, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `SELECT symbol, order_id, side, order_type, price, stop_price, quantity, last_price, execution_type, order_status, created_at
			  FROM order_trades ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []*domain.OrderTrade
	for rows.Next() {
		var t domain.OrderTrade
		var side string
		if err := rows.Scan(&t.Symbol, &t.OrderID, &side, &t.OrderType,
			&t.Price, &t.StopPrice, &t.Quantity, &t.LastPrice,
			&t.ExecutionType, &t.OrderStatus, &t.Time); err != nil {
			return nil, err
		}
		t.Side = domain.Side(side)
		trades = append(trades, &t)
	}
	return trades, rows.Err()
}
