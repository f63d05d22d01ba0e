package metrics

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/ismaiel54/market-replay-sim/internal/sim"
)

// Store persists run results to a SQLite database, so successive runs
// can be compared without re-parsing CSVs.
type Store struct {
	db *sql.DB
}

// OpenStore creates or opens the results database at path.
func OpenStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// migrate creates the necessary tables.
func (s *Store) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			timestamp_ns INTEGER NOT NULL,
			strategy_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			price REAL NOT NULL,
			quantity INTEGER NOT NULL,
			client_order_id INTEGER NOT NULL,
			exchange_order_id INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS latency_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			event_timestamp_ns INTEGER NOT NULL,
			source TEXT NOT NULL,
			latency_ns INTEGER NOT NULL,
			notes TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS pnl_summary (
			run_id TEXT NOT NULL,
			strategy_id TEXT NOT NULL,
			symbol TEXT NOT NULL,
			final_position INTEGER NOT NULL,
			total_volume_traded REAL NOT NULL,
			realized_pnl REAL NOT NULL,
			unrealized_pnl REAL NOT NULL,
			PRIMARY KEY (run_id, strategy_id, symbol)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_latency_run ON latency_samples(run_id)`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// SaveRun writes a completed run's trades, latency samples, and PnL
// summary in one transaction.
func (s *Store) SaveRun(runID string, trades []sim.SimulatedTrade, latency []LatencyRecord, pnl []PnLRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, tr := range trades {
		_, err := tx.Exec(
			`INSERT INTO trades (run_id, timestamp_ns, strategy_id, symbol, side, price, quantity, client_order_id, exchange_order_id)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			runID, tr.Timestamp.Nanos(), string(tr.StrategyID), tr.Symbol, tr.Side.String(),
			tr.Price, int64(tr.Quantity), int64(tr.ClientOrderID), int64(tr.ExchangeOrderID),
		)
		if err != nil {
			return fmt.Errorf("failed to insert trade: %w", err)
		}
	}

	for _, rec := range latency {
		_, err := tx.Exec(
			`INSERT INTO latency_samples (run_id, event_timestamp_ns, source, latency_ns, notes)
			 VALUES (?, ?, ?, ?, ?)`,
			runID, rec.EventTime.Nanos(), rec.Source, rec.Latency.Nanoseconds(), rec.Notes,
		)
		if err != nil {
			return fmt.Errorf("failed to insert latency sample: %w", err)
		}
	}

	for _, row := range pnl {
		_, err := tx.Exec(
			`INSERT INTO pnl_summary (run_id, strategy_id, symbol, final_position, total_volume_traded, realized_pnl, unrealized_pnl)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, string(row.Strategy), row.Symbol, row.Result.CurrentPosition,
			row.Result.TotalVolumeTraded, row.Result.RealizedPnL, row.Result.UnrealizedPnL,
		)
		if err != nil {
			return fmt.Errorf("failed to insert pnl row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// TradeCount returns the number of persisted trades for runID.
func (s *Store) TradeCount(runID string) (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM trades WHERE run_id = ?`, runID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return count, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
