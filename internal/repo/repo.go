// Package repo persists 1m candles in SQLite. The importer writes batches
// through it; backtests and the optimizer read ranges back out.
package repo

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	_ "github.com/mattn/go-sqlite3"

	"quantsim/internal/candle"
)

const insertBatchSize = 500

// Repository is the SQLite-backed candle store. Single writer; the
// connection pool is capped accordingly.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the database with WAL mode and the schema.
func Open(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("repo: sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("repo: sqlite schema: %w", err)
	}

	log.Printf("[repo] opened database at %s", dbPath)
	return &Repository{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS candles (
			exchange  TEXT    NOT NULL,
			symbol    TEXT    NOT NULL,
			ts        INTEGER NOT NULL,
			open      REAL    NOT NULL,
			close     REAL    NOT NULL,
			high      REAL    NOT NULL,
			low       REAL    NOT NULL,
			volume    REAL    NOT NULL,
			PRIMARY KEY (exchange, symbol, ts)
		);
	`)
	return err
}

// DB returns the underlying handle for health checks.
func (r *Repository) DB() *sql.DB { return r.db }

// StoreBatch upserts a chronological batch of 1m candles in chunked
// transactions.
func (r *Repository) StoreBatch(ctx context.Context, exchange, symbol string, batch []candle.Candle) error {
	for start := 0; start < len(batch); start += insertBatchSize {
		end := start + insertBatchSize
		if end > len(batch) {
			end = len(batch)
		}
		if err := r.insertChunk(ctx, exchange, symbol, batch[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) insertChunk(ctx context.Context, exchange, symbol string, chunk []candle.Candle) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("repo: begin: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO candles (exchange, symbol, ts, open, close, high, low, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("repo: prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunk {
		if _, err := stmt.ExecContext(ctx, exchange, symbol,
			c.Timestamp, c.Open, c.Close, c.High, c.Low, c.Volume); err != nil {
			tx.Rollback()
			return fmt.Errorf("repo: insert: %w", err)
		}
	}
	return tx.Commit()
}

// Range reads the 1m candles of [startMs, finishMs], ordered ascending.
func (r *Repository) Range(ctx context.Context, exchange, symbol string, startMs, finishMs int64) ([]candle.Candle, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ts, open, close, high, low, volume
		FROM candles
		WHERE exchange = ? AND symbol = ? AND ts BETWEEN ? AND ?
		ORDER BY ts ASC
	`, exchange, symbol, startMs, finishMs)
	if err != nil {
		return nil, fmt.Errorf("repo: query range: %w", err)
	}
	defer rows.Close()

	var out []candle.Candle
	for rows.Next() {
		var c candle.Candle
		if err := rows.Scan(&c.Timestamp, &c.Open, &c.Close, &c.High, &c.Low, &c.Volume); err != nil {
			return nil, fmt.Errorf("repo: scan: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Count returns how many candles exist in [startMs, finishMs].
func (r *Repository) Count(ctx context.Context, exchange, symbol string, startMs, finishMs int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM candles
		WHERE exchange = ? AND symbol = ? AND ts BETWEEN ? AND ?
	`, exchange, symbol, startMs, finishMs).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("repo: count: %w", err)
	}
	return n, nil
}

// LastTimestamp returns the newest stored candle timestamp in ms, or 0
// when the pair has no candles.
func (r *Repository) LastTimestamp(ctx context.Context, exchange, symbol string) (int64, error) {
	var ts sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(ts) FROM candles WHERE exchange = ? AND symbol = ?`,
		exchange, symbol,
	).Scan(&ts)
	if err != nil {
		return 0, fmt.Errorf("repo: last timestamp: %w", err)
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// FirstTimestamp returns the oldest stored candle timestamp in ms, or 0
// when the pair has no candles.
func (r *Repository) FirstTimestamp(ctx context.Context, exchange, symbol string) (int64, error) {
	var ts sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MIN(ts) FROM candles WHERE exchange = ? AND symbol = ?`,
		exchange, symbol,
	).Scan(&ts)
	if err != nil {
		return 0, fmt.Errorf("repo: first timestamp: %w", err)
	}
	if !ts.Valid {
		return 0, nil
	}
	return ts.Int64, nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}
