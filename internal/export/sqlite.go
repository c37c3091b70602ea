// Package export copies cached bars into per-series SQLite candle databases
// at <dir>/<SYMBOL>/<timeframe>.db for tools that read that layout.
package export

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"barcache/internal/market"

	_ "modernc.org/sqlite"
)

// Manifest summarizes one exported database.
type Manifest struct {
	Symbol     string `json:"symbol"`
	Timeframe  string `json:"timeframe"`
	MinTime    int64  `json:"min_time"`
	MaxTime    int64  `json:"max_time"`
	Rows       int64  `json:"rows"`
	LastSyncAt int64  `json:"last_sync_at"`
	Path       string `json:"path"`
}

type Exporter struct {
	dir string

	mu  sync.Mutex
	dbs map[string]*sql.DB
}

func New(dir string) (*Exporter, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("export dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Exporter{dir: dir, dbs: make(map[string]*sql.DB)}, nil
}

func (e *Exporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var errs []error
	for k, db := range e.dbs {
		if err := db.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(e.dbs, k)
	}
	return errors.Join(errs...)
}

// Path is the database file for symbol/tf.
func (e *Exporter) Path(symbol string, tf market.Timeframe) string {
	return filepath.Join(e.dir, strings.ToUpper(symbol), tf.String()+".db")
}

func (e *Exporter) db(symbol string, tf market.Timeframe) (*sql.DB, error) {
	if strings.TrimSpace(symbol) == "" || !tf.Valid() {
		return nil, errors.New("symbol/timeframe required")
	}
	key := strings.ToUpper(symbol) + "@" + tf.String()
	e.mu.Lock()
	defer e.mu.Unlock()
	if db, ok := e.dbs[key]; ok {
		return db, nil
	}
	path := e.Path(symbol, tf)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := ensureSchema(db, symbol, tf); err != nil {
		_ = db.Close()
		return nil, err
	}
	e.dbs[key] = db
	return db, nil
}

// Write upserts bars by open time and refreshes the manifest. Times are
// stored in milliseconds.
func (e *Exporter) Write(ctx context.Context, symbol string, tf market.Timeframe, bars []market.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}
	db, err := e.db(symbol, tf)
	if err != nil {
		return 0, err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO candles (open_time, close_time, open, high, low, close, volume, trades, wap)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(open_time) DO UPDATE SET
		    close_time=excluded.close_time,
		    open=excluded.open,
		    high=excluded.high,
		    low=excluded.low,
		    close=excluded.close,
		    volume=excluded.volume,
		    trades=excluded.trades,
		    wap=excluded.wap`)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()
	for _, b := range bars {
		open := b.Timestamp * 1000
		closeMs := tf.Next(b.Timestamp)*1000 - 1
		if _, err := stmt.ExecContext(ctx, open, closeMs, b.Open, b.High, b.Low, b.Close, b.Volume, b.TradeCount, b.WAP); err != nil {
			_ = tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	_, err = db.ExecContext(ctx, `
		UPDATE manifest
		SET min_time = (SELECT COALESCE(MIN(open_time), 0) FROM candles),
		    max_time = (SELECT COALESCE(MAX(open_time), 0) FROM candles),
		    rows = (SELECT COUNT(1) FROM candles),
		    last_sync_at = ?
		WHERE id = 1`, time.Now().UnixMilli())
	return len(bars), err
}

func (e *Exporter) Manifest(ctx context.Context, symbol string, tf market.Timeframe) (Manifest, error) {
	db, err := e.db(symbol, tf)
	if err != nil {
		return Manifest{}, err
	}
	row := db.QueryRowContext(ctx, `SELECT symbol,timeframe,COALESCE(min_time,0),COALESCE(max_time,0),rows,COALESCE(last_sync_at,0) FROM manifest WHERE id=1`)
	var m Manifest
	if err := row.Scan(&m.Symbol, &m.Timeframe, &m.MinTime, &m.MaxTime, &m.Rows, &m.LastSyncAt); err != nil {
		return Manifest{}, err
	}
	m.Path = e.Path(symbol, tf)
	return m, nil
}

// Read returns exported bars with open time in [start,end] unix seconds.
func (e *Exporter) Read(ctx context.Context, symbol string, tf market.Timeframe, start, end int64) ([]market.Bar, error) {
	db, err := e.db(symbol, tf)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT open_time, open, high, low, close, volume, trades, wap
		FROM candles WHERE open_time BETWEEN ? AND ?
		ORDER BY open_time ASC`, start*1000, end*1000)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []market.Bar
	for rows.Next() {
		var b market.Bar
		if err := rows.Scan(&b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &b.TradeCount, &b.WAP); err != nil {
			return nil, err
		}
		b.Timestamp /= 1000
		out = append(out, b)
	}
	return out, rows.Err()
}

func ensureSchema(db *sql.DB, symbol string, tf market.Timeframe) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS candles (
			open_time  INTEGER PRIMARY KEY,
			close_time INTEGER NOT NULL,
			open       REAL NOT NULL,
			high       REAL NOT NULL,
			low        REAL NOT NULL,
			close      REAL NOT NULL,
			volume     REAL NOT NULL,
			trades     INTEGER DEFAULT 0,
			wap        REAL DEFAULT 0,
			inserted_at INTEGER NOT NULL DEFAULT (strftime('%s','now') * 1000)
		);`,
		`CREATE TABLE IF NOT EXISTS manifest (
			id INTEGER PRIMARY KEY CHECK (id=1),
			symbol TEXT NOT NULL,
			timeframe TEXT NOT NULL,
			min_time INTEGER,
			max_time INTEGER,
			rows INTEGER DEFAULT 0,
			last_sync_at INTEGER
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	_, err := db.Exec(`INSERT INTO manifest (id, symbol, timeframe) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET symbol=excluded.symbol, timeframe=excluded.timeframe;`,
		strings.ToUpper(symbol), tf.String())
	return err
}
