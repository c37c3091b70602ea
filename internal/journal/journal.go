// Package journal keeps an audit trail of every remote fetch in SQLite.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"barcache/internal/broker"
	"barcache/internal/market"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	StatusOK    = "ok"
	StatusError = "error"
)

type fetchModel struct {
	ID            string         `gorm:"column:id;primaryKey;size:36"`
	Source        string         `gorm:"column:source;index"`
	Symbol        string         `gorm:"column:symbol;index:idx_fetch_symbol_tf"`
	Timeframe     string         `gorm:"column:timeframe;index:idx_fetch_symbol_tf"`
	StartTS       int64          `gorm:"column:start_ts"`
	EndTS         int64          `gorm:"column:end_ts"`
	Bars          int            `gorm:"column:bars"`
	ElapsedMs     int64          `gorm:"column:elapsed_ms"`
	Status        string         `gorm:"column:status;size:8"`
	Error         string         `gorm:"column:error"`
	Detail        datatypes.JSON `gorm:"column:detail"`
	CreatedAtUnix int64          `gorm:"column:created_at;index"`
}

func (fetchModel) TableName() string { return "fetch_journal" }

// Record is one journaled fetch.
type Record struct {
	ID        string
	Source    string
	Symbol    string
	Timeframe string
	Start     int64
	End       int64
	Bars      int
	Elapsed   time.Duration
	Status    string
	Error     string
	Expected  int64
	CreatedAt time.Time
}

type detail struct {
	ExpectedBars int64  `json:"expected_bars"`
	Coverage     string `json:"coverage"`
}

// Journal implements broker.Journal.
type Journal struct {
	db *gorm.DB
}

var _ broker.Journal = (*Journal)(nil)

func Open(path string) (*Journal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("journal: path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&fetchModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (j *Journal) RecordFetch(ctx context.Context, ev broker.FetchEvent) error {
	if j == nil || j.db == nil {
		return errors.New("journal not initialized")
	}
	expected := ev.Request.Timeframe.ExpectedBars(ev.Request.Start, ev.Request.End)
	coverage := "full"
	switch {
	case ev.Err != nil:
		coverage = "none"
	case int64(ev.Bars) < expected:
		coverage = "partial"
	}
	raw, err := json.Marshal(detail{ExpectedBars: expected, Coverage: coverage})
	if err != nil {
		return err
	}
	m := fetchModel{
		ID:            ev.ID,
		Source:        ev.Source,
		Symbol:        ev.Request.Symbol,
		Timeframe:     ev.Request.Timeframe.String(),
		StartTS:       ev.Request.Start,
		EndTS:         ev.Request.End,
		Bars:          ev.Bars,
		ElapsedMs:     ev.Elapsed.Milliseconds(),
		Status:        StatusOK,
		Detail:        datatypes.JSON(raw),
		CreatedAtUnix: ev.StartedAt.UnixMilli(),
	}
	if ev.Err != nil {
		m.Status, m.Error = StatusError, ev.Err.Error()
	}
	return j.db.WithContext(ctx).Create(&m).Error
}

// Recent returns the newest records first. An empty symbol matches all.
func (j *Journal) Recent(ctx context.Context, symbol string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	q := j.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if symbol = strings.TrimSpace(symbol); symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	var models []fetchModel
	if err := q.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(models))
	for _, m := range models {
		out = append(out, toRecord(m))
	}
	return out, nil
}

// Stats counts fetches and failures for symbol/tf.
func (j *Journal) Stats(ctx context.Context, symbol string, tf market.Timeframe) (total, failed int64, err error) {
	base := j.db.WithContext(ctx).Model(&fetchModel{}).Where("symbol = ? AND timeframe = ?", symbol, tf.String())
	if err = base.Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = j.db.WithContext(ctx).Model(&fetchModel{}).
		Where("symbol = ? AND timeframe = ? AND status = ?", symbol, tf.String(), StatusError).
		Count(&failed).Error
	return total, failed, err
}

func toRecord(m fetchModel) Record {
	var d detail
	_ = json.Unmarshal(m.Detail, &d)
	return Record{
		ID:        m.ID,
		Source:    m.Source,
		Symbol:    m.Symbol,
		Timeframe: m.Timeframe,
		Start:     m.StartTS,
		End:       m.EndTS,
		Bars:      m.Bars,
		Elapsed:   time.Duration(m.ElapsedMs) * time.Millisecond,
		Status:    m.Status,
		Error:     m.Error,
		Expected:  d.ExpectedBars,
		CreatedAt: time.UnixMilli(m.CreatedAtUnix),
	}
}
