package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"fxsim/internal/ledger"
	"fxsim/internal/market"
)

// TradeRecord 对应 trades 表（append-only，按 id 幂等）。
type TradeRecord struct {
	ID           string    `gorm:"primaryKey;size:36"`
	Symbol       string    `gorm:"size:16;index:idx_trades_symbol_time,priority:1"`
	Side         string    `gorm:"size:4"`
	Quantity     float64   `gorm:"not null"`
	Price        float64   `gorm:"not null"`
	Notional     float64   `gorm:"not null"`
	StrategyTag  string    `gorm:"size:32"`
	Status       string    `gorm:"size:16"`
	RejectReason string    `gorm:"size:32"`
	EventTime    time.Time `gorm:"index:idx_trades_symbol_time,priority:2,sort:desc"`
	Seq          uint64
}

func (TradeRecord) TableName() string { return "trades" }

// PositionRecord 对应 positions 表，主键 symbol。
type PositionRecord struct {
	Symbol        string  `gorm:"primaryKey;size:16"`
	Quantity      float64 `gorm:"not null"`
	AvgPrice      float64 `gorm:"not null"`
	RealizedPnL   float64
	UnrealizedPnL float64
	UpdatedAt     time.Time
}

func (PositionRecord) TableName() string { return "positions" }

// DailyStatsRecord 对应 daily_stats 表，主键 UTC 日期。
type DailyStatsRecord struct {
	Date            string `gorm:"primaryKey;size:10"`
	TotalNotional   float64
	TradeCount      int
	RealizedPnL     float64
	ActivePositions int
}

func (DailyStatsRecord) TableName() string { return "daily_stats" }

// SQLStore 基于 gorm + sqlite 的 Store 实现。写事务由 sqlite 串行化。
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore 打开（必要时创建）数据库并迁移 schema。
func NewSQLStore(path string) (*SQLStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store: path cannot be empty")
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_journal_mode=WAL"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s failed: %w", path, err)
	}
	if err := db.AutoMigrate(&TradeRecord{}, &PositionRecord{}, &DailyStatsRecord{}); err != nil {
		return nil, fmt.Errorf("store: migrate failed: %w", err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) AppendTrade(ctx context.Context, trade market.Trade) error {
	return appendTradeTx(s.db.WithContext(ctx), trade)
}

func appendTradeTx(tx *gorm.DB, trade market.Trade) error {
	rec := TradeRecord{
		ID:           trade.ID,
		Symbol:       trade.Symbol,
		Side:         string(trade.Side),
		Quantity:     trade.Quantity,
		Price:        trade.Price,
		Notional:     trade.Notional,
		StrategyTag:  trade.StrategyTag,
		Status:       string(trade.Status),
		RejectReason: string(trade.RejectReason),
		EventTime:    trade.EventTime,
		Seq:          trade.Seq,
	}
	// 同一 trade.id 重复写入是幂等的。
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}

func (s *SQLStore) UpsertPosition(ctx context.Context, pos ledger.Position) error {
	return upsertPositionTx(s.db.WithContext(ctx), pos)
}

func upsertPositionTx(tx *gorm.DB, pos ledger.Position) error {
	rec := PositionRecord{
		Symbol:        pos.Symbol,
		Quantity:      pos.Quantity,
		AvgPrice:      pos.AvgPrice,
		RealizedPnL:   pos.RealizedPnL,
		UnrealizedPnL: pos.UnrealizedPnL,
		UpdatedAt:     pos.UpdatedAt,
	}
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
}

func (s *SQLStore) UpsertDailyStats(ctx context.Context, stats market.DailyStats) error {
	return upsertDailyStatsTx(s.db.WithContext(ctx), stats)
}

func upsertDailyStatsTx(tx *gorm.DB, stats market.DailyStats) error {
	rec := DailyStatsRecord{
		Date:            stats.Date,
		TotalNotional:   stats.TotalNotional,
		TradeCount:      stats.TradeCount,
		RealizedPnL:     stats.RealizedPnL,
		ActivePositions: stats.ActivePositions,
	}
	return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&rec).Error
}

// ExecuteTrade 在单个事务里提交 trade + position + daily stats。
func (s *SQLStore) ExecuteTrade(ctx context.Context, trade market.Trade, pos ledger.Position, stats market.DailyStats) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := appendTradeTx(tx, trade); err != nil {
			return err
		}
		if err := upsertPositionTx(tx, pos); err != nil {
			return err
		}
		return upsertDailyStatsTx(tx, stats)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTxFailed, err)
	}
	return nil
}

func (s *SQLStore) LoadTodayNotional(ctx context.Context, date string) (float64, error) {
	stats, err := s.LoadDailyStats(ctx, date)
	if err != nil {
		return 0, err
	}
	return stats.TotalNotional, nil
}

func (s *SQLStore) LoadDailyStats(ctx context.Context, date string) (market.DailyStats, error) {
	var rec DailyStatsRecord
	err := s.db.WithContext(ctx).First(&rec, "date = ?", date).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return market.DailyStats{Date: date}, nil
	}
	if err != nil {
		return market.DailyStats{}, err
	}
	return market.DailyStats{
		Date:            rec.Date,
		TotalNotional:   rec.TotalNotional,
		TradeCount:      rec.TradeCount,
		RealizedPnL:     rec.RealizedPnL,
		ActivePositions: rec.ActivePositions,
	}, nil
}

func (s *SQLStore) LoadPositions(ctx context.Context) ([]ledger.Position, error) {
	var recs []PositionRecord
	if err := s.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]ledger.Position, 0, len(recs))
	for _, r := range recs {
		out = append(out, ledger.Position{
			Symbol:        r.Symbol,
			Quantity:      r.Quantity,
			AvgPrice:      r.AvgPrice,
			RealizedPnL:   r.RealizedPnL,
			UnrealizedPnL: r.UnrealizedPnL,
			UpdatedAt:     r.UpdatedAt,
		})
	}
	return out, nil
}

// ListTrades 按 (event_time, seq) 倒序分页；symbol 为空时不过滤。
func (s *SQLStore) ListTrades(ctx context.Context, symbol string, limit, offset int) ([]market.Trade, error) {
	if limit <= 0 {
		limit = 100
	}
	q := s.db.WithContext(ctx).Model(&TradeRecord{}).
		Order("event_time DESC").Order("seq DESC").
		Limit(limit).Offset(offset)
	if symbol != "" {
		q = q.Where("symbol = ?", symbol)
	}
	var recs []TradeRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]market.Trade, 0, len(recs))
	for _, r := range recs {
		out = append(out, market.Trade{
			ID:           r.ID,
			Symbol:       r.Symbol,
			Side:         market.Side(r.Side),
			Quantity:     r.Quantity,
			Price:        r.Price,
			Notional:     r.Notional,
			StrategyTag:  r.StrategyTag,
			Status:       market.TradeStatus(r.Status),
			RejectReason: market.RejectReason(r.RejectReason),
			EventTime:    r.EventTime,
			Seq:          r.Seq,
		})
	}
	return out, nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
