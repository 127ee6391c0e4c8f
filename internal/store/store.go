// Package store 定义交易、持仓与日统计的持久化契约。
package store

import (
	"context"
	"errors"

	"fxsim/internal/ledger"
	"fxsim/internal/market"
)

// ErrTxFailed 标记一次三表事务失败（含超时），调用方据此回滚内存状态。
var ErrTxFailed = errors.New("persistence transaction failed")

// Store 是交易引擎依赖的持久化接口。
// ExecuteTrade 必须把三张表的写入放进同一个事务：要么全部落库要么全不落。
type Store interface {
	AppendTrade(ctx context.Context, trade market.Trade) error
	UpsertPosition(ctx context.Context, pos ledger.Position) error
	UpsertDailyStats(ctx context.Context, stats market.DailyStats) error
	ExecuteTrade(ctx context.Context, trade market.Trade, pos ledger.Position, stats market.DailyStats) error
	LoadTodayNotional(ctx context.Context, date string) (float64, error)
	LoadDailyStats(ctx context.Context, date string) (market.DailyStats, error)
	LoadPositions(ctx context.Context) ([]ledger.Position, error)
	ListTrades(ctx context.Context, symbol string, limit, offset int) ([]market.Trade, error)
	Close() error
}
