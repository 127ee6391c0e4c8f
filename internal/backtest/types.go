// Package backtest 在沙箱内回放合成行情并评估策略组合。
// 运行器不接触总线、引擎或在线存储，结果单独落到 modernc sqlite。
package backtest

import (
	"fmt"
	"hash/fnv"
	"time"

	"fxsim/internal/indicator"
)

// 运行状态。
const (
	RunStatusRunning = "RUNNING"
	RunStatusDone    = "DONE"
	RunStatusFailed  = "FAILED"
)

// 沙箱内的交易闸门：历史不足 minHistory 根时跳过评估，
// 共识置信度达到 entryConfidence 才动仓，单次动用现金的 cashFraction。
const (
	minHistory      = 30
	entryConfidence = 0.6
	cashFraction    = 0.10
)

// Request 描述一次回测。
type Request struct {
	Symbol         string           `json:"symbol"`
	Start          time.Time        `json:"start"`
	End            time.Time        `json:"end"`
	Interval       time.Duration    `json:"interval"`
	InitialCapital float64          `json:"initial_capital"`
	Params         indicator.Params `json:"params"`
}

// Validate 检查请求字段。
func (r Request) Validate() error {
	if r.Symbol == "" {
		return fmt.Errorf("backtest: symbol cannot be empty")
	}
	if !r.End.After(r.Start) {
		return fmt.Errorf("backtest: end must be after start")
	}
	if r.Interval <= 0 {
		return fmt.Errorf("backtest: interval must be positive")
	}
	if r.InitialCapital <= 0 {
		return fmt.Errorf("backtest: initial capital must be positive")
	}
	return nil
}

// Seed 对请求的规范字段做 FNV-1a，同一请求永远得到同一序列。
func (r Request) Seed() int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%d|%d|%d|%.2f",
		r.Symbol, r.Start.UTC().UnixMilli(), r.End.UTC().UnixMilli(),
		r.Interval.Milliseconds(), r.InitialCapital)
	return int64(h.Sum64())
}

// Bar 是一根合成 K 线。
type Bar struct {
	OpenTime time.Time `json:"open_time"`
	Open     float64   `json:"open"`
	High     float64   `json:"high"`
	Low      float64   `json:"low"`
	Close    float64   `json:"close"`
}

// EquityPoint 是按 bar 采样的净值点。
type EquityPoint struct {
	Time     time.Time `json:"time"`
	Equity   float64   `json:"equity"`
	Drawdown float64   `json:"drawdown_pct"`
}

// RoundTrip 是一次完整的开平仓。
type RoundTrip struct {
	EntryTime  time.Time `json:"entry_time"`
	ExitTime   time.Time `json:"exit_time"`
	EntryPrice float64   `json:"entry_price"`
	ExitPrice  float64   `json:"exit_price"`
	Quantity   float64   `json:"quantity"`
	PnL        float64   `json:"pnl"`
}

// Result 是一次回测的汇总。
type Result struct {
	RunID          string        `json:"run_id"`
	Request        Request       `json:"request"`
	Seed           int64         `json:"seed"`
	TotalTrades    int           `json:"total_trades"`
	WinningTrades  int           `json:"winning_trades"`
	WinRate        float64       `json:"win_rate"`
	TotalPnL       float64       `json:"total_pnl"`
	FinalEquity    float64       `json:"final_equity"`
	ReturnPct      float64       `json:"return_pct"`
	MaxDrawdownPct float64       `json:"max_drawdown_pct"`
	Bars           int           `json:"bars"`
	Trades         []RoundTrip   `json:"trades,omitempty"`
	EquityCurve    []EquityPoint `json:"equity_curve,omitempty"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
}
