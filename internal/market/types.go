package market

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnknownSymbol 表示 symbol 不在注册表里。
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrBadTick 表示行情数据违反 bid/ask 不变量。
	ErrBadTick = errors.New("bad tick")
)

// Side 是交易方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Sign 返回 +1（买）或 -1（卖）。
func (s Side) Sign() float64 {
	if s == SideSell {
		return -1
	}
	return 1
}

// TradeStatus 区分成交与被拒绝的订单。
type TradeStatus string

const (
	TradeExecuted TradeStatus = "EXECUTED"
	TradeRejected TradeStatus = "REJECTED"
)

// RejectReason 是风控/持久化拒绝的机器可读原因码。
type RejectReason string

const (
	RejectNone                   RejectReason = ""
	RejectEngineHalted           RejectReason = "EngineHalted"
	RejectDailyVolumeExceeded    RejectReason = "DailyVolumeExceeded"
	RejectTradeTooLarge          RejectReason = "TradeTooLarge"
	RejectSymbolExposureExceeded RejectReason = "SymbolExposureExceeded"
	RejectPersistenceFailed      RejectReason = "PersistenceFailed"
)

// Rejection 携带原因码与可读描述，作为 error 在风控边界传播。
type Rejection struct {
	Reason RejectReason
	Detail string
}

func (r *Rejection) Error() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return fmt.Sprintf("%s: %s", r.Reason, r.Detail)
}

// AsRejection 从错误链中提取 Rejection。
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// Tick 是单个 symbol 的一次报价。
type Tick struct {
	Symbol    string    `json:"symbol"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Mid       float64   `json:"mid"`
	Spread    float64   `json:"spread"`
	Volume    float64   `json:"volume"`
	EventTime time.Time `json:"event_time"`
	Seq       uint64    `json:"seq"`
}

// Validate 检查报价不变量：bid>0、ask>=bid、spread>0。
func (t Tick) Validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrBadTick)
	}
	if t.Bid <= 0 {
		return fmt.Errorf("%w: bid=%v", ErrBadTick, t.Bid)
	}
	if t.Ask < t.Bid {
		return fmt.Errorf("%w: ask=%v < bid=%v", ErrBadTick, t.Ask, t.Bid)
	}
	if t.Ask-t.Bid <= 0 {
		return fmt.Errorf("%w: spread=%v", ErrBadTick, t.Ask-t.Bid)
	}
	return nil
}

// HistoryPoint 是供指标消费的历史采样点。
type HistoryPoint struct {
	EventTime time.Time `json:"event_time"`
	Mid       float64   `json:"mid"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Volume    float64   `json:"volume"`
	Seq       uint64    `json:"seq"`
}

// Trade 是一笔成交或被拒绝的订单记录（append-only）。
type Trade struct {
	ID           string       `json:"id"`
	Symbol       string       `json:"symbol"`
	Side         Side         `json:"side"`
	Quantity     float64      `json:"quantity"`
	Price        float64      `json:"price"`
	Notional     float64      `json:"notional"`
	StrategyTag  string       `json:"strategy_tag"`
	Status       TradeStatus  `json:"status"`
	RejectReason RejectReason `json:"reject_reason,omitempty"`
	EventTime    time.Time    `json:"event_time"`
	Seq          uint64       `json:"seq"`
}

// DailyStats 是按 UTC 日期聚合的成交统计。
type DailyStats struct {
	Date            string  `json:"date"`
	TotalNotional   float64 `json:"total_notional"`
	TradeCount      int     `json:"trade_count"`
	RealizedPnL     float64 `json:"realized_pnl"`
	ActivePositions int     `json:"active_positions"`
}

// NewsImpact 是新闻冲击强度。
type NewsImpact string

const (
	ImpactLow  NewsImpact = "LOW"
	ImpactMed  NewsImpact = "MED"
	ImpactHigh NewsImpact = "HIGH"
)

// DateOf 返回 UTC 日期串（YYYY-MM-DD），用作 daily stats 主键。
func DateOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
