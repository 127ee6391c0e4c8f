// Package ledger 维护每个 symbol 的净持仓与加权均价。
// 同一 symbol 的 apply/mark 互斥，不同 symbol 并行。
package ledger

import (
	"fmt"
	"math"
	"sync"
	"time"

	"fxsim/internal/market"
)

// 数量绝对值小于该阈值视作平仓（浮点残差清零）。
const qtyEpsilon = 1e-9

// Position 是单个 symbol 的净持仓快照。
type Position struct {
	Symbol        string    `json:"symbol"`
	Quantity      float64   `json:"quantity"` // 有符号：多仓为正
	AvgPrice      float64   `json:"avg_price"`
	RealizedPnL   float64   `json:"realized_pnl"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type entry struct {
	mu  sync.Mutex
	pos Position
}

// Ledger 独占持仓状态；外部只能通过快照读取。
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func New() *Ledger {
	return &Ledger{entries: make(map[string]*entry)}
}

// Load 从持久化恢复持仓（启动时调用一次）。
func (l *Ledger) Load(positions []Position) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range positions {
		l.entries[p.Symbol] = &entry{pos: p}
	}
}

func (l *Ledger) entryFor(symbol string) *entry {
	l.mu.RLock()
	e, ok := l.entries[symbol]
	l.mu.RUnlock()
	if ok {
		return e
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok = l.entries[symbol]; ok {
		return e
	}
	e = &entry{pos: Position{Symbol: symbol}}
	l.entries[symbol] = e
	return e
}

// ApplyTrade 是纯函数版的持仓过渡：给定旧仓位与一笔成交，返回新仓位与
// 本次落袋盈亏。引擎用它在事务提交前预演落库内容。
func ApplyTrade(pos Position, side market.Side, quantity, price, mark float64, now time.Time) (Position, float64, error) {
	if quantity <= 0 {
		return Position{}, 0, fmt.Errorf("ledger: quantity must be positive, got %v", quantity)
	}
	if price <= 0 {
		return Position{}, 0, fmt.Errorf("ledger: price must be positive, got %v", price)
	}
	signed := quantity * side.Sign()

	q0 := pos.Quantity
	a0 := pos.AvgPrice
	var q1, a1, realized float64

	switch {
	case q0 == 0 || sameSign(q0, signed):
		// 加仓：数量加权均价。
		q1 = q0 + signed
		a1 = (math.Abs(q0)*a0 + quantity*price) / math.Abs(q1)
	default:
		// 减仓或反手。
		reduce := math.Min(math.Abs(q0), quantity)
		realized = (price - a0) * reduce * sign(q0)
		q1 = q0 + signed
		if math.Abs(q1) < qtyEpsilon {
			q1, a1 = 0, 0
		} else if sameSign(q1, q0) {
			a1 = a0
		} else {
			// 反手后剩余数量按本次成交价持仓。
			a1 = price
		}
	}
	if math.Abs(q1) < qtyEpsilon {
		q1, a1 = 0, 0
	}

	if (q1 == 0) != (a1 == 0) || a1 < 0 {
		return Position{}, 0, fmt.Errorf("ledger: invariant violated for %s: quantity=%v avg=%v", pos.Symbol, q1, a1)
	}

	pos.Quantity = q1
	pos.AvgPrice = a1
	pos.RealizedPnL += realized
	pos.UnrealizedPnL = (mark - a1) * q1
	pos.UpdatedAt = now
	return pos, realized, nil
}

// Apply 把一笔成交记入持仓，返回新快照与本次落袋盈亏。
// mark 用当前 mid 重新计算浮动盈亏。
func (l *Ledger) Apply(symbol string, side market.Side, quantity, price, mark float64, now time.Time) (Position, float64, error) {
	e := l.entryFor(symbol)
	e.mu.Lock()
	defer e.mu.Unlock()
	next, realized, err := ApplyTrade(e.pos, side, quantity, price, mark, now)
	if err != nil {
		return Position{}, 0, err
	}
	next.Symbol = symbol
	e.pos = next
	return e.pos, realized, nil
}

// Mark 用最新 mid 刷新浮动盈亏。无持仓时返回 false。
func (l *Ledger) Mark(symbol string, mid float64, now time.Time) (Position, bool) {
	l.mu.RLock()
	e, ok := l.entries[symbol]
	l.mu.RUnlock()
	if !ok {
		return Position{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pos.UnrealizedPnL = (mid - e.pos.AvgPrice) * e.pos.Quantity
	e.pos.UpdatedAt = now
	return e.pos, true
}

// Get 返回持仓快照。
func (l *Ledger) Get(symbol string) (Position, bool) {
	l.mu.RLock()
	e, ok := l.entries[symbol]
	l.mu.RUnlock()
	if !ok {
		return Position{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pos, true
}

// Exposure 返回 |quantity × avg_price|，供风控敞口检查。
func (l *Ledger) Exposure(symbol string) float64 {
	pos, ok := l.Get(symbol)
	if !ok {
		return 0
	}
	return math.Abs(pos.Quantity * pos.AvgPrice)
}

// All 返回全部持仓快照（无序）。
func (l *Ledger) All() []Position {
	l.mu.RLock()
	entries := make([]*entry, 0, len(l.entries))
	for _, e := range l.entries {
		entries = append(entries, e)
	}
	l.mu.RUnlock()
	out := make([]Position, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		out = append(out, e.pos)
		e.mu.Unlock()
	}
	return out
}

// ActiveCount 返回非零持仓数量。
func (l *Ledger) ActiveCount() int {
	n := 0
	for _, p := range l.All() {
		if p.Quantity != 0 {
			n++
		}
	}
	return n
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
