// Package engine 实现交易引擎：订阅行情刷新持仓估值，按固定节奏评估共识
// 信号，经风控闸门后以当前 bid/ask 成交，并把 trade/position/daily stats
// 作为一个事务落库。EngineState 只在引擎内部变更。
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fxsim/internal/bus"
	"fxsim/internal/ledger"
	"fxsim/internal/logger"
	"fxsim/internal/market"
	"fxsim/internal/metrics"
	"fxsim/internal/risk"
	"fxsim/internal/store"
	"fxsim/internal/strategy"
)

const strategyTagConsensus = "CONSENSUS"

// Config 汇集引擎依赖。
type Config struct {
	Bus      *bus.Bus
	Ledger   *ledger.Ledger
	Store    store.Store
	Registry *market.Registry
	Clock    market.Clock
	Limits   risk.Limits
	Combiner *strategy.Consensus

	SMALong        int
	MinConfidence  float64
	EvalInterval   time.Duration
	PersistTimeout time.Duration
}

// Engine 拥有 EngineState；所有变更都经由 Start/Halt/Stop 与内部循环。
type Engine struct {
	cfg Config

	mu          sync.Mutex
	state       State
	currentDate string
	dayStats    market.DailyStats
	haltReason  market.RejectReason
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	sub         *bus.Subscription
}

// New 校验依赖并构造引擎（Stopped 状态）。
func New(cfg Config) (*Engine, error) {
	if cfg.Bus == nil {
		return nil, fmt.Errorf("engine: bus cannot be nil")
	}
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("engine: ledger cannot be nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("engine: store cannot be nil")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("engine: registry cannot be nil")
	}
	if cfg.Combiner == nil {
		return nil, fmt.Errorf("engine: consensus combiner cannot be nil")
	}
	if cfg.Clock == nil {
		cfg.Clock = market.NewSystemClock()
	}
	if cfg.SMALong <= 0 {
		cfg.SMALong = 50
	}
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = 0.6
	}
	if cfg.EvalInterval <= 0 {
		cfg.EvalInterval = 5 * time.Second
	}
	if cfg.PersistTimeout <= 0 {
		cfg.PersistTimeout = 2 * time.Second
	}
	return &Engine{cfg: cfg, state: StateStopped}, nil
}

// Start 从 Stopped 进入 Running：恢复当日统计与持仓，订阅总线并启动
// 标价与评估两个循环。
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateStopped {
		e.mu.Unlock()
		return fmt.Errorf("engine: start requires Stopped state, currently %s", e.state)
	}
	now := e.cfg.Clock.Now()
	date := market.DateOf(now)

	loadCtx, cancelLoad := context.WithTimeout(ctx, e.cfg.PersistTimeout)
	stats, err := e.cfg.Store.LoadDailyStats(loadCtx, date)
	if err == nil {
		var positions []ledger.Position
		positions, err = e.cfg.Store.LoadPositions(loadCtx)
		if err == nil {
			e.cfg.Ledger.Load(positions)
		}
	}
	cancelLoad()
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("engine: recovery from store failed: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.state = StateRunning
	e.currentDate = date
	e.dayStats = stats
	e.haltReason = market.RejectNone
	e.sub = e.cfg.Bus.Subscribe()

	e.wg.Add(2)
	go e.markLoop(runCtx, e.sub)
	go e.evalLoop(runCtx)
	e.mu.Unlock()

	logger.Infof("engine: started date=%s daily_notional=%.2f", date, stats.TotalNotional)
	return nil
}

// Halt 停止开新仓，保留行情标价。只能从 Running 进入。
func (e *Engine) Halt(reason market.RejectReason) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRunning {
		return fmt.Errorf("engine: halt requires Running state, currently %s", e.state)
	}
	e.haltLocked(reason)
	return nil
}

func (e *Engine) haltLocked(reason market.RejectReason) {
	e.state = StateHalted
	e.haltReason = reason
	logger.Warnf("engine: halted reason=%s", reason)
}

// Stop 从任意状态回到 Stopped：取消循环、退订总线并在限定时间内归还。
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state == StateStopped {
		e.mu.Unlock()
		return
	}
	cancel := e.cancel
	sub := e.sub
	e.cancel = nil
	e.sub = nil
	e.state = StateStopped
	e.haltReason = market.RejectNone
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
	if sub != nil {
		sub.Close()
	}
	logger.Infof("engine: stopped")
}

// State 返回只读状态快照。
func (e *Engine) State() StateSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return StateSnapshot{
		State:         e.state,
		Running:       e.state == StateRunning,
		CurrentDate:   e.currentDate,
		DailyNotional: e.dayStats.TotalNotional,
		HaltReason:    e.haltReason,
	}
}

// markLoop 在每笔行情后刷新持仓的浮动盈亏。halt 之后仍然运行。
func (e *Engine) markLoop(ctx context.Context, sub *bus.Subscription) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if ev.Kind != bus.KindTick {
				continue
			}
			if pos, held := e.cfg.Ledger.Get(ev.Tick.Symbol); held && pos.Quantity != 0 {
				e.cfg.Ledger.Mark(ev.Tick.Symbol, ev.Tick.Mid, e.cfg.Clock.Now())
			}
		}
	}
}

// evalLoop 按固定节奏评估全部 symbol。循环内的任何错误只记日志。
func (e *Engine) evalLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.EvalInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.EvaluateOnce(ctx)
		}
	}
}

// EvaluateOnce 执行一轮评估；导出给测试与手工触发使用。
func (e *Engine) EvaluateOnce(ctx context.Context) {
	e.rolloverIfNeeded()
	if e.State().State != StateRunning {
		return
	}
	window := e.cfg.SMALong + 1
	if window < 21 {
		window = 21
	}
	for _, symbol := range e.cfg.Registry.Symbols() {
		select {
		case <-ctx.Done():
			return
		default:
		}
		points := e.cfg.Bus.Snapshot(symbol, window)
		if len(points) == 0 {
			continue
		}
		prices := make([]float64, len(points))
		for i, p := range points {
			prices[i] = p.Mid
		}
		sig := e.cfg.Combiner.Evaluate(symbol, prices)
		if sig.Kind == strategy.KindHold || sig.Confidence < e.cfg.MinConfidence {
			continue
		}
		if !e.directionAllowed(symbol, sig.Kind) {
			logger.Debugf("engine: %s signal %s skipped, incompatible with open position", symbol, sig.Kind)
			continue
		}
		if err := e.execute(ctx, sig); err != nil {
			if rej, ok := market.AsRejection(err); ok {
				logger.Infof("engine: %s %s rejected: %s", symbol, sig.Kind, rej)
			} else {
				logger.Errorf("engine: %s execution error: %v", symbol, err)
			}
		}
	}
}

// directionAllowed：BUY 仅在持仓 ≤0 时允许，SELL 仅在 ≥0 时允许。
func (e *Engine) directionAllowed(symbol string, kind strategy.Kind) bool {
	pos, ok := e.cfg.Ledger.Get(symbol)
	if !ok {
		return true
	}
	switch kind {
	case strategy.KindBuy:
		return pos.Quantity <= 0
	case strategy.KindSell:
		return pos.Quantity >= 0
	default:
		return false
	}
}

// execute 完成定量、风控、成交与事务落库。被拒绝时返回 *market.Rejection。
func (e *Engine) execute(ctx context.Context, sig strategy.Signal) error {
	tick, ok := e.cfg.Bus.Latest(sig.Symbol)
	if !ok {
		return fmt.Errorf("engine: no quote for %s", sig.Symbol)
	}
	spec, err := e.cfg.Registry.Lookup(sig.Symbol)
	if err != nil {
		return err
	}
	side := market.SideBuy
	price := tick.Ask
	if sig.Kind == strategy.KindSell {
		side = market.SideSell
		price = tick.Bid
	}
	qty := e.cfg.Limits.Size(tick.Mid, sig.Confidence, spec.LotStep)
	if qty <= 0 {
		return fmt.Errorf("engine: sized quantity is zero for %s", sig.Symbol)
	}
	proposal := risk.Proposal{Symbol: sig.Symbol, Side: side, Quantity: qty, Price: price}

	e.mu.Lock()
	running := e.state == StateRunning
	daily := e.dayStats.TotalNotional
	e.mu.Unlock()

	if err := e.cfg.Limits.Check(proposal, running, daily, e.cfg.Ledger.Exposure(sig.Symbol)); err != nil {
		rej, _ := market.AsRejection(err)
		e.recordRejection(ctx, proposal, rej.Reason)
		if rej.Reason == market.RejectDailyVolumeExceeded {
			e.mu.Lock()
			if e.state == StateRunning {
				e.haltLocked(market.RejectDailyVolumeExceeded)
			}
			e.mu.Unlock()
		}
		return err
	}

	now := e.cfg.Clock.Now()
	trade := market.Trade{
		ID:          market.NewTradeID(),
		Symbol:      sig.Symbol,
		Side:        side,
		Quantity:    qty,
		Price:       price,
		Notional:    qty * price,
		StrategyTag: strategyTagConsensus,
		Status:      market.TradeExecuted,
		EventTime:   now,
		Seq:         market.NextSeq(),
	}

	// 先预演新持仓与新日统计，再作为同一事务落库；成功后才更新内存。
	pos, _ := e.cfg.Ledger.Get(sig.Symbol)
	pos.Symbol = sig.Symbol
	nextPos, realized, err := ledger.ApplyTrade(pos, side, qty, price, tick.Mid, now)
	if err != nil {
		return err
	}

	e.mu.Lock()
	nextStats := e.dayStats
	e.mu.Unlock()
	nextStats.Date = e.currentDateSnapshot()
	nextStats.TotalNotional += trade.Notional
	nextStats.TradeCount++
	nextStats.RealizedPnL += realized
	nextStats.ActivePositions = e.activeAfter(sig.Symbol, pos.Quantity, nextPos.Quantity)

	persistCtx, cancel := context.WithTimeout(ctx, e.cfg.PersistTimeout)
	err = e.cfg.Store.ExecuteTrade(persistCtx, trade, nextPos, nextStats)
	cancel()
	if err != nil {
		metrics.PersistenceFailuresTotal.Inc()
		e.recordRejection(ctx, proposal, market.RejectPersistenceFailed)
		logger.Errorf("engine: persistence failed for %s: %v", sig.Symbol, err)
		return &market.Rejection{Reason: market.RejectPersistenceFailed, Detail: err.Error()}
	}

	if _, _, err := e.cfg.Ledger.Apply(sig.Symbol, side, qty, price, tick.Mid, now); err != nil {
		// 事务已提交而内存应用失败只可能是程序缺陷。
		logger.Errorf("engine: ledger apply diverged after commit: %v", err)
	}
	e.mu.Lock()
	e.dayStats = nextStats
	e.mu.Unlock()

	metrics.TradesTotal.WithLabelValues(trade.Symbol, string(trade.Side)).Inc()
	e.cfg.Bus.PublishTrade(trade)
	logger.Infof("engine: executed %s %s qty=%.0f price=%.5f notional=%.2f confidence=%.2f",
		trade.Side, trade.Symbol, trade.Quantity, trade.Price, trade.Notional, sig.Confidence)
	return nil
}

func (e *Engine) currentDateSnapshot() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.currentDate
}

// activeAfter 返回假设该笔成交生效后的非零持仓数。
func (e *Engine) activeAfter(symbol string, beforeQty, afterQty float64) int {
	n := e.cfg.Ledger.ActiveCount()
	if beforeQty == 0 && afterQty != 0 {
		n++
	} else if beforeQty != 0 && afterQty == 0 {
		n--
	}
	return n
}

// recordRejection 尽力把拒绝记录为 REJECTED 行（事务之外，失败只记日志）。
func (e *Engine) recordRejection(ctx context.Context, p risk.Proposal, reason market.RejectReason) {
	metrics.TradeRejectsTotal.WithLabelValues(string(reason)).Inc()
	trade := market.Trade{
		ID:           market.NewTradeID(),
		Symbol:       p.Symbol,
		Side:         p.Side,
		Quantity:     p.Quantity,
		Price:        p.Price,
		Notional:     p.Notional(),
		StrategyTag:  strategyTagConsensus,
		Status:       market.TradeRejected,
		RejectReason: reason,
		EventTime:    e.cfg.Clock.Now(),
		Seq:          market.NextSeq(),
	}
	recordCtx, cancel := context.WithTimeout(ctx, e.cfg.PersistTimeout)
	defer cancel()
	if err := e.cfg.Store.AppendTrade(recordCtx, trade); err != nil && !errors.Is(err, context.Canceled) {
		logger.Debugf("engine: recording rejection failed: %v", err)
	}
}

// rolloverIfNeeded 在 UTC 日期切换时清零当日额度并解除日限额 halt。
func (e *Engine) rolloverIfNeeded() {
	today := market.DateOf(e.cfg.Clock.Now())
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateStopped || today == e.currentDate {
		return
	}
	logger.Infof("engine: daily rollover %s -> %s", e.currentDate, today)
	e.currentDate = today
	e.dayStats = market.DailyStats{Date: today}
	if e.state == StateHalted && e.haltReason == market.RejectDailyVolumeExceeded {
		e.state = StateRunning
		e.haltReason = market.RejectNone
		logger.Infof("engine: resumed after daily rollover")
	}
}
