// Package bus 是行情与成交事件的进程内总线：总线独占每个 symbol 的
// 历史环与订阅者列表，发布方串行追加，订阅方拿到的是非阻塞推送通道。
package bus

import (
	"sync"
	"sync/atomic"

	"fxsim/internal/market"
	"fxsim/internal/metrics"
)

// EventKind 是事件载荷的判别标签。
type EventKind string

const (
	KindTick  EventKind = "tick"
	KindTrade EventKind = "trade"
)

// Event 是推送给订阅者的带标签联合体。
type Event struct {
	Kind  EventKind
	Tick  market.Tick
	Trade market.Trade
}

// Subscription 持有一个订阅者的推送通道与掉帧计数。
type Subscription struct {
	id      uint64
	symbols map[string]struct{} // 空集合表示订阅全部
	ch      chan Event
	dropped atomic.Uint64
	bus     *Bus
	once    sync.Once
}

// Events 返回事件通道；慢消费者会按 drop-oldest 丢帧。
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Dropped 返回该订阅累计被丢弃的事件数。
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close 取消订阅并关闭通道。
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.bus.unsubscribe(s.id)
		close(s.ch)
	})
}

func (s *Subscription) wants(symbol string) bool {
	if len(s.symbols) == 0 {
		return true
	}
	_, ok := s.symbols[symbol]
	return ok
}

// Bus 串行化每个 symbol 的历史追加并向订阅者扇出。
type Bus struct {
	mu       sync.Mutex
	capacity int
	buffer   int
	rings    map[string]*ring
	latest   map[string]market.Tick
	subs     map[uint64]*Subscription
	nextSub  uint64
	badTicks atomic.Uint64
}

// New 构建总线。capacity 是每个 symbol 的历史环容量，buffer 是订阅通道深度。
func New(capacity, buffer int) *Bus {
	if capacity <= 0 {
		capacity = 200
	}
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{
		capacity: capacity,
		buffer:   buffer,
		rings:    make(map[string]*ring),
		latest:   make(map[string]market.Tick),
		subs:     make(map[uint64]*Subscription),
	}
}

// Publish 校验不变量、分配 seq、入环并扇出。违反不变量返回 ErrBadTick。
func (b *Bus) Publish(tick market.Tick) error {
	if err := tick.Validate(); err != nil {
		b.badTicks.Add(1)
		metrics.BadTicksTotal.Inc()
		return err
	}
	b.mu.Lock()
	tick.Seq = market.NextSeq()
	tick.Mid = (tick.Bid + tick.Ask) / 2
	tick.Spread = tick.Ask - tick.Bid

	r, ok := b.rings[tick.Symbol]
	if !ok {
		r = newRing(b.capacity)
		b.rings[tick.Symbol] = r
	}
	r.push(market.HistoryPoint{
		EventTime: tick.EventTime,
		Mid:       tick.Mid,
		High:      tick.Ask,
		Low:       tick.Bid,
		Volume:    tick.Volume,
		Seq:       tick.Seq,
	})
	b.latest[tick.Symbol] = tick
	b.deliverLocked(tick.Symbol, Event{Kind: KindTick, Tick: tick})
	b.mu.Unlock()

	metrics.TicksTotal.WithLabelValues(tick.Symbol).Inc()
	return nil
}

// PublishTrade 把成交事件扇出给该 symbol 的订阅者（不入历史环）。
func (b *Bus) PublishTrade(trade market.Trade) {
	b.mu.Lock()
	b.deliverLocked(trade.Symbol, Event{Kind: KindTrade, Trade: trade})
	b.mu.Unlock()
}

// deliverLocked 非阻塞投递：通道满时丢弃最老的事件并计数。
func (b *Bus) deliverLocked(symbol string, ev Event) {
	for _, sub := range b.subs {
		if !sub.wants(symbol) {
			continue
		}
		select {
		case sub.ch <- ev:
			continue
		default:
		}
		// 腾出最老的一个槽位再投递；仍失败则丢当前事件。
		select {
		case <-sub.ch:
		default:
		}
		sub.dropped.Add(1)
		metrics.SubscriberDropsTotal.Inc()
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

// Subscribe 返回订阅；不传 symbol 表示订阅全部。
func (b *Bus) Subscribe(symbols ...string) *Subscription {
	filter := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		if s != "" {
			filter[s] = struct{}{}
		}
	}
	b.mu.Lock()
	b.nextSub++
	sub := &Subscription{
		id:      b.nextSub,
		symbols: filter,
		ch:      make(chan Event, b.buffer),
		bus:     b,
	}
	b.subs[sub.id] = sub
	b.mu.Unlock()
	return sub
}

func (b *Bus) unsubscribe(id uint64) {
	b.mu.Lock()
	delete(b.subs, id)
	b.mu.Unlock()
}

// Snapshot 返回最近 n 个历史点的不可变副本，旧→新。
func (b *Bus) Snapshot(symbol string, n int) []market.HistoryPoint {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rings[symbol]
	if !ok {
		return nil
	}
	return r.last(n)
}

// HistoryLen 返回当前历史环长度。
func (b *Bus) HistoryLen(symbol string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.rings[symbol]
	if !ok {
		return 0
	}
	return r.len()
}

// Latest 返回最近一笔报价。
func (b *Bus) Latest(symbol string) (market.Tick, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.latest[symbol]
	return t, ok
}

// BadTicks 返回累计被拒绝的报价数。
func (b *Bus) BadTicks() uint64 {
	return b.badTicks.Load()
}
