// Package feed 为每个 symbol 维护一条随机游走，按抖动间隔产生报价。
package feed

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"fxsim/internal/bus"
	"fxsim/internal/logger"
	"fxsim/internal/market"
)

// Config 汇集模拟行情源的构造参数。
type Config struct {
	Bus         *bus.Bus
	Registry    *market.Registry
	Clock       market.Clock
	MinInterval time.Duration
	MaxInterval time.Duration
	Sigma       float64
	Seed        int64
}

// Simulator 是模拟行情源：每个 symbol 一条 goroutine。
type Simulator struct {
	bus      *bus.Bus
	registry *market.Registry
	clock    market.Clock
	minIv    time.Duration
	maxIv    time.Duration
	sigma    float64
	seed     int64

	mu   sync.Mutex
	mids map[string]float64
	rngs map[string]*rand.Rand
	news map[string]float64 // 待生效的一次性冲击乘数
}

func New(cfg Config) (*Simulator, error) {
	if cfg.Bus == nil {
		return nil, fmt.Errorf("feed: bus cannot be nil")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("feed: registry cannot be nil")
	}
	if cfg.Clock == nil {
		cfg.Clock = market.NewSystemClock()
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = time.Second
	}
	if cfg.MaxInterval < cfg.MinInterval {
		cfg.MaxInterval = 3 * time.Second
	}
	if cfg.Sigma <= 0 {
		cfg.Sigma = 0.001
	}
	s := &Simulator{
		bus:      cfg.Bus,
		registry: cfg.Registry,
		clock:    cfg.Clock,
		minIv:    cfg.MinInterval,
		maxIv:    cfg.MaxInterval,
		sigma:    cfg.Sigma,
		seed:     cfg.Seed,
		mids:     make(map[string]float64),
		rngs:     make(map[string]*rand.Rand),
		news:     make(map[string]float64),
	}
	for _, symbol := range cfg.Registry.Symbols() {
		spec, err := cfg.Registry.Lookup(symbol)
		if err != nil {
			return nil, err
		}
		s.mids[symbol] = spec.BasePrice
		s.rngs[symbol] = rand.New(rand.NewSource(symbolSeed(cfg.Seed, symbol)))
	}
	return s, nil
}

// symbolSeed 把全局种子与 symbol 名混合，保证每条游走独立且可复现。
func symbolSeed(seed int64, symbol string) int64 {
	if seed == 0 {
		return time.Now().UnixNano() ^ int64(fnvHash(symbol))
	}
	return seed ^ int64(fnvHash(symbol))
}

func fnvHash(s string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return h.Sum64()
}

// Run 启动所有 symbol 的报价循环，ctx 取消后归还。
func (s *Simulator) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, symbol := range s.registry.Symbols() {
		symbol := symbol
		g.Go(func() error {
			return s.runSymbol(ctx, symbol)
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Simulator) runSymbol(ctx context.Context, symbol string) error {
	for {
		wait := s.nextInterval(symbol)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if _, err := s.Step(symbol); err != nil {
			logger.Warnf("feed: publish %s failed: %v", symbol, err)
		}
	}
}

func (s *Simulator) nextInterval(symbol string) time.Duration {
	s.mu.Lock()
	rng := s.rngs[symbol]
	span := s.maxIv - s.minIv
	var jitter time.Duration
	if span > 0 {
		jitter = time.Duration(rng.Int63n(int64(span)))
	}
	s.mu.Unlock()
	return s.minIv + jitter
}

// Step 推进一步随机游走并发布报价。导出以便测试驱动确定性序列。
func (s *Simulator) Step(symbol string) (market.Tick, error) {
	s.mu.Lock()
	mid, ok := s.mids[symbol]
	if !ok {
		s.mu.Unlock()
		return market.Tick{}, fmt.Errorf("%w: %s", market.ErrUnknownSymbol, symbol)
	}
	rng := s.rngs[symbol]

	var spread, volume float64
	if shock, pending := s.news[symbol]; pending {
		delete(s.news, symbol)
		mid *= 1 + shock
		spread = mid * 0.0003
		volume = (100_000 + rng.Float64()*1_000_000) * 5
	} else {
		mid *= 1 + (2*rng.Float64()-1)*s.sigma
		spread = mid * (0.0001 + rng.Float64()*0.0003)
		volume = 100_000 + rng.Float64()*1_000_000
	}
	s.mids[symbol] = mid
	s.mu.Unlock()

	tick := market.Tick{
		Symbol:    symbol,
		Bid:       mid - spread/2,
		Ask:       mid + spread/2,
		Volume:    volume,
		EventTime: s.clock.Now(),
	}
	if err := s.bus.Publish(tick); err != nil {
		return market.Tick{}, err
	}
	return tick, nil
}

// InjectNews 给 symbol 安排一次性新闻冲击，下一笔报价生效。
func (s *Simulator) InjectNews(symbol string, impact market.NewsImpact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rng, ok := s.rngs[symbol]
	if !ok {
		return fmt.Errorf("%w: %s", market.ErrUnknownSymbol, symbol)
	}
	var magnitude float64
	switch impact {
	case market.ImpactLow:
		magnitude = 0.002
	case market.ImpactMed:
		magnitude = 0.005
	case market.ImpactHigh:
		magnitude = 0.01
	default:
		return fmt.Errorf("feed: unknown news impact %q", impact)
	}
	if rng.Intn(2) == 0 {
		magnitude = -magnitude
	}
	s.news[symbol] = magnitude
	logger.Infof("feed: news shock scheduled symbol=%s impact=%s magnitude=%+.4f", symbol, impact, magnitude)
	return nil
}
