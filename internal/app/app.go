// Package app 负责应用级编排：配置 → 依赖装配 → 行情源与引擎并行运行。
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"fxsim/internal/backtest"
	"fxsim/internal/bus"
	"fxsim/internal/config"
	"fxsim/internal/engine"
	"fxsim/internal/feed"
	"fxsim/internal/ledger"
	"fxsim/internal/logger"
	"fxsim/internal/market"
	"fxsim/internal/metrics"
	"fxsim/internal/risk"
	"fxsim/internal/store"
	"fxsim/internal/strategy"
)

// App 持有全部运行期组件（构建后不启动）。
type App struct {
	cfg      *config.Config
	registry *market.Registry
	bus      *bus.Bus
	feed     *feed.Simulator
	book     *ledger.Ledger
	store    store.Store
	engine   *engine.Engine
	backtest *backtest.Runner
	metrics  *http.Server
}

// NewApp 根据配置装配全部组件。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	specs := symbolSpecs(cfg.Symbols)
	registry, err := market.NewRegistry(specs)
	if err != nil {
		return nil, fmt.Errorf("building symbol registry failed: %w", err)
	}

	clock := market.NewSystemClock()
	eventBus := bus.New(cfg.Bus.HistoryCapacity, cfg.Bus.SubscriberBuffer)

	sim, err := feed.New(feed.Config{
		Bus:         eventBus,
		Registry:    registry,
		Clock:       clock,
		MinInterval: time.Duration(cfg.Feed.TickIntervalMinMS) * time.Millisecond,
		MaxInterval: time.Duration(cfg.Feed.TickIntervalMaxMS) * time.Millisecond,
		Sigma:       cfg.Feed.VolatilitySigma,
		Seed:        cfg.Feed.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("building feed failed: %w", err)
	}

	liveStore, err := store.NewSQLStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening trade store failed: %w", err)
	}

	book := ledger.New()
	combiner := strategy.NewConsensus(
		strategy.NewSMACross(cfg.Strategy.SMAShort, cfg.Strategy.SMALong),
		strategy.NewRSIStrategy(cfg.Strategy.RSIPeriod, cfg.Strategy.RSIOverbought, cfg.Strategy.RSIOversold),
		strategy.NewBollingerStrategy(cfg.Strategy.BBPeriod, cfg.Strategy.BBStd),
	)

	eng, err := engine.New(engine.Config{
		Bus:      eventBus,
		Ledger:   book,
		Store:    liveStore,
		Registry: registry,
		Clock:    clock,
		Limits: risk.Limits{
			DailyCapNotional:     cfg.Trading.DailyCapNotional,
			BasePositionNotional: cfg.Trading.BasePositionNotional,
			MinNotional:          cfg.Trading.MinNotional,
			PerTradeCapFraction:  cfg.Trading.PerTradeCapFraction,
			PerSymbolCapFraction: cfg.Trading.PerSymbolCapFraction,
		},
		Combiner:       combiner,
		SMALong:        cfg.Strategy.SMALong,
		MinConfidence:  cfg.Trading.MinConfidence,
		EvalInterval:   time.Duration(cfg.Trading.EvaluationIntervalMS) * time.Millisecond,
		PersistTimeout: time.Duration(cfg.Trading.PersistTimeoutMS) * time.Millisecond,
	})
	if err != nil {
		liveStore.Close()
		return nil, fmt.Errorf("building engine failed: %w", err)
	}

	var btStore *backtest.ResultStore
	if cfg.Backtest.ResultsPath != "" {
		btStore, err = backtest.NewResultStore(cfg.Backtest.ResultsPath)
		if err != nil {
			liveStore.Close()
			return nil, fmt.Errorf("opening backtest store failed: %w", err)
		}
	}
	runner, err := backtest.NewRunner(registry, btStore)
	if err != nil {
		liveStore.Close()
		return nil, err
	}

	return &App{
		cfg:      cfg,
		registry: registry,
		bus:      eventBus,
		feed:     sim,
		book:     book,
		store:    liveStore,
		engine:   eng,
		backtest: runner,
	}, nil
}

func symbolSpecs(configured []config.SymbolConfig) []market.SymbolSpec {
	if len(configured) == 0 {
		return market.DefaultSpecs()
	}
	specs := make([]market.SymbolSpec, 0, len(configured))
	for _, c := range configured {
		specs = append(specs, market.SymbolSpec{
			Symbol:        c.Symbol,
			BasePrice:     c.BasePrice,
			TypicalSpread: c.TypicalSpread,
			Decimals:      c.Decimals,
			LotStep:       c.LotStep,
		})
	}
	return specs
}

// Run 启动行情源与引擎，阻塞到 ctx 取消或某个组件出错。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.cfg.App.MetricsAddr != "" {
		a.metrics = metrics.Serve(a.cfg.App.MetricsAddr)
		logger.Infof("app: metrics listening on %s", a.cfg.App.MetricsAddr)
	}
	if err := a.engine.Start(ctx); err != nil {
		return fmt.Errorf("engine start failed: %w", err)
	}
	logger.Infof("app: running symbols=%d env=%s", len(a.registry.Symbols()), a.cfg.App.Env)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return a.feed.Run(ctx)
	})
	group.Go(func() error {
		<-ctx.Done()
		a.shutdown()
		return nil
	})
	return group.Wait()
}

func (a *App) shutdown() {
	a.engine.Stop()
	if a.metrics != nil {
		shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		_ = a.metrics.Shutdown(shutCtx)
		cancel()
	}
	if err := a.store.Close(); err != nil {
		logger.Warnf("app: closing trade store: %v", err)
	}
}

// Engine 暴露引擎实例（回放与测试用）。
func (a *App) Engine() *engine.Engine {
	if a == nil {
		return nil
	}
	return a.engine
}

// Feed 暴露行情源（新闻注入用）。
func (a *App) Feed() *feed.Simulator {
	if a == nil {
		return nil
	}
	return a.feed
}

// Backtest 暴露回测运行器。
func (a *App) Backtest() *backtest.Runner {
	if a == nil {
		return nil
	}
	return a.backtest
}
