package backtest

import (
	"context"
	"fmt"
	"math"
	"time"

	"fxsim/internal/indicator"
	"fxsim/internal/logger"
	"fxsim/internal/market"
	"fxsim/internal/strategy"
)

// Runner 驱动回测。store 可以为 nil，此时结果只返回不落库。
type Runner struct {
	registry *market.Registry
	store    *ResultStore

	// 测试可替换策略集合；默认按请求参数构建三个策略。
	buildStrategies func(p indicator.Params) []strategy.Strategy
}

func NewRunner(registry *market.Registry, store *ResultStore) (*Runner, error) {
	if registry == nil {
		return nil, fmt.Errorf("backtest: registry cannot be nil")
	}
	return &Runner{registry: registry, store: store, buildStrategies: defaultStrategies}, nil
}

func defaultStrategies(p indicator.Params) []strategy.Strategy {
	return []strategy.Strategy{
		strategy.NewSMACross(p.SMAShort, p.SMALong),
		strategy.NewRSIStrategy(p.RSIPeriod, 70, 30),
		strategy.NewBollingerStrategy(p.BBPeriod, p.BBStd),
	}
}

// Run 执行一次回测：生成合成 K 线，逐根喂给独立的策略组合，
// 只做多：空仓且共识 BUY 时开仓，持仓且共识 SELL 时全部平掉。
// 评估只看截至当前 bar 收盘的历史。
func (r *Runner) Run(ctx context.Context, req Request) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}
	spec, err := r.registry.Lookup(req.Symbol)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		RunID:     market.NewTradeID(),
		Request:   req,
		Seed:      req.Seed(),
		StartedAt: time.Now().UTC(),
	}
	if r.store != nil {
		if err := r.store.InsertRun(ctx, res); err != nil {
			return Result{}, fmt.Errorf("backtest: recording run failed: %w", err)
		}
	}

	combiner := strategy.NewConsensus(r.buildStrategies(req.Params)...)
	bars := GenerateBars(spec, req.Start.UTC(), req.End.UTC(), req.Interval, res.Seed)
	res.Bars = len(bars)

	cash := req.InitialCapital
	var qty, entryPrice float64
	var entryTime time.Time
	closes := make([]float64, 0, len(bars))
	peak := req.InitialCapital
	curve := make([]EquityPoint, 0, len(bars))

	for _, bar := range bars {
		if err := ctx.Err(); err != nil {
			r.markFailed(ctx, res.RunID, err)
			return Result{}, err
		}
		closes = append(closes, bar.Close)

		if len(closes) >= minHistory {
			sig := combiner.Evaluate(req.Symbol, closes)
			if sig.Confidence >= entryConfidence {
				switch {
				case sig.Kind == strategy.KindBuy && qty == 0:
					qty = math.Floor(cash * cashFraction / bar.Close)
					if qty > 0 {
						cash -= qty * bar.Close
						entryPrice = bar.Close
						entryTime = bar.OpenTime
					}
				case sig.Kind == strategy.KindSell && qty > 0:
					cash += qty * bar.Close
					pnl := (bar.Close - entryPrice) * qty
					res.TotalTrades++
					if pnl > 0 {
						res.WinningTrades++
					}
					res.Trades = append(res.Trades, RoundTrip{
						EntryTime:  entryTime,
						ExitTime:   bar.OpenTime,
						EntryPrice: entryPrice,
						ExitPrice:  bar.Close,
						Quantity:   qty,
						PnL:        pnl,
					})
					qty, entryPrice = 0, 0
				}
			}
		}

		equity := cash + qty*bar.Close
		if equity > peak {
			peak = equity
		}
		dd := (peak - equity) / peak * 100
		if dd > res.MaxDrawdownPct {
			res.MaxDrawdownPct = dd
		}
		curve = append(curve, EquityPoint{Time: bar.OpenTime, Equity: equity, Drawdown: dd})
	}

	// 未平仓部分按最后收盘价计入净值。
	res.FinalEquity = cash
	if qty > 0 && len(bars) > 0 {
		res.FinalEquity += qty * bars[len(bars)-1].Close
	}
	res.TotalPnL = res.FinalEquity - req.InitialCapital
	res.ReturnPct = res.TotalPnL / req.InitialCapital * 100
	if res.TotalTrades > 0 {
		res.WinRate = float64(res.WinningTrades) / float64(res.TotalTrades)
	}
	res.EquityCurve = curve
	res.FinishedAt = time.Now().UTC()

	if r.store != nil {
		if err := r.store.FinishRun(ctx, res); err != nil {
			logger.Warnf("backtest: persisting result for run %s failed: %v", res.RunID, err)
		}
	}
	logger.Infof("backtest: run %s %s bars=%d trades=%d return=%.2f%% max_dd=%.2f%%",
		res.RunID, req.Symbol, res.Bars, res.TotalTrades, res.ReturnPct, res.MaxDrawdownPct)
	return res, nil
}

func (r *Runner) markFailed(ctx context.Context, runID string, cause error) {
	if r.store == nil {
		return
	}
	// 取消后用短超时的新 context 收尾。
	finCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := r.store.UpdateRunStatus(finCtx, runID, RunStatusFailed, cause.Error()); err != nil {
		logger.Debugf("backtest: marking run %s failed: %v", runID, err)
	}
}
