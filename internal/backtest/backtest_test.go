package backtest

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fxsim/internal/indicator"
	"fxsim/internal/market"
	"fxsim/internal/strategy"
)

// capturingStrategy 记录每次评估收到的价格窗口，始终输出 HOLD。
type capturingStrategy struct {
	windows [][]float64
}

func (c *capturingStrategy) Evaluate(symbol string, prices []float64) strategy.Signal {
	window := make([]float64, len(prices))
	copy(window, prices)
	c.windows = append(c.windows, window)
	return strategy.Signal{Symbol: symbol, Kind: strategy.KindHold, Source: strategy.SourceCombined}
}

func testRequest() Request {
	return Request{
		Symbol:         "EURUSD",
		Start:          time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:            time.Date(2024, 7, 19, 0, 0, 0, 0, time.UTC), // 200 天
		Interval:       24 * time.Hour,
		InitialCapital: 100_000,
		Params:         indicator.Params{SMAShort: 10, SMALong: 50, RSIPeriod: 14, BBPeriod: 20, BBStd: 2},
	}
}

func testRegistry(t *testing.T) *market.Registry {
	t.Helper()
	r, err := market.NewRegistry(market.DefaultSpecs())
	require.NoError(t, err)
	return r
}

func TestRequestValidate(t *testing.T) {
	req := testRequest()
	assert.NoError(t, req.Validate())

	bad := req
	bad.Symbol = ""
	assert.Error(t, bad.Validate())

	bad = req
	bad.End = bad.Start
	assert.Error(t, bad.Validate())

	bad = req
	bad.Interval = 0
	assert.Error(t, bad.Validate())

	bad = req
	bad.InitialCapital = 0
	assert.Error(t, bad.Validate())
}

func TestRequestSeedStable(t *testing.T) {
	a := testRequest()
	b := testRequest()
	assert.Equal(t, a.Seed(), b.Seed())

	b.InitialCapital = 50_000
	assert.NotEqual(t, a.Seed(), b.Seed())
}

func TestGenerateBarsDeterministic(t *testing.T) {
	spec := market.SymbolSpec{Symbol: "EURUSD", BasePrice: 1.0850}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 100)

	a := GenerateBars(spec, start, end, 24*time.Hour, 12345)
	b := GenerateBars(spec, start, end, 24*time.Hour, 12345)
	require.Len(t, a, 100)
	assert.Equal(t, a, b)

	c := GenerateBars(spec, start, end, 24*time.Hour, 54321)
	assert.NotEqual(t, a, c)
}

func TestGenerateBarsShape(t *testing.T) {
	spec := market.SymbolSpec{Symbol: "EURUSD", BasePrice: 1.0850}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := GenerateBars(spec, start, start.AddDate(0, 0, 50), 24*time.Hour, 7)

	require.Len(t, bars, 50)
	assert.InDelta(t, 1.0850, bars[0].Open, 1e-9)
	for i, bar := range bars {
		assert.GreaterOrEqual(t, bar.High, math.Max(bar.Open, bar.Close))
		assert.LessOrEqual(t, bar.Low, math.Min(bar.Open, bar.Close))
		if i > 0 {
			// 相邻 bar 首尾相接。
			assert.Equal(t, bars[i-1].Close, bar.Open)
			assert.Equal(t, bars[i-1].OpenTime.Add(24*time.Hour), bar.OpenTime)
		}
	}
}

func TestRunReproducible(t *testing.T) {
	runner, err := NewRunner(testRegistry(t), nil)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := runner.Run(ctx, testRequest())
	require.NoError(t, err)
	second, err := runner.Run(ctx, testRequest())
	require.NoError(t, err)

	assert.Equal(t, first.Seed, second.Seed)
	assert.Equal(t, first.TotalTrades, second.TotalTrades)
	assert.Equal(t, first.WinningTrades, second.WinningTrades)
	assert.Equal(t, first.TotalPnL, second.TotalPnL)
	assert.Equal(t, first.FinalEquity, second.FinalEquity)
	assert.Equal(t, first.MaxDrawdownPct, second.MaxDrawdownPct)
	assert.Equal(t, first.Trades, second.Trades)
}

func TestRunMetricsConsistent(t *testing.T) {
	runner, err := NewRunner(testRegistry(t), nil)
	require.NoError(t, err)

	res, err := runner.Run(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, 200, res.Bars)
	assert.Len(t, res.EquityCurve, res.Bars)
	assert.GreaterOrEqual(t, res.MaxDrawdownPct, 0.0)
	assert.InDelta(t, res.FinalEquity-100_000, res.TotalPnL, 1e-6)
	assert.InDelta(t, res.TotalPnL/100_000*100, res.ReturnPct, 1e-6)
	assert.LessOrEqual(t, res.WinningTrades, res.TotalTrades)
	if res.TotalTrades > 0 {
		assert.InDelta(t, float64(res.WinningTrades)/float64(res.TotalTrades), res.WinRate, 1e-9)
	} else {
		assert.Zero(t, res.WinRate)
	}
	// 净值曲线逐根可加：任一点的回撤非负且不超过峰值比例。
	for _, p := range res.EquityCurve {
		assert.GreaterOrEqual(t, p.Drawdown, 0.0)
		assert.Less(t, p.Drawdown, 100.0)
	}
}

func TestRunStrategiesSeeOnlyPastBars(t *testing.T) {
	registry := testRegistry(t)
	runner, err := NewRunner(registry, nil)
	require.NoError(t, err)
	capture := &capturingStrategy{}
	runner.buildStrategies = func(indicator.Params) []strategy.Strategy {
		return []strategy.Strategy{capture}
	}

	req := testRequest()
	res, err := runner.Run(context.Background(), req)
	require.NoError(t, err)

	spec, err := registry.Lookup(req.Symbol)
	require.NoError(t, err)
	bars := GenerateBars(spec, req.Start, req.End, req.Interval, res.Seed)
	require.Len(t, capture.windows, len(bars)-minHistory+1)

	// 第 i 根 bar 的评估只能看到 0..i 的收盘价，最后一个元素是当根收盘。
	for i, window := range capture.windows {
		barIdx := minHistory - 1 + i
		require.Len(t, window, barIdx+1)
		assert.Equal(t, bars[barIdx].Close, window[len(window)-1])
		for j, price := range window {
			assert.Equal(t, bars[j].Close, price)
		}
	}
}

func TestRunUnknownSymbol(t *testing.T) {
	runner, err := NewRunner(testRegistry(t), nil)
	require.NoError(t, err)
	req := testRequest()
	req.Symbol = "XAUUSD"
	_, err = runner.Run(context.Background(), req)
	assert.ErrorIs(t, err, market.ErrUnknownSymbol)
}

func TestResultStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backtests.db")
	rs, err := NewResultStore(path)
	require.NoError(t, err)
	defer rs.Close()

	runner, err := NewRunner(testRegistry(t), rs)
	require.NoError(t, err)
	ctx := context.Background()

	res, err := runner.Run(ctx, testRequest())
	require.NoError(t, err)

	row, err := rs.GetRun(ctx, res.RunID)
	require.NoError(t, err)
	assert.Equal(t, RunStatusDone, row.Status)
	assert.Equal(t, "EURUSD", row.Symbol)
	assert.Equal(t, res.Seed, row.Seed)
	assert.InDelta(t, res.FinalEquity, row.FinalEquity, 1e-6)
	assert.Equal(t, res.TotalTrades, row.TotalTrades)
	assert.Equal(t, res.Bars, row.Bars)
	assert.False(t, row.CompletedAt.IsZero())

	runs, err := rs.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	curve, err := rs.ListEquity(ctx, res.RunID, 500)
	require.NoError(t, err)
	assert.Len(t, curve, res.Bars)
}
