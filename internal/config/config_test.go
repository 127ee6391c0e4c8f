package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "dev", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)

	assert.InDelta(t, 10_000_000, cfg.Trading.DailyCapNotional, 1e-9)
	assert.InDelta(t, 10_000, cfg.Trading.BasePositionNotional, 1e-9)
	assert.InDelta(t, 1_000, cfg.Trading.MinNotional, 1e-9)
	assert.InDelta(t, 0.6, cfg.Trading.MinConfidence, 1e-9)
	assert.InDelta(t, 0.10, cfg.Trading.PerTradeCapFraction, 1e-9)
	assert.InDelta(t, 0.20, cfg.Trading.PerSymbolCapFraction, 1e-9)
	assert.Equal(t, 5000, cfg.Trading.EvaluationIntervalMS)
	assert.Equal(t, 2000, cfg.Trading.PersistTimeoutMS)

	assert.Equal(t, 10, cfg.Strategy.SMAShort)
	assert.Equal(t, 50, cfg.Strategy.SMALong)
	assert.Equal(t, 14, cfg.Strategy.RSIPeriod)
	assert.InDelta(t, 70, cfg.Strategy.RSIOverbought, 1e-9)
	assert.InDelta(t, 30, cfg.Strategy.RSIOversold, 1e-9)
	assert.Equal(t, 20, cfg.Strategy.BBPeriod)
	assert.InDelta(t, 2.0, cfg.Strategy.BBStd, 1e-9)

	assert.Equal(t, 1000, cfg.Feed.TickIntervalMinMS)
	assert.Equal(t, 3000, cfg.Feed.TickIntervalMaxMS)
	assert.InDelta(t, 0.001, cfg.Feed.VolatilitySigma, 1e-9)

	assert.Equal(t, 200, cfg.Bus.HistoryCapacity)
	assert.Equal(t, 64, cfg.Bus.SubscriberBuffer)
	assert.Equal(t, "data/fxsim.db", cfg.Store.Path)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
app:
  env: prod
  log_level: debug
trading:
  daily_cap_notional: 5000000
  min_confidence: 0.7
strategy:
  sma_short: 5
  sma_long: 20
symbols:
  - symbol: EURUSD
    base_price: 1.0850
  - symbol: USDJPY
    base_price: 150.25
    decimals: 3
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.App.Env)
	assert.InDelta(t, 5_000_000, cfg.Trading.DailyCapNotional, 1e-9)
	assert.InDelta(t, 0.7, cfg.Trading.MinConfidence, 1e-9)
	assert.Equal(t, 5, cfg.Strategy.SMAShort)
	assert.Equal(t, 20, cfg.Strategy.SMALong)
	// 未覆盖的字段保留默认值。
	assert.Equal(t, 14, cfg.Strategy.RSIPeriod)
	assert.InDelta(t, 1_000, cfg.Trading.MinNotional, 1e-9)

	require.Len(t, cfg.Symbols, 2)
	assert.Equal(t, "USDJPY", cfg.Symbols[1].Symbol)
	assert.Equal(t, 3, cfg.Symbols[1].Decimals)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"sma short >= long", "strategy:\n  sma_short: 50\n  sma_long: 50\n"},
		{"rsi thresholds inverted", "strategy:\n  rsi_overbought: 30\n  rsi_oversold: 70\n"},
		{"per trade fraction above 1", "trading:\n  per_trade_cap_fraction: 1.5\n"},
		{"min confidence above 1", "trading:\n  min_confidence: 1.5\n"},
		{"tick interval inverted", "feed:\n  tick_interval_min_ms: 5000\n  tick_interval_max_ms: 1000\n"},
		{"symbol without price", "symbols:\n  - symbol: EURUSD\n    base_price: 0\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}
