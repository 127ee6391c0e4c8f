package config

import "fmt"

// validate 在构造期拦截明显的配置错误；这是唯一允许 fatal 的错误类别。
func validate(c *Config) error {
	t := c.Trading
	if t.PerTradeCapFraction > 1 {
		return fmt.Errorf("trading.per_trade_cap_fraction must be <= 1, got %v", t.PerTradeCapFraction)
	}
	if t.PerSymbolCapFraction > 1 {
		return fmt.Errorf("trading.per_symbol_cap_fraction must be <= 1, got %v", t.PerSymbolCapFraction)
	}
	if t.MinConfidence > 1 {
		return fmt.Errorf("trading.min_confidence must be in (0,1], got %v", t.MinConfidence)
	}
	if t.MinNotional > t.DailyCapNotional {
		return fmt.Errorf("trading.min_notional %v exceeds daily cap %v", t.MinNotional, t.DailyCapNotional)
	}

	s := c.Strategy
	if s.SMAShort >= s.SMALong {
		return fmt.Errorf("strategy.sma_short (%d) must be less than sma_long (%d)", s.SMAShort, s.SMALong)
	}
	if s.RSIOversold >= s.RSIOverbought {
		return fmt.Errorf("strategy.rsi_oversold (%v) must be below rsi_overbought (%v)", s.RSIOversold, s.RSIOverbought)
	}

	f := c.Feed
	if f.TickIntervalMinMS > f.TickIntervalMaxMS {
		return fmt.Errorf("feed.tick_interval_min_ms (%d) exceeds tick_interval_max_ms (%d)", f.TickIntervalMinMS, f.TickIntervalMaxMS)
	}

	for i, sym := range c.Symbols {
		if sym.Symbol == "" {
			return fmt.Errorf("symbols[%d]: symbol cannot be empty", i)
		}
		if sym.BasePrice <= 0 {
			return fmt.Errorf("symbols[%d] (%s): base_price must be positive", i, sym.Symbol)
		}
	}
	return nil
}
