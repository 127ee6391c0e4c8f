package backtest

import (
	"math/rand"
	"time"

	"fxsim/internal/market"
)

// 合成 K 线的单根波动率与影线抖动幅度。
const (
	barSigma     = 0.003
	wickFraction = 0.0015
)

// GenerateBars 从注册表基准价出发生成确定性的随机游走 K 线。
// 同一 (spec, start, end, interval, seed) 永远产出同一序列。
func GenerateBars(spec market.SymbolSpec, start, end time.Time, interval time.Duration, seed int64) []Bar {
	rng := rand.New(rand.NewSource(seed))
	n := int(end.Sub(start) / interval)
	if n <= 0 {
		return nil
	}
	bars := make([]Bar, 0, n)
	prevClose := spec.BasePrice
	for i := 0; i < n; i++ {
		open := prevClose
		close := open * (1 + (2*rng.Float64()-1)*barSigma)
		hi, lo := open, close
		if close > open {
			hi, lo = close, open
		}
		bars = append(bars, Bar{
			OpenTime: start.Add(time.Duration(i) * interval),
			Open:     open,
			High:     hi * (1 + rng.Float64()*wickFraction),
			Low:      lo * (1 - rng.Float64()*wickFraction),
			Close:    close,
		})
		prevClose = close
	}
	return bars
}
