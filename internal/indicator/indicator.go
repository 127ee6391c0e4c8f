// Package indicator 提供对价格窗口（旧→新）的纯函数指标计算。
// SMA 与布林带走 talib（SMA matype + 总体标准差，与定义一致）；
// RSI 采用窗口内涨跌幅简单均值的口径，与 talib 的 Wilder 平滑不同，因此手工实现。
package indicator

import (
	"github.com/markcheno/go-talib"
)

// Params 汇总指标周期配置。
type Params struct {
	SMAShort  int
	SMALong   int
	RSIPeriod int
	BBPeriod  int
	BBStd     float64
}

// Bands 是布林带三轨。
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Snapshot 是按需计算的指标快照；历史不足时对应字段为 nil。
type Snapshot struct {
	SMAShort *float64 `json:"sma_short,omitempty"`
	SMALong  *float64 `json:"sma_long,omitempty"`
	RSI      *float64 `json:"rsi,omitempty"`
	BBMiddle *float64 `json:"bb_middle,omitempty"`
	BBUpper  *float64 `json:"bb_upper,omitempty"`
	BBLower  *float64 `json:"bb_lower,omitempty"`
}

// SMA 返回最近 n 个价格的算术平均；样本不足返回 false。
func SMA(prices []float64, n int) (float64, bool) {
	if n <= 0 || len(prices) < n {
		return 0, false
	}
	if n == 1 {
		return prices[len(prices)-1], true
	}
	out := talib.Sma(prices, n)
	return out[len(out)-1], true
}

// RSI 基于最近 n 段涨跌幅的简单均值；avg_loss 为 0 时按约定返回 100。
func RSI(prices []float64, n int) (float64, bool) {
	if n <= 0 || len(prices) < n+1 {
		return 0, false
	}
	window := prices[len(prices)-n-1:]
	var gain, loss float64
	for i := 1; i <= n; i++ {
		d := window[i] - window[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	avgGain := gain / float64(n)
	avgLoss := loss / float64(n)
	if avgLoss == 0 {
		return 100, true
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs), true
}

// Bollinger 返回 SMA 中轨与 k 倍总体标准差的上下轨。
func Bollinger(prices []float64, n int, k float64) (Bands, bool) {
	if n <= 1 || len(prices) < n {
		return Bands{}, false
	}
	upper, middle, lower := talib.BBands(prices, n, k, k, talib.SMA)
	last := len(prices) - 1
	return Bands{Upper: upper[last], Middle: middle[last], Lower: lower[last]}, true
}

// Compute 按需生成指标快照，历史不足的字段留空。
func Compute(prices []float64, p Params) Snapshot {
	var snap Snapshot
	if v, ok := SMA(prices, p.SMAShort); ok {
		snap.SMAShort = &v
	}
	if v, ok := SMA(prices, p.SMALong); ok {
		snap.SMALong = &v
	}
	if v, ok := RSI(prices, p.RSIPeriod); ok {
		snap.RSI = &v
	}
	if b, ok := Bollinger(prices, p.BBPeriod, p.BBStd); ok {
		snap.BBMiddle = &b.Middle
		snap.BBUpper = &b.Upper
		snap.BBLower = &b.Lower
	}
	return snap
}
