// Package risk 实现交易前的额度检查与头寸定价。
package risk

import (
	"fmt"
	"math"

	"fxsim/internal/market"
)

// Limits 是风控参数集合。
type Limits struct {
	DailyCapNotional     float64
	BasePositionNotional float64
	MinNotional          float64
	PerTradeCapFraction  float64
	PerSymbolCapFraction float64
}

// Proposal 是一笔待检交易。
type Proposal struct {
	Symbol   string
	Side     market.Side
	Quantity float64
	Price    float64
}

// Notional 返回交易名义金额。
func (p Proposal) Notional() float64 {
	return p.Quantity * p.Price
}

// Size 按置信度给出下单数量：名义额 = max(MinNotional, Base×confidence)，
// 落到 lot step 后不足最小名义额的向上补足（不拒绝）。
func (l Limits) Size(mid, confidence, lotStep float64) float64 {
	if mid <= 0 {
		return 0
	}
	if lotStep <= 0 {
		lotStep = 1
	}
	notional := l.BasePositionNotional * confidence
	if notional < l.MinNotional {
		notional = l.MinNotional
	}
	qty := math.Floor(notional/mid/lotStep) * lotStep
	if qty*mid < l.MinNotional {
		qty = math.Ceil(l.MinNotional/mid/lotStep) * lotStep
	}
	return qty
}

// Check 按固定顺序执行风控门：引擎状态 → 日限额 → 单笔上限 → 单品种敞口。
// 拒绝以 *market.Rejection 返回；DailyVolumeExceeded 由调用方触发 halt。
func (l Limits) Check(p Proposal, running bool, dailyNotional, symbolExposure float64) error {
	if !running {
		return &market.Rejection{Reason: market.RejectEngineHalted, Detail: "engine is not running"}
	}
	notional := p.Notional()
	if dailyNotional+notional > l.DailyCapNotional {
		return &market.Rejection{
			Reason: market.RejectDailyVolumeExceeded,
			Detail: fmt.Sprintf("daily notional %.2f + %.2f exceeds cap %.2f", dailyNotional, notional, l.DailyCapNotional),
		}
	}
	if perTradeCap := l.DailyCapNotional * l.PerTradeCapFraction; notional > perTradeCap {
		return &market.Rejection{
			Reason: market.RejectTradeTooLarge,
			Detail: fmt.Sprintf("notional %.2f exceeds per-trade cap %.2f", notional, perTradeCap),
		}
	}
	if symbolCap := l.DailyCapNotional * l.PerSymbolCapFraction; symbolExposure+notional > symbolCap {
		return &market.Rejection{
			Reason: market.RejectSymbolExposureExceeded,
			Detail: fmt.Sprintf("%s exposure %.2f + %.2f exceeds cap %.2f", p.Symbol, symbolExposure, notional, symbolCap),
		}
	}
	return nil
}
