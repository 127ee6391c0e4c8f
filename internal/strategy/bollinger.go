package strategy

import "fxsim/internal/indicator"

// BollingerStrategy 在价格突破上下轨时发出均值回归信号。
type BollingerStrategy struct {
	Period int
	StdDev float64
}

func NewBollingerStrategy(period int, stdDev float64) BollingerStrategy {
	if period <= 0 {
		period = 20
	}
	if stdDev <= 0 {
		stdDev = 2
	}
	return BollingerStrategy{Period: period, StdDev: stdDev}
}

func (s BollingerStrategy) Evaluate(symbol string, prices []float64) Signal {
	bands, ok := indicator.Bollinger(prices, s.Period, s.StdDev)
	if !ok {
		return hold(symbol, SourceBB, ReasonInsufficientHistory)
	}
	price := prices[len(prices)-1]
	switch {
	case price > bands.Upper && bands.Upper > bands.Middle:
		return Signal{
			Symbol:     symbol,
			Kind:       KindSell,
			Confidence: capConfidence((price - bands.Upper) / (bands.Upper - bands.Middle)),
			ReasonCode: ReasonAboveUpperBand,
			Source:     SourceBB,
		}
	case price < bands.Lower && bands.Middle > bands.Lower:
		return Signal{
			Symbol:     symbol,
			Kind:       KindBuy,
			Confidence: capConfidence((bands.Lower - price) / (bands.Middle - bands.Lower)),
			ReasonCode: ReasonBelowLowerBand,
			Source:     SourceBB,
		}
	default:
		return hold(symbol, SourceBB, ReasonWithinBands)
	}
}
