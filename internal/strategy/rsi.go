package strategy

import "fxsim/internal/indicator"

// RSIStrategy 在超买/超卖阈值外发出反转信号。
type RSIStrategy struct {
	Period     int
	Overbought float64
	Oversold   float64
}

func NewRSIStrategy(period int, overbought, oversold float64) RSIStrategy {
	if period <= 0 {
		period = 14
	}
	if overbought <= 0 {
		overbought = 70
	}
	if oversold <= 0 {
		oversold = 30
	}
	return RSIStrategy{Period: period, Overbought: overbought, Oversold: oversold}
}

func (s RSIStrategy) Evaluate(symbol string, prices []float64) Signal {
	rsi, ok := indicator.RSI(prices, s.Period)
	if !ok {
		return hold(symbol, SourceRSI, ReasonInsufficientHistory)
	}
	switch {
	case rsi > s.Overbought:
		return Signal{
			Symbol:     symbol,
			Kind:       KindSell,
			Confidence: capConfidence((rsi - s.Overbought) / (100 - s.Overbought)),
			ReasonCode: ReasonOverbought,
			Source:     SourceRSI,
		}
	case rsi < s.Oversold:
		return Signal{
			Symbol:     symbol,
			Kind:       KindBuy,
			Confidence: capConfidence((s.Oversold - rsi) / s.Oversold),
			ReasonCode: ReasonOversold,
			Source:     SourceRSI,
		}
	default:
		return hold(symbol, SourceRSI, ReasonNeutral)
	}
}
