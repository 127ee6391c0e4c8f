package strategy

import "fxsim/internal/indicator"

// SMACross 检测短长均线的金叉/死叉。
type SMACross struct {
	Short int
	Long  int
}

func NewSMACross(short, long int) SMACross {
	if short <= 0 {
		short = 10
	}
	if long <= short {
		long = 50
	}
	return SMACross{Short: short, Long: long}
}

func (s SMACross) Evaluate(symbol string, prices []float64) Signal {
	// 交叉判断需要当前与上一根两组均线，即 long+1 个点。
	if len(prices) < s.Long+1 {
		return hold(symbol, SourceSMA, ReasonInsufficientHistory)
	}
	curShort, _ := indicator.SMA(prices, s.Short)
	curLong, _ := indicator.SMA(prices, s.Long)
	prev := prices[:len(prices)-1]
	prevShort, _ := indicator.SMA(prev, s.Short)
	prevLong, _ := indicator.SMA(prev, s.Long)

	switch {
	case prevShort <= prevLong && curShort > curLong:
		return Signal{
			Symbol:     symbol,
			Kind:       KindBuy,
			Confidence: capConfidence((curShort - curLong) / curLong * 100),
			ReasonCode: ReasonGoldenCross,
			Source:     SourceSMA,
		}
	case prevShort >= prevLong && curShort < curLong:
		return Signal{
			Symbol:     symbol,
			Kind:       KindSell,
			Confidence: capConfidence((curLong - curShort) / curLong * 100),
			ReasonCode: ReasonDeathCross,
			Source:     SourceSMA,
		}
	default:
		return hold(symbol, SourceSMA, ReasonNoCross)
	}
}
