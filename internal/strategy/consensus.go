package strategy

// Consensus 汇总多个策略的信号并按多数票合成。
type Consensus struct {
	strategies []Strategy
}

// NewConsensus 用给定的策略集合构建组合器。
func NewConsensus(strategies ...Strategy) *Consensus {
	return &Consensus{strategies: strategies}
}

// Evaluate 运行所有策略并合成共识信号。
func (c *Consensus) Evaluate(symbol string, prices []float64) Signal {
	inputs := make([]Signal, 0, len(c.strategies))
	for _, s := range c.strategies {
		inputs = append(inputs, s.Evaluate(symbol, prices))
	}
	return Combine(symbol, inputs)
}

// Combine 是纯函数：同样的分量信号永远得到同样的共识输出。
// 只统计 confidence>0 的票，多数方向胜出，置信度取胜方均值（上限 1）；
// 平票或全 HOLD 时输出 HOLD。分量信号始终随共识返回，便于审计。
func Combine(symbol string, inputs []Signal) Signal {
	var buySum, sellSum float64
	var buys, sells int
	for _, in := range inputs {
		if in.Confidence <= 0 {
			continue
		}
		switch in.Kind {
		case KindBuy:
			buys++
			buySum += in.Confidence
		case KindSell:
			sells++
			sellSum += in.Confidence
		}
	}
	out := Signal{
		Symbol:     symbol,
		Kind:       KindHold,
		ReasonCode: ReasonNoConsensus,
		Source:     SourceCombined,
		Inputs:     inputs,
	}
	switch {
	case buys > sells:
		out.Kind = KindBuy
		out.Confidence = capConfidence(buySum / float64(buys))
		out.ReasonCode = ReasonCombinedAnalysis
	case sells > buys:
		out.Kind = KindSell
		out.Confidence = capConfidence(sellSum / float64(sells))
		out.ReasonCode = ReasonCombinedAnalysis
	}
	return out
}
