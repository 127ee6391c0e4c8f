package strategy

// Kind 是信号方向。
type Kind string

const (
	KindBuy  Kind = "BUY"
	KindSell Kind = "SELL"
	KindHold Kind = "HOLD"
)

// Source 标识信号来源的策略。
type Source string

const (
	SourceSMA      Source = "SMA"
	SourceRSI      Source = "RSI"
	SourceBB       Source = "BB"
	SourceCombined Source = "COMBINED"
)

// 机器可读的 reason code。
const (
	ReasonGoldenCross         = "golden_cross"
	ReasonDeathCross          = "death_cross"
	ReasonNoCross             = "no_cross"
	ReasonInsufficientHistory = "insufficient_history"
	ReasonOverbought          = "overbought"
	ReasonOversold            = "oversold"
	ReasonNeutral             = "neutral"
	ReasonAboveUpperBand      = "above_upper_band"
	ReasonBelowLowerBand      = "below_lower_band"
	ReasonWithinBands         = "within_bands"
	ReasonCombinedAnalysis    = "combined_analysis"
	ReasonNoConsensus         = "no_consensus"
)

// Signal 是一次策略评估的输出；共识信号在 Inputs 中携带各策略明细。
type Signal struct {
	Symbol     string   `json:"symbol"`
	Kind       Kind     `json:"kind"`
	Confidence float64  `json:"confidence"`
	ReasonCode string   `json:"reason_code"`
	Source     Source   `json:"source"`
	Inputs     []Signal `json:"inputs,omitempty"`
}

// Strategy 基于价格窗口（旧→新）产出信号。实现必须无状态且确定。
type Strategy interface {
	Evaluate(symbol string, prices []float64) Signal
}

func hold(symbol string, source Source, reason string) Signal {
	return Signal{Symbol: symbol, Kind: KindHold, Confidence: 0, ReasonCode: reason, Source: source}
}

func capConfidence(c float64) float64 {
	if c > 1 {
		return 1
	}
	if c < 0 {
		return 0
	}
	return c
}
