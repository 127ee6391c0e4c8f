package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSMACrossGoldenCross(t *testing.T) {
	s := NewSMACross(2, 3)
	// 上一根短长均线持平，最新一根短均线上穿。
	sig := s.Evaluate("EURUSD", []float64{10, 10, 10, 20})
	assert.Equal(t, KindBuy, sig.Kind)
	assert.Equal(t, ReasonGoldenCross, sig.ReasonCode)
	assert.Equal(t, SourceSMA, sig.Source)
	// 差值百分比乘 100 后封顶 1。
	assert.InDelta(t, 1.0, sig.Confidence, 1e-9)
}

func TestSMACrossDeathCross(t *testing.T) {
	s := NewSMACross(2, 3)
	sig := s.Evaluate("EURUSD", []float64{10, 10, 10, 5})
	assert.Equal(t, KindSell, sig.Kind)
	assert.Equal(t, ReasonDeathCross, sig.ReasonCode)
	assert.InDelta(t, 1.0, sig.Confidence, 1e-9)
}

func TestSMACrossHold(t *testing.T) {
	s := NewSMACross(2, 3)

	sig := s.Evaluate("EURUSD", []float64{10, 10, 10, 10})
	assert.Equal(t, KindHold, sig.Kind)
	assert.Equal(t, ReasonNoCross, sig.ReasonCode)
	assert.Zero(t, sig.Confidence)

	sig = s.Evaluate("EURUSD", []float64{10, 10, 10})
	assert.Equal(t, KindHold, sig.Kind)
	assert.Equal(t, ReasonInsufficientHistory, sig.ReasonCode)
}

func TestRSIStrategyThresholds(t *testing.T) {
	s := NewRSIStrategy(3, 70, 30)

	// 全涨：RSI=100 → SELL，置信度 (100-70)/(100-70)=1。
	sig := s.Evaluate("EURUSD", []float64{1, 2, 3, 4})
	assert.Equal(t, KindSell, sig.Kind)
	assert.Equal(t, ReasonOverbought, sig.ReasonCode)
	assert.InDelta(t, 1.0, sig.Confidence, 1e-9)

	// 全跌：RSI=0 → BUY，置信度 (30-0)/30=1。
	sig = s.Evaluate("EURUSD", []float64{4, 3, 2, 1})
	assert.Equal(t, KindBuy, sig.Kind)
	assert.Equal(t, ReasonOversold, sig.ReasonCode)
	assert.InDelta(t, 1.0, sig.Confidence, 1e-9)

	// RSI=80 在 3 根样本下：置信度 (80-70)/30。
	sig = s.Evaluate("EURUSD", []float64{1, 2, 1.5, 2.5})
	assert.Equal(t, KindSell, sig.Kind)
	assert.InDelta(t, 10.0/30.0, sig.Confidence, 1e-9)

	sig = s.Evaluate("EURUSD", []float64{1, 2})
	assert.Equal(t, ReasonInsufficientHistory, sig.ReasonCode)
}

func TestBollingerStrategyBreakout(t *testing.T) {
	s := NewBollingerStrategy(5, 1)

	// mean=11.2, 总体 std≈1.47，上轨≈12.67 < 14。
	up := []float64{10, 11, 10, 11, 14}
	sig := s.Evaluate("EURUSD", up)
	assert.Equal(t, KindSell, sig.Kind)
	assert.Equal(t, ReasonAboveUpperBand, sig.ReasonCode)
	assert.Greater(t, sig.Confidence, 0.0)

	down := []float64{12, 11, 12, 11, 8}
	sig = s.Evaluate("EURUSD", down)
	assert.Equal(t, KindBuy, sig.Kind)
	assert.Equal(t, ReasonBelowLowerBand, sig.ReasonCode)

	flat := []float64{10, 10, 10, 10, 10}
	sig = s.Evaluate("EURUSD", flat)
	assert.Equal(t, KindHold, sig.Kind)
	assert.Equal(t, ReasonWithinBands, sig.ReasonCode)
}

func TestCombineMajority(t *testing.T) {
	inputs := []Signal{
		{Kind: KindBuy, Confidence: 0.8, Source: SourceSMA},
		{Kind: KindBuy, Confidence: 0.6, Source: SourceRSI},
		{Kind: KindSell, Confidence: 0.9, Source: SourceBB},
	}
	out := Combine("EURUSD", inputs)
	assert.Equal(t, KindBuy, out.Kind)
	assert.InDelta(t, 0.7, out.Confidence, 1e-9)
	assert.Equal(t, ReasonCombinedAnalysis, out.ReasonCode)
	assert.Equal(t, SourceCombined, out.Source)
	assert.Len(t, out.Inputs, 3)
}

func TestCombineTieAndHold(t *testing.T) {
	tie := []Signal{
		{Kind: KindBuy, Confidence: 0.9},
		{Kind: KindSell, Confidence: 0.9},
	}
	out := Combine("EURUSD", tie)
	assert.Equal(t, KindHold, out.Kind)
	assert.Equal(t, ReasonNoConsensus, out.ReasonCode)
	assert.Zero(t, out.Confidence)

	allHold := []Signal{
		{Kind: KindHold, Confidence: 0},
		{Kind: KindHold, Confidence: 0},
	}
	out = Combine("EURUSD", allHold)
	assert.Equal(t, KindHold, out.Kind)

	// 置信度为 0 的方向票不计入。
	out = Combine("EURUSD", []Signal{
		{Kind: KindBuy, Confidence: 0},
		{Kind: KindSell, Confidence: 0.5},
	})
	assert.Equal(t, KindSell, out.Kind)
	assert.InDelta(t, 0.5, out.Confidence, 1e-9)
}

func TestCombineDeterministic(t *testing.T) {
	inputs := []Signal{
		{Kind: KindSell, Confidence: 0.7, Source: SourceSMA},
		{Kind: KindSell, Confidence: 0.5, Source: SourceRSI},
		{Kind: KindHold, Confidence: 0, Source: SourceBB},
	}
	first := Combine("EURUSD", inputs)
	second := Combine("EURUSD", inputs)
	assert.Equal(t, first, second)
	assert.Equal(t, KindSell, first.Kind)
	assert.InDelta(t, 0.6, first.Confidence, 1e-9)
}

func TestCombineConfidenceCapped(t *testing.T) {
	out := Combine("EURUSD", []Signal{{Kind: KindBuy, Confidence: 5}})
	assert.Equal(t, KindBuy, out.Kind)
	assert.InDelta(t, 1.0, out.Confidence, 1e-9)
}
