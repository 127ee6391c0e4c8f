package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMA(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5}

	v, ok := SMA(prices, 3)
	require.True(t, ok)
	assert.InDelta(t, 4.0, v, 1e-9)

	v, ok = SMA(prices, 5)
	require.True(t, ok)
	assert.InDelta(t, 3.0, v, 1e-9)

	v, ok = SMA(prices, 1)
	require.True(t, ok)
	assert.InDelta(t, 5.0, v, 1e-9)

	_, ok = SMA(prices, 6)
	assert.False(t, ok)
	_, ok = SMA(nil, 3)
	assert.False(t, ok)
}

func TestRSI(t *testing.T) {
	// 三段全涨：avg_loss 为 0，按约定 RSI=100。
	v, ok := RSI([]float64{1, 2, 3, 4}, 3)
	require.True(t, ok)
	assert.InDelta(t, 100.0, v, 1e-9)

	// 三段全跌：avg_gain 为 0，RSI=0。
	v, ok = RSI([]float64{4, 3, 2, 1}, 3)
	require.True(t, ok)
	assert.InDelta(t, 0.0, v, 1e-9)

	// 混合：gains=2, losses=0.5 → rs=4 → rsi=80。
	v, ok = RSI([]float64{1, 2, 1.5, 2.5}, 3)
	require.True(t, ok)
	assert.InDelta(t, 80.0, v, 1e-9)

	// 需要 n+1 个点。
	_, ok = RSI([]float64{1, 2, 3}, 3)
	assert.False(t, ok)
}

func TestBollinger(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5}
	bands, ok := Bollinger(prices, 5, 2)
	require.True(t, ok)

	std := math.Sqrt(2) // 总体标准差
	assert.InDelta(t, 3.0, bands.Middle, 1e-9)
	assert.InDelta(t, 3.0+2*std, bands.Upper, 1e-9)
	assert.InDelta(t, 3.0-2*std, bands.Lower, 1e-9)
	assert.Less(t, bands.Lower, bands.Middle)
	assert.Less(t, bands.Middle, bands.Upper)

	_, ok = Bollinger(prices, 6, 2)
	assert.False(t, ok)
}

func TestComputePartialHistory(t *testing.T) {
	params := Params{SMAShort: 3, SMALong: 10, RSIPeriod: 3, BBPeriod: 10, BBStd: 2}
	snap := Compute([]float64{1, 2, 3, 4, 5}, params)

	require.NotNil(t, snap.SMAShort)
	assert.InDelta(t, 4.0, *snap.SMAShort, 1e-9)
	require.NotNil(t, snap.RSI)
	assert.Nil(t, snap.SMALong)
	assert.Nil(t, snap.BBMiddle)
	assert.Nil(t, snap.BBUpper)
	assert.Nil(t, snap.BBLower)
}
