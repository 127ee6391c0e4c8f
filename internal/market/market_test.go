package market

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTickValidate(t *testing.T) {
	now := time.Now().UTC()
	cases := []struct {
		name    string
		tick    Tick
		wantErr bool
	}{
		{"valid", Tick{Symbol: "EURUSD", Bid: 1.0848, Ask: 1.0852, EventTime: now}, false},
		{"empty symbol", Tick{Bid: 1, Ask: 1.1}, true},
		{"zero bid", Tick{Symbol: "EURUSD", Bid: 0, Ask: 1.1}, true},
		{"negative bid", Tick{Symbol: "EURUSD", Bid: -1, Ask: 1.1}, true},
		{"ask below bid", Tick{Symbol: "EURUSD", Bid: 1.2, Ask: 1.1}, true},
		{"zero spread", Tick{Symbol: "EURUSD", Bid: 1.1, Ask: 1.1}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.tick.Validate()
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrBadTick)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRejectionAsError(t *testing.T) {
	rej := &Rejection{Reason: RejectTradeTooLarge, Detail: "notional 2000000.00 exceeds per-trade cap 1000000.00"}
	wrapped := fmt.Errorf("risk check: %w", rej)

	got, ok := AsRejection(wrapped)
	require.True(t, ok)
	assert.Equal(t, RejectTradeTooLarge, got.Reason)
	assert.Contains(t, wrapped.Error(), "TradeTooLarge")

	_, ok = AsRejection(fmt.Errorf("plain"))
	assert.False(t, ok)
}

func TestDateOf(t *testing.T) {
	// 东区时间跨过 UTC 午夜也要归到 UTC 日期。
	loc := time.FixedZone("UTC+9", 9*3600)
	local := time.Date(2024, 3, 15, 5, 0, 0, 0, loc) // 2024-03-14T20:00Z
	assert.Equal(t, "2024-03-14", DateOf(local))
	assert.Equal(t, "2024-03-15", DateOf(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)))
}

func TestSideSign(t *testing.T) {
	assert.Equal(t, 1.0, SideBuy.Sign())
	assert.Equal(t, -1.0, SideSell.Sign())
}

func TestNextSeqMonotonic(t *testing.T) {
	a := NextSeq()
	b := NextSeq()
	assert.Greater(t, b, a)
}

func TestFakeClock(t *testing.T) {
	start := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := NewFakeClock(start)
	assert.Equal(t, start, clock.Now())

	clock.Advance(90 * time.Minute)
	assert.Equal(t, start.Add(90*time.Minute), clock.Now())
	assert.Equal(t, 90*time.Minute, clock.Mono())

	// Set 回拨墙钟时单调钟不回退。
	clock.Set(start)
	assert.Equal(t, start, clock.Now())
	assert.Equal(t, 90*time.Minute, clock.Mono())
}
