package market

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Clock 抽象墙钟与单调钟：墙钟用于时间戳与日期切换，单调钟用于调度间隔。
type Clock interface {
	Now() time.Time
	Mono() time.Duration
}

// SystemClock 基于进程启动时刻的真实时钟。
type SystemClock struct {
	start time.Time
}

func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

func (c *SystemClock) Now() time.Time {
	return time.Now().UTC()
}

func (c *SystemClock) Mono() time.Duration {
	return time.Since(c.start)
}

// FakeClock 供测试与回测注入，可手工推进。
type FakeClock struct {
	mu   sync.Mutex
	now  time.Time
	mono time.Duration
}

func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start.UTC()}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Mono() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mono
}

// Advance 同步推进墙钟与单调钟。
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mono += d
	c.mu.Unlock()
}

// Set 直接设置墙钟（单调钟不回退）。
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	if t.After(c.now) {
		c.mono += t.Sub(c.now)
	}
	c.now = t.UTC()
	c.mu.Unlock()
}

var seqCounter atomic.Uint64

// NextSeq 返回进程内严格递增的序号，用于同毫秒事件排序。
func NextSeq() uint64 {
	return seqCounter.Add(1)
}

// NewTradeID 生成 128-bit 随机交易 ID。
func NewTradeID() string {
	return uuid.NewString()
}
