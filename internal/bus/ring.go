package bus

import "fxsim/internal/market"

// ring 是容量固定的历史缓冲：写满后覆盖最老的点。
type ring struct {
	buf  []market.HistoryPoint
	head int // 下一个写入位置
	size int
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &ring{buf: make([]market.HistoryPoint, capacity)}
}

func (r *ring) push(p market.HistoryPoint) {
	r.buf[r.head] = p
	r.head = (r.head + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

func (r *ring) len() int {
	return r.size
}

// last 返回最近 n 个点的副本，旧→新。n<=0 或超出时返回全部。
func (r *ring) last(n int) []market.HistoryPoint {
	if n <= 0 || n > r.size {
		n = r.size
	}
	out := make([]market.HistoryPoint, n)
	start := r.head - n
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < n; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}
