package server

import (
	"encoding/binary"
	"time"
)

// rttWindow 保存最近的往返时延样本
type rttWindow struct {
	samples []time.Duration
	size    int
	next    int
	full    bool
}

func newRTTWindow(size int) *rttWindow {
	return &rttWindow{samples: make([]time.Duration, size), size: size}
}

// Add 记录 d，窗口满时淘汰最旧的样本
func (w *rttWindow) Add(d time.Duration) {
	w.samples[w.next] = d
	w.next = (w.next + 1) % w.size
	if w.next == 0 {
		w.full = true
	}
}

func (w *rttWindow) Len() int {
	if w.full {
		return w.size
	}
	return w.next
}

// Mean 返回样本平均值
func (w *rttWindow) Mean() time.Duration {
	n := w.Len()
	if n == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range w.samples[:n] {
		sum += d
	}
	return sum / time.Duration(n)
}

// probe 跟踪一条连接上尚未应答的 ping
type probe struct {
	seq     uint64
	sentAt  time.Time
	pending bool
	window  *rttWindow
	meanMs  float64
	sampled bool
}

func newProbe(window int) *probe {
	return &probe{window: newRTTWindow(window)}
}

// start 记录一次新的 ping 并返回负载
func (p *probe) start(now time.Time) []byte {
	p.seq++
	p.sentAt = now
	p.pending = true
	return encodeProbeSeq(p.seq)
}

// finish 匹配 pong，过期或未知的负载返回 false
func (p *probe) finish(payload []byte, at time.Time) bool {
	seq, ok := decodeProbeSeq(payload)
	if !ok || !p.pending || seq != p.seq {
		return false
	}
	p.pending = false
	rtt := at.Sub(p.sentAt)
	if rtt < 0 {
		rtt = 0
	}
	p.window.Add(rtt)
	p.meanMs = float64(p.window.Mean()) / float64(time.Millisecond)
	p.sampled = true
	return true
}

func encodeProbeSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func decodeProbeSeq(b []byte) (uint64, bool) {
	if len(b) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(b), true
}
