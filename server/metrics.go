package server

import (
	"sync/atomic"
)

// SessionMetrics 会话计数器，供 /metrics 输出。
// 会话协程写入，HTTP handler 读取
type SessionMetrics struct {
	Admitted         int64 // 进入 Active 的连接数
	AdmissionsDenied int64 // 以 ALREADY_EXISTS 关闭
	RateLimited      int64 // 被建连限流拒绝的升级
	ProtocolCloses   int64 // 因非法或越权消息关闭
	Disconnects      int64 // 已广播的 leave
	ActionsApplied   int64 // 已作用到世界的动作
	BroadcastDropped int64 // 广播时单个连接发送失败
	AttacksScheduled int64 // 已排队的命中判定
	HitsResolved     int64 // 命中判定找到受害者
	ProbeSamples     int64 // 完成的时延探测
}

func (m *SessionMetrics) IncAdmitted()         { atomic.AddInt64(&m.Admitted, 1) }
func (m *SessionMetrics) IncAdmissionDenied()  { atomic.AddInt64(&m.AdmissionsDenied, 1) }
func (m *SessionMetrics) IncRateLimited()      { atomic.AddInt64(&m.RateLimited, 1) }
func (m *SessionMetrics) IncProtocolClose()    { atomic.AddInt64(&m.ProtocolCloses, 1) }
func (m *SessionMetrics) IncDisconnect()       { atomic.AddInt64(&m.Disconnects, 1) }
func (m *SessionMetrics) IncBroadcastDropped() { atomic.AddInt64(&m.BroadcastDropped, 1) }
func (m *SessionMetrics) IncAttackScheduled()  { atomic.AddInt64(&m.AttacksScheduled, 1) }
func (m *SessionMetrics) IncHitResolved()      { atomic.AddInt64(&m.HitsResolved, 1) }
func (m *SessionMetrics) IncProbeSample()      { atomic.AddInt64(&m.ProbeSamples, 1) }
func (m *SessionMetrics) AddActions(n int)     { atomic.AddInt64(&m.ActionsApplied, int64(n)) }

// Snapshot 返回只读副本供 HTTP 输出
func (m *SessionMetrics) Snapshot() map[string]any {
	return map[string]any{
		"admitted":          atomic.LoadInt64(&m.Admitted),
		"admissions_denied": atomic.LoadInt64(&m.AdmissionsDenied),
		"rate_limited":      atomic.LoadInt64(&m.RateLimited),
		"protocol_closes":   atomic.LoadInt64(&m.ProtocolCloses),
		"disconnects":       atomic.LoadInt64(&m.Disconnects),
		"actions_applied":   atomic.LoadInt64(&m.ActionsApplied),
		"broadcast_dropped": atomic.LoadInt64(&m.BroadcastDropped),
		"attacks_scheduled": atomic.LoadInt64(&m.AttacksScheduled),
		"hits_resolved":     atomic.LoadInt64(&m.HitsResolved),
		"probe_samples":     atomic.LoadInt64(&m.ProbeSamples),
	}
}
