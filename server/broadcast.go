package server

// Peer 会话眼中的一条连接
type Peer interface {
	// Send 将文本帧入队，不得阻塞；队列满或已关闭时
	// 直接返回错误
	Send(msg []byte) error
	// Ping 发送携带 payload 的存活探测
	Ping(payload []byte) error
	// Close 写完队列后按 code 和 reason 关闭
	Close(code CloseCode, reason string)
	// String 日志里使用的连接句柄
	String() string
}

// Broadcaster 把一帧扇出给所有已绑定的连接
type Broadcaster struct {
	registry *Registry
	metrics  *SessionMetrics
}

func NewBroadcaster(registry *Registry, metrics *SessionMetrics) *Broadcaster {
	return &Broadcaster{registry: registry, metrics: metrics}
}

// Broadcast 发给除 exclude 外的所有人，exclude 可为 nil。
// 尽力投递：发送失败只计数并跳过
func (b *Broadcaster) Broadcast(exclude Peer, msg []byte) (sent int) {
	for _, p := range b.registry.Peers() {
		if p == exclude {
			continue
		}
		if err := p.Send(msg); err != nil {
			b.metrics.IncBroadcastDropped()
			Log.Debugw("broadcast dropped", "conn", p.String(), "err", err)
			continue
		}
		sent++
	}
	return sent
}
