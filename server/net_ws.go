package server

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/segmentio/ksuid"
	"golang.org/x/time/rate"

	"skirmish/state"
)

const (
	writeWait = 5 * time.Second
	pongWait  = 60 * time.Second

	// 控制帧负载最多 125 字节，其中 2 字节是关闭码
	maxCloseReason = 123
	pingQueue      = 4
)

var (
	errConnClosed    = errors.New("connection closed")
	errSendQueueFull = errors.New("send queue full")
	errPingQueueFull = errors.New("ping queue full")
)

// ClientConn 包装一条 WebSocket 连接。
// 数据帧和 ping 都先入队，由 writePump 统一写出；Close 通知 writePump
// 先写完队列，再发关闭帧并断开。
type ClientConn struct {
	handle ksuid.KSUID
	ws     *websocket.Conn
	send   chan []byte
	pings  chan []byte

	closeOnce   sync.Once
	closing     chan struct{}
	done        chan struct{}
	closeCode   CloseCode
	closeReason string
}

func NewClientConn(ws *websocket.Conn, queue int) *ClientConn {
	return &ClientConn{
		handle:  ksuid.New(),
		ws:      ws,
		send:    make(chan []byte, queue),
		pings:   make(chan []byte, pingQueue),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (c *ClientConn) String() string { return c.handle.String() }

// Send 将消息压入发送队列（非阻塞，满则报错）
func (c *ClientConn) Send(msg []byte) error {
	return c.enqueue(c.send, msg, errSendQueueFull)
}

// Ping 将探测负载压入 ping 队列（非阻塞），由 writePump 写出
func (c *ClientConn) Ping(payload []byte) error {
	return c.enqueue(c.pings, payload, errPingQueueFull)
}

func (c *ClientConn) enqueue(q chan []byte, b []byte, full error) error {
	select {
	case <-c.closing:
		return errConnClosed
	default:
	}
	select {
	case q <- b:
		return nil
	default:
		return full
	}
}

// Close 记录关闭码与原因并开始关闭握手，只有第一次调用生效
func (c *ClientConn) Close(code CloseCode, reason string) {
	c.closeOnce.Do(func() {
		if len(reason) > maxCloseReason {
			reason = reason[:maxCloseReason]
		}
		c.closeCode, c.closeReason = code, reason
		close(c.closing)
	})
}

// Done 在连接彻底断开后关闭
func (c *ClientConn) Done() <-chan struct{} { return c.done }

// writePump 独立协程，是这条连接唯一的写者
func (c *ClientConn) writePump() {
	defer func() {
		c.Close(CloseGoingAway, "")
		_ = c.ws.Close()
		close(c.done)
	}()
	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				Log.Debugw("write failed", "conn", c.String(), "err", err)
				return
			}
		case payload := <-c.pings:
			if err := c.write(websocket.PingMessage, payload); err != nil {
				Log.Debugw("ping failed", "conn", c.String(), "err", err)
				return
			}
		case <-c.closing:
			c.flush()
			frame := websocket.FormatCloseMessage(int(c.closeCode), c.closeReason)
			if err := c.ws.WriteControl(websocket.CloseMessage, frame, time.Now().Add(writeWait)); err != nil {
				Log.Debugw("close frame not sent", "conn", c.String(), "err", err)
			}
			return
		}
	}
}

func (c *ClientConn) write(messageType int, b []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteMessage(messageType, b)
}

// flush 写出队列里剩下的数据帧，未发出的 ping 直接丢弃
func (c *ClientConn) flush() {
	for {
		select {
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

// readPump 读取客户端消息，校验后交给会话。
// 校验失败时按对应关闭码断开，整条消息都不生效。
func (c *ClientConn) readPump(s *Session, maxBytes int64) {
	// 读泵退出时，通知会话移除该玩家
	defer func() {
		_ = s.Disconnect(c)
		c.Close(CloseNormal, "")
	}()
	c.ws.SetReadLimit(maxBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(data string) error {
		at := time.Now()
		_ = c.ws.SetReadDeadline(at.Add(pongWait))
		_ = s.Pong(c, []byte(data), at)
		return nil
	})

	for {
		_, payload, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				Log.Debugw("read failed", "conn", c.String(), "err", err)
			}
			return
		}
		actions, err := state.ParseClient(payload)
		if err != nil {
			code, reason := CloseInvalidMessage, err.Error()
			if pe, ok := state.AsParseError(err); ok {
				code, reason = closeCodeFor(pe.Violation), pe.Reason
			}
			s.Metrics().IncProtocolClose()
			Log.Infow("closing connection", "conn", c.String(), "code", int(code), "reason", code.String(), "err", err)
			c.Close(code, reason)
			return
		}
		if err := s.Submit(c, actions, payload); err != nil {
			return
		}
	}
}

// connectLimiter 按远端地址各持有一个令牌桶
type connectLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newConnectLimiter(cfg AdmissionConfig) *connectLimiter {
	if cfg.ConnectsPerSecond <= 0 {
		return nil
	}
	return &connectLimiter{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Limit(cfg.ConnectsPerSecond),
		burst:    cfg.Burst,
	}
}

// Allow 判断 host 此刻能否再建连接；nil 限流器一律放行
func (l *connectLimiter) Allow(host string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	lim, ok := l.limiters[host]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[host] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// WSHandler WebSocket 接入：/ws?id=alice 指定身份，不带 id 则由服务端分配
type WSHandler struct {
	session   *Session
	limiter   *connectLimiter
	upgrader  websocket.Upgrader
	sendQueue int
	maxBytes  int64
}

func NewWSHandler(s *Session, cfg Config) *WSHandler {
	return &WSHandler{
		session: s,
		limiter: newConnectLimiter(cfg.Admission),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// 允许所有来源
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sendQueue: cfg.Session.SendQueue,
		maxBytes:  cfg.Session.MaxMessageBytes,
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	host := remoteHost(r)
	if !h.limiter.Allow(host) {
		h.session.Metrics().IncRateLimited()
		Log.Infow("connect rate limited", "remote", host)
		http.Error(w, "too many connections", http.StatusTooManyRequests)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		Log.Warnw("upgrade failed", "remote", host, "err", err)
		return
	}
	c := NewClientConn(ws, h.sendQueue)
	go c.writePump()

	id, err := h.session.Admit(r.Context(), c, r.URL.Query().Get("id"))
	if err != nil {
		if !errors.Is(err, ErrIdentityTaken) {
			_ = h.session.Disconnect(c)
			c.Close(CloseGoingAway, "server unavailable")
		}
		return
	}
	Log.Debugw("connection open", "conn", c.String(), "id", id, "remote", host)
	c.readPump(h.session, h.maxBytes)
}
