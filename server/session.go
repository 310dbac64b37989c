package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skirmish/state"
)

var (
	ErrSessionClosed = errors.New("session closed")
	ErrIdentityTaken = errors.New("identity already in use")
)

// Session 持有世界和身份表。
// 由单个协程（Run）按到达顺序处理所有事件，世界不共享；
// 连接和定时器都通过收件箱与它通信
type Session struct {
	inbox chan any
	done  chan struct{}

	cfg      SessionConfig
	world    state.World
	registry *Registry
	fanout   *Broadcaster
	probes   map[Peer]*probe
	colors   *state.ColorSource
	metrics  *SessionMetrics
	now      func() time.Time
}

// NewSession 创建空会话，调用 Run 启动
func NewSession(cfg SessionConfig) *Session {
	registry := NewRegistry()
	metrics := &SessionMetrics{}
	return &Session{
		inbox:    make(chan any, cfg.InboxSize),
		done:     make(chan struct{}),
		cfg:      cfg,
		world:    state.NewWorld(),
		registry: registry,
		fanout:   NewBroadcaster(registry, metrics),
		probes:   make(map[Peer]*probe),
		colors:   state.NewColorSource(cfg.ColorSeed),
		metrics:  metrics,
		now:      time.Now,
	}
}

func (s *Session) Metrics() *SessionMetrics { return s.metrics }

// Run 处理事件直到 ctx 取消，然后关闭所有连接
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case msg := <-s.inbox:
			s.handle(msg)
		}
	}
}

// Done 在 Run 返回后关闭
func (s *Session) Done() <-chan struct{} { return s.done }

type admitRequest struct {
	peer      Peer
	requested string
	reply     chan admitResult
}

type admitResult struct {
	id  string
	err error
}

type inboundBatch struct {
	peer    Peer
	actions []state.Action
	raw     []byte
}

type disconnected struct{ peer Peer }

type hitDue struct {
	attacker string
	gen      uint64
}

type probeDue struct{ peer Peer }

type pongReceived struct {
	peer    Peer
	payload []byte
	at      time.Time
}

type rttQuery struct{ reply chan map[string]float64 }

type worldQuery struct{ reply chan state.World }

type tuneRequest struct {
	tuning Tuning
	reply  chan SessionConfig
}

// Tuning 运行中可调整的参数，
// nil 字段保持不变
type Tuning struct {
	HitDelayMs      *int `json:"hitDelayMs,omitempty"`
	ProbeIntervalMs *int `json:"probeIntervalMs,omitempty"`
}

func (t Tuning) Validate() error {
	if t.HitDelayMs != nil && *t.HitDelayMs <= 0 {
		return errors.New("hitDelayMs must be positive")
	}
	if t.ProbeIntervalMs != nil && (*t.ProbeIntervalMs <= 0 || int64(*t.ProbeIntervalMs) >= pongWait.Milliseconds()) {
		return fmt.Errorf("probeIntervalMs must be in (0, %d)", pongWait.Milliseconds())
	}
	return nil
}

func (s *Session) post(msg any) error {
	select {
	case s.inbox <- msg:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

// Admit 为 peer 绑定身份并下发世界。requested 为空时由身份表分配；
// 身份已被占用时以 ALREADY_EXISTS 关闭 peer，并返回 ErrIdentityTaken
func (s *Session) Admit(ctx context.Context, peer Peer, requested string) (string, error) {
	reply := make(chan admitResult, 1)
	if err := s.post(admitRequest{peer: peer, requested: requested, reply: reply}); err != nil {
		return "", err
	}
	select {
	case r := <-reply:
		return r.id, r.err
	case <-s.done:
		return "", ErrSessionClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Submit 把校验过的一批动作交给会话，raw 原样转发
func (s *Session) Submit(peer Peer, actions []state.Action, raw []byte) error {
	return s.post(inboundBatch{peer: peer, actions: actions, raw: raw})
}

// Disconnect 通知 peer 已断开，未进入会话的 peer 也可调用
func (s *Session) Disconnect(peer Peer) error {
	return s.post(disconnected{peer: peer})
}

// Pong 上报在 at 时刻收到的存活应答
func (s *Session) Pong(peer Peer, payload []byte, at time.Time) error {
	return s.post(pongReceived{peer: peer, payload: payload, at: at})
}

// RTTs 按身份返回滑动平均往返时延（毫秒），
// 还没有完成探测的身份不出现
func (s *Session) RTTs(ctx context.Context) (map[string]float64, error) {
	reply := make(chan map[string]float64, 1)
	if err := s.post(rttQuery{reply: reply}); err != nil {
		return nil, err
	}
	return await(ctx, s.done, reply)
}

// World 返回当前世界的快照
func (s *Session) World(ctx context.Context) (state.World, error) {
	reply := make(chan state.World, 1)
	if err := s.post(worldQuery{reply: reply}); err != nil {
		return state.World{}, err
	}
	return await(ctx, s.done, reply)
}

// Tune 应用 t 并返回调整后的参数，空 Tuning 只读取
func (s *Session) Tune(ctx context.Context, t Tuning) (SessionConfig, error) {
	if err := t.Validate(); err != nil {
		return SessionConfig{}, err
	}
	reply := make(chan SessionConfig, 1)
	if err := s.post(tuneRequest{tuning: t, reply: reply}); err != nil {
		return SessionConfig{}, err
	}
	return await(ctx, s.done, reply)
}

func await[T any](ctx context.Context, done <-chan struct{}, reply <-chan T) (T, error) {
	var zero T
	select {
	case v := <-reply:
		return v, nil
	case <-done:
		return zero, ErrSessionClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (s *Session) handle(msg any) {
	switch m := msg.(type) {
	case admitRequest:
		s.handleAdmit(m)
	case inboundBatch:
		s.handleInbound(m)
	case disconnected:
		s.handleDisconnect(m.peer)
	case hitDue:
		s.handleHit(m)
	case probeDue:
		s.sendProbe(m.peer)
	case pongReceived:
		s.handlePong(m)
	case rttQuery:
		m.reply <- s.rtts()
	case worldQuery:
		m.reply <- s.world.Clone()
	case tuneRequest:
		s.handleTune(m)
	default:
		Log.Warnw("unexpected session message", "type", fmt.Sprintf("%T", msg))
	}
}

func (s *Session) handleTune(m tuneRequest) {
	t := m.tuning
	if t.HitDelayMs != nil {
		s.cfg.HitDelayMs = *t.HitDelayMs
	}
	if t.ProbeIntervalMs != nil {
		s.cfg.ProbeIntervalMs = *t.ProbeIntervalMs
	}
	if t.HitDelayMs != nil || t.ProbeIntervalMs != nil {
		Log.Infow("session tuned", "hit_delay_ms", s.cfg.HitDelayMs, "probe_interval_ms", s.cfg.ProbeIntervalMs)
	}
	m.reply <- s.cfg
}

func (s *Session) handleAdmit(req admitRequest) {
	id := req.requested
	if id != "" {
		if _, taken := s.registry.Lookup(id); taken {
			s.metrics.IncAdmissionDenied()
			Log.Infow("admission denied", "conn", req.peer.String(), "id", id)
			req.peer.Close(CloseAlreadyExists, fmt.Sprintf("%s already exists", id))
			req.reply <- admitResult{err: ErrIdentityTaken}
			return
		}
	} else {
		id = s.registry.Assign()
	}
	if err := s.registry.Bind(req.peer, id); err != nil {
		req.reply <- admitResult{err: err}
		return
	}

	join := state.Join{ID: id, Color: s.colors.Next()}
	s.apply(join)
	s.emit(req.peer, join)

	seed, err := state.Encode(state.IDAction{ID: id}, state.Init{State: s.world})
	if err != nil {
		Log.Errorw("encode seed", "id", id, "err", err)
	} else if err := req.peer.Send(seed); err != nil {
		Log.Debugw("seed not delivered", "conn", req.peer.String(), "err", err)
	}

	s.probes[req.peer] = newProbe(s.cfg.ProbeWindow)
	s.sendProbe(req.peer)

	s.metrics.IncAdmitted()
	Log.Infow("player joined", "conn", req.peer.String(), "id", id, "color", join.Color, "players", s.world.Len())
	req.reply <- admitResult{id: id}
}

func (s *Session) handleInbound(b inboundBatch) {
	id, ok := s.registry.Identity(b.peer)
	if !ok {
		Log.Debugw("message from unbound connection dropped", "conn", b.peer.String())
		return
	}
	if len(b.actions) == 0 {
		return
	}
	s.apply(b.actions...)
	for _, a := range b.actions {
		if atk, ok := a.(state.Attack); ok {
			s.scheduleHit(atk.ID)
		}
	}
	n := s.fanout.Broadcast(b.peer, b.raw)
	Log.Debugw("relayed", "id", id, "actions", len(b.actions), "peers", n)
}

func (s *Session) handleHit(m hitDue) {
	if gen, ok := s.registry.Generation(m.attacker); !ok || gen != m.gen {
		Log.Debugw("hit dropped, attacker gone", "attacker", m.attacker)
		return
	}
	res := state.ResolveHit(s.world, m.attacker)
	Log.Debugw("hit resolved", "attacker", m.attacker, "outcome", res.Outcome.String(), "victim", res.Victim)
	if res.Outcome != state.Resolved {
		return
	}
	s.metrics.IncHitResolved()
	for _, a := range res.Consequences() {
		s.apply(a)
		s.emit(nil, a)
	}
}

func (s *Session) handleDisconnect(peer Peer) {
	delete(s.probes, peer)
	id, ok := s.registry.Unbind(peer)
	if !ok {
		return
	}
	leave := state.Leave{ID: id}
	s.apply(leave)
	s.emit(nil, leave)
	s.metrics.IncDisconnect()
	Log.Infow("player left", "conn", peer.String(), "id", id, "players", s.world.Len())
}

func (s *Session) handlePong(m pongReceived) {
	p, ok := s.probes[m.peer]
	if !ok || !p.finish(m.payload, m.at) {
		return
	}
	s.metrics.IncProbeSample()
	s.after(s.cfg.ProbeInterval(), probeDue{peer: m.peer})
}

func (s *Session) sendProbe(peer Peer) {
	p, ok := s.probes[peer]
	if !ok {
		return
	}
	if err := peer.Ping(p.start(s.now())); err != nil {
		Log.Debugw("probe not sent", "conn", peer.String(), "err", err)
	}
}

func (s *Session) rtts() map[string]float64 {
	out := make(map[string]float64, len(s.probes))
	for peer, p := range s.probes {
		if !p.sampled {
			continue
		}
		if id, ok := s.registry.Identity(peer); ok {
			out[id] = p.meanMs
		}
	}
	return out
}

func (s *Session) apply(actions ...state.Action) {
	s.world = state.Reduce(s.world, actions...)
	s.metrics.AddActions(len(actions))
}

// emit 编码服务端发起的动作，发给除 exclude 外的所有人
func (s *Session) emit(exclude Peer, a state.Action) {
	msg, err := state.Encode(a)
	if err != nil {
		Log.Errorw("encode action", "action", state.Describe(a), "err", err)
		return
	}
	s.fanout.Broadcast(exclude, msg)
}

func (s *Session) shutdown() {
	for _, p := range s.registry.Peers() {
		p.Close(CloseGoingAway, "server shutting down")
	}
	Log.Infow("session stopped", "players", s.world.Len())
}
