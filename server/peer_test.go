package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"skirmish/state"
)

type fakePeer struct {
	name  string
	sent  chan []byte
	pings chan []byte

	mu       sync.Mutex
	closed   bool
	code     CloseCode
	reason   string
	failSend bool
}

func newFakePeer(name string) *fakePeer {
	return &fakePeer{
		name:  name,
		sent:  make(chan []byte, 64),
		pings: make(chan []byte, 16),
	}
}

func (f *fakePeer) Send(b []byte) error {
	f.mu.Lock()
	fail := f.failSend
	f.mu.Unlock()
	if fail {
		return errors.New("fake send failure")
	}
	cp := make([]byte, len(b))
	copy(cp, b)
	select {
	case f.sent <- cp:
		return nil
	default:
		return errSendQueueFull
	}
}

func (f *fakePeer) Ping(payload []byte) error {
	select {
	case f.pings <- payload:
	default:
	}
	return nil
}

func (f *fakePeer) Close(code CloseCode, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed, f.code, f.reason = true, code, reason
}

func (f *fakePeer) String() string { return f.name }

func (f *fakePeer) closeCode() (CloseCode, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.code, f.closed
}

// recv waits for the next frame sent to p and decodes it.
func recv(t *testing.T, p *fakePeer) []state.Action {
	t.Helper()
	raw := recvRaw(t, p)
	actions, err := state.Decode(raw)
	if err != nil {
		t.Fatalf("%s: decode %s: %v", p.name, raw, err)
	}
	return actions
}

func recvRaw(t *testing.T, p *fakePeer) []byte {
	t.Helper()
	select {
	case b := <-p.sent:
		return b
	case <-time.After(time.Second):
		t.Fatalf("%s: timed out waiting for a frame", p.name)
		return nil
	}
}

// expectQuiet fails if p receives anything within d.
func expectQuiet(t *testing.T, p *fakePeer, d time.Duration) {
	t.Helper()
	select {
	case b := <-p.sent:
		t.Fatalf("%s: unexpected frame %s", p.name, b)
	case <-time.After(d):
	}
}

func drain(p *fakePeer) {
	for {
		select {
		case <-p.sent:
		default:
			return
		}
	}
}

func testSessionConfig() SessionConfig {
	cfg := DefaultConfig().Session
	cfg.HitDelayMs = 20
	cfg.ColorSeed = 7
	return cfg
}

// startSession runs a session for the duration of the test.
func startSession(t *testing.T, cfg SessionConfig) *Session {
	t.Helper()
	prev := Log
	Log = zaptest.NewLogger(t, zaptest.Level(zap.WarnLevel)).Sugar()
	t.Cleanup(func() { Log = prev })

	s := NewSession(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-s.Done()
	})
	return s
}

// admit admits p and consumes its seed frame.
func admit(t *testing.T, s *Session, p *fakePeer, requested string) string {
	t.Helper()
	id, err := s.Admit(context.Background(), p, requested)
	if err != nil {
		t.Fatalf("admit %s: %v", p.name, err)
	}
	recvRaw(t, p)
	return id
}

// submit parses raw as a client message and hands it to the session, then
// waits until the session has handled it.
func submit(t *testing.T, s *Session, p *fakePeer, raw string) {
	t.Helper()
	actions, err := state.ParseClient([]byte(raw))
	if err != nil {
		t.Fatalf("parse %s: %v", raw, err)
	}
	if err := s.Submit(p, actions, []byte(raw)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	world(t, s)
}

func world(t *testing.T, s *Session) state.World {
	t.Helper()
	w, err := s.World(context.Background())
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	return w
}
