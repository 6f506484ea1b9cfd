// Package terminal runs an interactive shell session over the control
// server's duplex channel and reconnects when the channel drops.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"portalctl/src/logging"
)

// ErrSessionClosed is returned by operations on a closed or failed session.
var ErrSessionClosed = errors.New("terminal: session closed")

// Conn is one duplex channel. *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

type DialerFunc func(ctx context.Context) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context) (Conn, error) { return f(ctx) }

type Options struct {
	Dialer  Dialer
	Surface io.WriteCloser

	Clock      Clock
	RetryDelay time.Duration

	// OnStatus is called on every state change with the session lock
	// held. It must not call back into the session.
	OnStatus func(Status)
	// OnFrame observes every frame sent or received.
	OnFrame func(Frame)
}

type Session struct {
	id       string
	dialer   Dialer
	surface  io.WriteCloser
	clock    Clock
	delay    time.Duration
	onStatus func(Status)
	onFrame  func(Frame)
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	status Status
	conn   Conn
	gen    uint64
	timer  Timer
	done   chan struct{}

	// pending holds the start of a UTF-8 sequence split across writes.
	pending []byte
}

func NewSession(opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.RetryDelay == 0 {
		opts.RetryDelay = RetryDelay
	}
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		id:       id,
		dialer:   opts.Dialer,
		surface:  opts.Surface,
		clock:    opts.Clock,
		delay:    opts.RetryDelay,
		onStatus: opts.OnStatus,
		onFrame:  opts.OnFrame,
		log:      logging.L().With(zap.String("session", id)),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Done is closed once the session is Closed or Failed.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err is nil unless the session gave up reconnecting.
func (s *Session) Err() error {
	st := s.Status()
	if st.State == Failed {
		return fmt.Errorf("%w: connection lost after %d attempts", ErrSessionClosed, st.Attempt)
	}
	return nil
}

// Open starts connecting. Opening an already open session does nothing.
func (s *Session) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return ErrSessionClosed
	}
	s.fireLocked(EventOpen)
	return nil
}

// Close tears the session down. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fireLocked(EventClose)
	return nil
}

// Input forwards data to the agent. It reports false, dropping the data,
// unless the session is Open. A trailing partial UTF-8 sequence is held
// back and sent with the next call.
func (s *Session) Input(data []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.State != Open || s.conn == nil {
		s.pending = nil
		return false
	}
	buf := append(s.pending, data...)
	n := splitRunes(buf)
	s.pending = append([]byte(nil), buf[n:]...)
	if n == 0 {
		return true
	}
	payload, err := encodeInput(buf[:n])
	if err != nil {
		return false
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.log.Debug("input write failed", zap.Error(err))
		return false
	}
	if s.onFrame != nil {
		s.onFrame(Frame{Dir: Out, Payload: payload})
	}
	return true
}

// Write lets a session sit at the end of io.Copy. Input dropped while the
// session is not Open still counts as written.
func (s *Session) Write(p []byte) (int, error) {
	if s.Status().Terminal() {
		return 0, ErrSessionClosed
	}
	s.Input(p)
	return len(p), nil
}

// fire applies ev on behalf of the connection generation gen. Events from
// superseded connections are ignored.
func (s *Session) fire(ev Event, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	s.fireLocked(ev)
}

func (s *Session) fireLocked(ev Event) {
	prev := s.status
	next, effect := Transition(prev, ev)
	if next == prev && effect == EffectNone {
		return
	}
	s.status = next
	s.log.Debug("transition",
		zap.Stringer("from", prev.State),
		zap.Stringer("state", next.State),
		zap.Int("attempt", next.Attempt))

	switch effect {
	case EffectDial:
		s.releaseConnLocked()
		s.gen++
		go s.dial(s.gen)
	case EffectScheduleRetry:
		s.releaseConnLocked()
		if prev.State == Open {
			s.writeLocked("\r\n" + ansiBold + "Connection closed" + ansiReset + "\r\n")
		}
		s.writeLocked(ansiYellow + "Attempting to reconnect..." + ansiReset + "\r\n")
		s.log.Info("reconnecting", zap.Int("attempt", next.Attempt), zap.Duration("delay", s.delay))
		s.timer = s.clock.AfterFunc(s.delay, s.retry)
	case EffectRelease:
		s.releaseConnLocked()
		s.stopTimerLocked()
		s.writeLocked(ansiRed + "Failed to establish connection after multiple attempts." + ansiReset + "\r\n")
		s.log.Warn("session failed", zap.Int("attempt", next.Attempt))
		s.cancel()
		close(s.done)
	case EffectCancelAndRelease:
		s.stopTimerLocked()
		s.cancel()
		s.releaseConnLocked()
		if s.surface != nil {
			s.surface.Close()
		}
		s.surface = nil
		s.log.Info("session closed")
		if prev.State != Failed {
			close(s.done)
		}
	}

	if s.onStatus != nil {
		s.onStatus(next)
	}
}

func (s *Session) retry() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timer = nil
	s.fireLocked(EventRetryFired)
}

func (s *Session) dial(gen uint64) {
	conn, err := s.dialer.Dial(s.ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.status.State != Connecting {
		if conn != nil {
			conn.Close()
		}
		return
	}
	if err != nil {
		s.log.Warn("dial failed", zap.Error(err), zap.Int("attempt", s.status.Attempt))
		s.fireLocked(EventDropped)
		return
	}
	s.conn = conn
	s.fireLocked(EventReady)
	s.writeLocked(ansiGreen + "Connected to interactive shell!" + ansiReset + "\r\n")
	go s.readLoop(gen, conn)
}

func (s *Session) readLoop(gen uint64, conn Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			s.log.Debug("read ended", zap.Error(err), zap.Uint64("gen", gen))
			s.fire(EventDropped, gen)
			return
		}
		s.mu.Lock()
		if gen == s.gen {
			if s.onFrame != nil {
				s.onFrame(Frame{Dir: In, Payload: payload})
			}
			if out := decodeOutput(payload); len(out) > 0 && s.surface != nil {
				s.surface.Write(out)
			}
		}
		s.mu.Unlock()
	}
}

func (s *Session) releaseConnLocked() {
	s.pending = nil
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

func (s *Session) stopTimerLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) writeLocked(text string) {
	if s.surface != nil {
		io.WriteString(s.surface, text)
	}
}
