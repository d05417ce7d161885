package netsock

import (
	"bytes"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// writeDeadline bounds a single Uncork flush attempt. A write that would
// take longer than this is treated as backpressure: the remainder is
// queued and OnWritable is invoked as further attempts drain it.
const writeDeadline = 50 * time.Millisecond

// Socket is one accepted connection. Its read loop (serve) is the only
// goroutine that ever calls OnData/OnOpen/OnEnd, so connState-level data
// touched exclusively from inside those callbacks needs no locking at
// all. The timer goroutine (onTimerFire) and the background drain
// goroutine (drain, OnWritable) run independently of that read loop, so
// only the plain fields they actually share with it — closed, shutdownW,
// and the timer itself — are guarded, and only across the narrow section
// that touches them, never across a callback invocation.
type Socket struct {
	conn net.Conn
	ctx  *Context

	ext  []byte
	data any

	closed    atomic.Bool
	shutdownW atomic.Bool

	corked  bool
	pending bytes.Buffer

	timerMu  sync.Mutex
	timer    *time.Timer
	timerDur time.Duration
	timerOn  bool
}

func (l *Listener) serve(conn net.Conn) {
	sock := &Socket{
		conn: conn,
		ctx:  l.ctx,
		ext:  make([]byte, l.extSize),
	}

	sock.armTimeout(l.ctx.idleTimeout)

	if l.ctx.callbacks.OnOpen != nil {
		l.ctx.callbacks.OnOpen(sock)
	}

	buf := make([]byte, DefaultReadBufferSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if !sock.closed.Load() && l.ctx.callbacks.OnData != nil {
				l.ctx.callbacks.OnData(sock, buf[:n])
			}
			if sock.closed.Load() {
				return
			}
		}
		if err != nil {
			if !sock.closed.Load() && l.ctx.callbacks.OnEnd != nil {
				l.ctx.callbacks.OnEnd(sock)
			}
			sock.finalClose()
			return
		}
	}
}

// Extension returns the per-connection raw scratch region allocated at
// Listen time, sized by extSize. It holds no pointers, so it is safe to
// treat as plain bytes; the http package does not use it (connState is
// attached with SetData).
func (s *Socket) Extension() []byte { return s.ext }

// SetData attaches an arbitrary per-connection value (typically a pointer
// to caller-owned state) to the socket. Unlike Extension, this goes
// through a normal Go interface field, so the garbage collector sees and
// keeps alive whatever is stored here — the correct way to hand a
// pointer-containing struct like http's connState across callbacks
// without reinterpreting raw bytes as a pointer.
func (s *Socket) SetData(v any) { s.data = v }

// Data returns the value most recently passed to SetData, or nil.
func (s *Socket) Data() any { return s.data }

// Conn exposes the underlying net.Conn for callers that need addressing
// info or a protocol handoff (upgrade coordination hands this to the
// upgraded protocol's own reader).
func (s *Socket) Conn() net.Conn { return s.conn }

// Cork begins buffering Write calls instead of sending them immediately.
// Call Uncork to flush. Corking before any handler runs, and uncorking
// once the response is fully queued, is what lets a typical small
// response go out in exactly one kernel write.
func (s *Socket) Cork() {
	s.corked = true
}

// Write appends to the pending buffer if corked, otherwise sends
// immediately (a single net.Conn.Write for this call's bytes).
func (s *Socket) Write(p []byte) (int, error) {
	if s.corked {
		return s.pending.Write(p)
	}
	return s.writeDeadlined(p)
}

// Uncork flushes any buffered bytes in a single write attempt. It reports
// whether the flush fully completed; if not, the remainder stays queued
// and a background goroutine drains it, invoking OnWritable on each
// further attempt, until the socket is fully caught up or closed.
func (s *Socket) Uncork() (flushed bool) {
	s.corked = false
	if s.pending.Len() == 0 {
		return true
	}

	data := append([]byte(nil), s.pending.Bytes()...)
	s.pending.Reset()

	n, err := s.writeDeadlined(data)
	if err == nil && n == len(data) {
		return true
	}

	remainder := data[n:]
	go s.drain(remainder)
	return false
}

func (s *Socket) writeDeadlined(p []byte) (int, error) {
	s.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	n, err := s.conn.Write(p)
	s.conn.SetWriteDeadline(time.Time{})
	return n, err
}

func (s *Socket) drain(remainder []byte) {
	for len(remainder) > 0 {
		n, err := s.writeDeadlined(remainder)
		remainder = remainder[n:]
		if err != nil && !isTimeout(err) {
			return
		}
		if len(remainder) > 0 {
			if s.closed.Load() {
				return
			}
			if s.ctx.callbacks.OnWritable != nil {
				s.ctx.callbacks.OnWritable(s)
			}
			if s.closed.Load() {
				return
			}
		}
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

// SetTimeout (re)arms the idle timeout. Called by the http driver around,
// not inside, handler dispatch.
func (s *Socket) SetTimeout(d time.Duration) {
	s.armTimeout(d)
}

// ClearTimeout disarms the idle timeout entirely (used while a streamed
// upload or upgrade is in progress and idle detection should not fire).
func (s *Socket) ClearTimeout() {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerOn = false
}

func (s *Socket) armTimeout(d time.Duration) {
	s.timerMu.Lock()
	defer s.timerMu.Unlock()
	if s.closed.Load() {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerDur = d
	s.timerOn = true
	s.timer = time.AfterFunc(d, s.onTimerFire)
}

func (s *Socket) onTimerFire() {
	s.timerMu.Lock()
	fire := !s.closed.Load() && s.timerOn
	s.timerMu.Unlock()
	if !fire {
		return
	}
	if s.ctx.callbacks.OnTimeout != nil {
		s.ctx.callbacks.OnTimeout(s)
	}
	s.finalClose()
}

// IsClosed reports whether the socket has been fully torn down.
func (s *Socket) IsClosed() bool {
	return s.closed.Load()
}

// Shutdown half-closes the write side, used for graceful upgrade handoff
// where the caller wants no further framing written by this layer.
func (s *Socket) Shutdown() {
	s.shutdownW.Store(true)
	if tc, ok := s.conn.(*net.TCPConn); ok {
		tc.CloseWrite()
	}
}

// IsShutdown reports whether Shutdown has been called.
func (s *Socket) IsShutdown() bool {
	return s.shutdownW.Load()
}

// Close force-closes the connection immediately. OnClose runs exactly
// once (finalClose guards it), whichever of Close, EOF in the read loop
// or timer expiry gets there first; closing the conn also unblocks the
// read loop when Close is called from a handler.
func (s *Socket) Close() error {
	s.finalClose()
	return s.conn.Close()
}

func (s *Socket) finalClose() {
	if s.closed.Swap(true) {
		return
	}
	s.timerMu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timerMu.Unlock()
	if s.ctx.callbacks.OnClose != nil {
		s.ctx.callbacks.OnClose(s)
	}
	s.conn.Close()
}

var _ io.Writer = (*Socket)(nil)
