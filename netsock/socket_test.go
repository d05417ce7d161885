package netsock

import (
	"net"
	"sync"
	"testing"
	"time"
)

// pipeListener adapts a single net.Pipe connection to the net.Listener
// interface so Context.Listen's accept loop can be exercised without a
// real TCP socket.
type pipeListener struct {
	conns chan net.Conn
	done  chan struct{}
}

func newPipeListener() *pipeListener {
	return &pipeListener{conns: make(chan net.Conn, 1), done: make(chan struct{})}
}

func (l *pipeListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

func (l *pipeListener) Close() error {
	select {
	case <-l.done:
	default:
		close(l.done)
	}
	return nil
}

func (l *pipeListener) Addr() net.Addr { return dummyAddr{} }

type dummyAddr struct{}

func (dummyAddr) Network() string { return "pipe" }
func (dummyAddr) String() string  { return "pipe" }

func newTestListener(t *testing.T, cb Callbacks) (*Listener, net.Conn) {
	t.Helper()
	ctx, err := NewContext(cb, ContextOptions{IdleTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	client, server := net.Pipe()
	pl := newPipeListener()
	pl.conns <- server

	l := &Listener{ctx: ctx, net: pl, extSize: 8, shutdown: make(chan struct{})}
	go l.acceptLoop()

	return l, client
}

func TestOnOpenAndOnData(t *testing.T) {
	var mu sync.Mutex
	var received []byte
	opened := make(chan struct{}, 1)
	gotData := make(chan struct{}, 1)

	_, client := newTestListener(t, Callbacks{
		OnOpen: func(s *Socket) { opened <- struct{}{} },
		OnData: func(s *Socket, data []byte) {
			mu.Lock()
			received = append(received, data...)
			mu.Unlock()
			gotData <- struct{}{}
		},
	})
	defer client.Close()

	select {
	case <-opened:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for OnOpen")
	}

	client.Write([]byte("hello"))

	select {
	case <-gotData:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for OnData")
	}

	mu.Lock()
	defer mu.Unlock()
	if string(received) != "hello" {
		t.Errorf("expected 'hello', got %q", received)
	}
}

func TestCorkUncorkSingleWrite(t *testing.T) {
	var sockRef *Socket

	_, client := newTestListener(t, Callbacks{
		OnOpen: func(s *Socket) { sockRef = s },
		OnData: func(s *Socket, data []byte) {
			s.Cork()
			s.Write([]byte("HTTP/1.1 200 OK\r\n"))
			s.Write([]byte("Content-Length: 2\r\n\r\n"))
			s.Write([]byte("ok"))
			s.Uncork()
		},
	})
	defer client.Close()

	readDone := make(chan string, 1)
	go func() {
		buf := make([]byte, 256)
		client.SetReadDeadline(time.Now().Add(time.Second))
		n, err := client.Read(buf)
		if err != nil {
			readDone <- ""
			return
		}
		readDone <- string(buf[:n])
	}()

	client.Write([]byte("GET / HTTP/1.1\r\n\r\n"))

	select {
	case got := <-readDone:
		if got != "HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok" {
			t.Errorf("expected single coalesced write, got %q", got)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for response")
	}
	if sockRef == nil {
		t.Fatal("expected OnOpen to capture socket")
	}
}

func TestExtensionStorage(t *testing.T) {
	seen := make(chan []byte, 1)
	_, client := newTestListener(t, Callbacks{
		OnOpen: func(s *Socket) {
			ext := s.Extension()
			ext[0] = 0x42
		},
		OnData: func(s *Socket, data []byte) {
			ext := s.Extension()
			seen <- append([]byte(nil), ext...)
		},
	})
	defer client.Close()

	client.Write([]byte("x"))

	select {
	case ext := <-seen:
		if ext[0] != 0x42 {
			t.Errorf("expected extension byte to persist across callbacks, got %v", ext)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out")
	}
}

func TestTimeoutFiresOnIdle(t *testing.T) {
	timedOut := make(chan struct{}, 1)

	ctx, err := NewContext(Callbacks{
		OnTimeout: func(s *Socket) { timedOut <- struct{}{} },
	}, ContextOptions{IdleTimeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewContext: %v", err)
	}

	client, server := net.Pipe()
	defer client.Close()
	pl := newPipeListener()
	pl.conns <- server
	l := &Listener{ctx: ctx, net: pl, extSize: 0, shutdown: make(chan struct{})}
	go l.acceptLoop()

	select {
	case <-timedOut:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for OnTimeout to fire")
	}
}
