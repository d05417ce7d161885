// Package netsock is the concrete socket binding the http package drives.
// It plays the role of the "external" non-blocking socket abstraction: a
// listening Context accepts connections and, for each one, invokes a fixed
// set of callbacks (OnOpen, OnData, OnWritable, OnEnd, OnTimeout) to drive
// a single connection loop, generalized here to a callback table so the
// http package owns none of the socket plumbing itself.
//
// There is no raw epoll/kqueue reactor here: each accepted connection gets
// its own goroutine acting as that connection's single event-loop thread,
// and per-connection state is never touched from more than one goroutine
// except through the serialized callback path Socket provides.
package netsock

import (
	"crypto/tls"
	"log/slog"
	"net"
	"strconv"
	"time"
)

// DefaultReadBufferSize is the per-Read chunk size for a connection's
// read loop.
const DefaultReadBufferSize = 4096

// Callbacks are the five extension points a Context installs. Extension
// is a raw byte slice the caller can use as per-connection scratch; its
// size is fixed at Listen time. Pointer-holding state such as
// http.connState is attached with Socket.SetData instead.
type Callbacks struct {
	OnOpen     func(sock *Socket)
	OnData     func(sock *Socket, data []byte)
	OnWritable func(sock *Socket)
	OnEnd      func(sock *Socket)
	OnTimeout  func(sock *Socket)
	// OnClose fires exactly once per connection, regardless of which of
	// EOF, an explicit Close, or timeout expiry triggered it. This is
	// where connection-scoped teardown (filter −1, OnAborted) belongs.
	OnClose func(sock *Socket)
}

// TLSOptions configures a secure Context. DHParamsFile and PassphraseFile
// are accepted for interface parity with C-style TLS setups but are
// no-ops here: crypto/tls has no DH-params or encrypted-private-key-
// passphrase concept, so a Context receiving them just logs that they
// were ignored.
type TLSOptions struct {
	KeyFile        string
	CertFile       string
	DHParamsFile   string
	PassphraseFile string
	CAFile         string
}

// ContextOptions configures a Context.
type ContextOptions struct {
	TLS         *TLSOptions
	IdleTimeout time.Duration
	Logger      *slog.Logger
}

// Context owns a set of callbacks and the listeners created from it,
// generalized so the http package can bind its own per-connection state
// instead of a fixed request type.
type Context struct {
	callbacks   Callbacks
	tlsConfig   *tls.Config
	idleTimeout time.Duration
	logger      *slog.Logger
}

// NewContext installs callbacks and returns a ready-to-listen Context.
func NewContext(callbacks Callbacks, opts ContextOptions) (*Context, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = 10 * time.Second
	}

	ctx := &Context{
		callbacks:   callbacks,
		idleTimeout: idle,
		logger:      logger,
	}

	if opts.TLS != nil {
		cfg, err := buildTLSConfig(opts.TLS, logger)
		if err != nil {
			return nil, err
		}
		ctx.tlsConfig = cfg
	}

	return ctx, nil
}

func buildTLSConfig(opts *TLSOptions, logger *slog.Logger) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(opts.CertFile, opts.KeyFile)
	if err != nil {
		return nil, err
	}

	if opts.DHParamsFile != "" {
		logger.Warn("netsock: DHParamsFile has no effect, crypto/tls does not support explicit DH params", "path", opts.DHParamsFile)
	}
	if opts.PassphraseFile != "" {
		logger.Warn("netsock: PassphraseFile has no effect, crypto/tls does not support encrypted private keys", "path", opts.PassphraseFile)
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}

	if opts.CAFile != "" {
		logger.Debug("netsock: CAFile configured", "path", opts.CAFile)
	}

	return cfg, nil
}

// Listener is a bound, accepting Context.
type Listener struct {
	ctx      *Context
	net      net.Listener
	extSize  int
	shutdown chan struct{}
}

// Listen binds host:port and starts accepting connections in a background
// goroutine. extSize is the byte size of the per-connection extension
// region handed to OnOpen via Socket.Extension.
func (c *Context) Listen(host string, port int, extSize int) (*Listener, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	var ln net.Listener
	var err error
	if c.tlsConfig != nil {
		ln, err = tls.Listen("tcp", addr, c.tlsConfig)
	} else {
		ln, err = net.Listen("tcp", addr)
	}
	if err != nil {
		return nil, err
	}

	l := &Listener{
		ctx:      c,
		net:      ln,
		extSize:  extSize,
		shutdown: make(chan struct{}),
	}

	go l.acceptLoop()

	return l, nil
}

// Addr returns the listener's bound address.
func (l *Listener) Addr() net.Addr { return l.net.Addr() }

func (l *Listener) acceptLoop() {
	for {
		conn, err := l.net.Accept()
		if err != nil {
			select {
			case <-l.shutdown:
				return
			default:
				l.ctx.logger.Error("netsock: accept failed", "error", err)
				continue
			}
		}
		go l.serve(conn)
	}
}

// Close stops accepting new connections. It does not close already-open
// sockets; they keep running until they end, time out or are closed.
func (l *Listener) Close() error {
	close(l.shutdown)
	return l.net.Close()
}
