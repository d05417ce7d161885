package http

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/rimmartin/loom/httpparser"
	"github.com/rimmartin/loom/netsock"
	"github.com/rimmartin/loom/router"
	"github.com/rimmartin/loom/uuid"
)

// TLSOptions configures a secure Context. A Context is "secure" exactly
// when TLS is non-nil, a single capability flag rather than two parallel
// generic types. When it is set, CertFile and KeyFile must name a loadable
// key pair; the remaining fields are optional.
type TLSOptions = netsock.TLSOptions

// ListenOptions configures Context.Listen.
type ListenOptions struct {
	// ExtraExtensionBytes reserves additional raw scratch per connection
	// beyond what http itself needs, for callers layering their own
	// protocol state on top (e.g. an upgrade handler).
	ExtraExtensionBytes int
}

// Context is one HTTP connection context: it owns the router, the filter
// and use chains, and the netsock.Context it is bound to. Construct with
// New and call the registration methods (Filter/Use/On) before Listen:
// the chains and the router are read without locking by every connection
// goroutine, and a filter registered after a connection opened does not
// receive +1 for that connection.
type Context struct {
	router *router.Router[*Request]

	filters []FilterHandler
	uses    []UseHandler

	loop *netsock.Context

	logger *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter

	requestsHandled  metric.Int64Counter
	bytesWritten     metric.Int64Counter
	pipeliningErrors metric.Int64Counter

	onUpgrade func(sock *netsock.Socket)
}

// New constructs a Context. tls is nil for a plain-text listener.
func New(tls *TLSOptions, logger *slog.Logger) (*Context, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Context{
		router: router.New[*Request](),
		logger: logger,
		tracer: otel.Tracer("github.com/rimmartin/loom/http"),
		meter:  otel.Meter("github.com/rimmartin/loom/http"),
	}

	var err error
	c.requestsHandled, err = c.meter.Int64Counter("http.requests_handled")
	if err != nil {
		return nil, err
	}
	c.bytesWritten, err = c.meter.Int64Counter("http.bytes_written")
	if err != nil {
		return nil, err
	}
	c.pipeliningErrors, err = c.meter.Int64Counter("http.pipelining_violations")
	if err != nil {
		return nil, err
	}

	loop, err := netsock.NewContext(netsock.Callbacks{
		OnOpen:     c.onOpen,
		OnData:     c.onData,
		OnWritable: c.onWritable,
		OnEnd:      c.onEnd,
		OnTimeout:  c.onTimeout,
		OnClose:    c.onClose,
	}, netsock.ContextOptions{
		TLS:         tls,
		IdleTimeout: DefaultIdleTimeout,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	c.loop = loop

	return c, nil
}

// Filter appends h to the filter chain, invoked ±1 on every connection
// open/close.
func (c *Context) Filter(h FilterHandler) { c.filters = append(c.filters, h) }

// Use appends h to the use chain, invoked before routing on every
// request.
func (c *Context) Use(h UseHandler) { c.uses = append(c.uses, h) }

// On registers a route. method may be "*" to match any method during the
// router's fallback pass.
func (c *Context) On(method, pattern string, h Handler) {
	c.router.Handle(method, pattern, func(req *Request) {
		h(req, req.res)
	})
}

// OnUpgrade installs the hook invoked when a handler upgrades a
// connection via Response.Upgrade. sock's HTTP driver has already
// stopped; the hook owns the raw connection from this point on.
func (c *Context) OnUpgrade(fn func(sock *netsock.Socket)) { c.onUpgrade = fn }

// Listen binds host:port and starts accepting connections.
func (c *Context) Listen(host string, port int, opts ListenOptions) (*netsock.Listener, error) {
	return c.loop.Listen(host, port, opts.ExtraExtensionBytes)
}

// Free performs explicit teardown; the Context does not auto-destruct.
// There is currently nothing to release beyond letting the listener be
// closed by the caller, but the method exists so callers have a single
// place to add cleanup without changing the API.
func (c *Context) Free() {}

func (c *Context) onOpen(sock *netsock.Socket) {
	cs := newConnState()
	sock.SetData(cs)

	for _, f := range c.filters {
		f(&cs.res, +1)
	}
}

func (c *Context) onEnd(sock *netsock.Socket) {
	// HTTP/1.1 has no half-close in this design; the socket's read loop
	// treats EOF as connection-gone regardless, so there is nothing
	// additional to do here beyond what onClose (folded into the read
	// loop's finalClose path) already handles.
}

func (c *Context) onClose(sock *netsock.Socket) {
	cs, ok := sock.Data().(*connState)
	if !ok || cs == nil {
		return
	}
	for _, f := range c.filters {
		f(&cs.res, -1)
	}
	if cs.responsePending && cs.onAborted != nil {
		cs.onAborted()
	}
}

func (c *Context) onTimeout(sock *netsock.Socket) {
	c.logger.Debug("http: idle timeout, closing connection")
}

func (c *Context) onWritable(sock *netsock.Socket) {
	cs, ok := sock.Data().(*connState)
	if !ok || cs == nil {
		return
	}
	if cs.onWritable != nil {
		sock.ClearTimeout()
		cs.onWritable(cs.offset)
		return
	}
	sock.Uncork()
	sock.SetTimeout(DefaultIdleTimeout)
}

func (c *Context) onData(sock *netsock.Socket, data []byte) {
	if sock.IsShutdown() {
		return
	}

	cs, ok := sock.Data().(*connState)
	if !ok || cs == nil {
		return
	}

	sock.Cork()

	gone := !httpparser.Consume(&cs.parser, data,
		func(head *httpparser.RequestHead) bool {
			return c.handleRequestHead(sock, cs, head)
		},
		func(chunk []byte, isFinal bool) bool {
			return c.handleBodyChunk(sock, cs, chunk, isFinal)
		},
		func(err error) {
			c.logger.Debug("http: parse error, closing connection", "error", err)
			sock.Close()
		},
	)
	if gone {
		return
	}

	if cs.res.upgraded != nil {
		up := cs.res.upgraded
		cs.res.upgraded = nil
		up.Uncork()
		if c.onUpgrade != nil {
			c.onUpgrade(up)
		}
		return
	}

	if !sock.Uncork() {
		sock.SetTimeout(DefaultIdleTimeout)
	}

	if cs.closeAfterFlush {
		sock.Close()
	}
}

func (c *Context) handleRequestHead(sock *netsock.Socket, cs *connState, head *httpparser.RequestHead) bool {
	sock.ClearTimeout()
	cs.offset = 0

	if cs.responsePending {
		c.pipeliningErrors.Add(context.Background(), 1)
		sock.Close()
		return false
	}
	if len(head.Headers) > MaxRequestHeaders {
		c.logger.Debug("http: too many header fields, closing connection", "count", len(head.Headers))
		sock.Close()
		return false
	}
	cs.responsePending = true
	cs.inStream = nil
	cs.onAborted = nil

	reqID := uuid.NewV4().String()
	spanCtx, span := c.tracer.Start(context.Background(), "http.request",
		trace.WithAttributes(
			attribute.String("http.method", head.Method),
			attribute.String("http.path", head.Path),
			attribute.String("http.request_id", reqID),
		))
	defer span.End()

	cs.req.reset(head, spanCtx, reqID)
	cs.res.reset()
	// Set directly rather than via WithHeader so the driver's own header
	// does not count as the handler having responded.
	cs.res.headers["X-Request-Id"] = []string{reqID}

	c.runUseChain(&cs.res, &cs.req)

	matched := c.dispatchWithRecover(cs, head.Method, head.Path)
	if !matched {
		sock.Close()
		return false
	}

	if cs.res.upgraded != nil {
		return true
	}
	if sock.IsClosed() {
		return false
	}
	if sock.IsShutdown() {
		return false
	}

	if !cs.res.responded && cs.onAborted == nil {
		panic(fmt.Sprintf("http: handler for %s %s returned without responding or installing OnAborted", head.Method, head.Path))
	}

	if cs.res.responded {
		c.flushResponse(sock, cs, head.KeepAlive)
	} else if cs.inStream != nil {
		sock.SetTimeout(DefaultIdleTimeout)
	}

	return true
}

func (c *Context) runUseChain(res *Response, req *Request) {
	for _, u := range c.uses {
		u(res, req)
	}
}

func (c *Context) dispatchWithRecover(cs *connState, method, path string) (matched bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("http: handler panicked", "error", r, "path", path, "method", method)
			cs.res.WithStatus(StatusInternalServerError).WithText("internal server error")
			matched = true
		}
	}()
	return c.router.Dispatch(method, path, &cs.req)
}

func (c *Context) handleBodyChunk(sock *netsock.Socket, cs *connState, chunk []byte, isFinal bool) bool {
	if cs.inStream != nil {
		if isFinal {
			sock.ClearTimeout()
		} else {
			sock.SetTimeout(DefaultIdleTimeout)
		}
		cs.inStream(chunk, isFinal)
	} else {
		cs.req.appendBody(chunk)
	}

	if sock.IsClosed() || sock.IsShutdown() {
		return false
	}

	// A non-streaming request already responded (or panicked into one)
	// back in handleRequestHead, before any body bytes were even
	// requested; only a Stream-installed handler waits until here.
	if isFinal && cs.inStream != nil {
		cs.inStream = nil
		if cs.res.responded {
			c.flushResponse(sock, cs, cs.req.head.KeepAlive)
		}
	}

	return true
}

func (c *Context) flushResponse(sock *netsock.Socket, cs *connState, keepAlive bool) {
	var buf [512]byte
	out := cs.res.serialize(keepAlive, buf[:0])
	n, _ := sock.Write(out)
	cs.offset += n
	c.bytesWritten.Add(context.Background(), int64(n))
	c.requestsHandled.Add(context.Background(), 1)
	cs.responsePending = false

	if !keepAlive {
		cs.closeAfterFlush = true
	}
}
