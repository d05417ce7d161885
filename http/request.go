package http

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/rimmartin/loom/httpparser"
	"github.com/rimmartin/loom/router"
	"github.com/rimmartin/loom/session"
)

// Request wraps one parsed request head plus whatever body bytes have
// been buffered for it. It is reused across requests on the same
// connection rather than allocated fresh per request.
type Request struct {
	head   *httpparser.RequestHead
	params []router.Param
	yielded bool

	body []byte

	ctx       context.Context
	requestID string

	session session.Session

	res *Response
	cs  *connState
}

// Stream installs fn as the body sink for this request: fn is invoked
// once per parsed body chunk, always followed by exactly one call with
// isFinal true (even for an empty body), after which the sink is
// cleared automatically. Installing a stream is how a handler defers its
// response until the body has fully arrived instead of relying on Body.
func (r *Request) Stream(fn func(chunk []byte, isFinal bool)) {
	r.cs.inStream = fn
}

// Session returns the session attached by SessionUse, if any.
func (r *Request) Session() (session.Session, bool) {
	if r.session == nil {
		return nil, false
	}
	return r.session, true
}

// reset prepares the Request for a new request head on the same
// connection.
func (r *Request) reset(head *httpparser.RequestHead, ctx context.Context, requestID string) {
	r.head = head
	r.params = r.params[:0]
	r.yielded = false
	r.body = r.body[:0]
	r.ctx = ctx
	r.requestID = requestID
	r.session = nil
}

func (r *Request) appendBody(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	r.body = append(r.body, chunk...)
}

// Method returns the HTTP method, e.g. "GET".
func (r *Request) Method() string { return r.head.Method }

// Path returns the request path without the query string.
func (r *Request) Path() string { return r.head.Path }

// RawQuery returns the unparsed query string.
func (r *Request) RawQuery() string { return r.head.Query }

// Query parses and returns the query parameters.
func (r *Request) Query() url.Values {
	values, err := url.ParseQuery(r.head.Query)
	if err != nil {
		return url.Values{}
	}
	return values
}

// Version returns the HTTP version string, e.g. "HTTP/1.1".
func (r *Request) Version() string { return r.head.Version }

// KeepAlive reports whether the connection should persist after this
// request per the parsed head (explicit header or version default).
func (r *Request) KeepAlive() bool { return r.head.KeepAlive }

// Header returns the first value for name, matched case-insensitively.
func (r *Request) Header(name string) (string, bool) { return r.head.Header(name) }

// Body returns the body bytes buffered so far. Bytes are appended here
// only when no sink was installed via Stream. Handlers run as soon as the
// request head is parsed, before any body bytes are delivered, so a
// handler calling Body sees an empty slice; to read a body, install a
// sink with Stream.
func (r *Request) Body() []byte { return r.body }

// JSON decodes the bytes currently returned by Body as JSON into v. Like
// Body, it sees no body bytes when called from inside a handler.
func (r *Request) JSON(v any) error {
	return json.Unmarshal(r.body, v)
}

// Cookie returns the named cookie parsed from the Cookie header. A
// request's Cookie header packs name=value pairs without any of the
// attributes (Path, Expires, ...) a Set-Cookie response header carries,
// but ParseCookies handles that fine since Cookie.Parse treats missing
// attributes as already-default.
func (r *Request) Cookie(name string) (*Cookie, error) {
	raw, ok := r.head.Header("Cookie")
	if !ok {
		return nil, ErrNoCookie
	}
	cookies, err := ParseCookies(raw)
	if err != nil {
		return nil, err
	}
	for _, c := range cookies {
		if c.Name == name && !c.IsExpired() {
			return c, nil
		}
	}
	return nil, ErrNoCookie
}

// Context returns the request-scoped context (carries the OpenTelemetry
// span started by the connection driver).
func (r *Request) Context() context.Context { return r.ctx }

// RequestID returns the per-request identifier attached by the driver,
// suitable for correlating log lines and traces.
func (r *Request) RequestID() string { return r.requestID }

// Param returns the value of a named path parameter, or "" if absent.
func (r *Request) Param(key string) string {
	for _, p := range r.params {
		if p.Key == key {
			return p.Value
		}
	}
	return ""
}

// Yielded, ResetYield and SetParams implement router.RouteContext.
func (r *Request) Yielded() bool { return r.yielded }

// Yield tells the router this handler declined to fully handle the
// request; the router continues to the next matching registration.
func (r *Request) Yield() { r.yielded = true }

func (r *Request) ResetYield() { r.yielded = false }

func (r *Request) SetParams(params []router.Param) { r.params = params }
