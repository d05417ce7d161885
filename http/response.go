package http

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rimmartin/loom/netsock"
)

// Response accumulates the outgoing status, headers, cookies and body for
// one request. Handlers call the WithXxx methods to build it; the
// connection driver serializes it onto the socket in one write after the
// handler returns (or after the final Stream call, for a streamed body).
type Response struct {
	status  uint16
	headers map[string][]string
	cookies []Cookie
	body    []byte

	responded bool
	upgraded  *netsock.Socket

	cs *connState
}

func (res *Response) reset() {
	res.status = StatusOK
	if res.headers == nil {
		res.headers = make(map[string][]string, 8)
	} else {
		clear(res.headers)
	}
	res.cookies = res.cookies[:0]
	res.body = res.body[:0]
	res.responded = false
	res.upgraded = nil
}

// OnAborted installs the callback invoked at most once if the connection
// terminates while this request is still in flight.
func (res *Response) OnAborted(fn func()) {
	res.cs.onAborted = fn
}

// Upgrade deposits sock into the connection's transient upgrade slot. The
// driver detects this immediately after the handler returns, uncorks
// sock (not the original connection's socket), and hands control to the
// Context's OnUpgrade hook. The HTTP driver stops driving the original
// socket identity from this point on.
func (res *Response) Upgrade(sock *netsock.Socket) {
	res.upgraded = sock
	res.responded = true
}

// WithStatus sets the status code and marks the response as built.
func (res *Response) WithStatus(status uint16) *Response {
	res.status = status
	res.responded = true
	return res
}

// WithHeader sets (replacing) a response header.
func (res *Response) WithHeader(name, value string) *Response {
	res.headers[name] = []string{value}
	res.responded = true
	return res
}

// AddHeader appends a response header without replacing existing values.
func (res *Response) AddHeader(name, value string) *Response {
	res.headers[name] = append(res.headers[name], value)
	res.responded = true
	return res
}

// WithText sets a text/plain body.
func (res *Response) WithText(text string) *Response {
	res.body = append(res.body[:0], text...)
	res.headers["Content-Type"] = []string{"text/plain; charset=utf-8"}
	res.responded = true
	return res
}

// WithBytes sets an opaque body with the given content type.
func (res *Response) WithBytes(contentType string, data []byte) *Response {
	res.body = append(res.body[:0], data...)
	res.headers["Content-Type"] = []string{contentType}
	res.responded = true
	return res
}

// WithJSON encodes v as the response body using encoding/json, matching
// how a plain HTTP response layer would build a JSON body without
// pulling in a bespoke zero-allocation JSON engine.
func (res *Response) WithJSON(v any) *Response {
	data, err := json.Marshal(v)
	if err != nil {
		res.status = StatusInternalServerError
		res.body = append(res.body[:0], fmt.Sprintf(`{"error":%q}`, err.Error())...)
	} else {
		res.body = append(res.body[:0], data...)
	}
	res.headers["Content-Type"] = []string{"application/json"}
	res.responded = true
	return res
}

// AddCookie appends a Set-Cookie header for c. An invalid cookie (per
// RFC 6265, e.g. SameSite=None without Secure) is dropped rather than
// sent, since a handler passing one is a bug, not something the client
// should see reflected back.
func (res *Response) AddCookie(c Cookie) *Response {
	if err := c.Valid(); err != nil {
		return res
	}
	res.cookies = append(res.cookies, c)
	res.responded = true
	return res
}

// OnWritable installs the callback invoked, with the connection's offset,
// each time the socket makes progress draining a backpressured flush.
// While it is installed the idle timeout is disarmed on those events.
func (res *Response) OnWritable(fn func(offset int) bool) {
	res.cs.onWritable = fn
}

// serialize renders the status line, headers, cookies and body into a
// single buffer so the driver can hand it to the corked socket in as few
// Write calls as possible (ideally one, to preserve the single-syscall
// property for a typical small response).
func (res *Response) serialize(keepAlive bool, dst []byte) []byte {
	dst = append(dst, "HTTP/1.1 "...)
	dst = strconv.AppendInt(dst, int64(res.status), 10)
	dst = append(dst, ' ')
	dst = append(dst, StatusText(res.status)...)
	dst = append(dst, "\r\n"...)

	for name, values := range res.headers {
		for _, v := range values {
			dst = append(dst, name...)
			dst = append(dst, ": "...)
			dst = append(dst, v...)
			dst = append(dst, "\r\n"...)
		}
	}

	for _, c := range res.cookies {
		dst = append(dst, "Set-Cookie: "...)
		dst = append(dst, c.String()...)
		dst = append(dst, "\r\n"...)
	}

	if keepAlive {
		dst = append(dst, "Connection: keep-alive\r\n"...)
	} else {
		dst = append(dst, "Connection: close\r\n"...)
	}

	dst = append(dst, "Content-Length: "...)
	dst = strconv.AppendInt(dst, int64(len(res.body)), 10)
	dst = append(dst, "\r\n\r\n"...)

	dst = append(dst, res.body...)

	return dst
}
