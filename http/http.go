// Package http implements the connection-per-goroutine HTTP/1.1 server
// built on top of netsock and httpparser: request/response types, a
// generic router-backed dispatcher, filter/use middleware chains, and
// protocol-upgrade coordination.
package http

import "time"

// DefaultIdleTimeout is the sole cancellation mechanism for a connection:
// no request activity within this window and the connection is force
// closed. There is no separate keep-alive timeout distinct from this.
const DefaultIdleTimeout = 10 * time.Second

// MaxRequestHeaders bounds how many header fields a single request may
// carry before the connection is treated as malformed.
const MaxRequestHeaders = 100

// Handler processes one matched request. At least one of "call a
// WithXxx/AddXxx method on res" or "install res.OnAborted" must happen
// before Handler returns; anything else is a programmer error and the
// driver panics on it rather than silently degrading.
type Handler func(req *Request, res *Response)
