package http

import (
	"github.com/rimmartin/loom/httpparser"
)

// connState is the per-connection state co-located with the socket via
// Socket.SetData/Data. Exactly one exists per accepted connection, built
// in onOpen and torn down in onClose.
type connState struct {
	parser httpparser.State

	responsePending bool
	offset          int
	closeAfterFlush bool

	onAborted  func()
	onWritable func(offset int) bool
	inStream   func(chunk []byte, isFinal bool)

	req Request
	res Response
}

func newConnState() *connState {
	cs := &connState{}
	cs.req.res = &cs.res
	cs.req.cs = cs
	cs.res.cs = cs
	return cs
}
