// Package transport provides the uniform send/recv abstraction a node
// runtime drives over heterogeneous links: a broadcast-capable IP socket and
// a half-duplex serial radio. See doc.go for the full package overview.
package transport

import "errors"

// Frame is one received datagram together with an opaque hint about where
// it came from. SourceHint is an IP:port string for the IP-broadcast
// transport and empty for the serial transport.
type Frame struct {
	Data       []byte
	SourceHint string
}

// Transport is the abstract bidirectional datagram channel every node
// runtime component drives symmetrically. A node may have zero
// or more transports started at once.
type Transport interface {
	// Start attempts to acquire the underlying resource (socket, serial
	// port). It must have no side effects if it fails.
	Start() error

	// Send is fire-and-forget. dest == "" means broadcast on this link;
	// a non-empty dest is a best-effort unicast hint (an address string
	// meaningful to this transport, e.g. "host:port" for IP).
	Send(data []byte, dest string) error

	// Recv returns the next available frame, or a zero Frame with ok=false
	// if nothing is available right now. It never blocks longer than the
	// transport's own internal poll granularity.
	Recv() (frame Frame, ok bool)

	// Stop is idempotent.
	Stop() error

	// Name identifies the transport for logging and diagnostics.
	Name() string
}

// ErrNotStarted is returned by Send when called before Start. Recv reports
// the same condition as ok=false rather than as an error.
var ErrNotStarted = errors.New("transport: not started")

// ErrAlreadyStarted is returned by Start when called twice without an
// intervening Stop.
var ErrAlreadyStarted = errors.New("transport: already started")
