package runtime

import (
	"github.com/tacmesh/meshnode/transport"
)

// linkTransport is an in-memory Transport backed by a channel, used to
// connect two test nodes without touching a real socket or serial port.
type linkTransport struct {
	name    string
	sendCh  chan []byte
	recvCh  chan []byte
	started bool
}

// newLinkPair returns two linkTransports wired to each other: sends on one
// arrive as receives on the other, simulating a two-party broadcast link.
func newLinkPair() (*linkTransport, *linkTransport) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	return &linkTransport{name: "a", sendCh: ab, recvCh: ba},
		&linkTransport{name: "b", sendCh: ba, recvCh: ab}
}

func (l *linkTransport) Start() error {
	if l.started {
		return transport.ErrAlreadyStarted
	}
	l.started = true
	return nil
}

func (l *linkTransport) Send(data []byte, dest string) error {
	if !l.started {
		return transport.ErrNotStarted
	}
	cp := append([]byte(nil), data...)
	select {
	case l.sendCh <- cp:
	default:
	}
	return nil
}

func (l *linkTransport) Recv() (transport.Frame, bool) {
	if !l.started {
		return transport.Frame{}, false
	}
	select {
	case data := <-l.recvCh:
		return transport.Frame{Data: data}, true
	default:
		return transport.Frame{}, false
	}
}

func (l *linkTransport) Stop() error {
	l.started = false
	return nil
}

func (l *linkTransport) Name() string { return l.name }
