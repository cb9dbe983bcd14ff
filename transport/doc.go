// Package transport implements the two concrete bearers a mesh node drives
// through the Transport interface in types.go: a broadcast-capable IP
// datagram socket (udp.go) and a line-framed half-duplex serial radio link
// (serial.go).
//
// Both implementations follow the same shape: Start acquires the underlying
// resource and launches a background reader goroutine that feeds a buffered
// channel; Recv is then a cheap non-blocking poll of that channel, matching
// the node runtime's cooperative receive loop. Send is
// fire-and-forget; per-transport failures are returned to the caller to log,
// never panic or block the loop.
//
// Example:
//
//	t := transport.NewUDPTransport(transport.UDPConfig{Port: transport.DefaultIPPort})
//	if err := t.Start(); err != nil {
//	    log.Fatal(err)
//	}
//	defer t.Stop()
//	t.Send(frameBytes, "") // broadcast
//	if frame, ok := t.Recv(); ok {
//	    // handle frame.Data, frame.SourceHint
//	}
package transport
