//go:build windows

package transport

import (
	"net"
	"syscall"
)

// controlReuseAddr is a no-op on Windows, where the semantics of
// SO_REUSEADDR differ enough that setting it blindly is unsafe.
func controlReuseAddr(network, address string, c syscall.RawConn) error {
	return nil
}

// enableBroadcast is a no-op on Windows; net.UDPConn sockets default to
// broadcast-capable on this platform.
func enableBroadcast(conn *net.UDPConn) error {
	return nil
}
