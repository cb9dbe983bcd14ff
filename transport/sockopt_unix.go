//go:build !windows

package transport

import (
	"net"
	"syscall"
)

// controlReuseAddr marks the socket address-reusable before bind so a node
// can share the well-known mesh port with other local listeners.
func controlReuseAddr(network, address string, c syscall.RawConn) error {
	var sockErr error
	ctrlErr := c.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return sockErr
}

// enableBroadcast sets SO_BROADCAST on the socket underlying conn so
// datagrams addressed to the link-local broadcast address are actually
// transmitted.
func enableBroadcast(conn *net.UDPConn) error {
	raw, err := conn.SyscallConn()
	if err != nil {
		return err
	}

	var sockErr error
	ctrlErr := raw.Control(func(fd uintptr) {
		sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return sockErr
}
