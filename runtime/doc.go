// Package runtime implements the node runtime: the in-process
// identity, the outbound priority queue, the transmit loop, the receive
// loop, and observer fan-out. It is the component that reconciles the
// crypto, store, transport, and envelope packages into a single running
// node.
package runtime
