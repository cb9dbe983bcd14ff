// Package store implements the node's single-writer durable state: nodes,
// positions, messages, and geofence zones, each backed by a bucket in a
// single go.etcd.io/bbolt database file, with secondary-index buckets for
// the four required lookups (messages-by-topic, messages-by-timestamp,
// positions-by-timestamp, nodes-by-unit).
//
// Every exported query and mutation method takes the Store's mutex before
// opening a bbolt transaction, so concurrent callers (the runtime's transmit loop,
// receive loop, and any number of read-side API callers) are serialized at
// the store boundary, without pushing
// locking concerns up into the runtime.
package store
