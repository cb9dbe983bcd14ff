// Package situational implements the read-side tactical picture assembly
// and geofence evaluation for the mesh node. It is stateless across
// calls: every function reads through to a store.Store snapshot and
// computes its result fresh.
package situational
