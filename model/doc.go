// Package model defines the shared data types exchanged and persisted by a
// mesh messaging node: node identity, position, tactical messages, and
// geofence zones.
//
// These types carry no behavior beyond validation and are deliberately free
// of dependencies on crypto, store, or transport so that every other package
// in this module can depend on model without risk of import cycles.
package model
