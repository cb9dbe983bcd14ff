// Package crypto implements the node's long-term asymmetric identity and the
// sign/verify/seal/open primitives the rest of the mesh messaging node builds
// on.
//
// Key generation and storage follow the same shape as NaCl/libsodium box
// keys: a Curve25519 pair for seal/open, and an Ed25519 pair for sign/verify.
// Both are generated together into a single on-disk Identity file, written
// with owner-only permissions, on first boot.
//
// Example:
//
//	id, err := crypto.LoadOrCreateIdentity("/var/lib/meshnode/identity.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sig := crypto.Sign(payload, id.SignPrivate)
//	ok := crypto.Verify(payload, sig, id.VerifyKey())
package crypto
