// Package envelope implements the on-wire frame format and the
// sign/verify protocol of the mesh node: every frame carries a
// protocol version, the sender's claimed identity, and a single tactical
// message with its signature.
//
// Canonical encoding is plain encoding/json applied to structs, so Marshal
// is deterministic: field order is fixed by the Go struct declaration, and
// the single map field (per-recipient sealed payloads) is emitted with
// json.Marshal's sorted keys, leaving no iteration-order nondeterminism in
// the signed bytes. The signing protocol is:
//
//  1. Build the envelope with Message.Signature == nil.
//  2. Canonically encode it (Encode).
//  3. Sign the encoded bytes with the sender's signing key.
//  4. Set Message.Signature and re-encode for transmission.
//
// Verification reverses step 2–3: strip the signature, re-encode, and
// verify against the claimed sender's verify key.
package envelope
