package crypto

import (
	"crypto/ed25519"
)

// SignatureSize is the size of an Ed25519 signature in bytes.
const SignatureSize = ed25519.SignatureSize

// Sign produces a 64-byte Ed25519 signature over message using privateKey.
func Sign(message []byte, privateKey [64]byte) []byte {
	sig := ed25519.Sign(ed25519.PrivateKey(privateKey[:]), message)
	out := make([]byte, SignatureSize)
	copy(out, sig)
	return out
}

// Verify reports whether signature is a valid Ed25519 signature over message
// under verifyKey. It is constant-time in the underlying ed25519
// implementation and returns false rather than erroring on any malformed
// input (wrong-length signature, zero key, etc.) so callers can treat every
// failure mode identically: drop the frame.
func Verify(message []byte, signature []byte, verifyKey [32]byte) bool {
	if len(signature) != SignatureSize {
		return false
	}
	if verifyKey == ([32]byte{}) {
		return false
	}
	return ed25519.Verify(verifyKey[:], message, signature)
}
