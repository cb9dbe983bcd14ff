package crypto

import (
	"crypto/rand"
	"errors"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/nacl/box"
)

// MaxSealSize bounds the plaintext accepted by Seal. At 1 MiB it is well
// above the 65,535-byte datagram the IP transport reads, so it does not
// enforce any transport MTU.
const MaxSealSize = 1024 * 1024

// ErrEmptyMessage is returned when Seal is given a zero-length message or
// Open is given a ciphertext shorter than the 24-byte nonce.
var ErrEmptyMessage = errors.New("crypto: empty message")

// ErrMessageTooLarge is returned when a plaintext exceeds MaxSealSize.
var ErrMessageTooLarge = errors.New("crypto: message too large")

// ErrOpenFailed is returned when Open fails authentication.
var ErrOpenFailed = errors.New("crypto: open failed (tampered or wrong keys)")

// Seal authenticates and encrypts message for recipientPub using senderPriv,
// via NaCl box (X25519 + XSalsa20-Poly1305). A fresh random nonce is
// generated per call and prepended to the ciphertext.
func Seal(message []byte, recipientPub [32]byte, senderPriv [32]byte) ([]byte, error) {
	logger := logrus.WithFields(logrus.Fields{"function": "Seal", "package": "crypto"})

	if len(message) == 0 {
		return nil, ErrEmptyMessage
	}
	if len(message) > MaxSealSize {
		logger.WithField("size", len(message)).Error("message exceeds maximum seal size")
		return nil, ErrMessageTooLarge
	}

	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}

	sealed := box.Seal(nonce[:], message, &nonce, &recipientPub, &senderPriv)

	logger.WithField("ciphertext_size", len(sealed)).Debug("sealed message")
	return sealed, nil
}

// Open authenticates and decrypts ciphertext (as produced by Seal) from
// senderPub using recipientPriv.
func Open(ciphertext []byte, senderPub [32]byte, recipientPriv [32]byte) ([]byte, error) {
	if len(ciphertext) < 24 {
		return nil, ErrEmptyMessage
	}

	var nonce [24]byte
	copy(nonce[:], ciphertext[:24])

	plaintext, ok := box.Open(nil, ciphertext[24:], &nonce, &senderPub, &recipientPriv)
	if !ok {
		return nil, ErrOpenFailed
	}
	return plaintext, nil
}
