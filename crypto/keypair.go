package crypto

import (
	"crypto/ed25519"
	"crypto/rand"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/nacl/box"
)

// EncKeyPair is a Curve25519 key pair used for seal/open (NaCl box).
type EncKeyPair struct {
	Public  [32]byte
	Private [32]byte
}

// SignKeyPair is an Ed25519 key pair used for sign/verify.
type SignKeyPair struct {
	Public  [32]byte
	Private [64]byte
}

// GenerateEncKeyPair creates a fresh random Curve25519 key pair.
func GenerateEncKeyPair() (*EncKeyPair, error) {
	logger := logrus.WithFields(logrus.Fields{"function": "GenerateEncKeyPair", "package": "crypto"})

	publicKey, privateKey, err := box.GenerateKey(rand.Reader)
	if err != nil {
		logger.WithError(err).Error("failed to generate encryption key pair")
		return nil, err
	}

	logger.Debug("generated new encryption key pair")
	return &EncKeyPair{Public: *publicKey, Private: *privateKey}, nil
}

// GenerateSignKeyPair creates a fresh random Ed25519 key pair.
func GenerateSignKeyPair() (*SignKeyPair, error) {
	logger := logrus.WithFields(logrus.Fields{"function": "GenerateSignKeyPair", "package": "crypto"})

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		logger.WithError(err).Error("failed to generate signing key pair")
		return nil, err
	}

	kp := &SignKeyPair{}
	copy(kp.Public[:], pub)
	copy(kp.Private[:], priv)

	logger.Debug("generated new signing key pair")
	return kp, nil
}
