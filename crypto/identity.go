package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// Identity is the node's long-term asymmetric identity: a stable 128-bit
// node_id plus the Curve25519 (seal/open) and Ed25519 (sign/verify) key
// pairs derived once at first boot. Identity is immutable after creation.
type Identity struct {
	NodeID      string    `json:"node_id"`
	EncPublic   [32]byte  `json:"-"`
	EncPrivate  [32]byte  `json:"-"`
	SignPublic  [32]byte  `json:"-"`
	SignPrivate [64]byte  `json:"-"`
	Created     time.Time `json:"created"`
}

// VerifyKey returns the node's Ed25519 public key, used by peers to verify
// signatures from this node.
func (id *Identity) VerifyKey() [32]byte {
	return id.SignPublic
}

// Wipe zeroes the identity's private key material in place. The on-disk
// copy is untouched; the in-memory identity can no longer sign or open, so
// this is the last step of a node shutdown.
func (id *Identity) Wipe() {
	subtle.XORBytes(id.EncPrivate[:], id.EncPrivate[:], id.EncPrivate[:])
	subtle.XORBytes(id.SignPrivate[:], id.SignPrivate[:], id.SignPrivate[:])
	runtime.KeepAlive(id)
}

// identityFile is the on-disk JSON encoding of an Identity. Keys are
// base64-encoded by encoding/json's default []byte handling.
type identityFile struct {
	NodeID      string    `json:"node_id"`
	EncPublic   []byte    `json:"enc_public"`
	EncPrivate  []byte    `json:"enc_private"`
	SignPublic  []byte    `json:"sign_public"`
	SignPrivate []byte    `json:"sign_private"`
	Created     time.Time `json:"created"`
}

// ErrCorruptIdentity is returned when an existing identity file cannot be
// parsed. This is a fatal construction error, not a silent regeneration.
var ErrCorruptIdentity = errors.New("crypto: identity file exists but could not be parsed")

// LoadOrCreateIdentity loads the identity at path if present, or generates
// and persists a fresh one. The file is written with 0600 permissions.
// Failure to persist a freshly generated identity is fatal.
func LoadOrCreateIdentity(path string) (*Identity, error) {
	logger := logrus.WithFields(logrus.Fields{"function": "LoadOrCreateIdentity", "path": path})

	if data, err := os.ReadFile(path); err == nil {
		id, parseErr := parseIdentity(data)
		if parseErr != nil {
			logger.WithError(parseErr).Error("identity file present but corrupt")
			return nil, fmt.Errorf("%w: %v", ErrCorruptIdentity, parseErr)
		}
		logger.WithField("node_id", id.NodeID).Info("loaded existing identity")
		return id, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("crypto: reading identity file: %w", err)
	}

	logger.Info("no identity file found, generating a new identity")

	id, err := generateIdentity()
	if err != nil {
		return nil, fmt.Errorf("crypto: generating identity: %w", err)
	}

	if err := persistIdentity(path, id); err != nil {
		return nil, fmt.Errorf("crypto: persisting identity: %w", err)
	}

	logger.WithField("node_id", id.NodeID).Info("generated and persisted new identity")
	return id, nil
}

func generateIdentity() (*Identity, error) {
	var idBytes [16]byte
	if _, err := rand.Read(idBytes[:]); err != nil {
		return nil, fmt.Errorf("generating node_id: %w", err)
	}

	encKP, err := GenerateEncKeyPair()
	if err != nil {
		return nil, err
	}
	signKP, err := GenerateSignKeyPair()
	if err != nil {
		return nil, err
	}

	return &Identity{
		NodeID:      hex.EncodeToString(idBytes[:]),
		EncPublic:   encKP.Public,
		EncPrivate:  encKP.Private,
		SignPublic:  signKP.Public,
		SignPrivate: signKP.Private,
		Created:     time.Now().UTC(),
	}, nil
}

func parseIdentity(data []byte) (*Identity, error) {
	var f identityFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	if f.NodeID == "" || len(f.EncPublic) != 32 || len(f.EncPrivate) != 32 ||
		len(f.SignPublic) != 32 || len(f.SignPrivate) != 64 {
		return nil, errors.New("identity file missing or malformed fields")
	}

	id := &Identity{NodeID: f.NodeID, Created: f.Created}
	copy(id.EncPublic[:], f.EncPublic)
	copy(id.EncPrivate[:], f.EncPrivate)
	copy(id.SignPublic[:], f.SignPublic)
	copy(id.SignPrivate[:], f.SignPrivate)
	return id, nil
}

// persistIdentity writes the identity atomically (temp file + rename) with
// owner-only permissions.
func persistIdentity(path string, id *Identity) error {
	f := identityFile{
		NodeID:      id.NodeID,
		EncPublic:   id.EncPublic[:],
		EncPrivate:  id.EncPrivate[:],
		SignPublic:  id.SignPublic[:],
		SignPrivate: id.SignPrivate[:],
		Created:     id.Created,
	}

	data, err := json.Marshal(&f)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	if err := os.Chmod(tmp, 0o600); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
