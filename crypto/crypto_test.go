package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	kp, err := GenerateSignKeyPair()
	require.NoError(t, err)

	msg := []byte("move to objective")
	sig := Sign(msg, kp.Private)
	assert.True(t, Verify(msg, sig, kp.Public))
}

func TestVerifyFailsOnTamperedMessage(t *testing.T) {
	kp, err := GenerateSignKeyPair()
	require.NoError(t, err)

	msg := []byte("move to objective")
	sig := Sign(msg, kp.Private)

	tampered := append([]byte(nil), msg...)
	tampered[0] ^= 0xFF
	assert.False(t, Verify(tampered, sig, kp.Public))
}

func TestVerifyNeverPanicsOnMalformedInput(t *testing.T) {
	kp, err := GenerateSignKeyPair()
	require.NoError(t, err)

	assert.False(t, Verify([]byte("x"), nil, kp.Public))
	assert.False(t, Verify([]byte("x"), []byte{1, 2, 3}, kp.Public))
	assert.False(t, Verify([]byte("x"), make([]byte, SignatureSize), [32]byte{}))
}

func TestSealOpenRoundTrip(t *testing.T) {
	sender, err := GenerateEncKeyPair()
	require.NoError(t, err)
	recipient, err := GenerateEncKeyPair()
	require.NoError(t, err)

	plaintext := []byte("rendezvous at grid 38SMB4484")
	ciphertext, err := Seal(plaintext, recipient.Public, sender.Private)
	require.NoError(t, err)

	opened, err := Open(ciphertext, sender.Public, recipient.Private)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestOpenFailsWithWrongKey(t *testing.T) {
	sender, err := GenerateEncKeyPair()
	require.NoError(t, err)
	recipient, err := GenerateEncKeyPair()
	require.NoError(t, err)
	other, err := GenerateEncKeyPair()
	require.NoError(t, err)

	ciphertext, err := Seal([]byte("payload"), recipient.Public, sender.Private)
	require.NoError(t, err)

	_, err = Open(ciphertext, sender.Public, other.Private)
	assert.ErrorIs(t, err, ErrOpenFailed)
}

func TestLoadOrCreateIdentityGeneratesAndPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "identity.json")

	id, err := LoadOrCreateIdentity(path)
	require.NoError(t, err)
	assert.NotEmpty(t, id.NodeID)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reloaded, err := LoadOrCreateIdentity(path)
	require.NoError(t, err)
	assert.Equal(t, id.NodeID, reloaded.NodeID)
	assert.Equal(t, id.SignPublic, reloaded.SignPublic)
	assert.Equal(t, id.EncPublic, reloaded.EncPublic)
}

func TestLoadOrCreateIdentityRejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "identity.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	_, err := LoadOrCreateIdentity(path)
	assert.ErrorIs(t, err, ErrCorruptIdentity)
}
