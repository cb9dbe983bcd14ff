package envelope

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tacmesh/meshnode/crypto"
	"github.com/tacmesh/meshnode/model"
)

// Version is the wire protocol version for plain-signed envelopes.
const Version = "1.0"

// VersionSealed is used when Message.SealedPayloads is non-empty.
const VersionSealed = "1.1"

// Envelope is the complete self-describing on-wire record.
type Envelope struct {
	EnvVersion string                `json:"version"`
	Sender     model.NodeIdentity    `json:"sender_identity"`
	Message    model.TacticalMessage `json:"message"`
}

// ErrNoSignature is returned by Verify when the envelope carries an empty
// signature.
var ErrNoSignature = errors.New("envelope: empty signature")

// ErrVerificationFailed is returned when the signature does not verify.
var ErrVerificationFailed = errors.New("envelope: signature verification failed")

// Encode canonically serializes env. Envelope and everything it contains
// are plain structs whose field order is fixed by declaration, and the one
// map field (SealedPayloads) is emitted by json.Marshal with sorted keys,
// so output is byte-identical for identical input. Signatures therefore
// verify without a bespoke canonicalizer.
func Encode(env *Envelope) ([]byte, error) {
	return json.Marshal(env)
}

// Parse decodes a wire frame into an Envelope.
func Parse(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("envelope: parse: %w", err)
	}
	return &env, nil
}

// Sign builds the canonical signing input (the envelope with an empty
// signature), signs it, and returns the final wire bytes with the
// signature populated.
func Sign(sender model.NodeIdentity, msg model.TacticalMessage, signPriv [64]byte) ([]byte, error) {
	msg.Signature = nil
	env := &Envelope{EnvVersion: Version, Sender: sender, Message: msg}
	if len(msg.SealedPayloads) > 0 {
		env.EnvVersion = VersionSealed
	}

	signingInput, err := Encode(env)
	if err != nil {
		return nil, fmt.Errorf("envelope: encoding signing input: %w", err)
	}

	env.Message.Signature = crypto.Sign(signingInput, signPriv)

	wire, err := Encode(env)
	if err != nil {
		return nil, fmt.Errorf("envelope: encoding signed envelope: %w", err)
	}
	return wire, nil
}

// CanonicalSigningInput reconstructs the bytes that were signed for env: a
// copy of env with Message.Signature cleared, canonically encoded.
func CanonicalSigningInput(env *Envelope) ([]byte, error) {
	copyEnv := *env
	copyEnv.Message.Signature = nil
	return Encode(&copyEnv)
}

// Verify parses data and checks its signature against the sender identity
// it carries. It never returns a non-nil envelope alongside an error.
func Verify(data []byte) (*Envelope, error) {
	env, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if len(env.Message.Signature) == 0 {
		logrus.WithField("sender", env.Sender.NodeID).Debug("envelope has no signature")
		return nil, ErrNoSignature
	}

	signingInput, err := CanonicalSigningInput(env)
	if err != nil {
		return nil, fmt.Errorf("envelope: reconstructing signing input: %w", err)
	}

	if !crypto.Verify(signingInput, env.Message.Signature, [32]byte(env.Sender.VerifyKey)) {
		logrus.WithFields(logrus.Fields{
			"sender": env.Sender.NodeID,
			"msg_id": env.Message.MsgID,
		}).Warn("envelope failed signature verification")
		return nil, ErrVerificationFailed
	}

	return env, nil
}
