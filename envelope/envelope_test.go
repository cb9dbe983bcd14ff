package envelope

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tacmesh/meshnode/crypto"
	"github.com/tacmesh/meshnode/model"
)

func testIdentity(t *testing.T, signPub [32]byte, encPub [32]byte) model.NodeIdentity {
	t.Helper()
	return model.NodeIdentity{
		NodeID:    "node-a",
		Callsign:  "ALPHA",
		Clearance: 2,
		EncPublic: model.Key(encPub),
		VerifyKey: model.Key(signPub),
		Created:   time.Now().UTC(),
	}
}

func testMessage() model.TacticalMessage {
	return model.TacticalMessage{
		MsgID:          "m1",
		MsgType:        "text",
		Topic:          model.TopicCommand,
		Sender:         "node-a",
		Classification: "UNCLASS",
		Priority:       model.PriorityPriority,
		Timestamp:      time.Now().UTC(),
		Payload:        json.RawMessage(`{"text":"move"}`),
	}
}

func TestSignVerifyRoundTrip(t *testing.T) {
	signKP, err := crypto.GenerateSignKeyPair()
	require.NoError(t, err)
	encKP, err := crypto.GenerateEncKeyPair()
	require.NoError(t, err)

	sender := testIdentity(t, signKP.Public, encKP.Public)
	msg := testMessage()

	wire, err := Sign(sender, msg, signKP.Private)
	require.NoError(t, err)

	env, err := Verify(wire)
	require.NoError(t, err)
	require.Equal(t, msg.MsgID, env.Message.MsgID)
	require.Equal(t, sender.NodeID, env.Sender.NodeID)
}

func TestVerifyDropsEmptySignature(t *testing.T) {
	signKP, err := crypto.GenerateSignKeyPair()
	require.NoError(t, err)
	encKP, err := crypto.GenerateEncKeyPair()
	require.NoError(t, err)

	sender := testIdentity(t, signKP.Public, encKP.Public)
	msg := testMessage()
	msg.Signature = nil

	env := &Envelope{EnvVersion: Version, Sender: sender, Message: msg}
	wire, err := Encode(env)
	require.NoError(t, err)

	_, err = Verify(wire)
	require.ErrorIs(t, err, ErrNoSignature)
}

func TestVerifyDropsTamperedPayload(t *testing.T) {
	signKP, err := crypto.GenerateSignKeyPair()
	require.NoError(t, err)
	encKP, err := crypto.GenerateEncKeyPair()
	require.NoError(t, err)

	sender := testIdentity(t, signKP.Public, encKP.Public)
	msg := testMessage()

	wire, err := Sign(sender, msg, signKP.Private)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(wire, &env))
	env.Message.Payload = json.RawMessage(`{"text":"ambush"}`)
	tampered, err := json.Marshal(&env)
	require.NoError(t, err)

	_, err = Verify(tampered)
	require.ErrorIs(t, err, ErrVerificationFailed)
}

func TestVerifyDropsWrongVerifyKey(t *testing.T) {
	signKP, err := crypto.GenerateSignKeyPair()
	require.NoError(t, err)
	otherKP, err := crypto.GenerateSignKeyPair()
	require.NoError(t, err)
	encKP, err := crypto.GenerateEncKeyPair()
	require.NoError(t, err)

	sender := testIdentity(t, signKP.Public, encKP.Public)
	msg := testMessage()

	wire, err := Sign(sender, msg, signKP.Private)
	require.NoError(t, err)

	var env Envelope
	require.NoError(t, json.Unmarshal(wire, &env))
	env.Sender.VerifyKey = model.Key(otherKP.Public)
	tampered, err := json.Marshal(&env)
	require.NoError(t, err)

	_, err = Verify(tampered)
	require.ErrorIs(t, err, ErrVerificationFailed)
}

func TestCanonicalEncodingIsIdempotent(t *testing.T) {
	signKP, err := crypto.GenerateSignKeyPair()
	require.NoError(t, err)
	encKP, err := crypto.GenerateEncKeyPair()
	require.NoError(t, err)

	sender := testIdentity(t, signKP.Public, encKP.Public)
	msg := testMessage()

	wire, err := Sign(sender, msg, signKP.Private)
	require.NoError(t, err)

	env, err := Parse(wire)
	require.NoError(t, err)

	reEncoded, err := Encode(env)
	require.NoError(t, err)
	require.JSONEq(t, string(wire), string(reEncoded))

	env2, err := Parse(reEncoded)
	require.NoError(t, err)
	reEncoded2, err := Encode(env2)
	require.NoError(t, err)
	require.Equal(t, reEncoded, reEncoded2)
}

func TestSignBumpsVersionForSealedPayloads(t *testing.T) {
	signKP, err := crypto.GenerateSignKeyPair()
	require.NoError(t, err)
	encKP, err := crypto.GenerateEncKeyPair()
	require.NoError(t, err)

	sender := testIdentity(t, signKP.Public, encKP.Public)
	msg := testMessage()
	msg.Payload = nil
	msg.SealedPayloads = map[string][]byte{"node-b": {1, 2, 3}}

	wire, err := Sign(sender, msg, signKP.Private)
	require.NoError(t, err)

	env, err := Verify(wire)
	require.NoError(t, err)
	require.Equal(t, VersionSealed, env.EnvVersion)
}
