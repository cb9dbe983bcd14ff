package model

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Key is a 32-byte public key rendered as base64 on the wire.
type Key [32]byte

// MarshalJSON renders the key as a base64 string.
func (k Key) MarshalJSON() ([]byte, error) {
	return json.Marshal(base64.StdEncoding.EncodeToString(k[:]))
}

// UnmarshalJSON parses a base64-encoded 32-byte key.
func (k *Key) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("key: invalid base64: %w", err)
	}
	if len(raw) != 32 {
		return fmt.Errorf("key: expected 32 bytes, got %d", len(raw))
	}
	copy(k[:], raw)
	return nil
}

// String renders the key as base64, matching its wire form.
func (k Key) String() string {
	return base64.StdEncoding.EncodeToString(k[:])
}

// IsZero reports whether the key is the all-zero value.
func (k Key) IsZero() bool {
	return k == Key{}
}

// NodeIdentity is the stable, immutable-after-creation identity of a node.
type NodeIdentity struct {
	NodeID    string    `json:"node_id"`
	Callsign  string    `json:"callsign"`
	Unit      string    `json:"unit"`
	Rank      string    `json:"rank"`
	Role      string    `json:"role"`
	Clearance int       `json:"clearance"`
	EncPublic Key       `json:"enc_public"`
	VerifyKey Key       `json:"verify_key"`
	Created   time.Time `json:"created"`
}

// Validate checks the structural invariants of a NodeIdentity.
func (n *NodeIdentity) Validate() error {
	if n.NodeID == "" {
		return errors.New("model: node_id is required")
	}
	if n.Clearance < 0 || n.Clearance > 5 {
		return errors.New("model: clearance must be in [0,5]")
	}
	if n.EncPublic.IsZero() {
		return errors.New("model: enc_public key is required")
	}
	if n.VerifyKey.IsZero() {
		return errors.New("model: verify_key is required")
	}
	return nil
}

// Position is a single-row-per-node observation of a node's location.
type Position struct {
	NodeID    string    `json:"node_id"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Alt       float64   `json:"alt"`
	Accuracy  float64   `json:"accuracy"`
	Speed     float64   `json:"speed"`
	Course    float64   `json:"course"`
	Timestamp time.Time `json:"timestamp"`
	Grid      string    `json:"grid,omitempty"`
}

// Validate checks the range invariants of a Position.
func (p *Position) Validate() error {
	if p.NodeID == "" {
		return errors.New("model: position requires node_id")
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("model: lat %f out of range [-90,90]", p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("model: lon %f out of range [-180,180]", p.Lon)
	}
	if p.Accuracy < 0 {
		return errors.New("model: accuracy must be non-negative")
	}
	if p.Speed < 0 {
		return errors.New("model: speed must be non-negative")
	}
	return nil
}

// Priority is the outbound urgency of a TacticalMessage. Zero is most urgent.
type Priority int

const (
	PriorityFlash     Priority = 0
	PriorityImmediate Priority = 1
	PriorityPriority  Priority = 2
	PriorityRoutine   Priority = 3
)

// Valid reports whether p is one of the four defined priority levels.
func (p Priority) Valid() bool {
	return p >= PriorityFlash && p <= PriorityRoutine
}

// Reserved topic strings. Unknown topics are accepted but receive
// no special processing.
const (
	TopicBlueForce    = "blue_force"
	TopicRedForce     = "red_force"
	TopicNeutral      = "neutral"
	TopicIntel        = "intel"
	TopicSitrep       = "sitrep"
	TopicMedevac      = "medevac"
	TopicSupplies     = "supplies"
	TopicFires        = "fires"
	TopicCommand      = "command"
	TopicAlert        = "alert"
	TopicFileTransfer = "file_transfer"
)

// AttachmentRef is signed metadata about an out-of-band attachment; the
// attachment bytes themselves are not part of the signed envelope.
type AttachmentRef struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	SHA256      string `json:"sha256"`
	ContentType string `json:"content_type,omitempty"`
}

// TacticalMessage is the application payload carried by an envelope.
type TacticalMessage struct {
	MsgID          string            `json:"msg_id"`
	MsgType        string            `json:"msg_type"`
	Topic          string            `json:"topic"`
	Sender         string            `json:"sender"`
	Recipients     []string          `json:"recipients,omitempty"`
	Classification string            `json:"classification"`
	Priority       Priority          `json:"priority"`
	Timestamp      time.Time         `json:"timestamp"`
	Expires        *time.Time        `json:"expires,omitempty"`
	Payload        json.RawMessage   `json:"payload,omitempty"`
	SealedPayloads map[string][]byte `json:"sealed_payloads,omitempty"`
	Attachments    []AttachmentRef   `json:"attachments,omitempty"`
	Signature      []byte            `json:"signature"`
}

// Validate checks the structural invariants of a TacticalMessage.
func (m *TacticalMessage) Validate() error {
	if m.MsgID == "" {
		return errors.New("model: msg_id is required")
	}
	if m.Sender == "" {
		return errors.New("model: sender is required")
	}
	if !m.Priority.Valid() {
		return fmt.Errorf("model: invalid priority %d", m.Priority)
	}
	return nil
}

// Expired reports whether the message has a non-nil Expires time in the past
// relative to now.
func (m *TacticalMessage) Expired(now time.Time) bool {
	return m.Expires != nil && now.After(*m.Expires)
}

// ZoneType classifies a GeofenceZone.
type ZoneType string

const (
	ZoneFriendly   ZoneType = "FRIENDLY"
	ZoneHostile    ZoneType = "HOSTILE"
	ZoneRestricted ZoneType = "RESTRICTED"
	ZoneObjective  ZoneType = "OBJECTIVE"
)

// GeofenceZone is a named polygon classified by ZoneType.
type GeofenceZone struct {
	ZoneID         string    `json:"zone_id"`
	Name           string    `json:"name"`
	ZoneType       ZoneType  `json:"zone_type"`
	PolygonWKT     string    `json:"polygon_wkt"`
	Classification string    `json:"classification"`
	CreatedBy      string    `json:"created_by"`
	Created        time.Time `json:"created"`
	Active         bool      `json:"active"`
}
