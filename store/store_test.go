package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tacmesh/meshnode/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "mesh.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testNode(nodeID string) model.NodeIdentity {
	return model.NodeIdentity{
		NodeID:    nodeID,
		Callsign:  "ALPHA",
		Unit:      "1-1",
		Clearance: 1,
		EncPublic: model.Key{1},
		VerifyKey: model.Key{2},
		Created:   time.Now().UTC(),
	}
}

func TestUpsertNodeThenActiveNodes(t *testing.T) {
	s := openTestStore(t)

	n := testNode("node-1")
	require.NoError(t, s.UpsertNode(n))

	active, err := s.ActiveNodes(time.Hour)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "node-1", active[0].Identity.NodeID)
}

func TestUpsertNodeRejectsKeyMismatch(t *testing.T) {
	s := openTestStore(t)

	n := testNode("node-1")
	require.NoError(t, s.UpsertNode(n))

	changed := n
	changed.VerifyKey = model.Key{9, 9, 9}
	err := s.UpsertNode(changed)
	require.ErrorIs(t, err, ErrKeyMismatch)

	rec, ok, err := s.GetNode("node-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, n.VerifyKey, rec.Identity.VerifyKey)
}

func TestUpsertPositionRequiresExistingNode(t *testing.T) {
	s := openTestStore(t)

	pos := model.Position{NodeID: "ghost", Lat: 1, Lon: 1, Timestamp: time.Now().UTC()}
	err := s.UpsertPosition(pos)
	require.ErrorIs(t, err, ErrNodeNotFound)
}

func TestUpsertPositionSingleRowPerNodeAndMonotone(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.UpsertNode(testNode("node-1")))

	first := model.Position{NodeID: "node-1", Lat: 1, Lon: 1, Timestamp: time.Now().UTC()}
	require.NoError(t, s.UpsertPosition(first))

	stale := model.Position{NodeID: "node-1", Lat: 2, Lon: 2, Timestamp: first.Timestamp.Add(-time.Second)}
	err := s.UpsertPosition(stale)
	require.ErrorIs(t, err, ErrStalePosition)

	newer := model.Position{NodeID: "node-1", Lat: 3, Lon: 3, Timestamp: first.Timestamp.Add(time.Second)}
	require.NoError(t, s.UpsertPosition(newer))

	positions, err := s.CurrentPositions(time.Hour)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	require.Equal(t, 3.0, positions[0].Lat)
}

func TestStoreMessageSuppressesDuplicate(t *testing.T) {
	s := openTestStore(t)

	msg := model.TacticalMessage{
		MsgID:     "m1",
		Sender:    "node-1",
		Topic:     model.TopicSitrep,
		Priority:  model.PriorityRoutine,
		Timestamp: time.Now().UTC(),
	}

	inserted, err := s.StoreMessage(msg)
	require.NoError(t, err)
	require.True(t, inserted)

	inserted, err = s.StoreMessage(msg)
	require.NoError(t, err)
	require.False(t, inserted)

	msgs, err := s.MessagesByTopic(model.TopicSitrep, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
}

func TestMessagesByTopicNewestFirst(t *testing.T) {
	s := openTestStore(t)
	base := time.Now().UTC()

	for i, id := range []string{"m1", "m2", "m3"} {
		msg := model.TacticalMessage{
			MsgID:     id,
			Sender:    "node-1",
			Topic:     model.TopicIntel,
			Priority:  model.PriorityRoutine,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		_, err := s.StoreMessage(msg)
		require.NoError(t, err)
	}

	msgs, err := s.MessagesByTopic(model.TopicIntel, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, "m3", msgs[0].MsgID)
	require.Equal(t, "m2", msgs[1].MsgID)
	require.Equal(t, "m1", msgs[2].MsgID)
}

func TestUpsertGeofenceAndActiveGeofences(t *testing.T) {
	s := openTestStore(t)

	active := model.GeofenceZone{ZoneID: "z1", ZoneType: model.ZoneHostile, Active: true}
	inactive := model.GeofenceZone{ZoneID: "z2", ZoneType: model.ZoneFriendly, Active: false}
	require.NoError(t, s.UpsertGeofence(active))
	require.NoError(t, s.UpsertGeofence(inactive))

	zones, err := s.ActiveGeofences()
	require.NoError(t, err)
	require.Len(t, zones, 1)
	require.Equal(t, "z1", zones[0].ZoneID)
}

func TestMessagesAcrossAllTopics(t *testing.T) {
	s := openTestStore(t)
	base := time.Now().UTC()

	topics := []string{model.TopicIntel, model.TopicSitrep, model.TopicCommand}
	for i, topic := range topics {
		msg := model.TacticalMessage{
			MsgID:     topic,
			Sender:    "node-1",
			Topic:     topic,
			Priority:  model.PriorityRoutine,
			Timestamp: base.Add(time.Duration(i) * time.Second),
		}
		_, err := s.StoreMessage(msg)
		require.NoError(t, err)
	}

	msgs, err := s.MessagesByTopic("", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	require.Equal(t, model.TopicCommand, msgs[0].Topic)
	require.Equal(t, model.TopicSitrep, msgs[1].Topic)
	require.Equal(t, model.TopicIntel, msgs[2].Topic)

	msgs, err = s.MessagesByTopic("", 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, model.TopicCommand, msgs[0].Topic)
	require.Equal(t, model.TopicSitrep, msgs[1].Topic)
}
