package store

import (
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/tacmesh/meshnode/model"
)

// NodeRecord is a stored node identity plus its separately tracked
// last_seen timestamp.
type NodeRecord struct {
	Identity model.NodeIdentity `json:"identity"`
	LastSeen time.Time          `json:"last_seen"`
}

// UpsertNode inserts or overwrites the node row for identity.NodeID and
// sets LastSeen = now. If a row already exists with a different VerifyKey
// or EncPublic, the upsert is rejected with ErrKeyMismatch
// (trust-on-first-use) and the existing row is left untouched.
func (s *Store) UpsertNode(identity model.NodeIdentity) error {
	if err := identity.Validate(); err != nil {
		return wrapErr("upsert_node", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	err := s.db.Update(func(tx *bolt.Tx) error {
		nb := tx.Bucket(bucketNodes)

		if existing := nb.Get([]byte(identity.NodeID)); existing != nil {
			var rec NodeRecord
			if err := json.Unmarshal(existing, &rec); err != nil {
				return err
			}
			if rec.Identity.VerifyKey != identity.VerifyKey || rec.Identity.EncPublic != identity.EncPublic {
				return ErrKeyMismatch
			}
		}

		rec := NodeRecord{Identity: identity, LastSeen: now}
		data, err := json.Marshal(&rec)
		if err != nil {
			return err
		}
		if err := nb.Put([]byte(identity.NodeID), data); err != nil {
			return err
		}

		return indexNodeByUnit(tx, identity)
	})

	return wrapErr("upsert_node", err)
}

func indexNodeByUnit(tx *bolt.Tx, identity model.NodeIdentity) error {
	ib := tx.Bucket(bucketNodesByUnit)
	key := []byte(identity.Unit + "\x00" + identity.NodeID)
	return ib.Put(key, []byte(identity.NodeID))
}

// ActiveNodes returns every node whose last_seen is within window of now.
func (s *Store) ActiveNodes(window time.Duration) ([]NodeRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-window)
	var out []NodeRecord

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketNodes).ForEach(func(_, v []byte) error {
			var rec NodeRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			if rec.LastSeen.After(cutoff) {
				out = append(out, rec)
			}
			return nil
		})
	})

	return out, wrapErr("active_nodes", err)
}

// GetNode returns the stored record for nodeID, or ok=false if absent.
func (s *Store) GetNode(nodeID string) (NodeRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rec NodeRecord
	found := false

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketNodes).Get([]byte(nodeID))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &rec)
	})

	return rec, found, wrapErr("get_node", err)
}

// NodesByUnit returns the node IDs registered under unit, in ascending
// node_id order.
func (s *Store) NodesByUnit(unit string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := []byte(unit + "\x00")
	var ids []string

	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketNodesByUnit).Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			ids = append(ids, string(v))
		}
		return nil
	})

	return ids, wrapErr("nodes_by_unit", err)
}

func hasPrefix(b, prefix []byte) bool {
	return len(b) >= len(prefix) && string(b[:len(prefix)]) == string(prefix)
}
