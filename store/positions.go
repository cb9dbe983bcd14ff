package store

import (
	"encoding/binary"
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/tacmesh/meshnode/model"
)

// UpsertPosition replaces the single stored position row for pos.NodeID;
// older rows are not retained. The node must exist (ErrNodeNotFound) and the
// incoming timestamp must be strictly newer than whatever is stored
// (ErrStalePosition) or the call is rejected and the stored row is left
// untouched.
func (s *Store) UpsertPosition(pos model.Position) error {
	if err := pos.Validate(); err != nil {
		return wrapErr("upsert_position", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(bucketNodes).Get([]byte(pos.NodeID)) == nil {
			return ErrNodeNotFound
		}

		pb := tx.Bucket(bucketPositions)
		if existing := pb.Get([]byte(pos.NodeID)); existing != nil {
			var prev model.Position
			if err := json.Unmarshal(existing, &prev); err != nil {
				return err
			}
			if !pos.Timestamp.After(prev.Timestamp) {
				return ErrStalePosition
			}
			// drop the stale index entry for the position being replaced
			if err := tx.Bucket(bucketPositionsByTS).Delete(tsKey(prev.Timestamp, pos.NodeID)); err != nil {
				return err
			}
		}

		data, err := json.Marshal(&pos)
		if err != nil {
			return err
		}
		if err := pb.Put([]byte(pos.NodeID), data); err != nil {
			return err
		}

		return tx.Bucket(bucketPositionsByTS).Put(tsKey(pos.Timestamp, pos.NodeID), []byte(pos.NodeID))
	})

	return wrapErr("upsert_position", err)
}

// tsKey builds a lexicographically sortable (timestamp, node_id) index
// key: an 8-byte big-endian unix-nano prefix followed by the node_id, so a
// bucket cursor walks entries in timestamp order even across nodes.
func tsKey(ts time.Time, nodeID string) []byte {
	buf := make([]byte, 8+len(nodeID))
	binary.BigEndian.PutUint64(buf, uint64(ts.UTC().UnixNano()))
	copy(buf[8:], nodeID)
	return buf
}

// CurrentPositions returns the latest position for every node updated
// within window of now.
func (s *Store) CurrentPositions(window time.Duration) ([]model.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-window)
	var out []model.Position

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPositions).ForEach(func(_, v []byte) error {
			var pos model.Position
			if err := json.Unmarshal(v, &pos); err != nil {
				return err
			}
			if pos.Timestamp.After(cutoff) {
				out = append(out, pos)
			}
			return nil
		})
	})

	return out, wrapErr("current_positions", err)
}
