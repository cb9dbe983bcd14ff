package store

import (
	"encoding/binary"
	"encoding/json"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/tacmesh/meshnode/model"
)

// messageKey is the primary key for a message: (sender, msg_id), the
// duplicate-detection composite key.
func messageKey(sender, msgID string) []byte {
	return []byte(sender + "\x00" + msgID)
}

// StoreMessage persists msg if no row already exists for its
// (sender, msg_id) pair. It reports inserted=false for a duplicate, which
// callers treat as a silent drop rather than an error.
func (s *Store) StoreMessage(msg model.TacticalMessage) (inserted bool, err error) {
	if verr := msg.Validate(); verr != nil {
		return false, wrapErr("store_message", verr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := messageKey(msg.Sender, msg.MsgID)

	updateErr := s.db.Update(func(tx *bolt.Tx) error {
		mb := tx.Bucket(bucketMessages)
		if mb.Get(key) != nil {
			return nil
		}

		data, err := json.Marshal(&msg)
		if err != nil {
			return err
		}
		if err := mb.Put(key, data); err != nil {
			return err
		}

		if err := tx.Bucket(bucketMessagesByTopic).Put(topicKey(msg.Topic, msg.Timestamp, key), key); err != nil {
			return err
		}
		if err := tx.Bucket(bucketMessagesByTS).Put(tsKey(msg.Timestamp, string(key)), key); err != nil {
			return err
		}
		inserted = true
		return nil
	})

	return inserted, wrapErr("store_message", updateErr)
}

func topicKey(topic string, ts time.Time, msgKey []byte) []byte {
	buf := make([]byte, len(topic)+1+8+len(msgKey))
	n := copy(buf, topic)
	buf[n] = 0
	n++
	binary.BigEndian.PutUint64(buf[n:], uint64(ts.UTC().UnixNano()))
	n += 8
	copy(buf[n:], msgKey)
	return buf
}

// MessagesByTopic returns up to limit messages, newest first. An empty
// topic means no filter: the walk runs over the timestamp index across all
// topics instead of the per-topic index. limit <= 0 means unbounded.
func (s *Store) MessagesByTopic(topic string, limit int) ([]model.TacticalMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys [][]byte

	err := s.db.View(func(tx *bolt.Tx) error {
		if topic == "" {
			// timestamp index is oldest-first; walk backwards so the
			// limit keeps the newest entries.
			c := tx.Bucket(bucketMessagesByTS).Cursor()
			for k, v := c.Last(); k != nil; k, v = c.Prev() {
				keys = append(keys, append([]byte(nil), v...))
				if limit > 0 && len(keys) == limit {
					return nil
				}
			}
			return nil
		}

		prefix := append([]byte(topic), 0)
		c := tx.Bucket(bucketMessagesByTopic).Cursor()
		for k, v := c.Seek(prefix); k != nil && hasPrefix(k, prefix); k, v = c.Next() {
			cp := append([]byte(nil), v...)
			keys = append(keys, cp)
		}
		return nil
	})
	if err != nil {
		return nil, wrapErr("messages_by_topic", err)
	}

	if topic != "" {
		// per-topic index was walked oldest-first; reverse for
		// newest-first, then apply limit.
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
		if limit > 0 && len(keys) > limit {
			keys = keys[:limit]
		}
	}

	out := make([]model.TacticalMessage, 0, len(keys))
	err = s.db.View(func(tx *bolt.Tx) error {
		mb := tx.Bucket(bucketMessages)
		for _, k := range keys {
			data := mb.Get(k)
			if data == nil {
				continue
			}
			var msg model.TacticalMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				return err
			}
			out = append(out, msg)
		}
		return nil
	})

	return out, wrapErr("messages_by_topic", err)
}
