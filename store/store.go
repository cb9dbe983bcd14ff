package store

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketNodes     = []byte("nodes")
	bucketPositions = []byte("positions")
	bucketMessages  = []byte("messages")
	bucketGeofences = []byte("geofences")

	bucketMessagesByTopic = []byte("messages_by_topic")
	bucketMessagesByTS    = []byte("messages_by_ts")
	bucketPositionsByTS   = []byte("positions_by_ts")
	bucketNodesByUnit     = []byte("nodes_by_unit")
)

var allBuckets = [][]byte{
	bucketNodes, bucketPositions, bucketMessages, bucketGeofences,
	bucketMessagesByTopic, bucketMessagesByTS, bucketPositionsByTS, bucketNodesByUnit,
}

// Store is the single-writer durable store for nodes, positions, messages,
// and geofence zones.
type Store struct {
	db *bolt.DB
	mu sync.Mutex

	logger *logrus.Entry
}

// Open opens (creating if necessary) the bbolt database at path and
// ensures every required bucket exists.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: initializing buckets: %w", err)
	}

	s := &Store{db: db, logger: logrus.WithField("component", "store")}
	s.logger.WithField("path", path).Debug("store opened")
	return s, nil
}

// Close releases the underlying database file.
func (s *Store) Close() error {
	return s.db.Close()
}
