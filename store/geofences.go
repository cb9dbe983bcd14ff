package store

import (
	"encoding/json"

	bolt "go.etcd.io/bbolt"

	"github.com/tacmesh/meshnode/model"
)

// UpsertGeofence inserts or overwrites the zone row for zone.ZoneID.
func (s *Store) UpsertGeofence(zone model.GeofenceZone) error {
	if zone.ZoneID == "" {
		return wrapErr("upsert_geofence", ErrZoneIDRequired)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(&zone)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketGeofences).Put([]byte(zone.ZoneID), data)
	})

	return wrapErr("upsert_geofence", err)
}

// ActiveGeofences returns every zone with Active == true.
func (s *Store) ActiveGeofences() ([]model.GeofenceZone, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.GeofenceZone

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketGeofences).ForEach(func(_, v []byte) error {
			var zone model.GeofenceZone
			if err := json.Unmarshal(v, &zone); err != nil {
				return err
			}
			if zone.Active {
				out = append(out, zone)
			}
			return nil
		})
	})

	return out, wrapErr("active_geofences", err)
}
