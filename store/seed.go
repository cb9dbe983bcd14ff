package store

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tacmesh/meshnode/model"
)

// geofenceSeedFile is the on-disk shape of a geofence seed file: a flat
// list of zones, each with the fields of model.GeofenceZone except Created,
// which is set to the time the file is loaded.
type geofenceSeedFile struct {
	Zones []struct {
		ZoneID         string `yaml:"zone_id"`
		Name           string `yaml:"name"`
		ZoneType       string `yaml:"zone_type"`
		PolygonWKT     string `yaml:"polygon_wkt"`
		Classification string `yaml:"classification"`
		CreatedBy      string `yaml:"created_by"`
		Active         bool   `yaml:"active"`
	} `yaml:"zones"`
}

// SeedGeofencesFromFile loads a YAML file of geofence zone definitions and
// upserts each into the store. It is an operator convenience for
// provisioning a node's initial zone set; it is not part of the signed
// message path.
func (s *Store) SeedGeofencesFromFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("store: read geofence seed %s: %w", path, err)
	}

	var seed geofenceSeedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return fmt.Errorf("store: parse geofence seed %s: %w", path, err)
	}

	now := time.Now().UTC()
	for _, z := range seed.Zones {
		zone := model.GeofenceZone{
			ZoneID:         z.ZoneID,
			Name:           z.Name,
			ZoneType:       model.ZoneType(z.ZoneType),
			PolygonWKT:     z.PolygonWKT,
			Classification: z.Classification,
			CreatedBy:      z.CreatedBy,
			Created:        now,
			Active:         z.Active,
		}
		if err := s.UpsertGeofence(zone); err != nil {
			return fmt.Errorf("store: seed zone %s: %w", z.ZoneID, err)
		}
	}

	return nil
}
