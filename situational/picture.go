package situational

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tacmesh/meshnode/model"
	"github.com/tacmesh/meshnode/store"
)

// BoundingBox filters TacticalPicture to positions within it.
type BoundingBox struct {
	MinLat, MinLon float64
	MaxLat, MaxLon float64
}

func (b BoundingBox) contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Feature is one GeoJSON-shaped point feature in a TacticalPicture.
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// Geometry is a GeoJSON Point geometry: Coordinates is [lon, lat].
type Geometry struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

// FeatureCollection is the GeoJSON-shaped response of TacticalPicture.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

// TacticalPicture returns the set of current positions (within the
// store's active window) as a GeoJSON-shaped feature collection, optionally
// filtered to a bounding box.
func TacticalPicture(db *store.Store, activeWindow time.Duration, bbox *BoundingBox) (FeatureCollection, error) {
	positions, err := db.CurrentPositions(activeWindow)
	if err != nil {
		return FeatureCollection{}, fmt.Errorf("situational: reading current positions: %w", err)
	}

	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(positions))}
	for _, pos := range positions {
		if bbox != nil && !bbox.contains(pos.Lat, pos.Lon) {
			continue
		}
		fc.Features = append(fc.Features, Feature{
			Type:     "Feature",
			Geometry: Geometry{Type: "Point", Coordinates: [2]float64{pos.Lon, pos.Lat}},
			Properties: map[string]any{
				"node_id":   pos.NodeID,
				"alt":       pos.Alt,
				"accuracy":  pos.Accuracy,
				"speed":     pos.Speed,
				"course":    pos.Course,
				"timestamp": pos.Timestamp,
			},
		})
	}
	return fc, nil
}

// GeofenceViolations returns every active zone whose polygon contains pos
// and whose zone type is HOSTILE or RESTRICTED.
func GeofenceViolations(db *store.Store, pos model.Position) ([]model.GeofenceZone, error) {
	zones, err := db.ActiveGeofences()
	if err != nil {
		return nil, fmt.Errorf("situational: reading active geofences: %w", err)
	}

	var violations []model.GeofenceZone
	for _, z := range zones {
		if z.ZoneType != model.ZoneHostile && z.ZoneType != model.ZoneRestricted {
			continue
		}
		ring, err := parseWKTPolygon(z.PolygonWKT)
		if err != nil {
			continue
		}
		if pointInPolygon(pos.Lon, pos.Lat, ring) {
			violations = append(violations, z)
		}
	}
	return violations, nil
}

// parseWKTPolygon parses a single-ring "POLYGON((x1 y1, x2 y2, ...))"
// well-known-text string into a slice of (x, y) = (lon, lat) vertices.
func parseWKTPolygon(wkt string) ([][2]float64, error) {
	s := strings.TrimSpace(wkt)
	upper := strings.ToUpper(s)
	if !strings.HasPrefix(upper, "POLYGON") {
		return nil, fmt.Errorf("situational: not a POLYGON WKT string")
	}

	open := strings.Index(s, "(")
	lastClose := strings.LastIndex(s, ")")
	if open < 0 || lastClose < 0 || lastClose <= open {
		return nil, fmt.Errorf("situational: malformed polygon WKT")
	}
	body := s[open+1 : lastClose]
	body = strings.TrimSpace(body)
	body = strings.TrimPrefix(body, "(")
	body = strings.TrimSuffix(body, ")")

	pairs := strings.Split(body, ",")
	ring := make([][2]float64, 0, len(pairs))
	for _, p := range pairs {
		fields := strings.Fields(strings.TrimSpace(p))
		if len(fields) != 2 {
			return nil, fmt.Errorf("situational: malformed coordinate pair %q", p)
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, err
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, err
		}
		ring = append(ring, [2]float64{x, y})
	}
	return ring, nil
}

// pointInPolygon is the standard ray-cast point-in-polygon test. A point
// exactly on an edge is treated as inside.
func pointInPolygon(x, y float64, ring [][2]float64) bool {
	if len(ring) < 3 {
		return false
	}

	for i := 0; i < len(ring); i++ {
		a := ring[i]
		b := ring[(i+1)%len(ring)]
		if onSegment(x, y, a, b) {
			return true
		}
	}

	inside := false
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]

		intersects := (yi > y) != (yj > y)
		if intersects {
			xCross := (xj-xi)*(y-yi)/(yj-yi) + xi
			if x < xCross {
				inside = !inside
			}
		}
	}
	return inside
}

func onSegment(x, y float64, a, b [2]float64) bool {
	const epsilon = 1e-9

	cross := (b[0]-a[0])*(y-a[1]) - (b[1]-a[1])*(x-a[0])
	if cross > epsilon || cross < -epsilon {
		return false
	}
	if x < minOf(a[0], b[0])-epsilon || x > maxOf(a[0], b[0])+epsilon {
		return false
	}
	if y < minOf(a[1], b[1])-epsilon || y > maxOf(a[1], b[1])+epsilon {
		return false
	}
	return true
}

func minOf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxOf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
