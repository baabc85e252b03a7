// Package geomio converts between the domain's Geometry sum type and wire
// formats used at the HTTP boundary: GeoJSON for responses and a bare
// "minLon,minLat,maxLon,maxLat" bbox string for query parameters.
package geomio

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb/geojson"

	"github.com/pansat-go/pansat/internal/domain"
)

// ToGeoJSON encodes a domain.Geometry as a GeoJSON geometry object. A nil
// geom encodes as JSON null.
func ToGeoJSON(geom domain.Geometry) ([]byte, error) {
	if geom == nil {
		return []byte("null"), nil
	}
	return json.Marshal(geojson.NewGeometry(geom.Orb()))
}

// ParseBBox parses a "minLon,minLat,maxLon,maxLat" query parameter into a
// domain.LonLatRect.
func ParseBBox(s string) (domain.LonLatRect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return domain.LonLatRect{}, fmt.Errorf("bbox must have 4 comma-separated values, got %d", len(parts))
	}

	var coords [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return domain.LonLatRect{}, fmt.Errorf("invalid bbox coordinate %q: %w", p, err)
		}
		coords[i] = v
	}

	return domain.NewLonLatRect(coords[0], coords[1], coords[2], coords[3]), nil
}
