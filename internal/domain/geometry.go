package domain

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Geometry is the sum type of spatial coverage shapes a Granule or FileRecord
// can carry: a single point, a longitude/latitude rectangle, a polygon, a
// multi-polygon, or a line string. Concrete shapes wrap an orb.Geometry so
// WKB/GeoJSON encoding and planar predicates reuse the orb ecosystem rather
// than a hand-rolled implementation.
type Geometry interface {
	// Orb returns the underlying orb.Geometry for encoding or predicates.
	Orb() orb.Geometry
	// Bound returns the axis-aligned bounding box of the geometry.
	Bound() orb.Bound
	// Intersects reports whether the two geometries' shapes overlap.
	Intersects(other Geometry) bool
	fmt.Stringer
}

// Point wraps a single longitude/latitude location.
type Point struct {
	orb.Point
}

// NewPoint builds a Point from longitude and latitude in degrees.
func NewPoint(lon, lat float64) Point {
	return Point{orb.Point{lon, lat}}
}

func (p Point) Orb() orb.Geometry   { return p.Point }
func (p Point) Bound() orb.Bound    { return p.Point.Bound() }
func (p Point) String() string      { return fmt.Sprintf("POINT(%f %f)", p.Point[0], p.Point[1]) }
func (p Point) Intersects(o Geometry) bool {
	return intersects(p.Orb(), o.Orb())
}

// LonLatRect is an axis-aligned longitude/latitude bounding box.
type LonLatRect struct {
	bound orb.Bound
}

// NewLonLatRect builds a rectangle from its corner coordinates.
func NewLonLatRect(minLon, minLat, maxLon, maxLat float64) LonLatRect {
	return LonLatRect{bound: orb.Bound{
		Min: orb.Point{minLon, minLat},
		Max: orb.Point{maxLon, maxLat},
	}}
}

func (r LonLatRect) Orb() orb.Geometry { return r.bound.ToPolygon() }
func (r LonLatRect) Bound() orb.Bound  { return r.bound }
func (r LonLatRect) String() string {
	return fmt.Sprintf("RECT(%f %f, %f %f)", r.bound.Min[0], r.bound.Min[1], r.bound.Max[0], r.bound.Max[1])
}
func (r LonLatRect) Intersects(o Geometry) bool {
	return intersects(r.Orb(), o.Orb())
}

// Polygon wraps a single-ring (possibly with holes) polygon.
type Polygon struct {
	orb.Polygon
}

func NewPolygon(rings ...orb.Ring) Polygon { return Polygon{orb.Polygon(rings)} }

func (p Polygon) Orb() orb.Geometry { return p.Polygon }
func (p Polygon) Bound() orb.Bound  { return p.Polygon.Bound() }
func (p Polygon) String() string    { return "POLYGON" }
func (p Polygon) Intersects(o Geometry) bool {
	return intersects(p.Orb(), o.Orb())
}

// MultiPolygon wraps a collection of disjoint polygons, used for swaths that
// cross the antimeridian or that include a synthetic polar cap.
type MultiPolygon struct {
	orb.MultiPolygon
}

func NewMultiPolygon(polys ...orb.Polygon) MultiPolygon {
	return MultiPolygon{orb.MultiPolygon(polys)}
}

func (m MultiPolygon) Orb() orb.Geometry { return m.MultiPolygon }
func (m MultiPolygon) Bound() orb.Bound  { return m.MultiPolygon.Bound() }
func (m MultiPolygon) String() string    { return "MULTIPOLYGON" }
func (m MultiPolygon) Intersects(o Geometry) bool {
	return intersects(m.Orb(), o.Orb())
}

// LineString wraps a swath track or ground-trace polyline.
type LineString struct {
	orb.LineString
}

func NewLineString(points ...orb.Point) LineString {
	return LineString{orb.LineString(points)}
}

func (l LineString) Orb() orb.Geometry { return l.LineString }
func (l LineString) Bound() orb.Bound  { return l.LineString.Bound() }
func (l LineString) String() string    { return "LINESTRING" }
func (l LineString) Intersects(o Geometry) bool {
	return intersects(l.Orb(), o.Orb())
}

// intersects dispatches on concrete orb types to the matching planar
// predicate. Unsupported combinations fall back to a bounding-box overlap
// test, which is always a safe (if coarser) over-approximation.
func intersects(a, b orb.Geometry) bool {
	switch av := a.(type) {
	case orb.Point:
		switch bv := b.(type) {
		case orb.Point:
			return av == bv
		case orb.Polygon:
			return planar.PolygonContains(bv, av)
		case orb.MultiPolygon:
			return planar.MultiPolygonContains(bv, av)
		}
	case orb.Polygon:
		switch bv := b.(type) {
		case orb.Point:
			return planar.PolygonContains(av, bv)
		}
	case orb.MultiPolygon:
		switch bv := b.(type) {
		case orb.Point:
			return planar.MultiPolygonContains(av, bv)
		}
	}
	return a.Bound().Intersects(b.Bound())
}

// polarFixupLatThreshold is the latitude (in degrees) above which a swath
// polygon is considered to approach the pole and gets a synthetic polar cap
// added to its coverage, per the original swath-parsing logic.
const polarFixupLatThreshold = 70.0

// polarCapLat is the latitude at which the synthetic polar cap itself
// begins (it always extends to the pole at full longitude span).
const polarCapLat = 75.0

// AddPolarCaps inspects each ring of polys for points beyond
// polarFixupLatThreshold and, if found, appends a full-longitude cap polygon
// from polarCapLat to the pole so that swaths which cross over a pole are not
// under-represented by their (possibly self-intersecting) raw outline.
func AddPolarCaps(polys []orb.Polygon) MultiPolygon {
	out := make([]orb.Polygon, 0, len(polys)+2)
	out = append(out, polys...)

	var northPole, southPole bool
	for _, poly := range polys {
		for _, ring := range poly {
			for _, pt := range ring {
				if pt[1] > polarFixupLatThreshold {
					northPole = true
				}
				if pt[1] < -polarFixupLatThreshold {
					southPole = true
				}
			}
		}
	}

	if northPole {
		out = append(out, orb.Polygon{orb.Ring{
			{-180, polarCapLat}, {180, polarCapLat}, {180, 90}, {-180, 90}, {-180, polarCapLat},
		}})
	}
	if southPole {
		out = append(out, orb.Polygon{orb.Ring{
			{-180, -polarCapLat}, {180, -polarCapLat}, {180, -90}, {-180, -90}, {-180, -polarCapLat},
		}})
	}

	return NewMultiPolygon(out...)
}
