// Package geo provides geographic primitives shared across the poster
// pipeline: WGS84 coordinates, display formatting, and bounding box
// computation for the map projection.
package geo

import (
	"fmt"
	"math"
)

// Coordinates is a latitude/longitude pair in degrees (WGS84).
// A value is produced once per job by the geocoder and is immutable
// thereafter.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// String formats the coordinates for poster display, e.g.
// "45.4408° N / 12.3155° E". Latitude and longitude are shown as
// absolute values to 4 decimal places with hemisphere letters derived
// from sign.
func (c Coordinates) String() string {
	latDir := "N"
	if c.Lat < 0 {
		latDir = "S"
	}
	lonDir := "E"
	if c.Lon < 0 {
		lonDir = "W"
	}
	return fmt.Sprintf("%.4f° %s / %.4f° %s", math.Abs(c.Lat), latDir, math.Abs(c.Lon), lonDir)
}

// BoundingBox is a geographic extent in degrees.
type BoundingBox struct {
	MinLat, MinLon float64
	MaxLat, MaxLon float64
}

// Intersects reports whether the two boxes overlap. Touching edges
// count as overlap.
func (b BoundingBox) Intersects(o BoundingBox) bool {
	return b.MinLat <= o.MaxLat && o.MinLat <= b.MaxLat &&
		b.MinLon <= o.MaxLon && o.MinLon <= b.MaxLon
}

// Pad expands the box by fraction of its extent on every side.
// A fraction of 0.05 adds 5% padding.
func (b BoundingBox) Pad(fraction float64) BoundingBox {
	latPad := (b.MaxLat - b.MinLat) * fraction
	lonPad := (b.MaxLon - b.MinLon) * fraction
	return BoundingBox{
		MinLat: b.MinLat - latPad,
		MinLon: b.MinLon - lonPad,
		MaxLat: b.MaxLat + latPad,
		MaxLon: b.MaxLon + lonPad,
	}
}

// Bounds computes the bounding box of a set of point lists.
// Returns ok=false when no points are present.
func Bounds(pointLists ...[]Coordinates) (BoundingBox, bool) {
	box := BoundingBox{
		MinLat: math.MaxFloat64,
		MinLon: math.MaxFloat64,
		MaxLat: -math.MaxFloat64,
		MaxLon: -math.MaxFloat64,
	}
	found := false
	for _, points := range pointLists {
		for _, p := range points {
			found = true
			box.MinLat = math.Min(box.MinLat, p.Lat)
			box.MinLon = math.Min(box.MinLon, p.Lon)
			box.MaxLat = math.Max(box.MaxLat, p.Lat)
			box.MaxLon = math.Max(box.MaxLon, p.Lon)
		}
	}
	return box, found
}
