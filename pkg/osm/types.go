// Package osm fetches geographic feature layers from the Overpass API.
//
// Three independent layers feed the renderer: the street network
// (mandatory; the poster has no visual fallback without it), water
// polygons, and park polygons. The two decorative layers degrade
// gracefully: a failed fetch yields an empty Layer carrying a warning
// instead of an error, so the pipeline's fatal-vs-recoverable branching
// is a type-level distinction rather than error inspection.
package osm

import (
	"github.com/posterforge/posterforge/pkg/geo"
)

// RoadSegment is one way of the street network with its raw highway
// tag value. Classification into hierarchy classes happens at render
// time and is a pure function of the tag.
type RoadSegment struct {
	Points  []geo.Coordinates
	Highway string
}

// RoadGraph is the street network for one poster.
type RoadGraph struct {
	Segments []RoadSegment
}

// Empty reports whether the graph holds no drawable segments.
func (g RoadGraph) Empty() bool {
	return len(g.Segments) == 0
}

// PointLists returns the coordinate lists of all segments, for bounds
// computation.
func (g RoadGraph) PointLists() [][]geo.Coordinates {
	lists := make([][]geo.Coordinates, 0, len(g.Segments))
	for _, s := range g.Segments {
		lists = append(lists, s.Points)
	}
	return lists
}

// Feature is one closed polygon of a decorative layer.
type Feature struct {
	Points []geo.Coordinates
	Kind   string // "water" or "park"
}

// FeatureCollection is a set of polygons forming one layer.
type FeatureCollection []Feature

// Layer is the typed result of an optional fetch: either features, or
// an empty collection plus one warning describing why.
type Layer struct {
	Features FeatureCollection
	Warning  string
}

// Degraded reports whether this layer was substituted with an empty
// collection after a fetch failure.
func (l Layer) Degraded() bool {
	return l.Warning != ""
}
