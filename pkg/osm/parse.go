package osm

import (
	"context"
	stderrors "errors"
	"net"

	"github.com/posterforge/posterforge/pkg/geo"
)

// overpassResponse mirrors the JSON shape of an Overpass "out body"
// result: a flat element list mixing nodes and ways.
type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type  string            `json:"type"`
	ID    int64             `json:"id"`
	Lat   float64           `json:"lat"`
	Lon   float64           `json:"lon"`
	Nodes []int64           `json:"nodes"`
	Tags  map[string]string `json:"tags"`
}

// nodeTable indexes node coordinates by ID so ways can be resolved to
// coordinate lists in one pass.
func nodeTable(resp *overpassResponse) map[int64]geo.Coordinates {
	nodes := make(map[int64]geo.Coordinates)
	for _, el := range resp.Elements {
		if el.Type == "node" {
			nodes[el.ID] = geo.Coordinates{Lat: el.Lat, Lon: el.Lon}
		}
	}
	return nodes
}

// resolveWay maps a way's node references through the lookup table,
// skipping references the response did not include.
func resolveWay(el overpassElement, nodes map[int64]geo.Coordinates) []geo.Coordinates {
	points := make([]geo.Coordinates, 0, len(el.Nodes))
	for _, id := range el.Nodes {
		if c, ok := nodes[id]; ok {
			points = append(points, c)
		}
	}
	return points
}

// parseRoads extracts drawable street segments. A segment needs at
// least two points to draw a line.
func parseRoads(resp *overpassResponse) RoadGraph {
	nodes := nodeTable(resp)
	var segments []RoadSegment
	for _, el := range resp.Elements {
		if el.Type != "way" {
			continue
		}
		highway := el.Tags["highway"]
		if highway == "" {
			continue
		}
		points := resolveWay(el, nodes)
		if len(points) < 2 {
			continue
		}
		segments = append(segments, RoadSegment{Points: points, Highway: highway})
	}
	return RoadGraph{Segments: segments}
}

// parsePolygons extracts closed features. A polygon needs at least
// three points to enclose area.
func parsePolygons(resp *overpassResponse, kind string) FeatureCollection {
	nodes := nodeTable(resp)
	features := FeatureCollection{}
	for _, el := range resp.Elements {
		if el.Type != "way" {
			continue
		}
		points := resolveWay(el, nodes)
		if len(points) < 3 {
			continue
		}
		features = append(features, Feature{Points: points, Kind: kind})
	}
	return features
}

func isTimeout(err error) bool {
	var ne net.Error
	if stderrors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return stderrors.Is(err, context.DeadlineExceeded)
}
