package render

import (
	"math"
	"strings"

	"github.com/posterforge/posterforge/pkg/theme"
)

// RoadClass is a style bucket for the road hierarchy. Classification
// is a pure function of the OSM highway tag.
type RoadClass int

const (
	ClassMotorway RoadClass = iota
	ClassTrunkPrimary
	ClassSecondary
	ClassTertiary
	ClassResidential
	ClassDefault
)

// drawOrder lists classes from least to most prominent so major roads
// are painted on top.
var drawOrder = []RoadClass{
	ClassDefault,
	ClassResidential,
	ClassTertiary,
	ClassSecondary,
	ClassTrunkPrimary,
	ClassMotorway,
}

// ClassifyHighway buckets an OSM highway tag. Multi-valued tags use
// the first value; unknown tags fall into the default class.
func ClassifyHighway(tag string) RoadClass {
	if i := strings.IndexByte(tag, ';'); i >= 0 {
		tag = tag[:i]
	}
	switch tag {
	case "motorway", "motorway_link":
		return ClassMotorway
	case "trunk", "trunk_link", "primary", "primary_link":
		return ClassTrunkPrimary
	case "secondary", "secondary_link":
		return ClassSecondary
	case "tertiary", "tertiary_link":
		return ClassTertiary
	case "residential", "living_street", "unclassified":
		return ClassResidential
	default:
		return ClassDefault
	}
}

// WidthFactor returns the stroke width multiplier for a class,
// relative to the distance-derived base width.
func (c RoadClass) WidthFactor() float64 {
	switch c {
	case ClassMotorway:
		return 1.2
	case ClassTrunkPrimary:
		return 1.0
	case ClassSecondary:
		return 0.8
	case ClassTertiary:
		return 0.6
	case ClassResidential:
		return 0.4
	default:
		return 0.4
	}
}

// Color looks up the class color in the theme.
func (c RoadClass) Color(t theme.Theme) string {
	switch c {
	case ClassMotorway:
		return t.RoadMotorway
	case ClassTrunkPrimary:
		return t.RoadPrimary
	case ClassSecondary:
		return t.RoadSecondary
	case ClassTertiary:
		return t.RoadTertiary
	case ClassResidential:
		return t.RoadResidential
	default:
		return t.RoadDefault
	}
}

// referenceDistance is the radius at which roads draw at their nominal
// width. Smaller areas zoom in, so strokes scale up, and vice versa.
const referenceDistance = 15000.0

// BaseRoadWidth derives the stroke base width from the map radius in
// meters.
func BaseRoadWidth(distance float64) float64 {
	return 2.0 * math.Sqrt(referenceDistance/distance)
}
