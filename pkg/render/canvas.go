// Package render draws the poster image. It composites the fetched
// feature layers onto a DPI-sized canvas in a fixed z-order: background,
// water, parks, roads from minor to major class, the gradient fade, and
// finally typography. All drawing goes through fogleman/gg; the output is
// an in-memory PNG.
package render

import (
	"fmt"
	"image/color"
	"math"
	"strings"

	"github.com/posterforge/posterforge/pkg/errors"
	"github.com/posterforge/posterforge/pkg/geo"
)

// The poster is a 12x16 inch portrait print, so the canvas measures
// 3600x4800 pixels at the reference 300 DPI.
const (
	BaseWidth  = 3600
	BaseHeight = 4800
	BaseDPI    = 300
)

// Dimensions returns the canvas size in pixels for an output DPI. The
// physical print size stays 12x16 inches at every resolution.
func Dimensions(dpi int) (width, height int) {
	if dpi <= 0 {
		dpi = BaseDPI
	}
	return BaseWidth * dpi / BaseDPI, BaseHeight * dpi / BaseDPI
}

// metersPerDegreeLat is the approximate ground distance of one degree
// of latitude.
const metersPerDegreeLat = 111320.0

// projector maps geographic coordinates onto canvas pixels. The map is
// centered on the request coordinates with a uniform metric scale, so
// shapes keep their proportions at poster latitudes.
type projector struct {
	center        geo.Coordinates
	width, height float64
	// pixels per meter
	scale float64
	// meters per degree of longitude at the center latitude
	lonScale float64
}

// newProjector sizes the projection so that the requested radius fits
// the narrow canvas axis.
func newProjector(center geo.Coordinates, distance float64, width, height int) projector {
	return projector{
		center:   center,
		width:    float64(width),
		height:   float64(height),
		scale:    float64(width) / (2 * distance),
		lonScale: metersPerDegreeLat * math.Cos(center.Lat*math.Pi/180),
	}
}

// project converts a coordinate to canvas pixels. Y grows downward, so
// north of center maps above the canvas midpoint.
func (p projector) project(c geo.Coordinates) (x, y float64) {
	dx := (c.Lon - p.center.Lon) * p.lonScale
	dy := (c.Lat - p.center.Lat) * metersPerDegreeLat
	x = p.width/2 + dx*p.scale
	y = p.height/2 - dy*p.scale
	return x, y
}

// viewport returns the geographic extent visible on the canvas, padded
// so features straddling the edge still draw their on-canvas part.
func (p projector) viewport() geo.BoundingBox {
	halfW := p.width / 2 / p.scale
	halfH := p.height / 2 / p.scale
	box := geo.BoundingBox{
		MinLat: p.center.Lat - halfH/metersPerDegreeLat,
		MaxLat: p.center.Lat + halfH/metersPerDegreeLat,
		MinLon: p.center.Lon - halfW/p.lonScale,
		MaxLon: p.center.Lon + halfW/p.lonScale,
	}
	return box.Pad(0.05)
}

// parseHexColor parses "#RGB" and "#RRGGBB" notations.
func parseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		return color.RGBA{}, errors.New(errors.ErrCodeRendering, "invalid color %q: missing # prefix", s)
	}
	hex := s[1:]
	var r, g, b uint8
	switch len(hex) {
	case 3:
		if _, err := fmt.Sscanf(hex, "%1x%1x%1x", &r, &g, &b); err != nil {
			return color.RGBA{}, errors.New(errors.ErrCodeRendering, "invalid color %q", s)
		}
		r, g, b = r*17, g*17, b*17
	case 6:
		if _, err := fmt.Sscanf(hex, "%02x%02x%02x", &r, &g, &b); err != nil {
			return color.RGBA{}, errors.New(errors.ErrCodeRendering, "invalid color %q", s)
		}
	default:
		return color.RGBA{}, errors.New(errors.ErrCodeRendering, "invalid color %q: want #RGB or #RRGGBB", s)
	}
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// mustColor parses a hex color, substituting opaque black for
// malformed values so one bad theme field cannot abort a render.
func mustColor(s string) color.RGBA {
	c, err := parseHexColor(s)
	if err != nil {
		return color.RGBA{A: 255}
	}
	return c
}
