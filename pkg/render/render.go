package render

import (
	"bytes"
	"image/color"
	"image/png"
	"io"

	"github.com/charmbracelet/log"
	"github.com/fogleman/gg"

	"github.com/posterforge/posterforge/pkg/errors"
	"github.com/posterforge/posterforge/pkg/geo"
	"github.com/posterforge/posterforge/pkg/osm"
	"github.com/posterforge/posterforge/pkg/theme"
)

// Params carries everything one poster render needs.
type Params struct {
	Theme    theme.Theme
	City     string
	Country  string
	Coords   geo.Coordinates
	Distance float64

	// DPI is the output resolution. Zero means the 300 DPI reference.
	DPI int

	Roads osm.RoadGraph
	Water osm.FeatureCollection
	Parks osm.FeatureCollection
}

// Renderer draws posters. It is stateless apart from the loaded fonts
// and safe for concurrent use; each render gets its own drawing
// context.
type Renderer struct {
	fonts  *FontSet
	logger *log.Logger
}

// NewRenderer builds a renderer around a loaded font set.
func NewRenderer(fonts *FontSet, logger *log.Logger) *Renderer {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Renderer{fonts: fonts, logger: logger}
}

// Poster is one in-progress render. The three drawing phases map to
// the externally visible pipeline stages, so the orchestrator can
// report progress between them.
type Poster struct {
	r    *Renderer
	dc   *gg.Context
	proj projector
	view geo.BoundingBox
	// k scales stroke widths and type sizes relative to 300 DPI.
	k      float64
	params Params
}

// Begin creates the canvas and paints the base layers: background,
// water, then parks.
func (r *Renderer) Begin(p Params) *Poster {
	w, h := Dimensions(p.DPI)
	dc := gg.NewContext(w, h)
	dc.SetColor(mustColor(p.Theme.Background))
	dc.Clear()

	proj := newProjector(p.Coords, p.Distance, w, h)
	po := &Poster{
		r:      r,
		dc:     dc,
		proj:   proj,
		view:   proj.viewport(),
		k:      float64(w) / BaseWidth,
		params: p,
	}
	if box, ok := geo.Bounds(p.Roads.PointLists()...); ok {
		r.logger.Debug("road data extent",
			"min_lat", box.MinLat, "max_lat", box.MaxLat,
			"min_lon", box.MinLon, "max_lon", box.MaxLon)
	}
	po.fillFeatures(p.Water, mustColor(p.Theme.Water))
	po.fillFeatures(p.Parks, mustColor(p.Theme.Parks))
	return po
}

// DrawRoads paints the street network class by class, minor roads
// first so the major hierarchy stays visible at crossings.
func (po *Poster) DrawRoads() {
	byClass := make(map[RoadClass][]osm.RoadSegment)
	for _, seg := range po.params.Roads.Segments {
		class := ClassifyHighway(seg.Highway)
		byClass[class] = append(byClass[class], seg)
	}

	base := BaseRoadWidth(po.params.Distance) * po.k
	po.dc.SetLineCapRound()
	po.dc.SetLineJoinRound()
	for _, class := range drawOrder {
		segments := byClass[class]
		if len(segments) == 0 {
			continue
		}
		po.dc.SetColor(mustColor(class.Color(po.params.Theme)))
		po.dc.SetLineWidth(base * class.WidthFactor())
		for _, seg := range segments {
			if !po.visible(seg.Points) {
				continue
			}
			po.strokePath(seg.Points)
		}
	}
	po.r.logger.Debug("drew road network", "segments", len(po.params.Roads.Segments), "base_width", base)
}

// Finish applies the gradient fade and typography, then encodes the
// poster as PNG.
func (po *Poster) Finish() ([]byte, error) {
	drawGradient(po.dc, mustColor(po.params.Theme.GradientColor))
	drawTypography(po.dc, po.r.fonts, po.params.Theme, po.params.City, po.params.Country, po.params.Coords, po.k)

	var buf bytes.Buffer
	if err := png.Encode(&buf, po.dc.Image()); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRendering, "encoding poster PNG")
	}
	return buf.Bytes(), nil
}

func (po *Poster) fillFeatures(features osm.FeatureCollection, c color.Color) {
	po.dc.SetColor(c)
	for _, f := range features {
		if len(f.Points) < 3 || !po.visible(f.Points) {
			continue
		}
		po.tracePath(f.Points)
		po.dc.ClosePath()
		po.dc.Fill()
	}
}

// visible reports whether a feature's extent overlaps the canvas
// viewport. Off-canvas features are skipped rather than traced.
func (po *Poster) visible(points []geo.Coordinates) bool {
	box, ok := geo.Bounds(points)
	return ok && box.Intersects(po.view)
}

func (po *Poster) strokePath(points []geo.Coordinates) {
	if len(points) < 2 {
		return
	}
	po.tracePath(points)
	po.dc.Stroke()
}

func (po *Poster) tracePath(points []geo.Coordinates) {
	for i, pt := range points {
		x, y := po.proj.project(pt)
		if i == 0 {
			po.dc.MoveTo(x, y)
		} else {
			po.dc.LineTo(x, y)
		}
	}
}
