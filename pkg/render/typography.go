package render

import (
	"strings"

	"github.com/fogleman/gg"

	"github.com/posterforge/posterforge/pkg/geo"
	"github.com/posterforge/posterforge/pkg/theme"
)

// Text layout in normalized coordinates measured from the bottom edge,
// matching classic print layout conventions.
const (
	cityY        = 0.14
	ruleY        = 0.125
	countryY     = 0.10
	coordsY      = 0.07
	attributionX = 0.98
	attributionY = 0.02

	ruleFromX = 0.4
	ruleToX   = 0.6
)

// Text sizes in canvas pixels at the 300 DPI reference. Other output
// resolutions scale them by the same factor as the canvas.
const (
	citySize        = 190.0
	countrySize     = 84.0
	coordsSize      = 60.0
	attributionSize = 42.0

	cityTracking = 0.22 // fraction of city size added between glyphs
)

const attributionText = "Map data © OpenStreetMap contributors"

// drawTypography renders the five fixed text elements over the
// gradient band. k scales the type sizes with the output DPI.
func drawTypography(dc *gg.Context, fonts *FontSet, t theme.Theme, city, country string, coords geo.Coordinates, k float64) {
	width := float64(dc.Width())
	height := float64(dc.Height())
	textColor := mustColor(t.Text)
	setColor := func(opacity float64) {
		dc.SetRGBA(
			float64(textColor.R)/255,
			float64(textColor.G)/255,
			float64(textColor.B)/255,
			opacity,
		)
	}
	fromBottom := func(norm float64) float64 {
		return height * (1 - norm)
	}
	centerX := width / 2

	// City name, uppercased and letter-spaced.
	setColor(1)
	dc.SetFontFace(fonts.Face(WeightBold, citySize*k))
	drawTracked(dc, strings.ToUpper(city), centerX, fromBottom(cityY), citySize*k*cityTracking)

	// Horizontal rule between the name and the country.
	setColor(1)
	dc.SetLineWidth(4 * k)
	dc.DrawLine(width*ruleFromX, fromBottom(ruleY), width*ruleToX, fromBottom(ruleY))
	dc.Stroke()

	// Country.
	dc.SetFontFace(fonts.Face(WeightRegular, countrySize*k))
	dc.DrawStringAnchored(strings.ToUpper(country), centerX, fromBottom(countryY), 0.5, 0.5)

	// Coordinates, muted.
	setColor(0.7)
	dc.SetFontFace(fonts.Face(WeightLight, coordsSize*k))
	dc.DrawStringAnchored(coords.String(), centerX, fromBottom(coordsY), 0.5, 0.5)

	// Attribution, bottom right, further muted.
	setColor(0.5)
	dc.SetFontFace(fonts.Face(WeightLight, attributionSize*k))
	dc.DrawStringAnchored(attributionText, width*attributionX, fromBottom(attributionY), 1, 0.5)
}

// drawTracked draws s centered at (x, y) with extra spacing between
// glyphs. gg has no tracking support, so glyphs are placed one by one
// against the measured total width.
func drawTracked(dc *gg.Context, s string, x, y, tracking float64) {
	runes := []rune(s)
	if len(runes) == 0 {
		return
	}

	total := tracking * float64(len(runes)-1)
	widths := make([]float64, len(runes))
	for i, r := range runes {
		w, _ := dc.MeasureString(string(r))
		widths[i] = w
		total += w
	}

	pos := x - total/2
	for i, r := range runes {
		dc.DrawStringAnchored(string(r), pos, y, 0, 0.5)
		pos += widths[i] + tracking
	}
}
