package render

import (
	"image/color"

	"github.com/fogleman/gg"
)

// Gradient geometry: the fade occupies the outer quarter of the canvas
// height at both edges, stepped in 256 bands.
const (
	gradientFraction = 0.25
	gradientSteps    = 256
)

// drawGradient paints the edge fade with the theme's gradient color.
// The overlay is opaque at the canvas edge and fully transparent where
// the band meets the map.
func drawGradient(dc *gg.Context, gradientColor color.RGBA) {
	width := float64(dc.Width())
	height := float64(dc.Height())
	bandHeight := height * gradientFraction
	stepHeight := bandHeight / gradientSteps

	for i := 0; i < gradientSteps; i++ {
		// 1.0 at the edge, 0.0 at the inner boundary of the band.
		alpha := 1.0 - (float64(i)+0.5)/gradientSteps
		dc.SetRGBA(
			float64(gradientColor.R)/255,
			float64(gradientColor.G)/255,
			float64(gradientColor.B)/255,
			alpha,
		)

		// Top band, stepping downward from the edge.
		dc.DrawRectangle(0, float64(i)*stepHeight, width, stepHeight+1)
		dc.Fill()

		// Bottom band, stepping upward from the edge.
		dc.DrawRectangle(0, height-float64(i+1)*stepHeight, width, stepHeight+1)
		dc.Fill()
	}
}
