// Package poster orchestrates poster generation: it validates requests,
// tracks them as jobs, and drives the geocode, fetch, render, save
// pipeline in the background.
package poster

import (
	"strings"

	"github.com/posterforge/posterforge/pkg/errors"
	"github.com/posterforge/posterforge/pkg/theme"
)

// Distance bounds and default, in meters of map radius.
const (
	MinDistance     = 2000
	MaxDistance     = 50000
	DefaultDistance = 15000
)

// DefaultDPI is the output resolution used when a request does not ask
// for one. At 300 the canvas is 3600x4800 pixels.
const DefaultDPI = 300

// Request is a validated poster request.
type Request struct {
	City     string
	Country  string
	Theme    string
	Distance int
	DPI      int
}

// NewRequest validates raw input and applies defaults: the built-in
// theme, the default radius, and 300 DPI output. Validation failures
// carry field context so API callers can surface them directly.
func NewRequest(city, country, themeName string, distance, dpi int) (Request, error) {
	if err := errors.ValidatePlaceName("city", city); err != nil {
		return Request{}, err
	}
	if err := errors.ValidatePlaceName("country", country); err != nil {
		return Request{}, err
	}

	if distance == 0 {
		distance = DefaultDistance
	}
	if err := errors.ValidateDistance(distance, MinDistance, MaxDistance); err != nil {
		return Request{}, err
	}

	if dpi == 0 {
		dpi = DefaultDPI
	}
	if dpi < 0 {
		return Request{}, errors.New(errors.ErrCodeInvalidInput,
			"dpi must be a positive integer, got %d", dpi)
	}

	if themeName == "" {
		themeName = theme.DefaultName
	}

	return Request{
		City:     strings.TrimSpace(city),
		Country:  strings.TrimSpace(country),
		Theme:    themeName,
		Distance: distance,
		DPI:      dpi,
	}, nil
}

// EstimateSeconds predicts generation time from the map radius. Bigger
// areas mean heavier Overpass queries and more geometry to draw.
func EstimateSeconds(distance int) int {
	switch {
	case distance <= 5000:
		return 30
	case distance <= 10000:
		return 45
	case distance <= 20000:
		return 60
	default:
		return 90
	}
}
