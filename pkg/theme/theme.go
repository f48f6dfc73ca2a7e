// Package theme loads and validates named color profiles for poster
// rendering.
//
// A theme is a fixed-shape bundle of colors driving the visual
// appearance of one poster: background, typography, water and park
// fills, the gradient overlay, and one color per road hierarchy class.
// Profiles are stored as one JSON file per theme; any keys a stored
// profile leaves unset are filled from the built-in default so the
// renderer never sees a missing field.
package theme

// DefaultName is the well-known identifier of the built-in profile.
// Loading it succeeds even when no stored profile exists.
const DefaultName = "feature_based"

// Theme is a named bundle of colors and style parameters. All color
// fields hold "#RRGGBB" hex strings.
type Theme struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	Background    string `json:"bg"`
	Text          string `json:"text"`
	GradientColor string `json:"gradient_color"`
	Water         string `json:"water"`
	Parks         string `json:"parks"`

	RoadMotorway    string `json:"road_motorway"`
	RoadPrimary     string `json:"road_primary"`
	RoadSecondary   string `json:"road_secondary"`
	RoadTertiary    string `json:"road_tertiary"`
	RoadResidential string `json:"road_residential"`
	RoadDefault     string `json:"road_default"`
}

// Default returns the built-in feature-based profile used both as the
// fallback theme and as the source of defaults for partial profiles.
func Default() Theme {
	return Theme{
		Name:            "Feature-Based Shading",
		Description:     "Different shades for different road types and features with clear hierarchy",
		Background:      "#FFFFFF",
		Text:            "#000000",
		GradientColor:   "#FFFFFF",
		Water:           "#C0C0C0",
		Parks:           "#F0F0F0",
		RoadMotorway:    "#0A0A0A",
		RoadPrimary:     "#1A1A1A",
		RoadSecondary:   "#2A2A2A",
		RoadTertiary:    "#3A3A3A",
		RoadResidential: "#4A4A4A",
		RoadDefault:     "#3A3A3A",
	}
}

// applyDefaults fills every unset field of t from the built-in default
// profile. Fields the stored profile defines are never overwritten, and
// the merge is idempotent: applying it twice yields the same theme.
func applyDefaults(t Theme) Theme {
	def := Default()
	fill := func(dst *string, fallback string) {
		if *dst == "" {
			*dst = fallback
		}
	}
	fill(&t.Name, def.Name)
	fill(&t.Description, def.Description)
	fill(&t.Background, def.Background)
	fill(&t.Text, def.Text)
	fill(&t.GradientColor, def.GradientColor)
	fill(&t.Water, def.Water)
	fill(&t.Parks, def.Parks)
	fill(&t.RoadMotorway, def.RoadMotorway)
	fill(&t.RoadPrimary, def.RoadPrimary)
	fill(&t.RoadSecondary, def.RoadSecondary)
	fill(&t.RoadTertiary, def.RoadTertiary)
	fill(&t.RoadResidential, def.RoadResidential)
	fill(&t.RoadDefault, def.RoadDefault)
	return t
}

// missingRequired lists the required keys a stored profile leaves unset,
// for operator visibility. The profile is still usable after the merge.
func missingRequired(t Theme) []string {
	var missing []string
	required := map[string]string{
		"bg":           t.Background,
		"text":         t.Text,
		"water":        t.Water,
		"parks":        t.Parks,
		"road_default": t.RoadDefault,
	}
	// Stable order for logs and API responses.
	for _, key := range []string{"bg", "text", "water", "parks", "road_default"} {
		if required[key] == "" {
			missing = append(missing, key)
		}
	}
	return missing
}
