package render

import (
	"io"
	"os"
	"path/filepath"

	"github.com/flopp/go-findfont"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/posterforge/posterforge/pkg/errors"
)

// Weight identifies one of the three typography weights the poster
// layout uses.
type Weight int

const (
	WeightBold Weight = iota
	WeightRegular
	WeightLight
)

// robotoFiles maps each weight to its preferred font file.
var robotoFiles = map[Weight]string{
	WeightBold:    "Roboto-Bold.ttf",
	WeightRegular: "Roboto-Regular.ttf",
	WeightLight:   "Roboto-Light.ttf",
}

// monoFallbacks lists system monospace files to try per weight when
// Roboto is unavailable. Bold text keeps a bold fallback so the visual
// hierarchy survives the substitution.
var monoFallbacks = map[Weight][]string{
	WeightBold:    {"DejaVuSansMono-Bold.ttf", "LiberationMono-Bold.ttf", "courbd.ttf"},
	WeightRegular: {"DejaVuSansMono.ttf", "LiberationMono-Regular.ttf", "cour.ttf"},
	WeightLight:   {"DejaVuSansMono.ttf", "LiberationMono-Regular.ttf", "cour.ttf"},
}

// FontSet holds the parsed fonts for all weights.
type FontSet struct {
	fonts map[Weight]*truetype.Font
}

// LoadFonts loads the poster fonts, preferring Roboto from dir, then
// Roboto from the system font paths, then a system monospace. It fails
// only when no candidate for some weight can be found at all.
func LoadFonts(dir string) (*FontSet, error) {
	set := &FontSet{fonts: make(map[Weight]*truetype.Font)}
	for weight, name := range robotoFiles {
		f, err := loadWeight(dir, weight, name)
		if err != nil {
			return nil, err
		}
		set.fonts[weight] = f
	}
	return set, nil
}

func loadWeight(dir string, weight Weight, name string) (*truetype.Font, error) {
	if dir != "" {
		if f, err := parseFontFile(filepath.Join(dir, name)); err == nil {
			return f, nil
		}
	}
	if path, err := findfont.Find(name); err == nil {
		if f, err := parseFontFile(path); err == nil {
			return f, nil
		}
	}
	for _, fallback := range monoFallbacks[weight] {
		if path, err := findfont.Find(fallback); err == nil {
			if f, err := parseFontFile(path); err == nil {
				return f, nil
			}
		}
	}
	return nil, errors.New(errors.ErrCodeFontNotFound, "no usable font found for %s", name)
}

func parseFontFile(path string) (*truetype.Font, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return truetype.Parse(data)
}

// Face builds a rendering face at the given pixel size.
func (s *FontSet) Face(weight Weight, size float64) font.Face {
	return truetype.NewFace(s.fonts[weight], &truetype.Options{
		Size: size,
		// Size is interpreted in points; at 72 DPI one point is one
		// pixel, which keeps layout math in canvas pixels.
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
