package render

import (
	"bytes"

	"github.com/disintegration/imaging"

	"github.com/posterforge/posterforge/pkg/errors"
)

// DefaultPreviewSize bounds the long edge of preview images served by
// the API.
const DefaultPreviewSize = 600

// Preview downscales a rendered poster PNG to fit within maxDim on its
// longer edge, preserving aspect ratio.
func Preview(posterPNG []byte, maxDim int) ([]byte, error) {
	if maxDim <= 0 {
		maxDim = DefaultPreviewSize
	}
	img, err := imaging.Decode(bytes.NewReader(posterPNG))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRendering, "decoding poster for preview")
	}
	small := imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, small, imaging.PNG); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRendering, "encoding preview PNG")
	}
	return buf.Bytes(), nil
}
