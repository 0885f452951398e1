// Package imagemeta reads intrinsic image dimensions and renders the small
// preview kept alongside an artwork while the form is open.
package imagemeta

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"

	"github.com/nfnt/resize"
)

const previewEdge = 300

// AspectRatio returns width/height of the encoded image. Only the header is
// decoded.
func AspectRatio(data []byte) (float64, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("decode image config: %w", err)
	}
	if cfg.Height <= 0 {
		return 0, fmt.Errorf("image has no height")
	}
	return float64(cfg.Width) / float64(cfg.Height), nil
}

// Preview renders a bounded JPEG thumbnail of the image for local display.
func Preview(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	thumb := resize.Thumbnail(previewEdge, previewEdge, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 80}); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// DerivedHeight computes the height matching a width under the image's
// aspect ratio, rounded to 2 decimal places. Derivation is one-directional:
// editing width recomputes height, never the reverse.
func DerivedHeight(width, aspectRatio float64) float64 {
	if aspectRatio <= 0 {
		return 0
	}
	return round2(width / aspectRatio)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
