package imagemeta

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 120, G: 40, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestAspectRatio(t *testing.T) {
	data := encodePNG(t, 40, 30)
	ar, err := AspectRatio(data)
	if err != nil {
		t.Fatalf("aspect ratio: %v", err)
	}
	if ar < 1.333 || ar > 1.334 {
		t.Fatalf("aspect ratio = %v, want ~1.333", ar)
	}
}

func TestAspectRatioRejectsGarbage(t *testing.T) {
	if _, err := AspectRatio([]byte("not an image")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestDerivedHeight(t *testing.T) {
	for _, tc := range []struct {
		width, ar, want float64
	}{
		{30, 4.0 / 3.0, 22.5},
		{30, 1, 30},
		{10, 3, 3.33},
		{30, 0, 0},
	} {
		if got := DerivedHeight(tc.width, tc.ar); got != tc.want {
			t.Fatalf("DerivedHeight(%v, %v) = %v, want %v", tc.width, tc.ar, got, tc.want)
		}
	}
}

func TestPreviewStaysDecodable(t *testing.T) {
	data := encodePNG(t, 800, 600)
	preview, err := Preview(data)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	ar, err := AspectRatio(preview)
	if err != nil {
		t.Fatalf("preview not decodable: %v", err)
	}
	if ar < 1.3 || ar > 1.37 {
		t.Fatalf("preview aspect ratio drifted: %v", ar)
	}
}
