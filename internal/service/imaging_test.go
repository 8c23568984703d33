package service

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestIsSupportedImage(t *testing.T) {
	testCases := []struct {
		path string
		want bool
	}{
		{path: "meme.jpg", want: true},
		{path: "meme.jpeg", want: true},
		{path: "MEME.PNG", want: true},
		{path: "anim.gif", want: true},
		{path: "modern.webp", want: true},
		{path: "notes.txt", want: false},
		{path: "archive.tar.gz", want: false},
		{path: "noext", want: false},
		{path: "vector.svg", want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.path, func(t *testing.T) {
			if got := isSupportedImage(tc.path); got != tc.want {
				t.Errorf("isSupportedImage(%q) = %v, want %v", tc.path, got, tc.want)
			}
		})
	}
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

func TestProbeImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 24, 10))
	data := encodePNG(t, img)

	decoded, meta, err := probeImage(data, "/m/x.png")
	if err != nil {
		t.Fatalf("probe failed: %v", err)
	}
	if decoded == nil {
		t.Fatal("probe returned nil image")
	}
	if meta.Format != "png" {
		t.Errorf("format: got %q, want png", meta.Format)
	}
	if meta.Width != 24 || meta.Height != 10 {
		t.Errorf("dimensions: got %dx%d, want 24x10", meta.Width, meta.Height)
	}
	if meta.Path != "/m/x.png" {
		t.Errorf("path: got %q", meta.Path)
	}
}

func TestProbeImageRejectsGarbage(t *testing.T) {
	if _, _, err := probeImage([]byte("definitely not an image"), "/m/x.png"); err == nil {
		t.Error("expected decode error for garbage bytes")
	}
}

func TestPerceptualHashStable(t *testing.T) {
	mk := func(c color.Color) image.Image {
		img := image.NewRGBA(image.Rect(0, 0, 16, 16))
		for y := 0; y < 16; y++ {
			for x := 0; x < 16; x++ {
				img.Set(x, y, c)
			}
		}
		return img
	}

	a1, err := perceptualHash(mk(color.RGBA{R: 200, A: 255}))
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	a2, err := perceptualHash(mk(color.RGBA{R: 200, A: 255}))
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	if a1 != a2 {
		t.Errorf("identical images hashed differently: %q != %q", a1, a2)
	}
	if a1 == "" {
		t.Error("hash is empty")
	}
}

func TestColorMode(t *testing.T) {
	testCases := []struct {
		name string
		img  image.Image
		want string
	}{
		{name: "gray", img: image.NewGray(image.Rect(0, 0, 2, 2)), want: "L"},
		{name: "paletted", img: image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.Black}), want: "P"},
		{name: "rgba", img: image.NewRGBA(image.Rect(0, 0, 2, 2)), want: "RGBA"},
		{name: "nrgba", img: image.NewNRGBA(image.Rect(0, 0, 2, 2)), want: "RGBA"},
		{name: "ycbcr", img: image.NewYCbCr(image.Rect(0, 0, 2, 2), image.YCbCrSubsampleRatio420), want: "RGB"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := colorMode(tc.img); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
