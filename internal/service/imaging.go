package service

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	"github.com/corona10/goimagehash"
	"github.com/tobyv/memesdb/internal/domain"
	_ "golang.org/x/image/webp"
)

// supportedExtensions is the raster-format allow-list for directory scans,
// matched case-insensitively against file extensions.
var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// isSupportedImage reports whether the path has an allow-listed extension.
func isSupportedImage(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// probeImage decodes raw image bytes and extracts descriptive metadata.
// Parameters:
//   - data: raw image bytes.
//   - path: file path recorded in the metadata.
// Returns:
//   - image.Image: decoded image, reused for hashing.
//   - domain.ImageMeta: format, dimensions, color mode and path.
//   - error: non-nil if the image cannot be decoded.
func probeImage(data []byte, path string) (image.Image, domain.ImageMeta, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, domain.ImageMeta{}, err
	}

	bounds := img.Bounds()
	meta := domain.ImageMeta{
		Format: format,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Mode:   colorMode(img),
		Path:   path,
	}
	return img, meta, nil
}

// perceptualHash computes the average-hash fingerprint of an image. The hash
// is bookkeeping for duplicate detection, never identity.
// Parameters:
//   - img: decoded image.
// Returns:
//   - string: hash string, stable for identical pixel content.
//   - error: non-nil if hashing fails.
func perceptualHash(img image.Image) (string, error) {
	hash, err := goimagehash.AverageHash(img)
	if err != nil {
		return "", err
	}
	return hash.ToString(), nil
}

// colorMode names the decoded pixel layout, loosely following PIL mode names
// since that is what archive consumers expect in the meta blob.
func colorMode(img image.Image) string {
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		return "L"
	case *image.Paletted:
		return "P"
	case *image.NRGBA, *image.NRGBA64, *image.RGBA, *image.RGBA64:
		return "RGBA"
	case *image.YCbCr:
		return "RGB"
	default:
		return "RGB"
	}
}
