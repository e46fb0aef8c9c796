// Package imaging decodes scan images and turns them into model input tensors.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrUnsupportedFormat is returned when the bytes are not a known image format.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Info describes a decoded image after orientation has been applied.
type Info struct {
	Format      string `json:"format"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Orientation int    `json:"orientation"`
	DHash       string `json:"dhash,omitempty"`
}

// Image is a decoded, upright image.
type Image struct {
	Pixels image.Image
	Info   Info
}

// Load reads and decodes the image at path. Errors name only the file, never its directory.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		var pe *fs.PathError
		if errors.As(err, &pe) {
			pe.Path = filepath.Base(pe.Path)
		}
		return nil, fmt.Errorf("read image: %w", err)
	}
	img, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// Decode decodes raw image bytes and rotates the result according to its EXIF orientation.
func Decode(data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrUnsupportedFormat
	}

	px, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupportedFormat
		}
		return nil, err
	}

	orientation := Orientation(data, format)
	px = ApplyOrientation(px, orientation)

	b := px.Bounds()
	info := Info{
		Format:      format,
		Width:       b.Dx(),
		Height:      b.Dy(),
		Orientation: orientation,
	}
	if hash, err := Fingerprint(px); err == nil {
		info.DHash = hash
	}

	return &Image{Pixels: px, Info: info}, nil
}
