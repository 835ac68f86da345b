package ocrengine

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// decode turns the supported encodings (PNG, JPEG, TIFF, BMP) into an
// in-memory image. The blank imports register their formats with the
// standard library's image.Decode dispatcher; golang.org/x/image supplies
// the two formats (TIFF, BMP) the standard library does not decode.
func decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", "decode failed", err)
	}
	return img, nil
}
