package ocrengine

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"
)

// denoiseMinDimension is the 100x100 threshold from spec.md §4.1: images
// smaller than this in either dimension skip median denoise.
const denoiseMinDimension = 100

// thresholdMidIntensity is the binary threshold applied after grayscale
// conversion, at the midpoint of the 8-bit intensity range.
const thresholdMidIntensity = 128

// preprocess runs the deterministic pipeline spec.md §4.1 requires:
// convert to 8-bit grayscale, optionally median-denoise, binary threshold.
// The result is re-encoded as PNG because gosseract's SetImageFromBytes
// needs a self-describing encoded image, not a raw pixel buffer.
func preprocess(img image.Image) ([]byte, error) {
	gray := imaging.Grayscale(img)

	bounds := gray.Bounds()
	if bounds.Dx() >= denoiseMinDimension && bounds.Dy() >= denoiseMinDimension {
		gray = medianDenoise(gray)
	}

	bw := threshold(gray, thresholdMidIntensity)

	var buf bytes.Buffer
	if err := png.Encode(&buf, bw); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// medianDenoise applies a 3x3 median filter over the single (grayscale)
// channel. Edge pixels are left untouched to avoid out-of-bounds sampling.
//
// No example in the retrieval pack exercises a third-party median filter
// (bild's blur package, which would be the natural ecosystem choice, is
// listed in image-tools-mcp's go.mod but never imported by any file in the
// pack) so this is a direct, dependency-free implementation of the
// well-defined algorithm rather than a stdlib stand-in for missing library
// support.
func medianDenoise(src *image.NRGBA) *image.NRGBA {
	bounds := src.Bounds()
	dst := image.NewNRGBA(bounds)
	copy(dst.Pix, src.Pix)

	var window [9]uint8
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			i := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					r, _, _, _ := src.At(x+dx, y+dy).RGBA()
					window[i] = uint8(r >> 8)
					i++
				}
			}
			median := medianOf9(window)
			dst.Set(x, y, color.Gray{Y: median})
		}
	}
	return dst
}

// medianOf9 returns the median of a fixed 9-element window via insertion
// sort, which is faster than a general sort for this size and keeps the
// filter allocation-free.
func medianOf9(w [9]uint8) uint8 {
	for i := 1; i < len(w); i++ {
		v := w[i]
		j := i - 1
		for j >= 0 && w[j] > v {
			w[j+1] = w[j]
			j--
		}
		w[j+1] = v
	}
	return w[4]
}

// threshold converts a grayscale image to pure black/white at the given
// intensity cutoff.
func threshold(src *image.NRGBA, cutoff uint8) *image.NRGBA {
	bounds := src.Bounds()
	dst := image.NewNRGBA(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, _, _, _ := src.At(x, y).RGBA()
			v := uint8(r >> 8)
			if v >= cutoff {
				dst.Set(x, y, color.Gray{Y: 255})
			} else {
				dst.Set(x, y, color.Gray{Y: 0})
			}
		}
	}
	return dst
}
