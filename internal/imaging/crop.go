package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// CropRegion extracts r from img and optionally rescales it for viewing.
//
// Bubble rectangles are only a few pixels tall on a typical scan, so the
// region preview tool enlarges them with scale > 1. A non-positive scale
// keeps the native size.
func CropRegion(img image.Image, r image.Rectangle, scale float64) (*EncodedImage, error) {
	bounds := img.Bounds()
	r = r.Add(bounds.Min)

	if !r.In(bounds) {
		return nil, fmt.Errorf("crop region %v outside image bounds %v", r, bounds)
	}
	if r.Empty() {
		return nil, fmt.Errorf("invalid crop region %v: empty", r)
	}

	cropped := imaging.Crop(img, r)

	if scale != 1.0 && scale > 0 {
		newWidth := int(float64(cropped.Bounds().Dx()) * scale)
		newHeight := int(float64(cropped.Bounds().Dy()) * scale)
		if newWidth > 0 && newHeight > 0 {
			cropped = imaging.Resize(cropped, newWidth, newHeight, imaging.NearestNeighbor)
		}
	}

	return EncodePNG(cropped)
}
