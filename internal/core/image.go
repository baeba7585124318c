// Image validation and conversion at the session boundary
package core

import (
	"fmt"
	"image"

	"prompt-image-editor/internal/transform"
)

// MaxDimension bounds both sides of an accepted image.
const MaxDimension = 16384

// ImageMetadata describes the pristine source
type ImageMetadata struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format,omitempty"`
}

// ValidateImage checks an image for basic requirements
func ValidateImage(img image.Image) error {
	if img == nil {
		return fmt.Errorf("image is empty")
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("invalid dimensions: %dx%d", b.Dx(), b.Dy())
	}

	if b.Dx() > MaxDimension || b.Dy() > MaxDimension {
		return fmt.Errorf("image too large: %dx%d (max: %d)", b.Dx(), b.Dy(), MaxDimension)
	}

	return nil
}

// prepareSource validates img and returns an origin-anchored RGBA copy that
// the session owns exclusively.
func prepareSource(img image.Image) (*image.RGBA, error) {
	if err := ValidateImage(img); err != nil {
		return nil, err
	}
	if rgba, ok := img.(*image.RGBA); ok {
		return transform.Clone(rgba), nil
	}
	return transform.ToRGBA(img), nil
}
