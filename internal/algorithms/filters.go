// Filters and colour adjustments
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"prompt-image-editor/internal/ops"
)

// GaussianFilter implements the intensity-driven Gaussian blur
type GaussianFilter struct{}

// NewGaussianFilter creates a new Gaussian filter algorithm
func NewGaussianFilter() *GaussianFilter {
	return &GaussianFilter{}
}

func (g *GaussianFilter) Apply(input gocv.Mat, p ops.Parameter) (gocv.Mat, error) {
	return GaussianBlur(input, ops.BlurKernel(p.Level))
}

func (g *GaussianFilter) GetName() string {
	return "Gaussian Filter"
}

func (g *GaussianFilter) GetDescription() string {
	return "Gaussian blur with a 3, 7 or 15 pixel kernel"
}

// GaussianBlur blurs with a square kernel; sigma is derived from the size.
func GaussianBlur(input gocv.Mat, kernelSize int) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}
	if kernelSize < 1 || kernelSize%2 == 0 {
		return gocv.NewMat(), fmt.Errorf("%w: kernel size %d must be odd and positive", ops.ErrInvalidParameter, kernelSize)
	}

	output := gocv.NewMat()
	gocv.GaussianBlur(input, &output, image.Pt(kernelSize, kernelSize), 0, 0, gocv.BorderDefault)

	return output, nil
}

// SharpenFilter convolves with the 3x3 sharpening kernel
type SharpenFilter struct{}

func NewSharpenFilter() *SharpenFilter {
	return &SharpenFilter{}
}

func (s *SharpenFilter) Apply(input gocv.Mat, _ ops.Parameter) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	kernel := gocv.NewMatWithSize(3, 3, gocv.MatTypeCV32F)
	defer kernel.Close()
	for i, v := range ops.SharpenKernel {
		kernel.SetFloatAt(i/3, i%3, float32(v))
	}

	output := gocv.NewMat()
	gocv.Filter2D(input, &output, -1, kernel, image.Pt(-1, -1), 0, gocv.BorderDefault)

	return output, nil
}

func (s *SharpenFilter) GetName() string {
	return "Sharpen"
}

func (s *SharpenFilter) GetDescription() string {
	return "3x3 Laplacian sharpening"
}

// linearAdjust is dst = alpha*src + beta with saturation.
func linearAdjust(input gocv.Mat, alpha, beta float32) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	output := gocv.NewMat()
	input.ConvertToWithParams(&output, input.Type(), alpha, beta)

	return output, nil
}

// Brightness adds a constant offset
type Brightness struct{}

func NewBrightness() *Brightness {
	return &Brightness{}
}

func (b *Brightness) Apply(input gocv.Mat, p ops.Parameter) (gocv.Mat, error) {
	return linearAdjust(input, 1, float32(ops.BrightnessBeta(p.Level)))
}

func (b *Brightness) GetName() string {
	return "Brightness"
}

func (b *Brightness) GetDescription() string {
	return "Additive brightness offset of +30, +60 or +90"
}

// Contrast scales every channel
type Contrast struct{}

func NewContrast() *Contrast {
	return &Contrast{}
}

func (c *Contrast) Apply(input gocv.Mat, p ops.Parameter) (gocv.Mat, error) {
	return linearAdjust(input, float32(ops.ContrastAlpha(p.Level)), 0)
}

func (c *Contrast) GetName() string {
	return "Contrast"
}

func (c *Contrast) GetDescription() string {
	return "Contrast gain of 1.3, 1.6 or 2.0"
}

// Grayscale replaces colour with luma
type Grayscale struct{}

func NewGrayscale() *Grayscale {
	return &Grayscale{}
}

func (g *Grayscale) Apply(input gocv.Mat, _ ops.Parameter) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(input, &gray, gocv.ColorBGRAToGray)

	return grayToBGRA(gray), nil
}

func (g *Grayscale) GetName() string {
	return "Grayscale"
}

func (g *Grayscale) GetDescription() string {
	return "Luma replicated to all colour channels"
}

// Flip mirrors around one axis. Code 1 flips columns, 0 flips rows.
type Flip struct {
	code int
}

func NewFlip(code int) *Flip {
	return &Flip{code: code}
}

func (f *Flip) Apply(input gocv.Mat, _ ops.Parameter) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	output := gocv.NewMat()
	gocv.Flip(input, &output, f.code)

	return output, nil
}

func (f *Flip) GetName() string {
	if f.code == 0 {
		return "Flip Vertical"
	}
	return "Flip Horizontal"
}

func (f *Flip) GetDescription() string {
	return "Mirror the image"
}

func grayToBGRA(gray gocv.Mat) gocv.Mat {
	output := gocv.NewMat()
	gocv.CvtColor(gray, &output, gocv.ColorGrayToBGRA)
	return output
}
