// Concrete implementations of quality metrics on 8-bit luma
package metrics

import (
	"fmt"
	"image"
	"math"

	"github.com/anthonynsimon/bild/convolution"
	"github.com/anthonynsimon/bild/effect"
)

// plane is a luma channel in row-major order, alongside the grayscale
// image it was read from.
type plane struct {
	w, h int
	pix  []float64
	gray *image.RGBA
}

// lumaPlane converts img with the BT.601 weights, rounding to 8 bits like
// an OpenCV grayscale conversion.
func lumaPlane(img image.Image) plane {
	gray := effect.GrayscaleWithWeights(img, 0.299, 0.587, 0.114)
	b := gray.Bounds()
	p := plane{w: b.Dx(), h: b.Dy(), pix: make([]float64, b.Dx()*b.Dy()), gray: gray}
	for i := range p.pix {
		p.pix[i] = float64(gray.Pix[i*4])
	}
	return p
}

func comparablePlanes(original, processed image.Image) (plane, plane, error) {
	if original == nil || processed == nil {
		return plane{}, plane{}, fmt.Errorf("empty images")
	}
	ob, pb := original.Bounds(), processed.Bounds()
	if ob.Empty() || pb.Empty() {
		return plane{}, plane{}, fmt.Errorf("empty images")
	}
	if ob.Dx() != pb.Dx() || ob.Dy() != pb.Dy() {
		return plane{}, plane{}, fmt.Errorf("image dimensions mismatch")
	}
	return lumaPlane(original), lumaPlane(processed), nil
}

func meanSquaredError(a, b plane) float64 {
	sum := 0.0
	for i := range a.pix {
		d := a.pix[i] - b.pix[i]
		sum += d * d
	}
	return sum / float64(len(a.pix))
}

// PSNR implements Peak Signal-to-Noise Ratio metric
type PSNR struct{}

func NewPSNR() *PSNR {
	return &PSNR{}
}

// Calculate returns +Inf for identical images.
func (p *PSNR) Calculate(original, processed image.Image) (float64, error) {
	a, b, err := comparablePlanes(original, processed)
	if err != nil {
		return 0, err
	}

	mse := meanSquaredError(a, b)
	if mse == 0 {
		return math.Inf(1), nil
	}

	return 20 * math.Log10(255.0/math.Sqrt(mse)), nil
}

func (p *PSNR) GetName() string {
	return "PSNR"
}

func (p *PSNR) GetDescription() string {
	return "Peak Signal-to-Noise Ratio - how far the step moved the pixels"
}

func (p *PSNR) GetRange() (float64, float64) {
	return 0, 100
}

func (p *PSNR) IsHigherBetter() bool {
	return true
}

// MSE implements Mean Squared Error metric
type MSE struct{}

func NewMSE() *MSE {
	return &MSE{}
}

func (m *MSE) Calculate(original, processed image.Image) (float64, error) {
	a, b, err := comparablePlanes(original, processed)
	if err != nil {
		return 0, err
	}
	return meanSquaredError(a, b), nil
}

func (m *MSE) GetName() string {
	return "MSE"
}

func (m *MSE) GetDescription() string {
	return "Mean Squared Error of luma"
}

func (m *MSE) GetRange() (float64, float64) {
	return 0, 65025
}

func (m *MSE) IsHigherBetter() bool {
	return false
}

// SSIM implements Structural Similarity Index over 8x8 windows
type SSIM struct {
	window int
}

func NewSSIM() *SSIM {
	return &SSIM{window: 8}
}

func (s *SSIM) Calculate(original, processed image.Image) (float64, error) {
	a, b, err := comparablePlanes(original, processed)
	if err != nil {
		return 0, err
	}

	const (
		C1 = 6.5025  // (0.01 * 255)^2
		C2 = 58.5225 // (0.03 * 255)^2
	)

	total, windows := 0.0, 0
	for y0 := 0; y0 < a.h; y0 += s.window {
		for x0 := 0; x0 < a.w; x0 += s.window {
			y1, x1 := min(a.h, y0+s.window), min(a.w, x0+s.window)
			n := float64((y1 - y0) * (x1 - x0))

			var sumA, sumB float64
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					sumA += a.pix[y*a.w+x]
					sumB += b.pix[y*b.w+x]
				}
			}
			muA, muB := sumA/n, sumB/n

			var varA, varB, cov float64
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					da := a.pix[y*a.w+x] - muA
					db := b.pix[y*b.w+x] - muB
					varA += da * da
					varB += db * db
					cov += da * db
				}
			}
			varA /= n
			varB /= n
			cov /= n

			total += ((2*muA*muB + C1) * (2*cov + C2)) /
				((muA*muA + muB*muB + C1) * (varA + varB + C2))
			windows++
		}
	}

	return total / float64(windows), nil
}

func (s *SSIM) GetName() string {
	return "SSIM"
}

func (s *SSIM) GetDescription() string {
	return "Structural Similarity Index - perceptual similarity to the previous image"
}

func (s *SSIM) GetRange() (float64, float64) {
	return 0, 1
}

func (s *SSIM) IsHigherBetter() bool {
	return true
}

// ContrastRatio compares luma standard deviation after/before
type ContrastRatio struct{}

func NewContrastRatio() *ContrastRatio {
	return &ContrastRatio{}
}

func (c *ContrastRatio) Calculate(original, processed image.Image) (float64, error) {
	a, b, err := comparablePlanes(original, processed)
	if err != nil {
		return 0, err
	}

	before := stdDev(a.pix)
	if before == 0 {
		return 0, fmt.Errorf("original image has no contrast")
	}
	return stdDev(b.pix) / before, nil
}

func stdDev(values []float64) float64 {
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	return math.Sqrt(variance / float64(len(values)))
}

func (c *ContrastRatio) GetName() string {
	return "Contrast Ratio"
}

func (c *ContrastRatio) GetDescription() string {
	return "Ratio of luma standard deviation after and before the step"
}

func (c *ContrastRatio) GetRange() (float64, float64) {
	return 0, 2
}

func (c *ContrastRatio) IsHigherBetter() bool {
	return true
}

// Sharpness compares Laplacian variance after/before
type Sharpness struct{}

func NewSharpness() *Sharpness {
	return &Sharpness{}
}

func (s *Sharpness) Calculate(original, processed image.Image) (float64, error) {
	a, b, err := comparablePlanes(original, processed)
	if err != nil {
		return 0, err
	}

	before := laplacianVariance(a)
	if before == 0 {
		return 0, fmt.Errorf("original image has no edges")
	}
	return laplacianVariance(b) / before, nil
}

// laplacianScale shrinks the 4-neighbour Laplacian so its magnitude fits
// in a byte.
const laplacianScale = 8

func laplacianKernels() (pos, neg *convolution.Kernel) {
	pos = convolution.NewKernel(3, 3)
	neg = convolution.NewKernel(3, 3)
	for i, v := range []float64{0, 1, 0, 1, -4, 1, 0, 1, 0} {
		pos.Matrix[i] = v / laplacianScale
		neg.Matrix[i] = -v / laplacianScale
	}
	return pos, neg
}

// laplacianVariance is the variance of the Laplacian of p. Convolve clamps
// at zero, so the signed response is rebuilt from both halves.
func laplacianVariance(p plane) float64 {
	kp, kn := laplacianKernels()
	opts := &convolution.Options{Bias: 0.5, KeepAlpha: true}
	up := convolution.Convolve(p.gray, kp, opts)
	down := convolution.Convolve(p.gray, kn, opts)

	response := make([]float64, len(p.pix))
	for i := range response {
		response[i] = laplacianScale * (float64(up.Pix[i*4]) - float64(down.Pix[i*4]))
	}
	sd := stdDev(response)
	return sd * sd
}

func (s *Sharpness) GetName() string {
	return "Sharpness"
}

func (s *Sharpness) GetDescription() string {
	return "Ratio of Laplacian variance after and before the step"
}

func (s *Sharpness) GetRange() (float64, float64) {
	return 0, 2
}

func (s *Sharpness) IsHigherBetter() bool {
	return true
}
