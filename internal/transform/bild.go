package transform

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/blend"
	"github.com/anthonynsimon/bild/convolution"
	"github.com/anthonynsimon/bild/effect"
	bildtransform "github.com/anthonynsimon/bild/transform"

	"prompt-image-editor/internal/ops"
)

// BildName is the registry name of the pure-Go backend.
const BildName = "bild"

func init() {
	Register(BildName, func() Library { return NewBild() })
}

// Bild implements Library on github.com/anthonynsimon/bild. It needs no cgo
// and is the backend used by tests.
type Bild struct{}

// NewBild creates the pure-Go backend.
func NewBild() *Bild { return &Bild{} }

// Name returns the backend name.
func (b *Bild) Name() string { return BildName }

// Apply runs kind on img and returns a new buffer.
func (b *Bild) Apply(img *image.RGBA, kind ops.Kind, p ops.Parameter) (*image.RGBA, error) {
	if err := checkInput(img); err != nil {
		return nil, err
	}
	img = packed(img)
	var out *image.RGBA
	switch kind {
	case ops.Blur:
		return b.GaussianBlur(img, ops.BlurKernel(p.Level))
	case ops.Brightness:
		out = linear(img, 1, ops.BrightnessBeta(p.Level))
	case ops.Contrast:
		out = linear(img, ops.ContrastAlpha(p.Level), 0)
	case ops.Sharpen:
		out = sharpen(img)
	case ops.Grayscale:
		out = grayscale(img)
	case ops.FlipHorizontal:
		out = bildtransform.FlipH(img)
	case ops.FlipVertical:
		out = bildtransform.FlipV(img)
	case ops.CannyEdge:
		out = canny(img, ops.CannyLow, ops.CannyHigh)
	case ops.SobelEdge:
		out = sobel(img)
	case ops.PencilSketch:
		out = pencilSketch(img)
	default:
		return nil, fmt.Errorf("%w: %s", ops.ErrUnsupportedOperation, kind)
	}
	return normalize(out), nil
}

// GaussianBlur blurs with an odd kernel of size ksize.
func (b *Bild) GaussianBlur(img *image.RGBA, ksize int) (*image.RGBA, error) {
	if err := checkInput(img); err != nil {
		return nil, err
	}
	if ksize < 1 || ksize%2 == 0 {
		return nil, fmt.Errorf("%w: kernel size %d must be odd and positive", ops.ErrInvalidParameter, ksize)
	}
	if ksize == 1 {
		return Clone(img), nil
	}
	return normalize(gaussian(packed(img), ksize)), nil
}

// gaussianKernel is the normalized 1-D kernel of odd size ksize, with the
// sigma OpenCV derives when none is given.
func gaussianKernel(ksize int) *convolution.Kernel {
	sigma := 0.3*(float64(ksize-1)*0.5-1) + 0.8
	k := convolution.NewKernel(ksize, 1)
	r := ksize / 2
	for i := range k.Matrix {
		x := float64(i - r)
		k.Matrix[i] = math.Exp(-x * x / (2 * sigma * sigma))
	}
	return k.Normalized().(*convolution.Kernel)
}

// gaussian blurs the colour channels with two separable passes. Alpha is
// carried over from img and the 0.5 bias rounds instead of truncating.
func gaussian(img *image.RGBA, ksize int) *image.RGBA {
	k := gaussianKernel(ksize)
	opts := &convolution.Options{Bias: 0.5, KeepAlpha: true}
	horizontal := convolution.Convolve(img, k, opts)
	return convolution.Convolve(horizontal, k.Transposed(), opts)
}

func normalize(img *image.RGBA) *image.RGBA {
	if img.Bounds().Min == (image.Point{}) {
		return img
	}
	return ToRGBA(img)
}

// packed returns img itself when its pixels start at the origin with no row
// padding, otherwise a packed copy.
func packed(img *image.RGBA) *image.RGBA {
	if img.Rect.Min == (image.Point{}) && img.Stride == 4*img.Rect.Dx() {
		return img
	}
	return ToRGBA(img)
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}

// linear computes alpha*c + beta per colour channel, saturating.
func linear(img *image.RGBA, alpha, beta float64) *image.RGBA {
	return adjust.Apply(img, func(c color.RGBA) color.RGBA {
		return color.RGBA{
			R: clamp8(alpha*float64(c.R) + beta),
			G: clamp8(alpha*float64(c.G) + beta),
			B: clamp8(alpha*float64(c.B) + beta),
			A: c.A,
		}
	})
}

func luma(c color.RGBA) uint8 {
	return clamp8(0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B))
}

func grayscale(img image.Image) *image.RGBA {
	return adjust.Apply(img, func(c color.RGBA) color.RGBA {
		y := luma(c)
		return color.RGBA{R: y, G: y, B: y, A: c.A}
	})
}

// sharpen convolves the colour channels with ops.SharpenKernel.
func sharpen(img *image.RGBA) *image.RGBA {
	k := convolution.NewKernel(3, 3)
	copy(k.Matrix, ops.SharpenKernel[:])
	return convolution.Convolve(img, k, &convolution.Options{KeepAlpha: true})
}

func sobelKernels() (dx, dy *convolution.Kernel) {
	dx = convolution.NewKernel(3, 3)
	dy = convolution.NewKernel(3, 3)
	copy(dx.Matrix, []float64{-1, 0, 1, -2, 0, 2, -1, 0, 1})
	copy(dy.Matrix, []float64{-1, -2, -1, 0, 0, 0, 1, 2, 1})
	return dx, dy
}

func negate(k *convolution.Kernel) *convolution.Kernel {
	n := convolution.NewKernel(k.Width, k.Height)
	for i, v := range k.Matrix {
		n.Matrix[i] = -v
	}
	return n
}

// absResponse is |k * img| saturated to 255. Convolve clamps negatives to
// zero, so the positive and negative halves are taken separately.
func absResponse(gray *image.RGBA, k *convolution.Kernel) *image.RGBA {
	opts := &convolution.Options{KeepAlpha: true}
	pos := convolution.Convolve(gray, k, opts)
	neg := convolution.Convolve(gray, negate(k), opts)
	return blend.Add(pos, neg)
}

// sobel is 0.5|dx| + 0.5|dy| on the luma channel.
func sobel(img *image.RGBA) *image.RGBA {
	gray := grayscale(img)
	kx, ky := sobelKernels()
	ax := absResponse(gray, kx)
	ay := absResponse(gray, ky)

	b := gray.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for i := 0; i < len(out.Pix); i += 4 {
		v := clamp8(0.5*float64(ax.Pix[i]) + 0.5*float64(ay.Pix[i]))
		out.Pix[i], out.Pix[i+1], out.Pix[i+2] = v, v, v
		out.Pix[i+3] = img.Pix[i+3]
	}
	return out
}

// pencilSketch dodges the luma with its blurred inverse.
func pencilSketch(img *image.RGBA) *image.RGBA {
	gray := grayscale(img)
	inverted := effect.Invert(gray)
	blurred := gaussian(inverted, ops.PencilBlurKernel)
	sketch := blend.ColorDodge(gray, blurred)

	out := normalize(sketch)
	for i := 3; i < len(out.Pix); i += 4 {
		out.Pix[i] = img.Pix[i]
	}
	return out
}

// canny is a single-channel Canny detector: 3x3 Sobel gradients with the L1
// norm, non-maximum suppression and hysteresis between low and high.
func canny(img *image.RGBA, low, high float64) *image.RGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	gray := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*img.Stride + x*4
			gray[y*w+x] = float64(luma(color.RGBA{R: img.Pix[i], G: img.Pix[i+1], B: img.Pix[i+2]}))
		}
	}

	at := func(x, y int) float64 {
		x = max(0, min(w-1, x))
		y = max(0, min(h-1, y))
		return gray[y*w+x]
	}

	gx := make([]float64, w*h)
	gy := make([]float64, w*h)
	mag := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1)
			dy := at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1) -
				at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1)
			gx[y*w+x], gy[y*w+x] = dx, dy
			mag[y*w+x] = math.Abs(dx) + math.Abs(dy)
		}
	}

	magAt := func(x, y int) float64 {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		return mag[y*w+x]
	}

	// 0 none, 1 weak, 2 strong
	state := make([]uint8, w*h)
	var stack []int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			m := mag[i]
			if m <= low {
				continue
			}
			angle := math.Atan2(gy[i], gx[i]) * 180 / math.Pi
			if angle < 0 {
				angle += 180
			}
			var n1, n2 float64
			switch {
			case angle < 22.5 || angle >= 157.5:
				n1, n2 = magAt(x-1, y), magAt(x+1, y)
			case angle < 67.5:
				n1, n2 = magAt(x-1, y-1), magAt(x+1, y+1)
			case angle < 112.5:
				n1, n2 = magAt(x, y-1), magAt(x, y+1)
			default:
				n1, n2 = magAt(x+1, y-1), magAt(x-1, y+1)
			}
			if m < n1 || m < n2 {
				continue
			}
			if m > high {
				state[i] = 2
				stack = append(stack, i)
			} else {
				state[i] = 1
			}
		}
	}

	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		x, y := i%w, i/w
		for ny := y - 1; ny <= y+1; ny++ {
			for nx := x - 1; nx <= x+1; nx++ {
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if state[j] == 1 {
					state[j] = 2
					stack = append(stack, j)
				}
			}
		}
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			o := y*out.Stride + x*4
			var v uint8
			if state[y*w+x] == 2 {
				v = 255
			}
			out.Pix[o], out.Pix[o+1], out.Pix[o+2] = v, v, v
			out.Pix[o+3] = img.Pix[y*img.Stride+x*4+3]
		}
	}
	return out
}
