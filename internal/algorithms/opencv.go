package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"prompt-image-editor/internal/ops"
	"prompt-image-editor/internal/transform"
)

// Name is the registry name of the OpenCV backend.
const Name = "opencv"

func init() {
	transform.Register(Name, func() transform.Library { return NewOpenCV() })
}

// OpenCV implements transform.Library with gocv. Images cross the boundary
// as BGRA Mats and every Mat is closed before returning.
type OpenCV struct{}

func NewOpenCV() *OpenCV {
	return &OpenCV{}
}

func (o *OpenCV) Name() string {
	return Name
}

func (o *OpenCV) Apply(img *image.RGBA, kind ops.Kind, p ops.Parameter) (*image.RGBA, error) {
	if !IsValidAlgorithm(kind) {
		return nil, fmt.Errorf("%w: %s", ops.ErrUnsupportedOperation, kind)
	}
	return o.run(img, func(input gocv.Mat) (gocv.Mat, error) {
		return Apply(kind, input, p)
	})
}

func (o *OpenCV) GaussianBlur(img *image.RGBA, ksize int) (*image.RGBA, error) {
	return o.run(img, func(input gocv.Mat) (gocv.Mat, error) {
		return GaussianBlur(input, ksize)
	})
}

func (o *OpenCV) run(img *image.RGBA, fn func(gocv.Mat) (gocv.Mat, error)) (*image.RGBA, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("input image is empty")
	}

	input, err := gocv.ImageToMatRGBA(img)
	if err != nil {
		return nil, fmt.Errorf("convert to mat: %w", err)
	}
	defer input.Close()

	output, err := fn(input)
	defer output.Close()
	if err != nil {
		return nil, err
	}

	out, err := matToRGBA(output)
	if err != nil {
		return nil, err
	}
	keepAlpha(out, img)
	return out, nil
}

// keepAlpha copies the alpha of img into out. The colour conversions and the
// linear adjustments treat alpha as a fourth channel.
func keepAlpha(out, img *image.RGBA) {
	b := img.Bounds()
	if out.Bounds().Size() != b.Size() {
		return
	}
	for y := 0; y < b.Dy(); y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := out.Pix[out.PixOffset(out.Rect.Min.X, out.Rect.Min.Y+y):]
		for i := 3; i < 4*b.Dx(); i += 4 {
			dst[i] = src[i]
		}
	}
}

func matToRGBA(mat gocv.Mat) (*image.RGBA, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("algorithm produced an empty mat")
	}
	converted, err := mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("convert from mat: %w", err)
	}
	if rgba, ok := converted.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba, nil
	}
	return transform.ToRGBA(converted), nil
}
