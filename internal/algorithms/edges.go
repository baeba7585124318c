// Edge detection and sketch effects
package algorithms

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"prompt-image-editor/internal/ops"
)

// Canny runs the Canny detector on luma with fixed thresholds
type Canny struct {
	low, high float32
}

func NewCanny() *Canny {
	return &Canny{low: ops.CannyLow, high: ops.CannyHigh}
}

func (c *Canny) Apply(input gocv.Mat, _ ops.Parameter) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(input, &gray, gocv.ColorBGRAToGray)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(gray, &edges, c.low, c.high)

	return grayToBGRA(edges), nil
}

func (c *Canny) GetName() string {
	return "Canny Edge Detection"
}

func (c *Canny) GetDescription() string {
	return "Canny edges with thresholds 50 and 150"
}

// Sobel blends the absolute x and y derivatives equally
type Sobel struct{}

func NewSobel() *Sobel {
	return &Sobel{}
}

func (s *Sobel) Apply(input gocv.Mat, _ ops.Parameter) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(input, &gray, gocv.ColorBGRAToGray)

	gradX := gocv.NewMat()
	defer gradX.Close()
	gradY := gocv.NewMat()
	defer gradY.Close()
	gocv.Sobel(gray, &gradX, gocv.MatTypeCV16S, 1, 0, 3, 1, 0, gocv.BorderDefault)
	gocv.Sobel(gray, &gradY, gocv.MatTypeCV16S, 0, 1, 3, 1, 0, gocv.BorderDefault)

	absX := gocv.NewMat()
	defer absX.Close()
	absY := gocv.NewMat()
	defer absY.Close()
	gocv.ConvertScaleAbs(gradX, &absX, 1, 0)
	gocv.ConvertScaleAbs(gradY, &absY, 1, 0)

	combined := gocv.NewMat()
	defer combined.Close()
	gocv.AddWeighted(absX, 0.5, absY, 0.5, 0, &combined)

	return grayToBGRA(combined), nil
}

func (s *Sobel) GetName() string {
	return "Sobel Edge Detection"
}

func (s *Sobel) GetDescription() string {
	return "0.5|dx| + 0.5|dy| on luma"
}

// PencilSketch divides luma by the inverse of its blurred inverse
type PencilSketch struct{}

func NewPencilSketch() *PencilSketch {
	return &PencilSketch{}
}

func (p *PencilSketch) Apply(input gocv.Mat, _ ops.Parameter) (gocv.Mat, error) {
	if input.Empty() {
		return gocv.NewMat(), fmt.Errorf("input image is empty")
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(input, &gray, gocv.ColorBGRAToGray)

	inverted := gocv.NewMat()
	defer inverted.Close()
	gocv.BitwiseNot(gray, &inverted)

	blurred := gocv.NewMat()
	defer blurred.Close()
	k := ops.PencilBlurKernel
	gocv.GaussianBlur(inverted, &blurred, image.Pt(k, k), 0, 0, gocv.BorderDefault)

	denominator := gocv.NewMat()
	defer denominator.Close()
	gocv.BitwiseNot(blurred, &denominator)

	sketch := gocv.NewMat()
	defer sketch.Close()
	gocv.DivideWithParams(gray, denominator, &sketch, 256, -1)

	return grayToBGRA(sketch), nil
}

func (p *PencilSketch) GetName() string {
	return "Pencil Sketch"
}

func (p *PencilSketch) GetDescription() string {
	return "Colour dodge of luma against its blurred inverse"
}
