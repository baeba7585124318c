// OpenCV algorithm registry keyed by operation kind
package algorithms

import (
	"fmt"

	"gocv.io/x/gocv"

	"prompt-image-editor/internal/ops"
)

// Algorithm transforms a BGRA Mat. The input is never modified and the
// returned Mat is owned by the caller.
type Algorithm interface {
	Apply(input gocv.Mat, p ops.Parameter) (gocv.Mat, error)
	GetName() string
	GetDescription() string
}

var algorithms = make(map[ops.Kind]Algorithm)

func Register(kind ops.Kind, algorithm Algorithm) {
	algorithms[kind] = algorithm
}

func Get(kind ops.Kind) (Algorithm, bool) {
	algorithm, exists := algorithms[kind]
	return algorithm, exists
}

func Apply(kind ops.Kind, input gocv.Mat, p ops.Parameter) (gocv.Mat, error) {
	algorithm, exists := algorithms[kind]
	if !exists {
		return gocv.NewMat(), fmt.Errorf("%w: no OpenCV algorithm for %s", ops.ErrUnsupportedOperation, kind)
	}

	return algorithm.Apply(input, p)
}

func IsValidAlgorithm(kind ops.Kind) bool {
	_, exists := algorithms[kind]
	return exists
}

func GetAlgorithmsByCategory() map[string][]ops.Kind {
	return map[string][]ops.Kind{
		"Adjustments": {
			ops.Brightness,
			ops.Contrast,
			ops.Grayscale,
		},
		"Filters": {
			ops.Blur,
			ops.Sharpen,
		},
		"Geometry": {
			ops.FlipHorizontal,
			ops.FlipVertical,
		},
		"Edges": {
			ops.CannyEdge,
			ops.SobelEdge,
			ops.PencilSketch,
		},
	}
}

func init() {
	Register(ops.Blur, NewGaussianFilter())
	Register(ops.Sharpen, NewSharpenFilter())
	Register(ops.Brightness, NewBrightness())
	Register(ops.Contrast, NewContrast())
	Register(ops.Grayscale, NewGrayscale())
	Register(ops.FlipHorizontal, NewFlip(1))
	Register(ops.FlipVertical, NewFlip(0))

	Register(ops.CannyEdge, NewCanny())
	Register(ops.SobelEdge, NewSobel())
	Register(ops.PencilSketch, NewPencilSketch())
}
