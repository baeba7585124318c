package ops

// Intensity tables shared by every transform backend.

// BlurKernel returns the odd Gaussian kernel size for a level.
func BlurKernel(l Level) int {
	switch l {
	case Low:
		return 3
	case High:
		return 15
	}
	return 7
}

// BrightnessBeta returns the additive offset for a level.
func BrightnessBeta(l Level) float64 {
	switch l {
	case Low:
		return 30
	case High:
		return 90
	}
	return 60
}

// ContrastAlpha returns the multiplicative gain for a level.
func ContrastAlpha(l Level) float64 {
	switch l {
	case Low:
		return 1.3
	case High:
		return 2.0
	}
	return 1.6
}

// Fixed transform constants.
const (
	CannyLow         = 50
	CannyHigh        = 150
	PencilBlurKernel = 21
	FreehandKernel   = 21
	BrushRadius      = 15
)

// SharpenKernel is the 3x3 sharpening kernel, row-major.
var SharpenKernel = [9]float64{
	0, -1, 0,
	-1, 5, -1,
	0, -1, 0,
}
