package algorithms

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"gocv.io/x/gocv"

	"prompt-image-editor/internal/ops"
	"prompt-image-editor/internal/transform"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 30), G: uint8(y * 40), B: 100, A: 255})
		}
	}
	return img
}

var errFailing = errors.New("algorithm failed")

// failingAlgorithm allocates an output Mat and then reports an error.
type failingAlgorithm struct{}

func (failingAlgorithm) Apply(input gocv.Mat, _ ops.Parameter) (gocv.Mat, error) {
	output := gocv.NewMat()
	input.CopyTo(&output)
	return output, errFailing
}

func (failingAlgorithm) GetName() string        { return "Failing" }
func (failingAlgorithm) GetDescription() string { return "Always fails" }

// withAlgorithm registers algorithm for kind until the test ends.
func withAlgorithm(t *testing.T, kind ops.Kind, algorithm Algorithm) {
	t.Helper()
	prev, ok := Get(kind)
	Register(kind, algorithm)
	t.Cleanup(func() {
		if ok {
			Register(kind, prev)
		} else {
			delete(algorithms, kind)
		}
	})
}

func apply(t *testing.T, img *image.RGBA, kind ops.Kind, level ops.Level) *image.RGBA {
	t.Helper()
	out, err := NewOpenCV().Apply(img, kind, ops.ParamFor(kind, level))
	if err != nil {
		t.Fatalf("Apply(%v): %v", kind, err)
	}
	if out.Bounds() != img.Bounds() {
		t.Fatalf("Apply(%v) bounds = %v, want %v", kind, out.Bounds(), img.Bounds())
	}
	return out
}

func TestRegistered(t *testing.T) {
	lib, err := transform.New(Name)
	if err != nil {
		t.Fatal(err)
	}
	if lib.Name() != Name {
		t.Errorf("Name() = %q", lib.Name())
	}
	for _, k := range ops.CanonicalOrder {
		if !IsValidAlgorithm(k) {
			t.Errorf("%v has no OpenCV algorithm", k)
		}
	}
}

func TestFlipsAreInvolutions(t *testing.T) {
	src := gradient(7, 5)
	for _, k := range []ops.Kind{ops.FlipHorizontal, ops.FlipVertical} {
		t.Run(k.String(), func(t *testing.T) {
			once := apply(t, src, k, ops.Low)
			if once.RGBAAt(0, 0) == src.RGBAAt(0, 0) {
				t.Error("single flip left the corner unchanged")
			}
			twice := apply(t, once, k, ops.Low)
			for i := range src.Pix {
				if twice.Pix[i] != src.Pix[i] {
					t.Fatalf("flip twice differs at byte %d: %d != %d", i, twice.Pix[i], src.Pix[i])
				}
			}
		})
	}
	h := apply(t, src, ops.FlipHorizontal, ops.Low)
	if h.RGBAAt(0, 2) != src.RGBAAt(6, 2) {
		t.Errorf("horizontal flip: (0,2) = %v, want %v", h.RGBAAt(0, 2), src.RGBAAt(6, 2))
	}
	v := apply(t, src, ops.FlipVertical, ops.Low)
	if v.RGBAAt(3, 0) != src.RGBAAt(3, 4) {
		t.Errorf("vertical flip: (3,0) = %v, want %v", v.RGBAAt(3, 0), src.RGBAAt(3, 4))
	}
}

func TestBrightnessSaturates(t *testing.T) {
	src := solid(4, 2, color.RGBA{R: 100, G: 100, B: 100, A: 255})
	src.SetRGBA(0, 0, color.RGBA{R: 200, G: 180, B: 10, A: 255})
	out := apply(t, src, ops.Brightness, ops.High)

	if got, want := out.RGBAAt(0, 0), (color.RGBA{R: 255, G: 255, B: 100, A: 255}); got != want {
		t.Errorf("bright pixel = %v, want %v", got, want)
	}
	if got, want := out.RGBAAt(2, 1), (color.RGBA{R: 190, G: 190, B: 190, A: 255}); got != want {
		t.Errorf("mid pixel = %v, want %v", got, want)
	}
}

func TestContrastGain(t *testing.T) {
	src := solid(2, 2, color.RGBA{R: 100, G: 50, B: 150, A: 255})
	tests := []struct {
		level ops.Level
		want  color.RGBA
	}{
		{ops.Low, color.RGBA{R: 130, G: 65, B: 195, A: 255}},
		{ops.High, color.RGBA{R: 200, G: 100, B: 255, A: 255}},
	}
	for _, tt := range tests {
		if got := apply(t, src, ops.Contrast, tt.level).RGBAAt(1, 1); got != tt.want {
			t.Errorf("contrast %v = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestGrayscaleReplicatesLuma(t *testing.T) {
	src := solid(3, 3, color.RGBA{R: 200, G: 100, B: 50, A: 255})
	got := apply(t, src, ops.Grayscale, ops.Low).RGBAAt(1, 1)
	if got.R != got.G || got.G != got.B {
		t.Fatalf("gray pixel %v has unequal channels", got)
	}
	// 0.299*200 + 0.587*100 + 0.114*50
	if got.R < 123 || got.R > 125 {
		t.Errorf("luma = %d, want about 124", got.R)
	}
}

func TestKeepsSourceAlpha(t *testing.T) {
	src := solid(4, 4, color.RGBA{R: 120, G: 60, B: 30, A: 255})
	src.SetRGBA(1, 2, color.RGBA{R: 40, G: 40, B: 40, A: 90})
	for _, k := range []ops.Kind{ops.Brightness, ops.Contrast, ops.Grayscale, ops.SobelEdge} {
		out := apply(t, src, k, ops.High)
		if a := out.RGBAAt(1, 2).A; a != 90 {
			t.Errorf("%v: alpha = %d, want 90", k, a)
		}
		if a := out.RGBAAt(3, 3).A; a != 255 {
			t.Errorf("%v: opaque alpha = %d", k, a)
		}
	}
}

func TestCannyFindsStepEdge(t *testing.T) {
	src := solid(20, 20, color.RGBA{A: 255})
	for y := 0; y < 20; y++ {
		for x := 10; x < 20; x++ {
			src.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	out := apply(t, src, ops.CannyEdge, ops.Low)

	edges := 0
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			c := out.RGBAAt(x, y)
			if c.R != c.G || c.G != c.B || (c.R != 0 && c.R != 255) {
				t.Fatalf("pixel (%d,%d) = %v, want black or white", x, y, c)
			}
			if c.R == 0 {
				continue
			}
			if x < 8 || x > 11 {
				t.Errorf("edge at (%d,%d) far from the step", x, y)
			}
			edges++
		}
	}
	if edges < 15 {
		t.Errorf("found %d edge pixels along a 20 pixel step", edges)
	}
}

func TestApplyRejectsUnknownKinds(t *testing.T) {
	src := gradient(4, 4)
	for _, k := range []ops.Kind{ops.FreehandBlur, ops.Kind(99)} {
		if _, err := NewOpenCV().Apply(src, k, ops.Parameter{}); !errors.Is(err, ops.ErrUnsupportedOperation) {
			t.Errorf("Apply(%v) error = %v", k, err)
		}
	}
	if _, err := NewOpenCV().Apply(nil, ops.Blur, ops.Parameter{}); err == nil {
		t.Error("Apply(nil) succeeded")
	}
}

func TestGaussianBlurKernelValidation(t *testing.T) {
	src := gradient(8, 8)
	for _, k := range []int{0, 4, -3} {
		if _, err := NewOpenCV().GaussianBlur(src, k); !errors.Is(err, ops.ErrInvalidParameter) {
			t.Errorf("GaussianBlur(%d) error = %v", k, err)
		}
	}
	solidSrc := solid(9, 9, color.RGBA{R: 80, G: 90, B: 100, A: 255})
	out, err := NewOpenCV().GaussianBlur(solidSrc, 21)
	if err != nil {
		t.Fatal(err)
	}
	if got := out.RGBAAt(4, 4); got != solidSrc.RGBAAt(4, 4) {
		t.Errorf("blurred solid = %v, want %v", got, solidSrc.RGBAAt(4, 4))
	}
}

func TestFailingAlgorithmReturnsError(t *testing.T) {
	withAlgorithm(t, ops.Sharpen, failingAlgorithm{})
	if _, err := NewOpenCV().Apply(gradient(4, 4), ops.Sharpen, ops.Parameter{}); !errors.Is(err, errFailing) {
		t.Errorf("Apply error = %v, want %v", err, errFailing)
	}
}

func TestDescriptions(t *testing.T) {
	for _, kinds := range GetAlgorithmsByCategory() {
		for _, k := range kinds {
			a, ok := Get(k)
			if !ok {
				t.Errorf("%v listed but not registered", k)
				continue
			}
			if a.GetName() == "" || a.GetDescription() == "" {
				t.Errorf("%v: name %q, description %q", k, a.GetName(), a.GetDescription())
			}
		}
	}
}
