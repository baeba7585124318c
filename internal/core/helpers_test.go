package core

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"testing"

	"prompt-image-editor/internal/ops"
	"prompt-image-editor/internal/transform"
)

// stubLib is a deterministic, order-sensitive backend: every step maps each
// red value v to 3v+kind, so two different orders give different images.
type stubLib struct {
	mu     sync.Mutex
	calls  []ops.Kind
	blurs  int
	failOn ops.Kind
}

func (s *stubLib) Name() string { return "stub" }

func (s *stubLib) Apply(img *image.RGBA, kind ops.Kind, p ops.Parameter) (*image.RGBA, error) {
	s.mu.Lock()
	s.calls = append(s.calls, kind)
	s.mu.Unlock()
	if kind == s.failOn {
		return nil, fmt.Errorf("stub failure on %s", kind)
	}
	out := transform.Clone(img)
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i] = out.Pix[i]*3 + uint8(kind) + uint8(p.Level)
	}
	return out, nil
}

// GaussianBlur paints the whole image a fixed colour.
func (s *stubLib) GaussianBlur(img *image.RGBA, ksize int) (*image.RGBA, error) {
	s.mu.Lock()
	s.blurs++
	s.mu.Unlock()
	out := image.NewRGBA(img.Bounds())
	for i := 0; i < len(out.Pix); i += 4 {
		out.Pix[i], out.Pix[i+1], out.Pix[i+2], out.Pix[i+3] = 1, 2, 3, 255
	}
	return out, nil
}

func (s *stubLib) takeCalls() []ops.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.calls
	s.calls = nil
	return out
}

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(7*x + 3*y), uint8(11 * y), uint8(5*x + 40), 255})
		}
	}
	return img
}

func bildLib(t *testing.T) transform.Library {
	t.Helper()
	lib, err := transform.New(transform.BildName)
	if err != nil {
		t.Fatal(err)
	}
	return lib
}

func loaded(t *testing.T, lib transform.Library, img *image.RGBA) *Session {
	t.Helper()
	s := NewSession(lib, nil)
	if err := s.Load(img, "png"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s
}

func mustApply(t *testing.T, s *Session, kind ops.Kind, level ops.Level) {
	t.Helper()
	if err := s.TryApply(kind, ops.Parameter{Level: level}); err != nil {
		t.Fatalf("TryApply(%s) error = %v", kind, err)
	}
}

func sameImage(a, b *image.RGBA) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Bounds() == b.Bounds() && bytes.Equal(a.Pix, b.Pix)
}

func requireSame(t *testing.T, got, want *image.RGBA, what string) {
	t.Helper()
	if !sameImage(got, want) {
		t.Fatalf("%s: images differ", what)
	}
}

func requireErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("error = %v, want %v", err, want)
	}
}

func logKinds(s *Session) []ops.Kind {
	var out []ops.Kind
	for _, e := range s.Log() {
		out = append(out, e.Kind)
	}
	return out
}
