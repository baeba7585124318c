// Transform backends: the contract the core replays through and a registry
// of named implementations.
package transform

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"sync"

	"golang.org/x/image/draw"

	"prompt-image-editor/internal/ops"
)

// ErrUnknownBackend is returned by New for an unregistered name.
var ErrUnknownBackend = errors.New("unknown transform backend")

// Library applies one parameterised transformation. Implementations must not
// mutate img and must return a freshly allocated buffer of the same size
// (flips included).
type Library interface {
	Name() string
	Apply(img *image.RGBA, kind ops.Kind, p ops.Parameter) (*image.RGBA, error)
	GaussianBlur(img *image.RGBA, ksize int) (*image.RGBA, error)
}

// Factory builds a backend.
type Factory func() Library

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

// Register makes a backend available under name. Later registrations replace
// earlier ones.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// New builds the backend registered as name.
func New(name string) (Library, error) {
	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
	return f(), nil
}

// Backends lists the registered backend names.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToRGBA copies any image into a new RGBA buffer anchored at the origin.
func ToRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// Clone returns an independent copy of img.
func Clone(img *image.RGBA) *image.RGBA {
	if img == nil {
		return nil
	}
	if img.Bounds().Min == (image.Point{}) {
		dst := &image.RGBA{
			Pix:    make([]uint8, len(img.Pix)),
			Stride: img.Stride,
			Rect:   img.Rect,
		}
		copy(dst.Pix, img.Pix)
		return dst
	}
	return ToRGBA(img)
}

// Scale resizes src into a w x h RGBA buffer with Catmull-Rom resampling.
func Scale(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}

func checkInput(img *image.RGBA) error {
	if img == nil {
		return errors.New("nil image")
	}
	if img.Bounds().Empty() {
		return errors.New("empty image")
	}
	return nil
}
