package core

import (
	"fmt"
	"image"
	"math"

	"github.com/gogpu/gg"
)

// maskThreshold is the value above which a mask pixel is selected.
const maskThreshold = 127

// Mask is the single-channel freehand selection, sized like the source.
// Discs are rasterized onto pen; m is its alpha, rebuilt on read after a
// stamp.
type Mask struct {
	pen     *gg.Context
	m       *gg.Mask
	dirty   bool
	stamped bool
}

func NewMask(w, h int) *Mask {
	pen := gg.NewContext(w, h)
	pen.SetRGBA(1, 1, 1, 1)
	return &Mask{pen: pen, m: gg.NewMask(w, h)}
}

func (m *Mask) Bounds() image.Rectangle {
	return m.m.Bounds()
}

// Stamp fills a disc of radius r centred on pixel p. The half-pixel margin
// keeps pixels whose centres lie on the rim. Anything outside the bounds is
// clipped.
func (m *Mask) Stamp(p image.Point, r int) error {
	disc := image.Rect(p.X-r, p.Y-r, p.X+r+1, p.Y+r+1)
	if !disc.Overlaps(m.m.Bounds()) {
		return nil
	}
	m.pen.DrawCircle(float64(p.X)+0.5, float64(p.Y)+0.5, float64(r)+0.5)
	if err := m.pen.Fill(); err != nil {
		return fmt.Errorf("stamp mask: %w", err)
	}
	m.dirty = true
	m.stamped = true
	return nil
}

func (m *Mask) sync() {
	if m.dirty {
		m.m = gg.NewMaskFromAlpha(m.pen.Image())
		m.dirty = false
	}
}

// Selected reports whether (x, y) is painted.
func (m *Mask) Selected(x, y int) bool {
	m.sync()
	return m.m.At(x, y) > maskThreshold
}

// Empty reports whether nothing inside the bounds has been painted since the
// last reset.
func (m *Mask) Empty() bool {
	return !m.stamped || m.Coverage() == 0
}

// Coverage returns the fraction of selected pixels.
func (m *Mask) Coverage() float64 {
	m.sync()
	data := m.m.Data()
	if len(data) == 0 {
		return 0
	}
	n := 0
	for _, v := range data {
		if v > maskThreshold {
			n++
		}
	}
	return float64(n) / float64(len(data))
}

func (m *Mask) Reset() {
	m.pen.Clear()
	m.m.Clear()
	m.dirty = false
	m.stamped = false
}

func (m *Mask) Close() error {
	return m.pen.Close()
}

// Composite selects blurred where the mask is set and current elsewhere.
// Both images must have the mask's bounds.
func (m *Mask) Composite(current, blurred *image.RGBA) (*image.RGBA, error) {
	b := m.Bounds()
	if current.Bounds().Size() != b.Size() || blurred.Bounds().Size() != b.Size() {
		return nil, fmt.Errorf("composite size mismatch: mask %v, current %v, blurred %v",
			b.Size(), current.Bounds().Size(), blurred.Bounds().Size())
	}

	m.sync()
	out := image.NewRGBA(b)
	data := m.m.Data()
	w := b.Dx()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < w; x++ {
			src := current
			if data[y*w+x] > maskThreshold {
				src = blurred
			}
			si := src.PixOffset(src.Rect.Min.X+x, src.Rect.Min.Y+y)
			di := out.PixOffset(x, y)
			copy(out.Pix[di:di+4], src.Pix[si:si+4])
		}
	}
	return out, nil
}

// Overlay is the translucent feedback layer drawn over the canvas while
// painting. It never touches image data.
type Overlay struct {
	dc *gg.Context
}

// overlayColor is rgba(0, 0, 255, 0.2).
var overlayColor = [4]float64{0, 0, 1, 0.2}

func NewOverlay(w, h int) *Overlay {
	return &Overlay{dc: gg.NewContext(w, h)}
}

// Disc draws one feedback disc.
func (o *Overlay) Disc(p image.Point, r int) error {
	o.dc.SetRGBA(overlayColor[0], overlayColor[1], overlayColor[2], overlayColor[3])
	o.dc.DrawCircle(float64(p.X), float64(p.Y), float64(r))
	return o.dc.Fill()
}

func (o *Overlay) Clear() {
	o.dc.Clear()
}

func (o *Overlay) Image() image.Image {
	return o.dc.Image()
}

func (o *Overlay) Close() error {
	return o.dc.Close()
}

// ScalePoint maps a device-space point on a surface displayed at displayed
// size onto the image buffer of size buffer.
func ScalePoint(device image.Point, displayed, buffer image.Point) image.Point {
	if displayed.X <= 0 || displayed.Y <= 0 {
		return device
	}
	sx := float64(buffer.X) / float64(displayed.X)
	sy := float64(buffer.Y) / float64(displayed.Y)
	return image.Pt(
		int(math.Round(float64(device.X)*sx)),
		int(math.Round(float64(device.Y)*sy)),
	)
}
