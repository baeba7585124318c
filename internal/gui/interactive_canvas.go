// Interactive canvas widget for image display and freehand blur painting
package gui

import (
	"image"
	"log/slog"
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
	"golang.org/x/image/draw"

	"prompt-image-editor/internal/core"
)

// InteractiveCanvas shows the current image and turns pointer gestures into
// freehand strokes while the tool is enabled.
type InteractiveCanvas struct {
	widget.BaseWidget

	freehand *core.Compositor
	logger   *slog.Logger

	currentImage  *canvas.Image
	overlayRaster *canvas.Raster
	imageSize     image.Point

	onError func(error)
}

var (
	_ desktop.Mouseable = (*InteractiveCanvas)(nil)
	_ desktop.Hoverable = (*InteractiveCanvas)(nil)
	_ fyne.Draggable    = (*InteractiveCanvas)(nil)
)

func NewInteractiveCanvas(session *core.Session, logger *slog.Logger) *InteractiveCanvas {
	ic := &InteractiveCanvas{
		freehand: session.Freehand(),
		logger:   logger,
	}
	ic.currentImage = canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	ic.currentImage.FillMode = canvas.ImageFillContain
	ic.overlayRaster = canvas.NewRaster(ic.createOverlay)

	ic.ExtendBaseWidget(ic)
	return ic
}

func (ic *InteractiveCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &interactiveCanvasRenderer{
		image:   ic.currentImage,
		overlay: ic.overlayRaster,
	}
}

// SetErrorCallback receives stroke failures.
func (ic *InteractiveCanvas) SetErrorCallback(callback func(error)) {
	ic.onError = callback
}

// UpdateImage replaces the displayed image. Call on the UI goroutine.
func (ic *InteractiveCanvas) UpdateImage(img image.Image) {
	if img == nil {
		return
	}
	ic.imageSize = img.Bounds().Size()
	ic.currentImage.Image = img
	ic.currentImage.Refresh()
	ic.overlayRaster.Refresh()
}

func (ic *InteractiveCanvas) MouseDown(event *desktop.MouseEvent) {
	if event.Button != desktop.MouseButtonPrimary || !ic.freehand.Enabled() {
		return
	}
	p, ok := ic.screenToImageCoords(event.Position)
	if !ok {
		return
	}
	ic.logger.Debug("FREEHAND: Stroke started", "point", p)
	ic.report(ic.freehand.BeginStroke(p))
	ic.overlayRaster.Refresh()
}

func (ic *InteractiveCanvas) MouseUp(*desktop.MouseEvent) {
	ic.endStroke()
}

func (ic *InteractiveCanvas) Dragged(event *fyne.DragEvent) {
	if !ic.freehand.Painting() {
		return
	}
	p, ok := ic.screenToImageCoords(event.Position)
	if !ok {
		return
	}
	ic.report(ic.freehand.StrokeTo(p))
	ic.overlayRaster.Refresh()
}

func (ic *InteractiveCanvas) DragEnd() {
	ic.endStroke()
}

func (ic *InteractiveCanvas) MouseIn(*desktop.MouseEvent) {}

func (ic *InteractiveCanvas) MouseMoved(*desktop.MouseEvent) {}

// MouseOut abandons the gesture; painted pixels stay pending in the mask.
func (ic *InteractiveCanvas) MouseOut() {
	if !ic.freehand.Painting() {
		return
	}
	ic.freehand.CancelStroke()
	ic.overlayRaster.Refresh()
}

func (ic *InteractiveCanvas) endStroke() {
	if !ic.freehand.Painting() {
		return
	}
	ic.report(ic.freehand.EndStroke())
	ic.overlayRaster.Refresh()
}

func (ic *InteractiveCanvas) report(err error) {
	if err != nil && ic.onError != nil {
		ic.onError(err)
	}
}

// screenToImageCoords maps a widget position onto the image buffer. Points
// in the letterbox around the image are rejected.
func (ic *InteractiveCanvas) screenToImageCoords(pos fyne.Position) (image.Point, bool) {
	size := ic.Size()
	shown := containRect(float64(size.Width), float64(size.Height), ic.imageSize)
	if shown.Empty() {
		return image.Point{}, false
	}
	device := image.Pt(int(math.Round(float64(pos.X))), int(math.Round(float64(pos.Y))))
	if !device.In(shown) {
		return image.Point{}, false
	}
	return core.ScalePoint(device.Sub(shown.Min), shown.Size(), ic.imageSize), true
}

// containRect is the rectangle an image of size img occupies inside a w x h
// area under ImageFillContain.
func containRect(w, h float64, img image.Point) image.Rectangle {
	if img.X <= 0 || img.Y <= 0 || w <= 0 || h <= 0 {
		return image.Rectangle{}
	}
	scale := math.Min(w/float64(img.X), h/float64(img.Y))
	dw := float64(img.X) * scale
	dh := float64(img.Y) * scale
	x0 := (w - dw) / 2
	y0 := (h - dh) / 2
	return image.Rect(
		int(math.Round(x0)), int(math.Round(y0)),
		int(math.Round(x0+dw)), int(math.Round(y0+dh)),
	)
}

// createOverlay scales the brush feedback layer onto the raster.
func (ic *InteractiveCanvas) createOverlay(w, h int) image.Image {
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	src := ic.freehand.Overlay()
	if src == nil {
		return out
	}
	shown := containRect(float64(w), float64(h), src.Bounds().Size())
	if shown.Empty() {
		return out
	}
	draw.ApproxBiLinear.Scale(out, shown, src, src.Bounds(), draw.Over, nil)
	return out
}

type interactiveCanvasRenderer struct {
	image   *canvas.Image
	overlay *canvas.Raster
}

func (r *interactiveCanvasRenderer) Layout(size fyne.Size) {
	r.image.Resize(size)
	r.overlay.Resize(size)
}

func (r *interactiveCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

func (r *interactiveCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.image, r.overlay}
}

func (r *interactiveCanvasRenderer) Refresh() {
	r.image.Refresh()
	r.overlay.Refresh()
}

func (r *interactiveCanvasRenderer) Destroy() {}
