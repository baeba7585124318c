// internal/gui/toolbar.go
// Top toolbar: file actions, freehand toggle and busy indicator
package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"prompt-image-editor/internal/export"
)

type Toolbar struct {
	container *fyne.Container

	openBtn     *widget.Button
	pngBtn      *widget.Button
	pdfBtn      *widget.Button
	freehandBtn *widget.Button
	brushLabel  *widget.Label

	onOpen     func()
	onExport   func(export.Format)
	onFreehand func()
}

func NewToolbar() *Toolbar {
	toolbar := &Toolbar{}
	toolbar.initializeUI()
	return toolbar
}

func (tb *Toolbar) initializeUI() {
	titleLabel := widget.NewLabelWithStyle("Prompt Image Editor", fyne.TextAlignLeading, fyne.TextStyle{Bold: true})

	tb.openBtn = widget.NewButtonWithIcon("Open", theme.FolderOpenIcon(), func() {
		if tb.onOpen != nil {
			tb.onOpen()
		}
	})
	tb.openBtn.Importance = widget.HighImportance

	tb.pngBtn = widget.NewButtonWithIcon("PNG", theme.DownloadIcon(), func() { tb.export(export.PNGFormat) })
	tb.pdfBtn = widget.NewButtonWithIcon("PDF", theme.DocumentPrintIcon(), func() { tb.export(export.PDFFormat) })

	tb.freehandBtn = widget.NewButtonWithIcon("Freehand blur", theme.ColorPaletteIcon(), func() {
		if tb.onFreehand != nil {
			tb.onFreehand()
		}
	})
	tb.brushLabel = widget.NewLabel("")

	tb.container = container.NewHBox(
		titleLabel,
		widget.NewSeparator(),
		tb.openBtn,
		tb.pngBtn,
		tb.pdfBtn,
		layout.NewSpacer(),
		tb.freehandBtn,
		tb.brushLabel,
	)
	tb.Disable()
}

func (tb *Toolbar) export(format export.Format) {
	if tb.onExport != nil {
		tb.onExport(format)
	}
}

func (tb *Toolbar) SetCallbacks(onOpen func(), onExport func(export.Format), onFreehand func()) {
	tb.onOpen = onOpen
	tb.onExport = onExport
	tb.onFreehand = onFreehand
}

// SetFreehandState highlights the freehand button while the tool is on.
func (tb *Toolbar) SetFreehandState(on bool, radius int) {
	if on {
		tb.freehandBtn.Importance = widget.WarningImportance
		tb.brushLabel.SetText(fmt.Sprintf("brush %dpx", radius))
	} else {
		tb.freehandBtn.Importance = widget.MediumImportance
		tb.brushLabel.SetText("")
	}
	tb.freehandBtn.Refresh()
}

func (tb *Toolbar) GetContainer() fyne.CanvasObject {
	return tb.container
}

// Enable turns on the actions that need an image. Open is always available.
func (tb *Toolbar) Enable() {
	tb.pngBtn.Enable()
	tb.pdfBtn.Enable()
	tb.freehandBtn.Enable()
}

func (tb *Toolbar) Disable() {
	tb.pngBtn.Disable()
	tb.pdfBtn.Disable()
	tb.freehandBtn.Disable()
}
