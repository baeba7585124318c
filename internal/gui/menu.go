// Menu handler for file and session actions
package gui

import (
	"fmt"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"prompt-image-editor/internal/core"
	"prompt-image-editor/internal/export"
	"prompt-image-editor/internal/imgio"
)

type MenuHandler struct {
	window     fyne.Window
	dispatcher *core.Dispatcher
	loader     *imgio.ImageLoader
	logger     *slog.Logger

	onImageLoaded func(string)
	onImageSaved  func(string)
}

func NewMenuHandler(window fyne.Window, dispatcher *core.Dispatcher, loader *imgio.ImageLoader, logger *slog.Logger) *MenuHandler {
	return &MenuHandler{
		window:     window,
		dispatcher: dispatcher,
		loader:     loader,
		logger:     logger,
	}
}

func (mh *MenuHandler) GetMainMenu() *fyne.MainMenu {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open Image...", mh.OpenImage),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export PNG...", func() { mh.ExportImage(export.PNGFormat) }),
		fyne.NewMenuItem("Export PDF...", func() { mh.ExportImage(export.PDFFormat) }),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Toggle Freehand Blur", func() {
			if _, err := mh.dispatcher.Session().Freehand().Toggle(); err != nil {
				mh.dispatcher.Report(err)
			}
		}),
		fyne.NewMenuItem("Clear Flips", func() {
			go mh.dispatcher.Clear("flip")
		}),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Reset to Original", func() {
			go mh.dispatcher.Reset()
		}),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mh.showAbout),
	)

	return fyne.NewMainMenu(fileMenu, editMenu, helpMenu)
}

func (mh *MenuHandler) OpenImage() {
	mh.logger.Info("Opening file dialog for image selection")

	fileDialog := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			mh.showError("File Dialog Error", err)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()

		uri := reader.URI()
		mh.logger.Info("Loading selected image", "filepath", uri.Path())

		img, format, err := mh.loader.Decode(reader, uri.Name())
		if err != nil {
			mh.showError("Failed to Load Image", err)
			return
		}
		if err := mh.dispatcher.Session().Load(img, format); err != nil {
			mh.showError("Failed to Load Image", err)
			return
		}

		if mh.onImageLoaded != nil {
			mh.onImageLoaded(uri.Path())
		}
	}, mh.window)

	fileDialog.SetFilter(storage.NewExtensionFileFilter(imgio.SupportedExtensions()))
	fileDialog.Show()
}

func (mh *MenuHandler) ExportImage(format export.Format) {
	session := mh.dispatcher.Session()
	if !session.HasImage() {
		mh.showError("No Image", fmt.Errorf("no image loaded to export"))
		return
	}

	fileDialog := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			mh.showError("File Dialog Error", err)
			return
		}
		if writer == nil {
			return
		}
		defer writer.Close()

		path := writer.URI().Path()
		mh.logger.Info("Exporting image", "filepath", path, "format", string(format))

		if err := export.Write(writer, session.Current(), format); err != nil {
			mh.showError("Failed to Export Image", err)
			return
		}

		if mh.onImageSaved != nil {
			mh.onImageSaved(path)
		}
	}, mh.window)

	fileDialog.SetFileName(format.Filename())
	fileDialog.SetFilter(storage.NewExtensionFileFilter([]string{"." + string(format)}))
	fileDialog.Show()
}

func (mh *MenuHandler) showAbout() {
	content := container.NewVBox(
		widget.NewLabel("Prompt Image Editor"),
		widget.NewSeparator(),
		widget.NewLabel("Describe an edit in plain words or apply"),
		widget.NewLabel("operations directly. Paint to blur regions."),
		widget.NewSeparator(),
		widget.NewLabel("Built with Go and Fyne"),
	)

	aboutDialog := dialog.NewCustom("About", "Close", content, mh.window)
	aboutDialog.Resize(fyne.NewSize(400, 240))
	aboutDialog.Show()
}

func (mh *MenuHandler) showError(title string, err error) {
	mh.logger.Error(title, "error", err)
	dialog.ShowError(err, mh.window)
}

func (mh *MenuHandler) SetCallbacks(onImageLoaded, onImageSaved func(string)) {
	mh.onImageLoaded = onImageLoaded
	mh.onImageSaved = onImageSaved
}
