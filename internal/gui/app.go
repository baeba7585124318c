// Main application window wiring the editing session to the panels
package gui

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"prompt-image-editor/internal/core"
	"prompt-image-editor/internal/imgio"
)

type Application struct {
	app       fyne.App
	window    fyne.Window
	logger    *slog.Logger
	debugMode bool

	ctx    context.Context
	cancel context.CancelFunc

	// Core components
	session    *core.Session
	dispatcher *core.Dispatcher
	loader     *imgio.ImageLoader

	// GUI components
	canvas      *InteractiveCanvas
	toolbar     *Toolbar
	controls    *ControlPanel
	chat        *ChatPanel
	info        *InfoPanel
	menuHandler *MenuHandler

	statusLabel *widget.Label
}

func NewApplication(app fyne.App, dispatcher *core.Dispatcher, loader *imgio.ImageLoader, logger *slog.Logger, debugMode bool) *Application {
	window := app.NewWindow("Prompt Image Editor")
	window.Resize(fyne.NewSize(1400, 900))
	window.CenterOnScreen()

	ctx, cancel := context.WithCancel(context.Background())
	appInstance := &Application{
		app:        app,
		window:     window,
		logger:     logger,
		debugMode:  debugMode,
		ctx:        ctx,
		cancel:     cancel,
		session:    dispatcher.Session(),
		dispatcher: dispatcher,
		loader:     loader,
	}

	appInstance.initializeGUI()
	appInstance.setupLayout()
	appInstance.setupCallbacks()

	return appInstance
}

func (a *Application) initializeGUI() {
	a.canvas = NewInteractiveCanvas(a.session, a.logger)
	a.toolbar = NewToolbar()
	a.controls = NewControlPanel(a.dispatcher, a.logger)
	a.chat = NewChatPanel(a.ctx, a.dispatcher, a.logger)
	a.info = NewInfoPanel(a.session, a.logger)
	a.menuHandler = NewMenuHandler(a.window, a.dispatcher, a.loader, a.logger)
	a.statusLabel = widget.NewLabel("Open an image to start editing")
}

func (a *Application) setupLayout() {
	center := container.NewBorder(
		container.NewVBox(a.toolbar.GetContainer(), widget.NewSeparator()),
		container.NewVBox(widget.NewSeparator(), a.statusLabel),
		nil,
		nil,
		container.NewPadded(a.canvas),
	)

	right := container.NewVSplit(
		widget.NewCard("Prompt", "", a.chat.GetContainer()),
		a.info.GetContainer(),
	)
	right.SetOffset(0.6)

	centerAndRight := container.NewHSplit(center, right)
	centerAndRight.SetOffset(0.72)

	content := container.NewHSplit(
		widget.NewCard("Operations", "", a.controls.GetContainer()),
		centerAndRight,
	)
	content.SetOffset(0.22)

	a.window.SetMainMenu(a.menuHandler.GetMainMenu())
	a.window.SetContent(content)
}

func (a *Application) setupCallbacks() {
	// Session callbacks arrive on whichever goroutine made the change
	a.session.SetCallbacks(
		func(img *image.RGBA) {
			fyne.Do(func() {
				a.canvas.UpdateImage(img)
				a.refreshState()
			})
		},
		func(n core.Notice) {
			if a.debugMode {
				a.logger.Debug("SESSION: Notice", "level", string(n.Level), "message", n.Message)
			}
			fyne.Do(func() {
				a.chat.AddNotice(n)
				a.updateStatusMessage(n.Message)
				a.refreshState()
			})
		},
	)

	a.menuHandler.SetCallbacks(
		func(path string) {
			a.updateStatusMessage(fmt.Sprintf("Loaded: %s", path))
		},
		func(path string) {
			a.showInfo("Image Exported", fmt.Sprintf("Image saved to:\n%s", path))
			a.updateStatusMessage(fmt.Sprintf("Saved: %s", path))
		},
	)

	a.toolbar.SetCallbacks(
		a.menuHandler.OpenImage,
		a.menuHandler.ExportImage,
		func() {
			if _, err := a.session.Freehand().Toggle(); err != nil {
				a.dispatcher.Report(err)
			}
		},
	)

	a.canvas.SetErrorCallback(a.dispatcher.Report)
}

// refreshState syncs the panels with the session.
func (a *Application) refreshState() {
	if !a.session.HasImage() {
		return
	}
	a.toolbar.Enable()
	a.chat.Enable()
	a.controls.Enable()
	a.controls.Refresh()
	a.info.Refresh()

	freehand := a.session.Freehand()
	a.toolbar.SetFreehandState(freehand.Enabled(), freehand.BrushRadius())
}

func (a *Application) updateStatusMessage(message string) {
	a.statusLabel.SetText(message)
}

func (a *Application) ShowAndRun() {
	a.logger.Info("Showing main application window")

	a.window.SetCloseIntercept(func() {
		a.cleanup()
		a.app.Quit()
	})

	a.window.ShowAndRun()
}

func (a *Application) cleanup() {
	a.logger.Info("Cleaning up application resources")
	a.cancel()
	a.session.SetCallbacks(nil, nil)
}

func (a *Application) showInfo(title, message string) {
	a.logger.Info(title, "message", message)
	dialog.ShowInformation(title, message, a.window)
}

// LoadImageFromPath loads path as the session source.
func (a *Application) LoadImageFromPath(path string) error {
	img, format, err := a.loader.LoadImage(path)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}
	if err := a.session.Load(img, format); err != nil {
		return err
	}
	a.logger.Info("Image loaded successfully", "filepath", path)
	return nil
}
