// Prompt Image Editor - desktop client

package main

import (
	"flag"
	"os"

	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/theme"
	"github.com/sirupsen/logrus"

	_ "prompt-image-editor/internal/algorithms" // registers the opencv backend
	"prompt-image-editor/internal/config"
	"prompt-image-editor/internal/core"
	"prompt-image-editor/internal/gui"
	"prompt-image-editor/internal/imgio"
	"prompt-image-editor/internal/logging"
	"prompt-image-editor/internal/prompt"
	"prompt-image-editor/internal/transform"
)

const (
	AppName    = "Prompt Image Editor"
	AppID      = "com.example.prompt-image-editor"
	AppVersion = "1.0.0"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	debugMode := flag.Bool("debug", false, "Enable debug mode with verbose logging")
	imagePath := flag.String("image", "", "Image to open at startup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.NewLogger(*debugMode).WithError(err).Fatal("Failed to load configuration")
	}
	debug := *debugMode || cfg.Debug

	logger := logging.NewLogger(debug)
	logger.WithFields(logrus.Fields{
		"version":    AppVersion,
		"debug_mode": debug,
		"backend":    cfg.Transform.Backend,
	}).Info("Starting " + AppName)

	lib, err := transform.New(cfg.Transform.Backend)
	if err != nil {
		logger.WithError(err).WithField("available", transform.Backends()).Fatal("Failed to create transform backend")
	}

	slogger := logging.Slog(logger)
	session := core.NewSession(lib, slogger)
	if err := session.SetBrush(cfg.Freehand.BrushRadius, cfg.Freehand.BlurKernel); err != nil {
		logger.WithError(err).Fatal("Invalid freehand settings")
	}
	interpreter := prompt.NewOllamaClient(cfg.Prompt.OllamaURL,
		prompt.WithModel(cfg.Prompt.Model),
		prompt.WithTimeout(cfg.Prompt.Timeout),
		prompt.WithLogger(slogger))
	dispatcher := core.NewDispatcher(session, interpreter, slogger)

	myApp := app.NewWithID(AppID)
	myApp.SetIcon(theme.DocumentIcon())
	myApp.Settings().SetTheme(theme.DefaultTheme())

	mainApp := gui.NewApplication(myApp, dispatcher, imgio.NewImageLoader(slogger), slogger, debug)
	if *imagePath != "" {
		if err := mainApp.LoadImageFromPath(*imagePath); err != nil {
			logger.WithError(err).WithField("filepath", *imagePath).Error("Failed to open startup image")
		}
	}
	mainApp.ShowAndRun()

	logger.Info("Application shutting down gracefully")
	os.Exit(0)
}
