// Prompt Image Editor - HTTP server

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	_ "prompt-image-editor/internal/algorithms" // registers the opencv backend
	"prompt-image-editor/internal/config"
	"prompt-image-editor/internal/logging"
	"prompt-image-editor/internal/prompt"
	"prompt-image-editor/internal/server"
	"prompt-image-editor/internal/transform"
)

const AppVersion = "1.0.0"

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	debugMode := flag.Bool("debug", false, "Enable debug mode with verbose logging")
	addr := flag.String("addr", "", "Listen address, overrides the config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.NewLogger(*debugMode).WithError(err).Fatal("Failed to load configuration")
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	debug := *debugMode || cfg.Debug

	logger := logging.NewLogger(debug)
	logger.WithFields(logrus.Fields{
		"version": AppVersion,
		"addr":    cfg.Server.Addr,
		"backend": cfg.Transform.Backend,
		"model":   cfg.Prompt.Model,
	}).Info("Starting prompt image editor server")

	lib, err := transform.New(cfg.Transform.Backend)
	if err != nil {
		logger.WithError(err).WithField("available", transform.Backends()).Fatal("Failed to create transform backend")
	}

	slogger := logging.Slog(logger)
	interpreter := prompt.NewOllamaClient(cfg.Prompt.OllamaURL,
		prompt.WithModel(cfg.Prompt.Model),
		prompt.WithTimeout(cfg.Prompt.Timeout),
		prompt.WithLogger(slogger))

	srv := server.New(lib, interpreter, server.Options{
		Addr:           cfg.Server.Addr,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		BrushRadius:    cfg.Freehand.BrushRadius,
		BlurKernel:     cfg.Freehand.BlurKernel,
	}, slogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.ListenAndServe(ctx); err != nil {
		logger.WithError(err).Error("Server stopped with error")
		os.Exit(1)
	}
	logger.Info("Server shut down gracefully")
}
