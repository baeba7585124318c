// HTTP transport for the editor: the session API plus the stateless
// /generate-operations and /edit-image endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"prompt-image-editor/internal/editor"
	"prompt-image-editor/internal/imgio"
	"prompt-image-editor/internal/prompt"
	"prompt-image-editor/internal/transform"
)

const (
	// DefaultAddr is the default address the server listens on.
	DefaultAddr = ":5000"

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// IdleTimeout is the maximum amount of time to wait for the next request.
	IdleTimeout = 60 * time.Second

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 15 * time.Second

	// MaxJSONBodySize bounds JSON request bodies.
	MaxJSONBodySize = 1 << 20

	// DefaultMaxUpload bounds image uploads when Options leaves it unset.
	DefaultMaxUpload = 20 << 20

	// DefaultSessionTTL is how long an untouched session is kept.
	DefaultSessionTTL = 30 * time.Minute
)

// Options tunes a Server. Zero values select the defaults.
type Options struct {
	Addr           string
	MaxUploadBytes int64
	SessionTTL     time.Duration
	BrushRadius    int
	BlurKernel     int
}

// Server serves the editor over HTTP.
type Server struct {
	opts        Options
	server      *http.Server
	store       *SessionStore
	interpreter prompt.Interpreter
	editor      *editor.Editor
	loader      *imgio.ImageLoader
	logger      *slog.Logger
}

// New creates a server. interpreter may be nil, in which case prompt
// endpoints answer 502.
func New(lib transform.Library, interpreter prompt.Interpreter, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = DefaultMaxUpload
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = DefaultSessionTTL
	}

	loader := imgio.NewImageLoader(logger)
	loader.SetMaxBytes(opts.MaxUploadBytes)

	store := NewSessionStore(lib, interpreter, logger)
	if opts.BrushRadius > 0 {
		store.SetBrush(opts.BrushRadius, opts.BlurKernel)
	}

	s := &Server{
		opts:        opts,
		store:       store,
		interpreter: interpreter,
		editor:      editor.New(lib, interpreter, loader, logger),
		loader:      loader,
		logger:      logger,
	}

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.server = &http.Server{
		Addr:        opts.Addr,
		Handler:     s.wrap(mux),
		ReadTimeout: ReadTimeout,
		IdleTimeout: IdleTimeout,
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Store exposes the session store.
func (s *Server) Store() *SessionStore {
	return s.store
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)

	// Stateless endpoints
	mux.HandleFunc("POST /generate-operations", s.handleGenerateOperations)
	mux.HandleFunc("POST /edit-image", s.handleEditImage)

	// Session API
	mux.HandleFunc("POST /sessions", s.handleCreateSession)
	mux.HandleFunc("GET /sessions/{id}", s.handleGetSession)
	mux.HandleFunc("DELETE /sessions/{id}", s.handleDeleteSession)
	mux.HandleFunc("POST /sessions/{id}/image", s.handleUpload)
	mux.HandleFunc("POST /sessions/{id}/apply", s.handleApply)
	mux.HandleFunc("POST /sessions/{id}/clear", s.handleClear)
	mux.HandleFunc("POST /sessions/{id}/reset", s.handleReset)
	mux.HandleFunc("POST /sessions/{id}/prompt", s.handlePrompt)
	mux.HandleFunc("POST /sessions/{id}/freehand", s.handleFreehand)
	mux.HandleFunc("DELETE /sessions/{id}/freehand", s.handleClearFreehand)
	mux.HandleFunc("GET /sessions/{id}/image.png", s.handleImagePNG)
	mux.HandleFunc("GET /sessions/{id}/export.pdf", s.handleExportPDF)
	mux.HandleFunc("GET /sessions/{id}/history/{n}", s.handleHistory)
	mux.HandleFunc("GET /sessions/{id}/quality", s.handleQuality)
}

// ListenAndServe starts the HTTP server and blocks until the context is
// cancelled. Idle sessions are evicted while it runs.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("SERVER: Listening", "addr", s.opts.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ticker := time.NewTicker(s.opts.SessionTTL / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.store.Evict(s.opts.SessionTTL)

		case <-ctx.Done():
			s.logger.Info("SERVER: Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
			defer cancel()
			if err := s.server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			s.logger.Info("SERVER: Stopped")
			return nil

		case err := <-errCh:
			return fmt.Errorf("server error: %w", err)
		}
	}
}
