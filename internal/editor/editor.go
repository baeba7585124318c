// One-shot edits: upload and prompt in, encoded file out. No session state is
// kept, so repeated kinds in the list are applied again.
package editor

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"
	"time"

	"prompt-image-editor/internal/core"
	"prompt-image-editor/internal/export"
	"prompt-image-editor/internal/imgio"
	"prompt-image-editor/internal/ops"
	"prompt-image-editor/internal/prompt"
	"prompt-image-editor/internal/transform"
)

// Step records what happened to one requested operation.
type Step struct {
	Request ops.Request `json:"request"`
	Applied bool        `json:"applied"`
	Error   string      `json:"error,omitempty"`
}

// Report summarises an edit.
type Report struct {
	Width    int           `json:"width"`
	Height   int           `json:"height"`
	Format   export.Format `json:"format"`
	Steps    []Step        `json:"steps"`
	Duration time.Duration `json:"duration"`
}

// Applied counts the steps that changed the image.
func (r Report) Applied() int {
	n := 0
	for _, s := range r.Steps {
		if s.Applied {
			n++
		}
	}
	return n
}

// ErrInvalidImage wraps upload decoding and validation failures.
var ErrInvalidImage = errors.New("invalid image")

type Editor struct {
	lib         transform.Library
	interpreter prompt.Interpreter
	loader      *imgio.ImageLoader
	logger      *slog.Logger
}

func New(lib transform.Library, interpreter prompt.Interpreter, loader *imgio.ImageLoader, logger *slog.Logger) *Editor {
	if logger == nil {
		logger = slog.Default()
	}
	if loader == nil {
		loader = imgio.NewImageLoader(logger)
	}
	return &Editor{lib: lib, interpreter: interpreter, loader: loader, logger: logger}
}

// Edit decodes upload, asks the interpreter for operations and applies them
// in the returned order, then writes the result to w. Unsupported entries
// are skipped. Nothing is written when the prompt cannot be interpreted.
func (e *Editor) Edit(ctx context.Context, upload io.Reader, filename, text string, format export.Format, w io.Writer) (Report, error) {
	start := time.Now()
	report := Report{Format: format}

	text = strings.TrimSpace(text)
	if text == "" {
		return report, core.ErrEmptyPrompt
	}
	if e.interpreter == nil {
		return report, fmt.Errorf("%w: no prompt backend configured", prompt.ErrBackendUnavailable)
	}

	src, _, err := e.loader.Decode(upload, filename)
	if err != nil {
		return report, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if err := core.ValidateImage(src); err != nil {
		return report, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	img := transform.ToRGBA(src)
	b := img.Bounds()
	report.Width, report.Height = b.Dx(), b.Dy()

	reqs, err := e.interpreter.Interpret(ctx, text, "")
	if err != nil {
		return report, err
	}
	e.logger.Info("PROMPT: Operations to apply", "count", len(reqs), "prompt", text)

	for _, req := range reqs {
		step := Step{Request: req}
		next, err := e.applyOne(img, req)
		if err != nil {
			step.Error = err.Error()
			e.logger.Warn("EDIT: Operation skipped", "request", req.String(), "error", err)
		} else {
			img = next
			step.Applied = true
		}
		report.Steps = append(report.Steps, step)
	}

	if err := export.Write(w, img, format); err != nil {
		return report, err
	}

	report.Duration = time.Since(start)
	e.logger.Info("EDIT: Image edited",
		"width", report.Width,
		"height", report.Height,
		"applied", report.Applied(),
		"requested", len(reqs),
		"format", string(format),
		"duration", report.Duration)
	return report, nil
}

func (e *Editor) applyOne(img *image.RGBA, req ops.Request) (*image.RGBA, error) {
	kind, p, err := req.Resolve()
	if err != nil {
		return nil, err
	}
	if !kind.Replayable() {
		return nil, fmt.Errorf("%w: %s", ops.ErrUnsupportedOperation, kind)
	}
	return e.lib.Apply(img, kind, p)
}
