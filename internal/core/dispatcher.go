package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"prompt-image-editor/internal/ops"
	"prompt-image-editor/internal/prompt"
)

// Outcome reports what happened to one dispatched request.
type Outcome struct {
	Request ops.Request `json:"request"`
	Kind    string      `json:"kind,omitempty"`
	Applied bool        `json:"applied"`
	Error   string      `json:"error,omitempty"`

	err error
}

// Err returns the failure, or nil when the request was applied.
func (o Outcome) Err() error {
	return o.err
}

// Dispatcher turns abstract requests into guarded session calls. Every
// failure is reported as a notice on the session; callers only get
// outcomes for reporting.
type Dispatcher struct {
	session     *Session
	interpreter prompt.Interpreter
	logger      *slog.Logger
}

// NewDispatcher binds a dispatcher to a session. interpreter may be nil when
// prompt interpretation is not available.
func NewDispatcher(session *Session, interpreter prompt.Interpreter, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{session: session, interpreter: interpreter, logger: logger}
}

func (d *Dispatcher) Session() *Session {
	return d.session
}

// Apply dispatches one request through the exclusivity guard.
func (d *Dispatcher) Apply(req ops.Request) Outcome {
	return d.apply(req, d.session.TryApply)
}

func (d *Dispatcher) apply(req ops.Request, guard func(ops.Kind, ops.Parameter) error) Outcome {
	out := Outcome{Request: req}

	kind, p, err := req.Resolve()
	if err == nil && kind == ops.FreehandBlur {
		err = fmt.Errorf("%w: %s is applied by painting", ErrUnsupportedOperation, kind)
	}
	if err == nil {
		out.Kind = kind.String()
		err = guard(kind, p)
	}
	if err != nil {
		d.fail(&out, err)
		return out
	}

	out.Applied = true
	return out
}

// Clear dispatches a clear by tag. "flip" clears both directions.
func (d *Dispatcher) Clear(tag string) Outcome {
	out := Outcome{Request: ops.Request{Type: tag}}

	var err error
	if strings.EqualFold(strings.TrimSpace(tag), "flip") {
		out.Kind = "flip"
		err = d.session.ClearFlips()
	} else {
		var kind ops.Kind
		kind, err = ops.ParseKind(tag)
		if err == nil {
			out.Kind = kind.String()
			err = d.session.Clear(kind)
		}
	}
	if err != nil {
		d.fail(&out, err)
		return out
	}

	out.Applied = true
	return out
}

// Reset restores the pristine source.
func (d *Dispatcher) Reset() error {
	if err := d.session.Reset(); err != nil {
		d.Report(err)
		return err
	}
	return nil
}

// ApplyList resets the session to the pristine source and applies reqs in
// the given order. Failed entries are noticed and skipped.
func (d *Dispatcher) ApplyList(reqs []ops.Request) ([]Outcome, error) {
	if !d.session.beginInterpretation() {
		d.Report(ErrBusy)
		return nil, ErrBusy
	}
	defer d.session.endInterpretation()
	return d.applyList(reqs)
}

func (d *Dispatcher) applyList(reqs []ops.Request) ([]Outcome, error) {
	if err := d.session.restart(false); err != nil {
		d.Report(err)
		return nil, err
	}

	outcomes := make([]Outcome, 0, len(reqs))
	applied := 0
	for _, req := range reqs {
		out := d.apply(req, d.session.tryApply)
		if out.Applied {
			applied++
		}
		outcomes = append(outcomes, out)
	}

	d.logger.Info("SESSION: Operation list applied",
		"requested", len(reqs),
		"applied", applied,
		"log", d.session.LogString())
	return outcomes, nil
}

// Interpret sends text to the prompt interpreter and applies the returned
// list. At most one interpretation runs per session; image and log are left
// untouched when the backend fails.
func (d *Dispatcher) Interpret(ctx context.Context, text string) ([]Outcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		d.Report(ErrEmptyPrompt)
		return nil, ErrEmptyPrompt
	}
	if !d.session.HasImage() {
		d.Report(ErrNoSourceImage)
		return nil, ErrNoSourceImage
	}
	if d.interpreter == nil {
		err := fmt.Errorf("%w: no prompt backend configured", prompt.ErrBackendUnavailable)
		d.Report(err)
		return nil, err
	}
	if !d.session.beginInterpretation() {
		d.Report(ErrBusy)
		return nil, ErrBusy
	}
	defer d.session.endInterpretation()

	start := time.Now()
	d.logger.Info("PROMPT: Interpreting", "prompt", text)
	reqs, err := d.interpreter.Interpret(ctx, text, d.session.LogString())
	if err == nil && len(reqs) == 0 {
		err = fmt.Errorf("%w: no operations returned", prompt.ErrMalformedResponse)
	}
	if err != nil {
		d.logger.Warn("PROMPT: Interpretation failed", "error", err, "duration", time.Since(start))
		d.Report(err)
		return nil, err
	}

	d.logger.Info("PROMPT: Operations received", "count", len(reqs), "duration", time.Since(start))
	return d.applyList(reqs)
}

// Report turns err into a user-visible notice.
func (d *Dispatcher) Report(err error) {
	if err == nil {
		return
	}
	d.session.Notify(NoticeError, Message(err))
}

func (d *Dispatcher) fail(out *Outcome, err error) {
	out.err = err
	out.Error = err.Error()
	d.logger.Warn("SESSION: Request rejected", "request", out.Request.String(), "error", err)
	d.Report(err)
}

// Message is the user-facing text for err.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrNoSourceImage):
		return "Upload an image first."
	case errors.Is(err, ErrAlreadyApplied):
		return fmt.Sprintf("%s. Clear first.", err.Error())
	case errors.Is(err, ErrNotApplied):
		return err.Error()
	case errors.Is(err, ErrBusy):
		return "Please wait for the current prompt to finish."
	case errors.Is(err, ErrEmptyPrompt):
		return "Enter a prompt first."
	case errors.Is(err, prompt.ErrBackendUnavailable):
		return "Failed to get operations from backend."
	case errors.Is(err, prompt.ErrMalformedResponse):
		return "Invalid operations received from backend."
	}
	return err.Error()
}
