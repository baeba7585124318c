// Editing session: pristine source, current image, operation log and history
package core

import (
	"fmt"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"prompt-image-editor/internal/metrics"
	"prompt-image-editor/internal/ops"
	"prompt-image-editor/internal/transform"
)

// Session owns the state of one editing session. All mutations are
// serialised by mu. Images installed as current are never modified again, so
// history entries and update callbacks share them without copying.
type Session struct {
	mu          sync.Mutex
	lib         transform.Library
	logger      *slog.Logger
	metricsEval *metrics.Evaluator

	source      *image.RGBA
	current     *image.RGBA
	meta        ImageMetadata
	log         *OperationLog
	history     *History
	lastMetrics map[string]float64

	// Freehand state
	mask            *Mask
	overlay         *Overlay
	snapshot        *image.RGBA
	snapshotStale   bool
	freehandEnabled bool
	painting        bool
	brushRadius     int
	freehandKernel  int

	notices noticeLog
	busy    atomic.Bool

	// Callbacks run after mu is released
	onUpdate       func(img *image.RGBA)
	onNotice       func(n Notice)
	pendingUpdate  *image.RGBA
	pendingNotices []Notice
}

// NewSession creates an empty session that transforms with lib.
func NewSession(lib transform.Library, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		lib:            lib,
		logger:         logger,
		metricsEval:    metrics.NewEvaluator(),
		log:            NewOperationLog(),
		history:        NewHistory(),
		brushRadius:    ops.BrushRadius,
		freehandKernel: ops.FreehandKernel,
	}
}

// SetBrush changes the freehand brush radius and blur kernel.
func (s *Session) SetBrush(radius, kernel int) error {
	if radius < 1 {
		return fmt.Errorf("%w: brush radius %d", ops.ErrInvalidParameter, radius)
	}
	if kernel < 1 || kernel%2 == 0 {
		return fmt.Errorf("%w: freehand kernel %d must be odd", ops.ErrInvalidParameter, kernel)
	}
	s.mu.Lock()
	defer s.unlock()
	s.brushRadius = radius
	s.freehandKernel = kernel
	return nil
}

// SetCallbacks registers the image update and notice callbacks. They are
// invoked outside the session lock, on the goroutine that made the change.
func (s *Session) SetCallbacks(onUpdate func(*image.RGBA), onNotice func(Notice)) {
	s.mu.Lock()
	defer s.unlock()
	s.onUpdate = onUpdate
	s.onNotice = onNotice
}

// unlock releases mu and then delivers queued callbacks.
func (s *Session) unlock() {
	update := s.pendingUpdate
	notices := s.pendingNotices
	onUpdate, onNotice := s.onUpdate, s.onNotice
	s.pendingUpdate = nil
	s.pendingNotices = nil
	s.mu.Unlock()

	if update != nil && onUpdate != nil {
		onUpdate(update)
	}
	if onNotice != nil {
		for _, n := range notices {
			onNotice(n)
		}
	}
}

// notify records a notice; caller holds mu.
func (s *Session) notify(level NoticeLevel, format string, args ...any) {
	n := s.notices.add(level, fmt.Sprintf(format, args...))
	s.pendingNotices = append(s.pendingNotices, n)
}

// Notify records a user-visible notice.
func (s *Session) Notify(level NoticeLevel, message string) {
	s.mu.Lock()
	defer s.unlock()
	s.notify(level, "%s", message)
}

// NoticeSeq returns the sequence number of the newest notice.
func (s *Session) NoticeSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notices.seq
}

// NoticesSince returns retained notices newer than seq.
func (s *Session) NoticesSince(seq uint64) []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notices.since(seq)
}

// install makes next the current image; caller holds mu.
func (s *Session) install(next *image.RGBA, step string) {
	before := s.current
	s.current = next
	s.history.Append(next)
	if s.snapshot != nil && step != ops.FreehandBlur.String() {
		s.snapshotStale = true
	}
	if before != nil {
		s.lastMetrics = s.metricsEval.EvaluateStep(before, next, step)
	}
	s.pendingUpdate = next
}

func (s *Session) resetFreehandLocked() {
	s.snapshot = nil
	s.snapshotStale = false
	s.painting = false
	if s.mask != nil {
		s.mask.Reset()
	}
	if s.overlay != nil {
		s.overlay.Clear()
	}
}

// Load installs img as the pristine source. The log, history, mask and
// snapshot are reset; the freehand tool keeps its on/off state.
func (s *Session) Load(img image.Image, format string) error {
	if s.busy.Load() {
		return ErrBusy
	}
	src, err := prepareSource(img)
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}

	s.mu.Lock()
	defer s.unlock()

	b := src.Bounds()
	s.source = src
	s.current = src
	s.meta = ImageMetadata{Width: b.Dx(), Height: b.Dy(), Format: format}
	s.log.Reset()
	s.history.Reset()
	s.lastMetrics = nil
	if s.mask != nil {
		s.mask.Close()
	}
	s.mask = NewMask(b.Dx(), b.Dy())
	if s.overlay != nil {
		s.overlay.Close()
	}
	s.overlay = NewOverlay(b.Dx(), b.Dy())
	s.resetFreehandLocked()
	s.pendingUpdate = src

	s.logger.Info("SESSION: Image loaded", "width", b.Dx(), "height", b.Dy(), "format", format)
	s.notify(NoticeInfo, "Image loaded (%dx%d)", b.Dx(), b.Dy())
	return nil
}

// HasImage reports whether a source has been loaded.
func (s *Session) HasImage() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source != nil
}

// Current returns a copy of the current image, or nil.
func (s *Session) Current() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return transform.Clone(s.current)
}

// Source returns a copy of the pristine source, or nil.
func (s *Session) Source() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return transform.Clone(s.source)
}

func (s *Session) Metadata() ImageMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

// Log returns the logged entries in insertion order.
func (s *Session) Log() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Entries()
}

// LogString renders the log, e.g. "blur=high, grayscale".
func (s *Session) LogString() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.String()
}

// Applied reports whether kind is logged.
func (s *Session) Applied(kind ops.Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Has(kind)
}

func (s *Session) HistoryLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.Len()
}

// HistoryAt returns snapshot i. The image must not be modified.
func (s *Session) HistoryAt(i int) *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.At(i)
}

// LastMetrics returns the quality metrics of the most recent step.
func (s *Session) LastMetrics() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(s.lastMetrics))
	for k, v := range s.lastMetrics {
		out[k] = v
	}
	return out
}

// QualityReport compares the current image against the pristine source.
func (s *Session) QualityReport() (metrics.QualityReport, error) {
	s.mu.Lock()
	source, current := s.source, s.current
	s.mu.Unlock()
	if source == nil {
		return metrics.QualityReport{}, ErrNoSourceImage
	}
	return s.metricsEval.GenerateReport(source, current), nil
}

// Busy reports whether a prompt interpretation is outstanding.
func (s *Session) Busy() bool {
	return s.busy.Load()
}

func (s *Session) beginInterpretation() bool {
	return s.busy.CompareAndSwap(false, true)
}

func (s *Session) endInterpretation() {
	s.busy.Store(false)
}

// TryApply is the exclusivity guard: it applies kind to the current image
// unless kind is already logged.
func (s *Session) TryApply(kind ops.Kind, p ops.Parameter) error {
	if s.busy.Load() {
		return ErrBusy
	}
	return s.tryApply(kind, p)
}

func (s *Session) tryApply(kind ops.Kind, p ops.Parameter) error {
	s.mu.Lock()
	defer s.unlock()

	if s.source == nil {
		return ErrNoSourceImage
	}
	if !kind.Replayable() {
		return fmt.Errorf("%w: %s", ErrUnsupportedOperation, kind)
	}
	if s.log.Has(kind) {
		return fmt.Errorf("%s: %w", kind.Label(), ErrAlreadyApplied)
	}

	p = ops.ParamFor(kind, p.Level)
	start := time.Now()
	result, err := s.lib.Apply(s.current, kind, p)
	if err != nil {
		s.logger.Error("SESSION: Transform failed", "kind", kind.String(), "error", err)
		return fmt.Errorf("apply %s: %w", kind, err)
	}

	if err := s.log.Set(kind, p); err != nil {
		return err
	}
	s.install(result, kind.String())

	s.logger.Info("SESSION: Operation applied",
		"operation", ops.Describe(kind, p),
		"backend", s.lib.Name(),
		"duration", time.Since(start))
	s.notify(NoticeInfo, "Applied %s", ops.Describe(kind, p))
	return nil
}

// Clear removes kind from the log and rebuilds the image by replay.
// Clearing any replayable kind also drops a logged freehand blur, whose
// effect cannot be replayed.
func (s *Session) Clear(kind ops.Kind) error {
	if s.busy.Load() {
		return ErrBusy
	}
	if kind == ops.FreehandBlur {
		return s.ClearFreehand()
	}
	return s.clearKinds(kind)
}

// ClearFlips removes both flip directions with a single replay.
func (s *Session) ClearFlips() error {
	if s.busy.Load() {
		return ErrBusy
	}
	return s.clearKinds(ops.FlipHorizontal, ops.FlipVertical)
}

func (s *Session) clearKinds(kinds ...ops.Kind) error {
	s.mu.Lock()
	defer s.unlock()

	if s.source == nil {
		return ErrNoSourceImage
	}

	next := s.log.Clone()
	var removed []string
	for _, kind := range kinds {
		if !kind.Replayable() {
			return fmt.Errorf("%w: %s", ErrUnsupportedOperation, kind)
		}
		if next.Remove(kind) {
			removed = append(removed, kind.String())
		}
	}
	if len(removed) == 0 {
		return fmt.Errorf("%s: %w", kinds[0].Label(), ErrNotApplied)
	}
	droppedFreehand := next.Remove(ops.FreehandBlur)

	result, err := recompute(s.lib, s.source, next, s.logger)
	if err != nil {
		return err
	}

	s.log = next
	if droppedFreehand {
		s.resetFreehandLocked()
		s.notify(NoticeWarning, "Freehand blur was discarded because it cannot be replayed")
	}
	s.install(result, "clear")

	s.logger.Info("SESSION: Operation cleared", "removed", removed, "remaining", s.log.String())
	for _, tag := range removed {
		s.notify(NoticeInfo, "Cleared %s", tag)
	}
	return nil
}

// Reset restores the pristine source and empties the log.
func (s *Session) Reset() error {
	if s.busy.Load() {
		return ErrBusy
	}
	return s.restart(true)
}

// restart reinstalls the source as current with an empty log. The history
// gains a snapshot only when record is set.
func (s *Session) restart(record bool) error {
	s.mu.Lock()
	defer s.unlock()

	if s.source == nil {
		return ErrNoSourceImage
	}
	s.log.Reset()
	s.resetFreehandLocked()
	if record {
		s.install(s.source, "reset")
		s.notify(NoticeInfo, "Reset to original")
	} else {
		s.current = s.source
		s.pendingUpdate = s.source
	}
	s.logger.Info("SESSION: Reset to source", "recorded", record)
	return nil
}
