package core

import (
	"fmt"
	"image"
	"time"

	"prompt-image-editor/internal/ops"
)

// Compositor drives freehand blur painting on a session. A gesture is
// BeginStroke, any number of StrokeTo calls, then EndStroke (apply) or
// CancelStroke (pointer left the surface; the mask is kept).
type Compositor struct {
	s *Session
}

// Freehand returns the compositor bound to the session.
func (s *Session) Freehand() *Compositor {
	return &Compositor{s: s}
}

// Enabled reports whether the freehand tool is on.
func (c *Compositor) Enabled() bool {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.freehandEnabled
}

// SetEnabled switches the freehand tool. Turning it off mid-gesture ends the
// gesture without applying.
func (c *Compositor) SetEnabled(on bool) error {
	s := c.s
	s.mu.Lock()
	defer s.unlock()

	if on && s.source == nil {
		return ErrNoSourceImage
	}
	s.freehandEnabled = on
	if !on {
		c.cancelLocked()
	}
	s.logger.Debug("FREEHAND: Tool toggled", "enabled", on)
	if on {
		s.notify(NoticeInfo, "Freehand blur enabled")
	} else {
		s.notify(NoticeInfo, "Freehand blur disabled")
	}
	return nil
}

// Toggle flips the tool state and returns the new state.
func (c *Compositor) Toggle() (bool, error) {
	on := !c.Enabled()
	if err := c.SetEnabled(on); err != nil {
		return !on, err
	}
	return on, nil
}

// Painting reports whether a gesture is in progress.
func (c *Compositor) Painting() bool {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.painting
}

// BrushRadius returns the stamp radius in image pixels.
func (c *Compositor) BrushRadius() int {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	return c.s.brushRadius
}

// BeginStroke enters Painting at p (image space). It is ignored while the
// tool is disabled.
func (c *Compositor) BeginStroke(p image.Point) error {
	s := c.s
	if s.busy.Load() {
		return ErrBusy
	}
	s.mu.Lock()
	defer s.unlock()

	if s.source == nil {
		return ErrNoSourceImage
	}
	if !s.freehandEnabled {
		return nil
	}
	c.beginLocked()
	return c.stampLocked(p)
}

// StrokeTo stamps at p while Painting.
func (c *Compositor) StrokeTo(p image.Point) error {
	s := c.s
	s.mu.Lock()
	defer s.unlock()

	if !s.painting {
		return nil
	}
	return c.stampLocked(p)
}

// EndStroke composites the blurred image through the mask and logs
// freehandBlur. A gesture that painted nothing changes nothing.
func (c *Compositor) EndStroke() error {
	s := c.s
	s.mu.Lock()
	defer s.unlock()

	if !s.painting {
		return nil
	}
	s.painting = false
	return c.applyLocked()
}

// CancelStroke leaves Painting without applying. Painted pixels stay in the
// mask and are applied by the next release.
func (c *Compositor) CancelStroke() {
	s := c.s
	s.mu.Lock()
	defer s.unlock()
	c.cancelLocked()
}

// Overlay returns the translucent feedback layer, or nil before a load.
func (c *Compositor) Overlay() image.Image {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if c.s.overlay == nil {
		return nil
	}
	return c.s.overlay.Image()
}

// PaintStroke runs a whole gesture over points in one call, regardless of
// the tool toggle.
func (s *Session) PaintStroke(points []image.Point) error {
	if s.busy.Load() {
		return ErrBusy
	}
	s.mu.Lock()
	defer s.unlock()

	if s.source == nil {
		return ErrNoSourceImage
	}
	if len(points) == 0 {
		return fmt.Errorf("%w: empty stroke", ops.ErrInvalidParameter)
	}

	c := &Compositor{s: s}
	c.beginLocked()
	for _, p := range points {
		if err := c.stampLocked(p); err != nil {
			s.painting = false
			return err
		}
	}
	s.painting = false
	return c.applyLocked()
}

// ClearFreehand undoes freehand blur. The pre-stroke snapshot is restored
// directly unless another operation changed the image after it was taken;
// then the image is rebuilt by replay without the freehand entry.
func (s *Session) ClearFreehand() error {
	if s.busy.Load() {
		return ErrBusy
	}
	s.mu.Lock()
	defer s.unlock()

	if s.source == nil {
		return ErrNoSourceImage
	}
	if !s.log.Has(ops.FreehandBlur) || s.snapshot == nil {
		return fmt.Errorf("%s: %w", ops.FreehandBlur.Label(), ErrNotApplied)
	}

	restored := s.snapshot
	if s.snapshotStale {
		next := s.log.Clone()
		next.Remove(ops.FreehandBlur)
		replayed, err := recompute(s.lib, s.source, next, s.logger)
		if err != nil {
			return err
		}
		restored = replayed
		s.logger.Debug("FREEHAND: Image changed after blur, clearing by replay")
	}

	s.log.Remove(ops.FreehandBlur)
	s.resetFreehandLocked()
	s.install(restored, "clear")

	s.logger.Info("FREEHAND: Cleared")
	s.notify(NoticeInfo, "Cleared %s", ops.FreehandBlur)
	return nil
}

func (c *Compositor) beginLocked() {
	s := c.s
	if s.snapshot == nil {
		s.snapshot = s.current
	}
	s.painting = true
}

func (c *Compositor) stampLocked(p image.Point) error {
	s := c.s
	if err := s.mask.Stamp(p, s.brushRadius); err != nil {
		return err
	}
	if err := s.overlay.Disc(p, s.brushRadius); err != nil {
		return fmt.Errorf("draw feedback: %w", err)
	}
	return nil
}

func (c *Compositor) cancelLocked() {
	s := c.s
	if !s.painting {
		return
	}
	s.painting = false
	if s.overlay != nil {
		s.overlay.Clear()
	}
	if s.mask.Empty() && !s.log.Has(ops.FreehandBlur) {
		s.snapshot = nil
	}
	s.logger.Debug("FREEHAND: Stroke cancelled", "mask_pending", !s.mask.Empty())
}

func (c *Compositor) applyLocked() error {
	s := c.s
	s.overlay.Clear()

	if s.mask.Empty() {
		if !s.log.Has(ops.FreehandBlur) {
			s.snapshot = nil
		}
		return nil
	}

	start := time.Now()
	blurred, err := s.lib.GaussianBlur(s.current, s.freehandKernel)
	if err != nil {
		return fmt.Errorf("freehand blur: %w", err)
	}
	result, err := s.mask.Composite(s.current, blurred)
	if err != nil {
		return fmt.Errorf("freehand blur: %w", err)
	}
	coverage := s.mask.Coverage()
	s.mask.Reset()

	first := !s.log.Has(ops.FreehandBlur)
	if first {
		if err := s.log.Set(ops.FreehandBlur, ops.Unit); err != nil {
			return err
		}
	}
	s.install(result, ops.FreehandBlur.String())

	s.logger.Info("FREEHAND: Stroke applied",
		"coverage", coverage,
		"kernel", s.freehandKernel,
		"duration", time.Since(start))
	if first {
		s.notify(NoticeInfo, "Applied %s", ops.FreehandBlur)
	}
	return nil
}
