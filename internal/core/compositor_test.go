package core

import (
	"image"
	"testing"

	"prompt-image-editor/internal/ops"
)

func TestPaintThenClearRestoresSnapshot(t *testing.T) {
	lib := bildLib(t)
	s := loaded(t, lib, testImage(40, 30))
	mustApply(t, s, ops.Contrast, ops.Low)
	mustApply(t, s, ops.Sharpen, ops.LevelNone)
	before := s.Current()

	if err := s.PaintStroke([]image.Point{{10, 10}, {14, 12}, {18, 14}}); err != nil {
		t.Fatalf("PaintStroke() error = %v", err)
	}
	if !s.Applied(ops.FreehandBlur) {
		t.Fatal("freehandBlur not logged")
	}
	if sameImage(s.Current(), before) {
		t.Fatal("stroke changed nothing")
	}

	if err := s.ClearFreehand(); err != nil {
		t.Fatalf("ClearFreehand() error = %v", err)
	}
	requireSame(t, s.Current(), before, "after clearing freehand")
	if s.LogString() != "contrast=low, sharpen" {
		t.Errorf("log = %q", s.LogString())
	}
	requireErr(t, s.ClearFreehand(), ErrNotApplied)
}

func TestStrokeIsHardEdged(t *testing.T) {
	lib := &stubLib{}
	src := testImage(40, 40)
	s := loaded(t, lib, src)
	if err := s.SetBrush(5, 21); err != nil {
		t.Fatal(err)
	}

	if err := s.PaintStroke([]image.Point{{20, 20}}); err != nil {
		t.Fatal(err)
	}
	got := s.Current()

	inside := got.RGBAAt(20, 20)
	if inside.R != 1 || inside.G != 2 || inside.B != 3 {
		t.Errorf("inside pixel = %v, want blurred", inside)
	}
	edge := got.RGBAAt(25, 20)
	if edge.R != 1 {
		t.Errorf("disc edge pixel = %v, want blurred", edge)
	}
	for _, p := range []image.Point{{26, 20}, {0, 0}, {20, 26}, {39, 39}} {
		if got.RGBAAt(p.X, p.Y) != src.RGBAAt(p.X, p.Y) {
			t.Errorf("pixel %v outside the stroke changed", p)
		}
	}
}

func TestSecondStrokeKeepsOriginalSnapshot(t *testing.T) {
	s := loaded(t, &stubLib{}, testImage(30, 30))
	before := s.Current()

	if err := s.PaintStroke([]image.Point{{5, 5}}); err != nil {
		t.Fatal(err)
	}
	if err := s.PaintStroke([]image.Point{{25, 25}}); err != nil {
		t.Fatal(err)
	}
	if len(s.Log()) != 1 {
		t.Errorf("log = %s", s.LogString())
	}
	if err := s.ClearFreehand(); err != nil {
		t.Fatal(err)
	}
	requireSame(t, s.Current(), before, "after clearing two strokes")
}

func TestClearFreehandAfterLaterOperation(t *testing.T) {
	lib := &stubLib{}
	src := testImage(20, 20)
	s := loaded(t, lib, src)
	mustApply(t, s, ops.Blur, ops.Medium)

	if err := s.PaintStroke([]image.Point{{10, 10}}); err != nil {
		t.Fatal(err)
	}
	mustApply(t, s, ops.Grayscale, ops.LevelNone)

	if err := s.ClearFreehand(); err != nil {
		t.Fatal(err)
	}
	want, err := Recompute(&stubLib{}, src, logOf(ops.Blur, ops.Grayscale))
	if err != nil {
		t.Fatal(err)
	}
	requireSame(t, s.Current(), want, "replayed without freehand")
}

func TestClearingOtherKindDropsFreehand(t *testing.T) {
	src := testImage(20, 20)
	s := loaded(t, &stubLib{}, src)
	mustApply(t, s, ops.Blur, ops.High)
	mustApply(t, s, ops.Grayscale, ops.LevelNone)
	if err := s.PaintStroke([]image.Point{{10, 10}}); err != nil {
		t.Fatal(err)
	}
	seq := s.NoticeSeq()

	if err := s.Clear(ops.Blur); err != nil {
		t.Fatal(err)
	}
	if s.Applied(ops.FreehandBlur) {
		t.Error("freehandBlur survived a replay")
	}
	want, _ := Recompute(&stubLib{}, src, logOf(ops.Grayscale))
	requireSame(t, s.Current(), want, "replay without freehand")

	warned := false
	for _, n := range s.NoticesSince(seq) {
		if n.Level == NoticeWarning {
			warned = true
		}
	}
	if !warned {
		t.Error("no warning about the discarded freehand blur")
	}
}

func TestCompositorGesture(t *testing.T) {
	lib := &stubLib{}
	s := loaded(t, lib, testImage(30, 30))
	c := s.Freehand()

	// Disabled: presses are ignored.
	if err := c.BeginStroke(image.Pt(5, 5)); err != nil {
		t.Fatal(err)
	}
	if c.Painting() {
		t.Fatal("painting while disabled")
	}

	on, err := c.Toggle()
	if err != nil || !on {
		t.Fatalf("Toggle() = %v, %v", on, err)
	}
	if err := c.BeginStroke(image.Pt(5, 5)); err != nil {
		t.Fatal(err)
	}
	if !c.Painting() {
		t.Fatal("not painting after BeginStroke")
	}
	if err := c.StrokeTo(image.Pt(8, 8)); err != nil {
		t.Fatal(err)
	}
	if c.Overlay() == nil {
		t.Fatal("no overlay")
	}

	// Leaving the surface keeps the mask but applies nothing.
	c.CancelStroke()
	if c.Painting() || s.Applied(ops.FreehandBlur) || lib.blurs != 0 {
		t.Fatalf("cancel applied the stroke")
	}

	// The next gesture applies the kept mask too.
	if err := c.BeginStroke(image.Pt(25, 25)); err != nil {
		t.Fatal(err)
	}
	if err := c.EndStroke(); err != nil {
		t.Fatal(err)
	}
	if !s.Applied(ops.FreehandBlur) || lib.blurs != 1 {
		t.Fatalf("log = %s, blurs = %d", s.LogString(), lib.blurs)
	}
	cur := s.Current()
	if cur.RGBAAt(5, 5).R != 1 || cur.RGBAAt(25, 25).R != 1 {
		t.Error("kept mask was not applied")
	}
	if !s.mask.Empty() {
		t.Error("mask not reset after release")
	}
}

func TestEndStrokeWithoutStampsIsNoop(t *testing.T) {
	lib := &stubLib{}
	s := loaded(t, lib, testImage(10, 10))
	if err := s.Freehand().EndStroke(); err != nil {
		t.Fatal(err)
	}
	if lib.blurs != 0 || s.HistoryLen() != 0 {
		t.Error("empty release changed state")
	}

	// A stroke entirely off the image stamps nothing.
	if err := s.PaintStroke([]image.Point{{-100, -100}}); err != nil {
		t.Fatal(err)
	}
	if s.Applied(ops.FreehandBlur) || s.snapshot != nil {
		t.Error("off-image stroke was applied")
	}
}

func TestFreehandRequiresImage(t *testing.T) {
	s := NewSession(&stubLib{}, nil)
	c := s.Freehand()
	requireErr(t, c.SetEnabled(true), ErrNoSourceImage)
	requireErr(t, c.BeginStroke(image.Pt(1, 1)), ErrNoSourceImage)
	requireErr(t, s.PaintStroke([]image.Point{{1, 1}}), ErrNoSourceImage)
}

func TestDisablingCancelsGesture(t *testing.T) {
	s := loaded(t, &stubLib{}, testImage(10, 10))
	c := s.Freehand()
	c.SetEnabled(true)
	c.BeginStroke(image.Pt(2, 2))
	if err := c.SetEnabled(false); err != nil {
		t.Fatal(err)
	}
	if c.Painting() || s.Applied(ops.FreehandBlur) {
		t.Error("disabling applied or kept painting")
	}
}

func TestMaskStamp(t *testing.T) {
	m := NewMask(20, 20)
	defer m.Close()
	if !m.Empty() {
		t.Fatal("new mask not empty")
	}
	if err := m.Stamp(image.Pt(10, 10), 3); err != nil {
		t.Fatal(err)
	}
	for _, p := range []image.Point{{10, 10}, {13, 10}, {7, 10}, {10, 13}, {10, 7}, {12, 12}} {
		if !m.Selected(p.X, p.Y) {
			t.Errorf("pixel %v inside the disc not selected", p)
		}
	}
	for _, p := range []image.Point{{14, 10}, {10, 14}, {13, 13}, {6, 6}, {0, 0}} {
		if m.Selected(p.X, p.Y) {
			t.Errorf("pixel %v outside the disc selected", p)
		}
	}
	// Between the 29 pixels with d <= 3 and the 37 with d < 3.5.
	if got := m.Coverage(); got < 29.0/400.0 || got > 37.0/400.0 {
		t.Errorf("Coverage() = %v", got)
	}

	if err := m.Stamp(image.Pt(0, 0), 2); err != nil {
		t.Fatal(err)
	}
	if !m.Selected(0, 0) || !m.Selected(2, 0) {
		t.Error("corner stamp dropped")
	}
	m.Reset()
	if !m.Empty() || m.Selected(10, 10) {
		t.Error("Reset() left pixels")
	}
}

func TestMaskStampOutsideBounds(t *testing.T) {
	m := NewMask(10, 10)
	defer m.Close()
	if err := m.Stamp(image.Pt(-20, 5), 4); err != nil {
		t.Fatal(err)
	}
	if !m.Empty() {
		t.Error("stamp off the mask marked it painted")
	}
	// The disc's rim reaches column 1.
	if err := m.Stamp(image.Pt(-3, 5), 4); err != nil {
		t.Fatal(err)
	}
	if m.Empty() || !m.Selected(0, 5) || !m.Selected(1, 5) || m.Selected(2, 5) {
		t.Error("partially visible disc not clipped to the bounds")
	}
}

func TestScalePoint(t *testing.T) {
	tests := []struct {
		device, displayed, buffer, want image.Point
	}{
		{image.Pt(50, 25), image.Pt(100, 50), image.Pt(1000, 500), image.Pt(500, 250)},
		{image.Pt(3, 3), image.Pt(400, 300), image.Pt(200, 150), image.Pt(2, 2)},
		{image.Pt(7, 9), image.Pt(0, 0), image.Pt(10, 10), image.Pt(7, 9)},
	}
	for _, tt := range tests {
		if got := ScalePoint(tt.device, tt.displayed, tt.buffer); got != tt.want {
			t.Errorf("ScalePoint(%v, %v, %v) = %v, want %v", tt.device, tt.displayed, tt.buffer, got, tt.want)
		}
	}
}
