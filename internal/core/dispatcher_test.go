package core

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync"
	"testing"
	"time"

	"prompt-image-editor/internal/ops"
	"prompt-image-editor/internal/prompt"
)

func lastNotice(s *Session) Notice {
	all := s.NoticesSince(0)
	if len(all) == 0 {
		return Notice{}
	}
	return all[len(all)-1]
}

func TestPromptListScenario(t *testing.T) {
	lib := bildLib(t)
	src := testImage(24, 18)
	s := loaded(t, lib, src)
	mock := prompt.NewMockInterpreter([]ops.Request{
		{Type: "blur", Intensity: ops.High},
		{Type: "flip", Direction: ops.Vertical},
	})
	d := NewDispatcher(s, mock, nil)

	outcomes, err := d.Interpret(context.Background(), "blur it a lot and flip it upside down")
	if err != nil {
		t.Fatalf("Interpret() error = %v", err)
	}
	if len(outcomes) != 2 || !outcomes[0].Applied || !outcomes[1].Applied {
		t.Fatalf("outcomes = %+v", outcomes)
	}
	if s.LogString() != "blur=high, flipVertical" {
		t.Errorf("log = %q", s.LogString())
	}

	blurred, err := lib.Apply(src, ops.Blur, ops.Parameter{Level: ops.High})
	if err != nil {
		t.Fatal(err)
	}
	want, err := lib.Apply(blurred, ops.FlipVertical, ops.Unit)
	if err != nil {
		t.Fatal(err)
	}
	requireSame(t, s.Current(), want, "flip(blur(I0, high), vertical)")
	if s.HistoryLen() != 2 {
		t.Errorf("history = %d, want 2", s.HistoryLen())
	}
	if mock.Calls[0].Applied != "none" {
		t.Errorf("interpreter saw log %q", mock.Calls[0].Applied)
	}
}

func TestApplyListStartsFromSource(t *testing.T) {
	src := testImage(8, 8)
	s := loaded(t, &stubLib{}, src)
	d := NewDispatcher(s, nil, nil)
	mustApply(t, s, ops.Sharpen, ops.LevelNone)

	outcomes, err := d.ApplyList([]ops.Request{
		{Type: "cartoon"},
		{Type: "grayscale"},
		{Type: "grayscale"},
		{Type: "freehandBlur"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if s.Applied(ops.Sharpen) {
		t.Error("previous log survived the list")
	}
	applied := 0
	for _, o := range outcomes {
		if o.Applied {
			applied++
		}
	}
	if applied != 1 || s.LogString() != "grayscale" {
		t.Errorf("applied = %d, log = %q", applied, s.LogString())
	}
	requireErr(t, outcomes[0].Err(), ErrUnsupportedOperation)
	requireErr(t, outcomes[2].Err(), ErrAlreadyApplied)
	requireErr(t, outcomes[3].Err(), ErrUnsupportedOperation)

	want, _ := Recompute(&stubLib{}, src, logOf(ops.Grayscale))
	requireSame(t, s.Current(), want, "list result")
}

func TestDispatcherApplyNotices(t *testing.T) {
	s := loaded(t, &stubLib{}, testImage(8, 8))
	d := NewDispatcher(s, nil, nil)

	if out := d.Apply(ops.Request{Type: "contrast", Intensity: ops.Low}); !out.Applied || out.Kind != "contrast" {
		t.Fatalf("outcome = %+v", out)
	}
	out := d.Apply(ops.Request{Type: "contrast", Intensity: ops.High})
	if out.Applied {
		t.Fatal("second contrast applied")
	}
	n := lastNotice(s)
	if n.Level != NoticeError || !strings.Contains(n.Message, "already applied") || !strings.Contains(n.Message, "Clear first") {
		t.Errorf("notice = %+v", n)
	}

	d.Apply(ops.Request{Type: "vignette"})
	if n := lastNotice(s); n.Level != NoticeError || !strings.Contains(n.Message, "vignette") {
		t.Errorf("unsupported notice = %+v", n)
	}

	if out := d.Clear("sharpen"); out.Applied || !errors.Is(out.Err(), ErrNotApplied) {
		t.Errorf("clear absent = %+v", out)
	}
	if out := d.Clear("contrast"); !out.Applied {
		t.Errorf("clear contrast = %+v", out)
	}
}

func TestDispatcherClearFlipTag(t *testing.T) {
	src := testImage(8, 6)
	s := loaded(t, &stubLib{}, src)
	d := NewDispatcher(s, nil, nil)
	d.Apply(ops.Request{Type: "flip", Direction: ops.Horizontal})
	d.Apply(ops.Request{Type: "flip", Direction: ops.Vertical})

	if out := d.Clear("flip"); !out.Applied || out.Kind != "flip" {
		t.Fatalf("clear flip = %+v", out)
	}
	if s.log.Len() != 0 {
		t.Errorf("log = %s", s.LogString())
	}
	requireSame(t, s.Current(), src, "after clearing flips")
}

func TestDispatcherNoImage(t *testing.T) {
	s := NewSession(&stubLib{}, nil)
	d := NewDispatcher(s, prompt.NewMockInterpreter([]ops.Request{{Type: "blur"}}), nil)

	if out := d.Apply(ops.Request{Type: "blur"}); out.Applied || !errors.Is(out.Err(), ErrNoSourceImage) {
		t.Errorf("outcome = %+v", out)
	}
	if n := lastNotice(s); n.Message != "Upload an image first." {
		t.Errorf("notice = %q", n.Message)
	}
	if _, err := d.Interpret(context.Background(), "blur"); !errors.Is(err, ErrNoSourceImage) {
		t.Errorf("Interpret() error = %v", err)
	}
}

func TestInterpretFailuresLeaveStateUntouched(t *testing.T) {
	for _, tt := range []struct {
		name string
		err  error
		resp []ops.Request
		msg  string
	}{
		{"backend down", prompt.ErrBackendUnavailable, nil, "Failed to get operations from backend."},
		{"malformed", prompt.ErrMalformedResponse, nil, "Invalid operations received from backend."},
		{"empty list", nil, []ops.Request{}, "Invalid operations received from backend."},
	} {
		t.Run(tt.name, func(t *testing.T) {
			s := loaded(t, &stubLib{}, testImage(8, 8))
			mustApply(t, s, ops.Blur, ops.High)
			before := s.Current()

			mock := prompt.NewMockInterpreter(tt.resp)
			mock.Err = tt.err
			d := NewDispatcher(s, mock, nil)

			if _, err := d.Interpret(context.Background(), "do something"); err == nil {
				t.Fatal("Interpret() succeeded")
			}
			requireSame(t, s.Current(), before, "image after failed prompt")
			if s.LogString() != "blur=high" {
				t.Errorf("log = %q", s.LogString())
			}
			if n := lastNotice(s); n.Message != tt.msg {
				t.Errorf("notice = %q, want %q", n.Message, tt.msg)
			}
			if s.Busy() {
				t.Error("busy flag left set")
			}
		})
	}
}

func TestInterpretEmptyPrompt(t *testing.T) {
	s := loaded(t, &stubLib{}, testImage(4, 4))
	mock := prompt.NewMockInterpreter([]ops.Request{{Type: "blur"}})
	d := NewDispatcher(s, mock, nil)
	requireErr(t, func() error { _, err := d.Interpret(context.Background(), "  "); return err }(), ErrEmptyPrompt)
	if mock.CallCount() != 0 {
		t.Error("interpreter called for an empty prompt")
	}

	none := NewDispatcher(s, nil, nil)
	if _, err := none.Interpret(context.Background(), "blur"); !errors.Is(err, prompt.ErrBackendUnavailable) {
		t.Errorf("nil interpreter error = %v", err)
	}
}

func TestAtMostOneInterpretation(t *testing.T) {
	s := loaded(t, &stubLib{}, testImage(8, 8))
	mock := prompt.NewMockInterpreter([]ops.Request{{Type: "grayscale"}})
	mock.Delay = 200 * time.Millisecond
	d := NewDispatcher(s, mock, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = d.Interpret(context.Background(), "gray")
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !s.Busy() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !s.Busy() {
		t.Fatal("first interpretation never started")
	}

	if _, err := d.Interpret(context.Background(), "again"); !errors.Is(err, ErrBusy) {
		t.Errorf("concurrent Interpret() error = %v", err)
	}
	requireErr(t, s.TryApply(ops.Blur, ops.Unit), ErrBusy)
	requireErr(t, s.Clear(ops.Blur), ErrBusy)
	requireErr(t, s.Load(testImage(4, 4), "png"), ErrBusy)
	requireErr(t, s.Freehand().BeginStroke(image.Pt(1, 1)), ErrBusy)

	wg.Wait()
	if firstErr != nil {
		t.Fatalf("first Interpret() error = %v", firstErr)
	}
	if mock.CallCount() != 1 {
		t.Errorf("interpreter calls = %d", mock.CallCount())
	}
	if s.LogString() != "grayscale" || s.Busy() {
		t.Errorf("log = %q, busy = %v", s.LogString(), s.Busy())
	}
}

func TestMessage(t *testing.T) {
	if got := Message(ErrBusy); !strings.Contains(got, "wait") {
		t.Errorf("Message(ErrBusy) = %q", got)
	}
	if got := Message(errors.New("boom")); got != "boom" {
		t.Errorf("Message(other) = %q", got)
	}
}
