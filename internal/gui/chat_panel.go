// internal/gui/chat_panel.go
// Prompt entry and conversation log
package gui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"prompt-image-editor/internal/core"
)

type chatLine struct {
	author string
	text   string
}

func (l chatLine) String() string {
	return fmt.Sprintf("%s: %s", l.author, l.text)
}

// maxChatLines bounds the conversation log.
const maxChatLines = 200

type ChatPanel struct {
	dispatcher *core.Dispatcher
	logger     *slog.Logger
	ctx        context.Context

	container *fyne.Container
	entry     *widget.Entry
	sendBtn   *widget.Button
	progress  *widget.ProgressBarInfinite
	list      *widget.List

	lines []chatLine
	busy  bool
}

// NewChatPanel builds the panel. Interpretations are cancelled when ctx ends.
func NewChatPanel(ctx context.Context, dispatcher *core.Dispatcher, logger *slog.Logger) *ChatPanel {
	panel := &ChatPanel{
		dispatcher: dispatcher,
		logger:     logger,
		ctx:        ctx,
	}

	panel.initializeUI()
	return panel
}

func (cp *ChatPanel) initializeUI() {
	cp.list = widget.NewList(
		func() int { return len(cp.lines) },
		func() fyne.CanvasObject {
			label := widget.NewLabel("")
			label.Wrapping = fyne.TextWrapWord
			return label
		},
		func(id widget.ListItemID, item fyne.CanvasObject) {
			item.(*widget.Label).SetText(cp.lines[id].String())
		},
	)

	cp.entry = widget.NewEntry()
	cp.entry.SetPlaceHolder("e.g. blur it a lot and flip it upside down")
	cp.entry.OnSubmitted = func(string) { cp.send() }

	cp.sendBtn = widget.NewButtonWithIcon("Send", theme.MailSendIcon(), cp.send)
	cp.sendBtn.Importance = widget.HighImportance

	cp.progress = widget.NewProgressBarInfinite()
	cp.progress.Stop()
	cp.progress.Hide()

	input := container.NewBorder(nil, cp.progress, nil, cp.sendBtn, cp.entry)
	cp.container = container.NewBorder(nil, input, nil, nil, cp.list)
	cp.Disable()
}

func (cp *ChatPanel) send() {
	text := strings.TrimSpace(cp.entry.Text)
	if text == "" {
		return
	}
	cp.entry.SetText("")
	cp.AddLine("You", text)
	cp.setBusy(true)

	go func() {
		outcomes, err := cp.dispatcher.Interpret(cp.ctx, text)
		if err != nil {
			cp.logger.Warn("PROMPT: Request failed", "error", err)
		}
		summary := summarize(outcomes, cp.dispatcher.Session().LogString())
		fyne.Do(func() {
			cp.setBusy(false)
			if err == nil {
				cp.AddLine("Editor", summary)
			}
		})
	}()
}

// summarize describes an interpretation result for the conversation log.
func summarize(outcomes []core.Outcome, applied string) string {
	done := 0
	for _, o := range outcomes {
		if o.Applied {
			done++
		}
	}
	if applied == "" {
		applied = "none"
	}
	return fmt.Sprintf("Applied %d of %d operations. Active: %s", done, len(outcomes), applied)
}

// AddNotice appends a session notice. Call on the UI goroutine.
func (cp *ChatPanel) AddNotice(n core.Notice) {
	author := "Info"
	switch n.Level {
	case core.NoticeWarning:
		author = "Warning"
	case core.NoticeError:
		author = "Error"
	}
	cp.AddLine(author, n.Message)
}

func (cp *ChatPanel) AddLine(author, text string) {
	cp.lines = append(cp.lines, chatLine{author: author, text: text})
	if len(cp.lines) > maxChatLines {
		cp.lines = cp.lines[len(cp.lines)-maxChatLines:]
	}
	cp.list.Refresh()
	cp.list.ScrollToBottom()
}

func (cp *ChatPanel) setBusy(busy bool) {
	cp.busy = busy
	if busy {
		cp.sendBtn.Disable()
		cp.entry.Disable()
		cp.progress.Show()
		cp.progress.Start()
		return
	}
	cp.progress.Stop()
	cp.progress.Hide()
	cp.sendBtn.Enable()
	cp.entry.Enable()
}

func (cp *ChatPanel) GetContainer() fyne.CanvasObject {
	return cp.container
}

// Enable is a no-op while a prompt is outstanding.
func (cp *ChatPanel) Enable() {
	if cp.busy {
		return
	}
	cp.sendBtn.Enable()
	cp.entry.Enable()
}

func (cp *ChatPanel) Disable() {
	cp.sendBtn.Disable()
	cp.entry.Disable()
}
