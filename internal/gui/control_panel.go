// internal/gui/control_panel.go
// Operation controls: one row per kind with apply and clear buttons
package gui

import (
	"log/slog"
	"sort"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"prompt-image-editor/internal/algorithms"
	"prompt-image-editor/internal/core"
	"prompt-image-editor/internal/ops"
)

var levelOptions = []string{ops.Low.String(), ops.Medium.String(), ops.High.String()}

type operationRow struct {
	kind      ops.Kind
	name      string
	status    *widget.Label
	detail    *widget.Label
	intensity *widget.Select
	applyBtn  *widget.Button
	clearBtn  *widget.Button
}

type ControlPanel struct {
	dispatcher *core.Dispatcher
	logger     *slog.Logger

	container *fyne.Container

	rows          []*operationRow
	clearFlipsBtn *widget.Button
	freehandCheck *widget.Check
	clearBlurBtn  *widget.Button
	resetBtn      *widget.Button

	enabled bool

	// Guards freehandCheck.OnChanged against programmatic updates
	syncing bool

	// run executes a session call off the UI goroutine
	run func(func())
}

func NewControlPanel(dispatcher *core.Dispatcher, logger *slog.Logger) *ControlPanel {
	panel := &ControlPanel{
		dispatcher: dispatcher,
		logger:     logger,
		run:        func(fn func()) { go fn() },
	}

	panel.initializeUI()
	return panel
}

func (cp *ControlPanel) initializeUI() {
	categories := algorithms.GetAlgorithmsByCategory()
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)

	sections := container.NewVBox()
	for _, name := range names {
		rows := container.NewVBox()
		for _, kind := range categories[name] {
			row := cp.newRow(kind)
			cp.rows = append(cp.rows, row)
			rows.Add(row.layout())
		}
		if name == "Geometry" {
			cp.clearFlipsBtn = widget.NewButtonWithIcon("Clear flips", theme.ContentUndoIcon(), func() {
				cp.dispatch(func(d *core.Dispatcher) { d.Clear("flip") })
			})
			rows.Add(cp.clearFlipsBtn)
		}
		sections.Add(widget.NewCard(name, "", rows))
	}

	cp.freehandCheck = widget.NewCheck("Paint to blur", func(on bool) {
		if cp.syncing {
			return
		}
		cp.dispatch(func(d *core.Dispatcher) {
			if err := d.Session().Freehand().SetEnabled(on); err != nil {
				d.Report(err)
			}
		})
	})
	cp.clearBlurBtn = widget.NewButtonWithIcon("Clear", theme.ContentUndoIcon(), func() {
		cp.dispatch(func(d *core.Dispatcher) {
			if err := d.Session().ClearFreehand(); err != nil {
				d.Report(err)
			}
		})
	})
	freehandCard := widget.NewCard(ops.FreehandBlur.Label(), "",
		container.NewBorder(nil, nil, nil, cp.clearBlurBtn, cp.freehandCheck))

	cp.resetBtn = widget.NewButtonWithIcon("Reset to original", theme.ViewRefreshIcon(), func() {
		cp.dispatch(func(d *core.Dispatcher) { d.Reset() })
	})
	cp.resetBtn.Importance = widget.HighImportance

	content := container.NewVBox(
		sections,
		widget.NewSeparator(),
		freehandCard,
		widget.NewSeparator(),
		cp.resetBtn,
	)

	cp.container = container.NewBorder(nil, nil, nil, nil, container.NewVScroll(content))
	cp.Disable()
}

// describe returns the display name and description the algorithm registry
// holds for kind, falling back to the kind's label.
func describe(kind ops.Kind) (name, description string) {
	algorithm, ok := algorithms.Get(kind)
	if !ok {
		return kind.Label(), ""
	}
	return algorithm.GetName(), algorithm.GetDescription()
}

func (cp *ControlPanel) newRow(kind ops.Kind) *operationRow {
	name, description := describe(kind)
	row := &operationRow{
		kind:   kind,
		name:   name,
		status: widget.NewLabel(name),
		detail: widget.NewLabelWithStyle(description, fyne.TextAlignLeading, fyne.TextStyle{Italic: true}),
	}
	row.detail.Wrapping = fyne.TextWrapWord
	row.detail.Importance = widget.LowImportance
	if description == "" {
		row.detail.Hide()
	}
	if kind.HasIntensity() {
		row.intensity = widget.NewSelect(levelOptions, nil)
		row.intensity.SetSelected(ops.DefaultLevel.String())
	}
	row.applyBtn = widget.NewButtonWithIcon("", theme.ConfirmIcon(), func() {
		req := ops.RequestFor(kind, ops.Unit)
		if row.intensity != nil {
			level, err := ops.ParseLevel(row.intensity.Selected)
			if err == nil {
				req.Intensity = level
			}
		}
		cp.dispatch(func(d *core.Dispatcher) { d.Apply(req) })
	})
	row.clearBtn = widget.NewButtonWithIcon("", theme.ContentUndoIcon(), func() {
		cp.dispatch(func(d *core.Dispatcher) { d.Clear(kind.String()) })
	})
	return row
}

func (r *operationRow) layout() fyne.CanvasObject {
	buttons := container.NewHBox()
	if r.intensity != nil {
		buttons.Add(r.intensity)
	}
	buttons.Add(r.applyBtn)
	buttons.Add(r.clearBtn)
	return container.NewVBox(
		container.NewBorder(nil, nil, nil, buttons, r.status),
		r.detail,
	)
}

func (cp *ControlPanel) dispatch(fn func(*core.Dispatcher)) {
	cp.run(func() { fn(cp.dispatcher) })
}

// Refresh marks applied kinds and syncs the freehand toggle. Call on the UI
// goroutine.
func (cp *ControlPanel) Refresh() {
	session := cp.dispatcher.Session()
	for _, row := range cp.rows {
		label := row.name
		if session.Applied(row.kind) {
			label = "✓ " + label
		}
		row.status.SetText(label)
	}

	cp.syncing = true
	cp.freehandCheck.SetChecked(session.Freehand().Enabled())
	cp.syncing = false

	if session.Applied(ops.FreehandBlur) && cp.enabled {
		cp.clearBlurBtn.Enable()
	} else {
		cp.clearBlurBtn.Disable()
	}
}

func (cp *ControlPanel) GetContainer() fyne.CanvasObject {
	return cp.container
}

func (cp *ControlPanel) Enable() {
	cp.setEnabled(true)
}

func (cp *ControlPanel) Disable() {
	cp.setEnabled(false)
}

func (cp *ControlPanel) setEnabled(on bool) {
	cp.enabled = on
	toggle := func(w fyne.Disableable) {
		if on {
			w.Enable()
		} else {
			w.Disable()
		}
	}
	for _, row := range cp.rows {
		toggle(row.applyBtn)
		toggle(row.clearBtn)
		if row.intensity != nil {
			toggle(row.intensity)
		}
	}
	toggle(cp.clearFlipsBtn)
	toggle(cp.freehandCheck)
	toggle(cp.clearBlurBtn)
	toggle(cp.resetBtn)
}
