// internal/gui/info_panel.go
// Session summary and per-step quality metrics
package gui

import (
	"fmt"
	"log/slog"
	"math"
	"sort"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"prompt-image-editor/internal/core"
)

type InfoPanel struct {
	session *core.Session
	logger  *slog.Logger

	container *fyne.Container

	sizeLabel    *widget.Label
	logLabel     *widget.Label
	historyLabel *widget.Label

	metricsContent *fyne.Container
	reportLabel    *widget.Label
	compareBtn     *widget.Button
}

func NewInfoPanel(session *core.Session, logger *slog.Logger) *InfoPanel {
	panel := &InfoPanel{
		session: session,
		logger:  logger,
	}

	panel.initializeUI()
	return panel
}

func (ip *InfoPanel) initializeUI() {
	ip.sizeLabel = widget.NewLabel("No image loaded")
	ip.logLabel = widget.NewLabel("Applied: none")
	ip.logLabel.Wrapping = fyne.TextWrapWord
	ip.historyLabel = widget.NewLabel("History: 0")
	sessionCard := widget.NewCard("Session", "",
		container.NewVBox(ip.sizeLabel, ip.logLabel, ip.historyLabel))

	ip.metricsContent = container.NewVBox(
		widget.NewLabel("Metrics for the last step appear here."),
	)
	metricsCard := widget.NewCard("Last step", "", ip.metricsContent)

	ip.reportLabel = widget.NewLabel("")
	ip.reportLabel.Wrapping = fyne.TextWrapWord
	ip.compareBtn = widget.NewButtonWithIcon("Compare with original", theme.SearchIcon(), ip.compare)
	ip.compareBtn.Disable()
	reportCard := widget.NewCard("Quality report", "",
		container.NewVBox(ip.compareBtn, ip.reportLabel))

	scroll := container.NewVScroll(container.NewVBox(
		sessionCard,
		widget.NewSeparator(),
		metricsCard,
		widget.NewSeparator(),
		reportCard,
	))
	scroll.SetMinSize(fyne.NewSize(260, 400))

	ip.container = container.NewBorder(nil, nil, nil, nil, scroll)
}

func (ip *InfoPanel) GetContainer() fyne.CanvasObject {
	return ip.container
}

// Refresh reloads session state. Call on the UI goroutine.
func (ip *InfoPanel) Refresh() {
	if !ip.session.HasImage() {
		return
	}
	meta := ip.session.Metadata()
	ip.sizeLabel.SetText(fmt.Sprintf("%d x %d %s", meta.Width, meta.Height, meta.Format))
	applied := ip.session.LogString()
	if applied == "" {
		applied = "none"
	}
	ip.logLabel.SetText("Applied: " + applied)
	ip.historyLabel.SetText(fmt.Sprintf("History: %d", ip.session.HistoryLen()))
	ip.compareBtn.Enable()
	ip.UpdateMetrics(ip.session.LastMetrics())
}

func (ip *InfoPanel) UpdateMetrics(metrics map[string]float64) {
	ip.metricsContent.RemoveAll()
	if len(metrics) == 0 {
		ip.metricsContent.Add(widget.NewLabel("No changes measured yet."))
		ip.metricsContent.Refresh()
		return
	}

	names := make([]string, 0, len(metrics))
	for name := range metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ip.metricsContent.Add(ip.createMetricWidget(name, metrics[name]))
	}
	ip.metricsContent.Refresh()
}

func (ip *InfoPanel) compare() {
	ip.compareBtn.Disable()
	go func() {
		report, err := ip.session.QualityReport()
		fyne.Do(func() {
			ip.compareBtn.Enable()
			if err != nil {
				ip.reportLabel.SetText(core.Message(err))
				return
			}
			ip.reportLabel.SetText(fmt.Sprintf("Overall %.1f (%s)\nPSNR %s  SSIM %.3f",
				report.OverallScore, report.QualityLevel,
				formatPSNR(report.Metrics["psnr"]), report.Metrics["ssim"]))
		})
	}()
}

// rating buckets a metric value. Unknown metrics have no rating.
func rating(name string, value float64) string {
	switch name {
	case "psnr":
		switch {
		case value > 40:
			return "Excellent"
		case value > 30:
			return "Good"
		case value > 20:
			return "Fair"
		}
		return "Poor"
	case "ssim":
		switch {
		case value > 0.95:
			return "Excellent"
		case value > 0.8:
			return "Good"
		case value > 0.6:
			return "Fair"
		}
		return "Poor"
	case "mse":
		switch {
		case value < 100:
			return "Excellent"
		case value < 500:
			return "Good"
		case value < 1000:
			return "Fair"
		}
		return "Poor"
	}
	return ""
}

func ratingIcon(r string) fyne.Resource {
	switch r {
	case "Excellent":
		return theme.ConfirmIcon()
	case "Good":
		return theme.InfoIcon()
	case "Fair":
		return theme.WarningIcon()
	}
	return theme.ErrorIcon()
}

func formatPSNR(v float64) string {
	if math.IsInf(v, 1) {
		return "∞ dB"
	}
	return fmt.Sprintf("%.2f dB", v)
}

func (ip *InfoPanel) createMetricWidget(name string, value float64) fyne.CanvasObject {
	var text string
	switch name {
	case "psnr":
		text = "PSNR: " + formatPSNR(value)
	case "ssim":
		text = fmt.Sprintf("SSIM: %.3f", value)
	case "mse":
		text = fmt.Sprintf("MSE: %.2f", value)
	default:
		text = fmt.Sprintf("%s: %.3f", name, value)
	}

	label := widget.NewLabel(text)
	r := rating(name, value)
	if r == "" {
		return label
	}
	return container.NewHBox(label, widget.NewIcon(ratingIcon(r)), widget.NewLabel(r))
}
