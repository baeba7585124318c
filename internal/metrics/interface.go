// Image quality metrics reported for each applied operation
package metrics

import (
	"fmt"
	"image"
	"math"
	"sort"
	"time"
)

// Metric defines the interface for quality metrics
type Metric interface {
	// Calculate computes the metric value
	Calculate(original, processed image.Image) (float64, error)

	GetName() string
	GetDescription() string

	// GetRange returns the value range (min, max)
	GetRange() (float64, float64)

	// IsHigherBetter returns true if higher values indicate better quality
	IsHigherBetter() bool
}

// Evaluator manages and calculates multiple metrics
type Evaluator struct {
	metrics map[string]Metric
}

// NewEvaluator creates a new metrics evaluator
func NewEvaluator() *Evaluator {
	e := &Evaluator{
		metrics: make(map[string]Metric),
	}

	e.RegisterDefaultMetrics()

	return e
}

// RegisterDefaultMetrics registers all default metrics
func (e *Evaluator) RegisterDefaultMetrics() {
	e.Register("psnr", NewPSNR())
	e.Register("ssim", NewSSIM())
	e.Register("mse", NewMSE())
	e.Register("contrast_ratio", NewContrastRatio())
	e.Register("sharpness", NewSharpness())
}

func (e *Evaluator) Register(name string, metric Metric) {
	e.metrics[name] = metric
}

// Names returns the registered metric names in sorted order.
func (e *Evaluator) Names() []string {
	names := make([]string, 0, len(e.metrics))
	for name := range e.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Calculate calculates a specific metric
func (e *Evaluator) Calculate(name string, original, processed image.Image) (float64, error) {
	metric, exists := e.metrics[name]
	if !exists {
		return 0, fmt.Errorf("metric not found: %s", name)
	}

	return metric.Calculate(original, processed)
}

// CalculateAll calculates all registered metrics
func (e *Evaluator) CalculateAll(original, processed image.Image) map[string]float64 {
	results := make(map[string]float64)

	for name, metric := range e.metrics {
		if value, err := metric.Calculate(original, processed); err == nil {
			results[name] = value
		}
	}

	return results
}

func (e *Evaluator) CalculatePSNR(original, processed image.Image) (float64, error) {
	return e.Calculate("psnr", original, processed)
}

func (e *Evaluator) CalculateSSIM(original, processed image.Image) (float64, error) {
	return e.Calculate("ssim", original, processed)
}

// maxReportedPSNR replaces +Inf so that step reports stay JSON encodable.
const maxReportedPSNR = 100.0

// EvaluateStep calculates metrics for one applied operation. Geometry changes
// such as flips are compared pixel by pixel like any other step.
func (e *Evaluator) EvaluateStep(before, after image.Image, stepName string) map[string]float64 {
	metrics := make(map[string]float64)

	if psnr, err := e.CalculatePSNR(before, after); err == nil {
		if math.IsInf(psnr, 1) {
			psnr = maxReportedPSNR
		}
		metrics["psnr"] = psnr
	}

	if ssim, err := e.CalculateSSIM(before, after); err == nil {
		metrics["ssim"] = ssim
	}

	if mse, err := e.Calculate("mse", before, after); err == nil {
		metrics["mse"] = mse
	}

	switch stepName {
	case "blur", "freehandBlur":
		if sharpness, err := e.Calculate("sharpness", before, after); err == nil {
			metrics["edge_preservation"] = sharpness
		}

	case "brightness", "contrast", "grayscale":
		if contrast, err := e.Calculate("contrast_ratio", before, after); err == nil {
			metrics["contrast_preservation"] = contrast
		}

	case "sharpen", "cannyEdge", "sobelEdge", "pencilSketch":
		if sharpness, err := e.Calculate("sharpness", before, after); err == nil {
			metrics["edge_gain"] = sharpness
		}
	}

	return metrics
}

// GetMetricInfo returns information about all metrics
func (e *Evaluator) GetMetricInfo() map[string]MetricInfo {
	info := make(map[string]MetricInfo)

	for name, metric := range e.metrics {
		lo, hi := metric.GetRange()
		info[name] = MetricInfo{
			Name:         metric.GetName(),
			Description:  metric.GetDescription(),
			Range:        [2]float64{lo, hi},
			HigherBetter: metric.IsHigherBetter(),
		}
	}

	return info
}

// MetricInfo provides metadata about a metric
type MetricInfo struct {
	Name         string
	Description  string
	Range        [2]float64 // [min, max]
	HigherBetter bool
}

// QualityReport compares the pristine source with the current image
type QualityReport struct {
	OverallScore float64            `json:"overall_score"`
	Metrics      map[string]float64 `json:"metrics"`
	QualityLevel string             `json:"quality_level"` // "excellent", "good", "fair", "poor"
	Timestamp    string             `json:"timestamp"`
}

// GenerateReport generates a quality report. Identical images score 100.
func (e *Evaluator) GenerateReport(original, processed image.Image) QualityReport {
	metrics := e.CalculateAll(original, processed)
	if psnr, ok := metrics["psnr"]; ok && math.IsInf(psnr, 1) {
		metrics["psnr"] = maxReportedPSNR
	}

	overallScore := e.calculateOverallScore(metrics)

	report := QualityReport{
		OverallScore: overallScore,
		Metrics:      metrics,
		Timestamp:    time.Now().Format("2006-01-02 15:04:05"),
	}

	switch {
	case overallScore >= 90:
		report.QualityLevel = "excellent"
	case overallScore >= 75:
		report.QualityLevel = "good"
	case overallScore >= 60:
		report.QualityLevel = "fair"
	default:
		report.QualityLevel = "poor"
	}

	return report
}

// calculateOverallScore calculates a weighted overall similarity score
func (e *Evaluator) calculateOverallScore(metrics map[string]float64) float64 {
	weights := map[string]float64{
		"psnr": 0.5,
		"ssim": 0.5,
	}

	totalWeight := 0.0
	weightedSum := 0.0

	for name, weight := range weights {
		if value, exists := metrics[name]; exists {
			weightedSum += e.normalizeMetric(name, value) * weight
			totalWeight += weight
		}
	}

	if totalWeight == 0 {
		return 0
	}

	return (weightedSum / totalWeight) * 100
}

// normalizeMetric normalizes a metric value to 0-1 range
func (e *Evaluator) normalizeMetric(name string, value float64) float64 {
	metric, exists := e.metrics[name]
	if !exists {
		return 0
	}

	lo, hi := metric.GetRange()
	value = math.Max(lo, math.Min(hi, value))

	if hi == lo {
		return 1.0
	}

	normalized := (value - lo) / (hi - lo)

	if !metric.IsHigherBetter() {
		normalized = 1.0 - normalized
	}

	return normalized
}
