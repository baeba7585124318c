package core

import (
	"fmt"
	"image"
	"log/slog"
	"time"

	"prompt-image-editor/internal/ops"
	"prompt-image-editor/internal/transform"
)

// Recompute rebuilds the image from the pristine source by applying every
// logged kind in canonical order. FreehandBlur is skipped.
func Recompute(lib transform.Library, source *image.RGBA, log *OperationLog) (*image.RGBA, error) {
	return recompute(lib, source, log, nil)
}

func recompute(lib transform.Library, source *image.RGBA, log *OperationLog, logger *slog.Logger) (*image.RGBA, error) {
	if source == nil {
		return nil, ErrNoSourceImage
	}
	start := time.Now()
	current := transform.Clone(source)

	applied := 0
	for _, kind := range ops.CanonicalOrder {
		p, ok := log.Get(kind)
		if !ok {
			continue
		}

		result, err := lib.Apply(current, kind, p)
		if err != nil {
			if logger != nil {
				logger.Error("REPLAY: Step failed", "kind", kind.String(), "error", err)
			}
			return nil, fmt.Errorf("replay %s: %w", kind, err)
		}
		current = result
		applied++
	}

	if logger != nil {
		logger.Debug("REPLAY: Recomputed from source",
			"steps", applied,
			"skipped_freehand", log.Has(ops.FreehandBlur),
			"duration", time.Since(start))
	}
	return current, nil
}
