// Operation kinds, levels and canonical replay order
package ops

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedOperation is returned for tags that do not name a known kind.
	ErrUnsupportedOperation = errors.New("unsupported operation")

	// ErrInvalidParameter is returned for an intensity or direction that cannot be parsed.
	ErrInvalidParameter = errors.New("invalid operation parameter")
)

// Kind identifies one transformation the editor can apply.
type Kind int

const (
	Blur Kind = iota + 1
	Brightness
	Contrast
	Sharpen
	Grayscale
	FlipHorizontal
	FlipVertical
	CannyEdge
	SobelEdge
	PencilSketch
	FreehandBlur
)

var kindTags = map[Kind]string{
	Blur:           "blur",
	Brightness:     "brightness",
	Contrast:       "contrast",
	Sharpen:        "sharpen",
	Grayscale:      "grayscale",
	FlipHorizontal: "flipHorizontal",
	FlipVertical:   "flipVertical",
	CannyEdge:      "cannyEdge",
	SobelEdge:      "sobelEdge",
	PencilSketch:   "pencilSketch",
	FreehandBlur:   "freehandBlur",
}

var kindLabels = map[Kind]string{
	Blur:           "Blur",
	Brightness:     "Brightness",
	Contrast:       "Contrast",
	Sharpen:        "Sharpen",
	Grayscale:      "Grayscale",
	FlipHorizontal: "Flip (horizontal)",
	FlipVertical:   "Flip (vertical)",
	CannyEdge:      "Canny edge detection",
	SobelEdge:      "Sobel edge detection",
	PencilSketch:   "Pencil sketch",
	FreehandBlur:   "Freehand blur",
}

// aliases maps tags used by the prompt backend and older clients onto kinds.
var aliases = map[string]Kind{
	"canny":           CannyEdge,
	"sobel":           SobelEdge,
	"pencil":          PencilSketch,
	"pencil_sketch":   PencilSketch,
	"flipH":           FlipHorizontal,
	"flipV":           FlipVertical,
	"freehand_blur":   FreehandBlur,
	"flip_horizontal": FlipHorizontal,
	"flip_vertical":   FlipVertical,
}

// CanonicalOrder is the fixed order in which replay applies logged kinds.
// FreehandBlur is absent: its effect cannot be rebuilt from a parameter.
var CanonicalOrder = []Kind{
	Blur,
	Contrast,
	Brightness,
	Sharpen,
	FlipHorizontal,
	FlipVertical,
	CannyEdge,
	SobelEdge,
	PencilSketch,
	Grayscale,
}

// All lists every kind in declaration order.
func All() []Kind {
	return []Kind{
		Blur, Brightness, Contrast, Sharpen, Grayscale,
		FlipHorizontal, FlipVertical, CannyEdge, SobelEdge, PencilSketch,
		FreehandBlur,
	}
}

// String returns the stable tag of the kind.
func (k Kind) String() string {
	if tag, ok := kindTags[k]; ok {
		return tag
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Label returns a human readable name for notices and buttons.
func (k Kind) Label() string {
	if label, ok := kindLabels[k]; ok {
		return label
	}
	return k.String()
}

// Valid reports whether k is one of the declared kinds.
func (k Kind) Valid() bool {
	_, ok := kindTags[k]
	return ok
}

// HasIntensity reports whether the kind takes a low/medium/high level.
func (k Kind) HasIntensity() bool {
	switch k {
	case Blur, Brightness, Contrast:
		return true
	}
	return false
}

// Replayable reports whether the kind can be rebuilt by replay.
func (k Kind) Replayable() bool {
	return k.Valid() && k != FreehandBlur
}

// ParseKind resolves a tag to a kind. Matching is exact on the canonical tag
// and case-insensitive on everything else.
func ParseKind(tag string) (Kind, error) {
	tag = strings.TrimSpace(tag)
	for k, t := range kindTags {
		if t == tag {
			return k, nil
		}
	}
	if k, ok := aliases[tag]; ok {
		return k, nil
	}
	lower := strings.ToLower(tag)
	for k, t := range kindTags {
		if strings.ToLower(t) == lower {
			return k, nil
		}
	}
	for alias, k := range aliases {
		if strings.ToLower(alias) == lower {
			return k, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedOperation, tag)
}
