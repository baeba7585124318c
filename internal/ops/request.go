package ops

import (
	"fmt"
	"strings"
)

// Request is one operation descriptor as it arrives from the prompt backend,
// the HTTP API or the GUI: {"type": "blur", "intensity": "high"}.
type Request struct {
	Type      string    `json:"type"`
	Intensity Level     `json:"intensity,omitempty"`
	Direction Direction `json:"direction,omitempty"`
}

// Resolve maps the descriptor onto a kind and its logged parameter.
// "flip" is resolved with Direction. Unknown types yield ErrUnsupportedOperation.
func (r Request) Resolve() (Kind, Parameter, error) {
	tag := strings.TrimSpace(r.Type)
	if strings.EqualFold(tag, "flip") {
		dir, err := ParseDirection(string(r.Direction))
		if err != nil {
			return 0, Unit, err
		}
		if dir == Vertical {
			return FlipVertical, Unit, nil
		}
		return FlipHorizontal, Unit, nil
	}

	kind, err := ParseKind(tag)
	if err != nil {
		return 0, Unit, err
	}
	return kind, ParamFor(kind, r.Intensity), nil
}

// String renders the request for notices.
func (r Request) String() string {
	var b strings.Builder
	b.WriteString(r.Type)
	if r.Intensity != LevelNone {
		fmt.Fprintf(&b, " (%s)", r.Intensity)
	}
	if r.Direction != "" {
		fmt.Fprintf(&b, " [%s]", r.Direction)
	}
	return b.String()
}

// RequestFor builds the descriptor that resolves back to kind and p.
func RequestFor(kind Kind, p Parameter) Request {
	switch kind {
	case FlipHorizontal:
		return Request{Type: "flip", Direction: Horizontal}
	case FlipVertical:
		return Request{Type: "flip", Direction: Vertical}
	}
	return Request{Type: kind.String(), Intensity: p.Level}
}
