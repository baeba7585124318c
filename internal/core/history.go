package core

import "image"

// History is the append-only list of images the session has shown. Entries
// are shared references; images are never modified once installed.
type History struct {
	snapshots []*image.RGBA
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Append(img *image.RGBA) {
	h.snapshots = append(h.snapshots, img)
}

func (h *History) Len() int {
	return len(h.snapshots)
}

// At returns snapshot i, or nil when out of range.
func (h *History) At(i int) *image.RGBA {
	if i < 0 || i >= len(h.snapshots) {
		return nil
	}
	return h.snapshots[i]
}

// Latest returns the newest snapshot, or nil.
func (h *History) Latest() *image.RGBA {
	return h.At(len(h.snapshots) - 1)
}

func (h *History) Reset() {
	h.snapshots = nil
}
