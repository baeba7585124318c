package core

import (
	"fmt"
	"strings"

	"prompt-image-editor/internal/ops"
)

// LogEntry is one applied kind and its parameter.
type LogEntry struct {
	Kind  ops.Kind      `json:"-"`
	Param ops.Parameter `json:"-"`
}

func (e LogEntry) String() string {
	return ops.Describe(e.Kind, e.Param)
}

// MarshalText renders the entry as "blur=high".
func (e LogEntry) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

// UnmarshalText parses the MarshalText form.
func (e *LogEntry) UnmarshalText(text []byte) error {
	tag, level, _ := strings.Cut(string(text), "=")
	kind, err := ops.ParseKind(tag)
	if err != nil {
		return err
	}
	lvl, err := ops.ParseLevel(level)
	if err != nil {
		return err
	}
	e.Kind = kind
	e.Param = ops.ParamFor(kind, lvl)
	return nil
}

// OperationLog holds at most one entry per kind. Insertion order is kept for
// display only; replay uses ops.CanonicalOrder.
type OperationLog struct {
	entries []LogEntry
}

func NewOperationLog() *OperationLog {
	return &OperationLog{}
}

func (l *OperationLog) index(kind ops.Kind) int {
	for i, e := range l.entries {
		if e.Kind == kind {
			return i
		}
	}
	return -1
}

// Has reports whether kind is logged.
func (l *OperationLog) Has(kind ops.Kind) bool {
	return l.index(kind) >= 0
}

// Get returns the logged parameter of kind.
func (l *OperationLog) Get(kind ops.Kind) (ops.Parameter, bool) {
	if i := l.index(kind); i >= 0 {
		return l.entries[i].Param, true
	}
	return ops.Unit, false
}

// Set inserts kind. An existing entry is never overwritten.
func (l *OperationLog) Set(kind ops.Kind, p ops.Parameter) error {
	if l.Has(kind) {
		return fmt.Errorf("%s: %w", kind.Label(), ErrAlreadyApplied)
	}
	l.entries = append(l.entries, LogEntry{Kind: kind, Param: p})
	return nil
}

// Remove deletes kind and reports whether it was present.
func (l *OperationLog) Remove(kind ops.Kind) bool {
	i := l.index(kind)
	if i < 0 {
		return false
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	return true
}

// Entries returns a copy in insertion order.
func (l *OperationLog) Entries() []LogEntry {
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

func (l *OperationLog) Len() int {
	return len(l.entries)
}

func (l *OperationLog) Reset() {
	l.entries = nil
}

func (l *OperationLog) Clone() *OperationLog {
	return &OperationLog{entries: l.Entries()}
}

// String renders the log as "blur=high, grayscale", or "none".
func (l *OperationLog) String() string {
	if len(l.entries) == 0 {
		return "none"
	}
	parts := make([]string, len(l.entries))
	for i, e := range l.entries {
		parts[i] = e.String()
	}
	return strings.Join(parts, ", ")
}
