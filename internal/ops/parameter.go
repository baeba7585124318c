package ops

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Level is a discrete intensity.
type Level int

const (
	LevelNone Level = iota
	Low
	Medium
	High
)

// DefaultLevel is used when an intensity-bearing request names no level.
const DefaultLevel = Medium

func (l Level) String() string {
	switch l {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	}
	return ""
}

// ParseLevel parses "low", "medium" or "high". An empty string yields LevelNone.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return LevelNone, nil
	case "low":
		return Low, nil
	case "medium", "med":
		return Medium, nil
	case "high":
		return High, nil
	}
	return LevelNone, fmt.Errorf("%w: intensity %q", ErrInvalidParameter, s)
}

// levelFromNumber buckets a numeric adjustment the way the edit backend reads
// "adjustment" values: the low/medium/high table is 30/60/90.
func levelFromNumber(v float64) Level {
	switch {
	case v <= 45:
		return Low
	case v <= 75:
		return Medium
	}
	return High
}

// MarshalJSON writes the level as its tag.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON accepts a tag or a number.
func (l *Level) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		parsed, err := ParseLevel(s)
		if err != nil {
			return err
		}
		*l = parsed
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*l = levelFromNumber(n)
		return nil
	}
	if string(data) == "null" {
		*l = LevelNone
		return nil
	}
	return fmt.Errorf("%w: intensity %s", ErrInvalidParameter, string(data))
}

// Direction selects the flip axis.
type Direction string

const (
	Horizontal Direction = "horizontal"
	Vertical   Direction = "vertical"
)

// ParseDirection parses a flip direction; empty means horizontal.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "horizontal", "h":
		return Horizontal, nil
	case "vertical", "v":
		return Vertical, nil
	}
	return "", fmt.Errorf("%w: direction %q", ErrInvalidParameter, s)
}

// Parameter is the value logged alongside a kind. Boolean kinds carry the
// zero Parameter.
type Parameter struct {
	Level Level
}

// Unit is the parameter of kinds without an intensity.
var Unit = Parameter{}

// ParamFor normalises a level for the given kind.
func ParamFor(kind Kind, level Level) Parameter {
	if !kind.HasIntensity() {
		return Unit
	}
	if level == LevelNone {
		level = DefaultLevel
	}
	return Parameter{Level: level}
}

// Describe renders a log entry such as "blur=high" or "grayscale".
func Describe(kind Kind, p Parameter) string {
	if kind.HasIntensity() && p.Level != LevelNone {
		return kind.String() + "=" + p.Level.String()
	}
	return kind.String()
}
