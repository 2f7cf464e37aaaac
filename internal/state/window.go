package state

import (
	"fmt"
	"strings"
)

// WindowID identifies a window for its lifetime. i3 container ids and Hyprland
// client addresses both fit in an int64.
type WindowID int64

// String renders the id in decimal.
func (id WindowID) String() string {
	return fmt.Sprintf("%d", int64(id))
}

// FloatingState is the tri-state floating flag reported with focus and new
// window events.
type FloatingState string

const (
	FloatingUnknown FloatingState = ""
	FloatingAutoOff FloatingState = "auto_off"
	FloatingUserOff FloatingState = "user_off"
	FloatingOff     FloatingState = "off"
	FloatingAutoOn  FloatingState = "auto_on"
	FloatingUserOn  FloatingState = "user_on"
	FloatingOn      FloatingState = "on"
)

// IsOn reports whether the state is one of the floating "on" variants.
func (f FloatingState) IsOn() bool {
	switch f {
	case FloatingOn, FloatingAutoOn, FloatingUserOn:
		return true
	default:
		return false
	}
}

// ParseFloating maps a manager-reported value onto FloatingState. Unknown
// values map to FloatingUnknown.
func ParseFloating(raw string) FloatingState {
	switch s := FloatingState(strings.ToLower(strings.TrimSpace(raw))); s {
	case FloatingAutoOff, FloatingUserOff, FloatingOff, FloatingAutoOn, FloatingUserOn, FloatingOn:
		return s
	default:
		return FloatingUnknown
	}
}

// FloatingFromBool converts a boolean floating flag, as reported by Hyprland.
func FloatingFromBool(floating bool) FloatingState {
	if floating {
		return FloatingOn
	}
	return FloatingOff
}

// NoTitle replaces empty window titles.
const NoTitle = "No Title"

// Window is a single window record tracked by the MRU history.
type Window struct {
	ID       WindowID      `json:"id"`
	Title    string        `json:"title"`
	Floating FloatingState `json:"floating,omitempty"`
	Tags     []string      `json:"tags,omitempty"`
}

// NewWindow builds a record, substituting NoTitle for an empty title.
func NewWindow(id WindowID, title string, floating FloatingState, tags []string) Window {
	if strings.TrimSpace(title) == "" {
		title = NoTitle
	}
	var copied []string
	if len(tags) > 0 {
		copied = append([]string(nil), tags...)
	}
	return Window{ID: id, Title: title, Floating: floating, Tags: copied}
}

// HasTag reports whether the window carries tag.
func (w Window) HasTag(tag string) bool {
	for _, t := range w.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the record.
func (w Window) Clone() Window {
	out := w
	if len(w.Tags) > 0 {
		out.Tags = append([]string(nil), w.Tags...)
	}
	return out
}

// CloneWindow copies a possibly nil record.
func CloneWindow(w *Window) *Window {
	if w == nil {
		return nil
	}
	out := w.Clone()
	return &out
}

// CloneWindows deep-copies a slice of records.
func CloneWindows(src []Window) []Window {
	if src == nil {
		return nil
	}
	out := make([]Window, len(src))
	for i, w := range src {
		out[i] = w.Clone()
	}
	return out
}
