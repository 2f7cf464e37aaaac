// Package history maintains the most-recently-used window list.
//
// A History is not safe for concurrent use; callers serialize access (see
// package cycle).
package history

import (
	"fmt"
	"strings"

	"github.com/hyprpal/wincycler/internal/state"
)

// DefaultMax is the default bound on the number of remembered windows.
const DefaultMax = 16

// History is an ordered, bounded list of windows, most recent first. Entries
// are unique by id.
type History struct {
	max     int
	windows []state.Window
}

// New returns an empty history bounded to max entries. Non-positive values
// select DefaultMax.
func New(max int) *History {
	if max <= 0 {
		max = DefaultMax
	}
	return &History{max: max}
}

// Max returns the current bound.
func (h *History) Max() int {
	return h.max
}

// Len returns the number of remembered windows.
func (h *History) Len() int {
	return len(h.windows)
}

// At returns the record at index i.
func (h *History) At(i int) (state.Window, bool) {
	if i < 0 || i >= len(h.windows) {
		return state.Window{}, false
	}
	return h.windows[i], true
}

// Head returns the most recent record.
func (h *History) Head() (state.Window, bool) {
	return h.At(0)
}

// Index returns the position of id, or -1.
func (h *History) Index(id state.WindowID) int {
	for i, w := range h.windows {
		if w.ID == id {
			return i
		}
	}
	return -1
}

// Initialize discards the list and seeds it with the focused window, if any.
func (h *History) Initialize(focused *state.Window) {
	h.windows = nil
	if focused != nil {
		h.windows = []state.Window{focused.Clone()}
	}
}

// Promote moves w to the front, dropping any older entry with the same id,
// and truncates to the bound.
func (h *History) Promote(w state.Window) {
	h.remove(w.ID)
	h.pushFront(w)
}

// Insert places a newly created window at the front. An existing entry with
// the same id is replaced so ids stay unique.
func (h *History) Insert(w state.Window) {
	h.remove(w.ID)
	h.pushFront(w)
}

// Remove drops the entry for id. It reports whether anything was removed.
func (h *History) Remove(id state.WindowID) bool {
	return h.remove(id)
}

// Resize changes the bound, truncating if the list is now too long.
func (h *History) Resize(max int) {
	if max <= 0 {
		max = DefaultMax
	}
	h.max = max
	h.truncate()
}

// Snapshot returns a copy of the current order.
func (h *History) Snapshot() []state.Window {
	return state.CloneWindows(h.windows)
}

// IDs returns the ids in order.
func (h *History) IDs() []state.WindowID {
	ids := make([]state.WindowID, len(h.windows))
	for i, w := range h.windows {
		ids[i] = w.ID
	}
	return ids
}

// Describe renders the list one `[id] "title"` per line. When redact is set,
// titles are masked.
func (h *History) Describe(redact bool) string {
	return Describe(h.windows, redact)
}

// Describe renders windows one `[id] "title"` per line.
func Describe(windows []state.Window, redact bool) string {
	lines := make([]string, 0, len(windows))
	for _, w := range windows {
		title := w.Title
		if redact {
			title = RedactedTitle
		}
		lines = append(lines, fmt.Sprintf("[%d] %q", int64(w.ID), title))
	}
	return strings.Join(lines, "\n")
}

// RedactedTitle replaces titles in logs when redaction is enabled.
const RedactedTitle = "<redacted>"

func (h *History) remove(id state.WindowID) bool {
	idx := h.Index(id)
	if idx < 0 {
		return false
	}
	h.windows = append(h.windows[:idx], h.windows[idx+1:]...)
	return true
}

func (h *History) pushFront(w state.Window) {
	h.windows = append(h.windows, state.Window{})
	copy(h.windows[1:], h.windows)
	h.windows[0] = w.Clone()
	h.truncate()
}

func (h *History) truncate() {
	if len(h.windows) > h.max {
		for i := h.max; i < len(h.windows); i++ {
			h.windows[i] = state.Window{}
		}
		h.windows = h.windows[:h.max]
	}
}
