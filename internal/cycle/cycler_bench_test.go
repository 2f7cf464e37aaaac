package cycle

import (
	"context"
	"testing"

	"github.com/hyprpal/wincycler/internal/history"
	"github.com/hyprpal/wincycler/internal/state"
)

type discardManager struct{}

func (discardManager) Focus(context.Context, state.WindowID) error            { return nil }
func (discardManager) MoveToScratchpad(context.Context, state.WindowID) error { return nil }

// benchWindows returns n tiled windows plus a tagged floating one at the end.
func benchWindows(n int) []state.Window {
	windows := make([]state.Window, 0, n+1)
	for i := 0; i < n; i++ {
		windows = append(windows, state.NewWindow(state.WindowID(i+1), "window", state.FloatingAutoOff, nil))
	}
	return append(windows, state.NewWindow(state.WindowID(n+1), "notes", state.FloatingUserOn, []string{DefaultScratchpadMark}))
}

func BenchmarkFocusEvents(b *testing.B) {
	c := New(discardManager{}, nil, Options{})
	windows := benchWindows(32)
	for _, w := range windows {
		c.OnNew(w)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.OnFocus(windows[i%len(windows)])
	}
}

// BenchmarkCycleSession replays a typical Alt+Tab gesture: two steps forward,
// one back, then release.
func BenchmarkCycleSession(b *testing.B) {
	ctx := context.Background()
	c := New(discardManager{}, nil, Options{})
	windows := benchWindows(history.DefaultMax)
	for _, w := range windows {
		c.OnNew(w)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = c.HandleCommand(ctx, "next")
		c.OnFocus(windows[i%len(windows)])
		_ = c.HandleCommand(ctx, "next")
		_ = c.HandleCommand(ctx, "prev")
		_ = c.HandleCommand(ctx, "finish")
	}
}
