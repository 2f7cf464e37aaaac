package ipc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/hyprpal/wincycler/internal/state"
	"github.com/hyprpal/wincycler/internal/util"
)

// EventKind names the window manager notifications the daemon consumes.
type EventKind string

const (
	EventFocus    EventKind = "focus"
	EventNew      EventKind = "new"
	EventClose    EventKind = "close"
	EventShutdown EventKind = "shutdown"
)

// Event is a window manager notification decoded at the backend boundary.
// Window is set for focus and new events, ID for close events, and Reason for
// shutdown events.
type Event struct {
	Kind   EventKind
	Window state.Window
	ID     state.WindowID
	Reason string
}

// ErrShutdown reports that the window manager went away.
var ErrShutdown = errors.New("window manager shut down")

// Backend is a window manager connection: an event source plus the commands
// the cycler issues.
type Backend interface {
	Name() string
	// Subscribe streams events until ctx is cancelled. The channel is closed
	// after a shutdown event or when the stream ends.
	Subscribe(ctx context.Context) (<-chan Event, error)
	// Focused returns the currently focused window, or nil.
	Focused(ctx context.Context) (*state.Window, error)
	Focus(ctx context.Context, id state.WindowID) error
	MoveToScratchpad(ctx context.Context, id state.WindowID) error
	// SetScratchpadMark names the place MoveToScratchpad sends windows.
	SetScratchpadMark(mark string)
	// ResetMode returns the manager's input mode to mode (i3) or leaves the
	// active submap (Hyprland).
	ResetMode(ctx context.Context, mode string) error
}

// BackendName selects a window manager backend.
type BackendName string

const (
	BackendAuto     BackendName = "auto"
	BackendI3       BackendName = "i3"
	BackendHyprland BackendName = "hyprland"
)

// Options configures backend construction.
type Options struct {
	Backend        BackendName
	Dispatch       DispatchStrategy
	ScratchpadMark string
}

// Detect picks a backend from the session environment.
func Detect() (BackendName, error) {
	if os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != "" {
		return BackendHyprland, nil
	}
	for _, env := range []string{"I3SOCK", "DISPLAY"} {
		if os.Getenv(env) != "" {
			return BackendI3, nil
		}
	}
	return "", errors.New("unable to detect window manager: set backend explicitly")
}

// New constructs the requested backend.
func New(logger *util.Logger, opts Options) (Backend, error) {
	name := BackendName(strings.ToLower(string(opts.Backend)))
	if name == "" || name == BackendAuto {
		detected, err := Detect()
		if err != nil {
			return nil, err
		}
		name = detected
	}
	switch name {
	case BackendI3:
		return NewI3(logger), nil
	case BackendHyprland:
		strategy := opts.Dispatch
		if strategy == "" {
			strategy = DispatchStrategySocket
		}
		return NewHyprland(logger, strategy, opts.ScratchpadMark)
	default:
		return nil, fmt.Errorf("unknown backend %q", opts.Backend)
	}
}
