package ipc

import (
	"context"
	"fmt"

	"go.i3wm.org/i3/v4"

	"github.com/hyprpal/wincycler/internal/state"
	"github.com/hyprpal/wincycler/internal/util"
)

type i3Receiver interface {
	Next() bool
	Event() i3.Event
	Close() error
}

// I3 talks to i3 over its IPC socket.
type I3 struct {
	logger *util.Logger

	subscribe  func(...i3.EventType) i3Receiver
	runCommand func(string) ([]i3.CommandResult, error)
	getTree    func() (i3.Tree, error)
}

// NewI3 returns an i3 backend using the session's IPC socket.
func NewI3(logger *util.Logger) *I3 {
	if logger == nil {
		logger = util.NewNopLogger()
	}
	return &I3{
		logger: logger,
		subscribe: func(types ...i3.EventType) i3Receiver {
			return i3.Subscribe(types...)
		},
		runCommand: i3.RunCommand,
		getTree:    i3.GetTree,
	}
}

func (b *I3) Name() string { return string(BackendI3) }

// Subscribe streams window and shutdown events.
func (b *I3) Subscribe(ctx context.Context) (<-chan Event, error) {
	recv := b.subscribe(i3.WindowEventType, i3.ShutdownEventType)
	events := make(chan Event)
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			recv.Close()
		case <-stop:
		}
	}()
	go func() {
		defer close(events)
		defer close(stop)
		send := func(ev Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for recv.Next() {
			ev, ok := translateI3Event(recv.Event())
			if !ok {
				continue
			}
			if !send(ev) {
				return
			}
			if ev.Kind == EventShutdown {
				recv.Close()
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		reason := "event stream closed"
		if err := recv.Close(); err != nil {
			b.logger.Warnf("i3 event stream error: %v", err)
			reason = err.Error()
		}
		send(Event{Kind: EventShutdown, Reason: reason})
	}()
	return events, nil
}

func translateI3Event(raw i3.Event) (Event, bool) {
	switch ev := raw.(type) {
	case *i3.WindowEvent:
		switch ev.Change {
		case "focus":
			return Event{Kind: EventFocus, Window: i3Window(&ev.Container)}, true
		case "new":
			return Event{Kind: EventNew, Window: i3Window(&ev.Container)}, true
		case "close":
			return Event{Kind: EventClose, ID: state.WindowID(ev.Container.ID)}, true
		}
	case *i3.ShutdownEvent:
		return Event{Kind: EventShutdown, Reason: ev.Change}, true
	}
	return Event{}, false
}

func i3Window(n *i3.Node) state.Window {
	return state.NewWindow(state.WindowID(n.ID), n.Name, state.ParseFloating(string(n.Floating)), n.Marks)
}

// Focused returns the focused container when it is a regular window.
func (b *I3) Focused(context.Context) (*state.Window, error) {
	tree, err := b.getTree()
	if err != nil {
		return nil, fmt.Errorf("get i3 tree: %w", err)
	}
	if tree.Root == nil {
		return nil, nil
	}
	node := tree.Root.FindFocused(func(n *i3.Node) bool { return n.Focused })
	if node == nil || node.Type != i3.Con {
		return nil, nil
	}
	w := i3Window(node)
	return &w, nil
}

func (b *I3) Focus(_ context.Context, id state.WindowID) error {
	return b.command(fmt.Sprintf("[con_id=%d] focus", int64(id)))
}

func (b *I3) MoveToScratchpad(_ context.Context, id state.WindowID) error {
	return b.command(fmt.Sprintf("[con_id=%d] move to scratchpad", int64(id)))
}

// SetScratchpadMark is a no-op: i3 has a single scratchpad.
func (b *I3) SetScratchpadMark(string) {}

func (b *I3) ResetMode(_ context.Context, mode string) error {
	if mode == "" {
		mode = "default"
	}
	return b.command(fmt.Sprintf("mode %q", mode))
}

func (b *I3) command(cmd string) error {
	results, err := b.runCommand(cmd)
	if err != nil {
		return fmt.Errorf("i3 command %q: %w", cmd, err)
	}
	for _, res := range results {
		if !res.Success {
			return fmt.Errorf("i3 command %q: %s", cmd, res.Error)
		}
	}
	b.logger.Tracef("i3 command %q ok", cmd)
	return nil
}

var _ Backend = (*I3)(nil)
