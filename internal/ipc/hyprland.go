package ipc

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/hyprpal/wincycler/internal/state"
	"github.com/hyprpal/wincycler/internal/util"
)

// Hyprland talks to Hyprland over its event socket, its command socket and
// hyprctl.
type Hyprland struct {
	logger      *util.Logger
	eventSocket string
	dispatcher  Dispatcher

	mu   sync.Mutex
	mark string

	clients func(context.Context) ([]hyprClient, error)
	active  func(context.Context) (*hyprClient, error)
}

// NewHyprland builds a Hyprland backend. When the command socket cannot be
// resolved the socket strategy falls back to hyprctl.
func NewHyprland(logger *util.Logger, strategy DispatchStrategy, scratchpadMark string) (*Hyprland, error) {
	if logger == nil {
		logger = util.NewNopLogger()
	}
	eventSocket, err := hyprSocketPath(".socket2.sock")
	if err != nil {
		return nil, err
	}
	ctl := NewHyprctl()
	var dispatcher Dispatcher = ctl
	switch strategy {
	case DispatchStrategySocket, "":
		disp, err := newSocketDispatcher()
		if err != nil {
			logger.Warnf("dispatch socket unavailable, falling back to hyprctl: %v", err)
		} else {
			dispatcher = disp
		}
	case DispatchStrategyHyprctl:
	default:
		return nil, fmt.Errorf("unknown dispatch strategy %q", strategy)
	}
	return &Hyprland{
		logger:      logger,
		eventSocket: eventSocket,
		dispatcher:  dispatcher,
		mark:        scratchpadMark,
		clients:     ctl.Clients,
		active:      ctl.ActiveWindow,
	}, nil
}

func (b *Hyprland) Name() string { return string(BackendHyprland) }

// SetScratchpadMark changes the special workspace windows are banished to.
func (b *Hyprland) SetScratchpadMark(mark string) {
	b.mu.Lock()
	b.mark = mark
	b.mu.Unlock()
}

// Subscribe streams activewindowv2, openwindow and closewindow events. The
// stream ending is reported as a shutdown.
func (b *Hyprland) Subscribe(ctx context.Context) (<-chan Event, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", b.eventSocket)
	if err != nil {
		return nil, fmt.Errorf("connect event socket: %w", err)
	}
	events := make(chan Event)
	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()
	go func() {
		defer close(events)
		defer close(stop)
		defer conn.Close()
		send := func(ev Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			ev, ok := b.translate(ctx, scanner.Text())
			if !ok {
				continue
			}
			if !send(ev) {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}
		reason := "event stream closed"
		if err := scanner.Err(); err != nil {
			b.logger.Warnf("hyprland event stream error: %v", err)
			reason = err.Error()
		}
		send(Event{Kind: EventShutdown, Reason: reason})
	}()
	return events, nil
}

func (b *Hyprland) translate(ctx context.Context, line string) (Event, bool) {
	name, payload, ok := strings.Cut(line, ">>")
	if !ok {
		return Event{}, false
	}
	switch name {
	case "activewindowv2":
		id, err := parseAddress(payload)
		if err != nil {
			// Empty payload when focus moves to an empty workspace.
			return Event{}, false
		}
		return Event{Kind: EventFocus, Window: b.lookup(ctx, id, "")}, true
	case "openwindow":
		parts := strings.SplitN(payload, ",", 4)
		if len(parts) < 4 {
			b.logger.Debugf("malformed openwindow payload %q", payload)
			return Event{}, false
		}
		id, err := parseAddress(parts[0])
		if err != nil {
			b.logger.Debugf("openwindow address %q: %v", parts[0], err)
			return Event{}, false
		}
		return Event{Kind: EventNew, Window: b.lookup(ctx, id, parts[3])}, true
	case "closewindow":
		id, err := parseAddress(payload)
		if err != nil {
			b.logger.Debugf("closewindow address %q: %v", payload, err)
			return Event{}, false
		}
		return Event{Kind: EventClose, ID: id}, true
	}
	return Event{}, false
}

// lookup enriches an event with floating state and tags from hyprctl. When the
// client cannot be found the window keeps an unknown floating state.
func (b *Hyprland) lookup(ctx context.Context, id state.WindowID, title string) state.Window {
	clients, err := b.clients(ctx)
	if err != nil {
		b.logger.Debugf("client lookup for %s failed: %v", id, err)
		return state.NewWindow(id, title, state.FloatingUnknown, nil)
	}
	for _, c := range clients {
		cid, err := parseAddress(c.Address)
		if err != nil || cid != id {
			continue
		}
		if title == "" {
			title = c.Title
		}
		return hyprWindow(cid, title, c)
	}
	return state.NewWindow(id, title, state.FloatingUnknown, nil)
}

func hyprWindow(id state.WindowID, title string, c hyprClient) state.Window {
	return state.NewWindow(id, title, state.FloatingFromBool(c.Floating), c.Tags)
}

// Focused returns the active client.
func (b *Hyprland) Focused(ctx context.Context) (*state.Window, error) {
	c, err := b.active(ctx)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	id, err := parseAddress(c.Address)
	if err != nil {
		return nil, fmt.Errorf("active window address: %w", err)
	}
	w := hyprWindow(id, c.Title, *c)
	return &w, nil
}

func (b *Hyprland) Focus(ctx context.Context, id state.WindowID) error {
	return b.dispatcher.Dispatch(ctx, "focuswindow", formatAddress(id))
}

func (b *Hyprland) MoveToScratchpad(ctx context.Context, id state.WindowID) error {
	b.mu.Lock()
	mark := b.mark
	b.mu.Unlock()
	if mark == "" {
		mark = "scratchpad"
	}
	return b.dispatcher.Dispatch(ctx, "movetoworkspacesilent", fmt.Sprintf("special:%s,%s", mark, formatAddress(id)))
}

// ResetMode leaves the active submap. Hyprland has a single reset target so
// mode is ignored.
func (b *Hyprland) ResetMode(ctx context.Context, _ string) error {
	return b.dispatcher.Dispatch(ctx, "submap", "reset")
}

func parseAddress(raw string) (state.WindowID, error) {
	raw = strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if raw == "" {
		return 0, fmt.Errorf("empty address")
	}
	v, err := strconv.ParseUint(raw, 16, 63)
	if err != nil {
		return 0, fmt.Errorf("parse address %q: %w", raw, err)
	}
	return state.WindowID(v), nil
}

func formatAddress(id state.WindowID) string {
	return fmt.Sprintf("address:0x%x", int64(id))
}

var _ Backend = (*Hyprland)(nil)
