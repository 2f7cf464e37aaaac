package ipc

import (
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hyprpal/wincycler/internal/state"
	"github.com/hyprpal/wincycler/internal/util"
)

type recordingDispatcher struct {
	calls []string
	err   error
}

func (r *recordingDispatcher) Dispatch(_ context.Context, args ...string) error {
	r.calls = append(r.calls, strings.Join(args, " "))
	return r.err
}

func newTestHyprland(t *testing.T, socket string, clients []hyprClient) (*Hyprland, *recordingDispatcher) {
	t.Helper()
	disp := &recordingDispatcher{}
	return &Hyprland{
		logger:      util.NewNopLogger(),
		eventSocket: socket,
		dispatcher:  disp,
		mark:        "scratchpad",
		clients: func(context.Context) ([]hyprClient, error) {
			return clients, nil
		},
		active: func(context.Context) (*hyprClient, error) {
			if len(clients) == 0 {
				return nil, nil
			}
			c := clients[0]
			return &c, nil
		},
	}, disp
}

func TestHyprlandSubscribeTranslatesEvents(t *testing.T) {
	dir := hyprRuntime(t)
	socket := filepath.Join(dir, ".socket2.sock")
	listener, err := net.Listen("unix", socket)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		lines := []string{
			"workspace>>2",
			"openwindow>>2b,2,kitty,scratch shell",
			"activewindow>>kitty,scratch shell",
			"activewindowv2>>2b",
			"activewindowv2>>",
			"closewindow>>2a",
		}
		for _, line := range lines {
			_, _ = conn.Write([]byte(line + "\n"))
		}
		conn.Close()
	}()

	backend, _ := newTestHyprland(t, socket, []hyprClient{
		{Address: "0x2b", Title: "scratch shell", Floating: true, Tags: []string{"scratchpad"}},
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	events, err := backend.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	var got []Event
	for ev := range events {
		got = append(got, ev)
	}
	floating := state.NewWindow(0x2b, "scratch shell", state.FloatingOn, []string{"scratchpad"})
	want := []Event{
		{Kind: EventNew, Window: floating},
		{Kind: EventFocus, Window: floating},
		{Kind: EventClose, ID: 0x2a},
		{Kind: EventShutdown, Reason: "event stream closed"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestHyprlandUnknownClientKeepsUnknownFloating(t *testing.T) {
	backend, _ := newTestHyprland(t, "", nil)
	ev, ok := backend.translate(context.Background(), "activewindowv2>>ff")
	if !ok {
		t.Fatalf("expected focus event")
	}
	if ev.Window.Floating != state.FloatingUnknown || ev.Window.Title != state.NoTitle {
		t.Fatalf("unexpected window %+v", ev.Window)
	}
	backend.clients = func(context.Context) ([]hyprClient, error) { return nil, errors.New("boom") }
	ev, ok = backend.translate(context.Background(), "openwindow>>ff,1,foot,term")
	if !ok || ev.Window.Title != "term" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestHyprlandCommands(t *testing.T) {
	backend, disp := newTestHyprland(t, "", nil)
	ctx := context.Background()
	if err := backend.Focus(ctx, 0x2a); err != nil {
		t.Fatalf("Focus: %v", err)
	}
	backend.SetScratchpadMark("hidden")
	if err := backend.MoveToScratchpad(ctx, 0x2a); err != nil {
		t.Fatalf("MoveToScratchpad: %v", err)
	}
	if err := backend.ResetMode(ctx, "default"); err != nil {
		t.Fatalf("ResetMode: %v", err)
	}
	want := []string{
		"focuswindow address:0x2a",
		"movetoworkspacesilent special:hidden,address:0x2a",
		"submap reset",
	}
	if diff := cmp.Diff(want, disp.calls); diff != "" {
		t.Fatalf("dispatch mismatch (-want +got):\n%s", diff)
	}
}

func TestHyprlandFocused(t *testing.T) {
	backend, _ := newTestHyprland(t, "", []hyprClient{{Address: "0x10", Title: "", Floating: false}})
	w, err := backend.Focused(context.Background())
	if err != nil {
		t.Fatalf("Focused: %v", err)
	}
	want := state.NewWindow(0x10, "", state.FloatingOff, nil)
	if diff := cmp.Diff(&want, w); diff != "" {
		t.Fatalf("focused mismatch (-want +got):\n%s", diff)
	}
}

func TestParseAddress(t *testing.T) {
	cases := map[string]state.WindowID{"0x2a": 42, "2a": 42, " 55d0c0a1b2c0 ": 0x55d0c0a1b2c0}
	for raw, want := range cases {
		got, err := parseAddress(raw)
		if err != nil || got != want {
			t.Fatalf("parseAddress(%q) = %v, %v; want %v", raw, got, err, want)
		}
	}
	for _, raw := range []string{"", "0x", "zz"} {
		if _, err := parseAddress(raw); err == nil {
			t.Fatalf("parseAddress(%q) expected error", raw)
		}
	}
}

func TestNewHyprlandRequiresInstance(t *testing.T) {
	setEnv(t, "HYPRLAND_INSTANCE_SIGNATURE", "")
	if _, err := NewHyprland(nil, DispatchStrategySocket, ""); err == nil {
		t.Fatalf("expected error without instance signature")
	}
}

func TestNewHyprlandStrategies(t *testing.T) {
	hyprRuntime(t)
	b, err := NewHyprland(nil, DispatchStrategyHyprctl, "")
	if err != nil {
		t.Fatalf("NewHyprland: %v", err)
	}
	if _, ok := b.dispatcher.(*Hyprctl); !ok {
		t.Fatalf("expected hyprctl dispatcher, got %T", b.dispatcher)
	}
	b, err = NewHyprland(nil, DispatchStrategySocket, "")
	if err != nil {
		t.Fatalf("NewHyprland: %v", err)
	}
	if _, ok := b.dispatcher.(*socketDispatcher); !ok {
		t.Fatalf("expected socket dispatcher, got %T", b.dispatcher)
	}
	if _, err := NewHyprland(nil, "carrier-pigeon", ""); err == nil {
		t.Fatalf("expected unknown strategy error")
	}
}
