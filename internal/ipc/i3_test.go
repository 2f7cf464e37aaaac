package ipc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.i3wm.org/i3/v4"

	"github.com/hyprpal/wincycler/internal/state"
	"github.com/hyprpal/wincycler/internal/util"
)

type fakeReceiver struct {
	events  []i3.Event
	idx     int
	err     error
	closed  bool
	blockCh chan struct{}
}

func (r *fakeReceiver) Next() bool {
	if r.idx < len(r.events) {
		r.idx++
		return true
	}
	if r.blockCh != nil {
		<-r.blockCh
	}
	return false
}

func (r *fakeReceiver) Event() i3.Event { return r.events[r.idx-1] }

func (r *fakeReceiver) Close() error {
	if !r.closed && r.blockCh != nil {
		close(r.blockCh)
	}
	r.closed = true
	return r.err
}

func newTestI3(recv *fakeReceiver, commands *[]string) *I3 {
	return &I3{
		logger:    util.NewNopLogger(),
		subscribe: func(...i3.EventType) i3Receiver { return recv },
		runCommand: func(cmd string) ([]i3.CommandResult, error) {
			*commands = append(*commands, cmd)
			return []i3.CommandResult{{Success: true}}, nil
		},
	}
}

func windowEvent(change string, id int64, name string, floating i3.FloatingType, marks ...string) *i3.WindowEvent {
	return &i3.WindowEvent{Change: change, Container: i3.Node{ID: i3.NodeID(id), Name: name, Floating: floating, Marks: marks}}
}

func TestI3SubscribeTranslatesEvents(t *testing.T) {
	recv := &fakeReceiver{events: []i3.Event{
		windowEvent("new", 1, "alpha", i3.FloatingType("auto_off")),
		windowEvent("focus", 2, "", i3.FloatingType("user_on"), "scratchpad"),
		windowEvent("title", 2, "renamed", i3.FloatingType("user_on")),
		windowEvent("close", 1, "alpha", i3.FloatingType("auto_off")),
		&i3.ShutdownEvent{Change: "restart"},
		windowEvent("focus", 3, "never", i3.FloatingType("auto_off")),
	}}
	var commands []string
	backend := newTestI3(recv, &commands)
	events, err := backend.Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	var got []Event
	for ev := range events {
		got = append(got, ev)
	}
	want := []Event{
		{Kind: EventNew, Window: state.NewWindow(1, "alpha", state.FloatingAutoOff, nil)},
		{Kind: EventFocus, Window: state.NewWindow(2, "", state.FloatingUserOn, []string{"scratchpad"})},
		{Kind: EventClose, ID: 1},
		{Kind: EventShutdown, Reason: "restart"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestI3SubscribeStreamErrorIsShutdown(t *testing.T) {
	recv := &fakeReceiver{err: errors.New("EOF")}
	var commands []string
	events, err := newTestI3(recv, &commands).Subscribe(context.Background())
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	ev, ok := <-events
	if !ok || ev.Kind != EventShutdown || ev.Reason != "EOF" {
		t.Fatalf("unexpected event %+v (ok=%v)", ev, ok)
	}
}

func TestI3SubscribeCancel(t *testing.T) {
	recv := &fakeReceiver{blockCh: make(chan struct{})}
	var commands []string
	ctx, cancel := context.WithCancel(context.Background())
	events, err := newTestI3(recv, &commands).Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	cancel()
	select {
	case _, ok := <-events:
		if ok {
			t.Fatalf("expected closed channel after cancel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("stream did not stop after cancel")
	}
}

func TestI3Commands(t *testing.T) {
	var commands []string
	backend := newTestI3(&fakeReceiver{}, &commands)
	ctx := context.Background()
	if err := backend.Focus(ctx, 7); err != nil {
		t.Fatalf("Focus: %v", err)
	}
	if err := backend.MoveToScratchpad(ctx, 7); err != nil {
		t.Fatalf("MoveToScratchpad: %v", err)
	}
	if err := backend.ResetMode(ctx, ""); err != nil {
		t.Fatalf("ResetMode: %v", err)
	}
	want := []string{"[con_id=7] focus", "[con_id=7] move to scratchpad", `mode "default"`}
	if diff := cmp.Diff(want, commands); diff != "" {
		t.Fatalf("commands mismatch (-want +got):\n%s", diff)
	}
}

func TestI3CommandFailure(t *testing.T) {
	backend := &I3{
		logger: util.NewNopLogger(),
		runCommand: func(string) ([]i3.CommandResult, error) {
			return []i3.CommandResult{{Success: false, Error: "No window matches given criteria"}}, nil
		},
	}
	if err := backend.Focus(context.Background(), 99); err == nil {
		t.Fatalf("expected failure for unsuccessful command result")
	}
}

func TestI3Focused(t *testing.T) {
	var commands []string
	backend := newTestI3(&fakeReceiver{}, &commands)
	backend.getTree = func() (i3.Tree, error) {
		return i3.Tree{Root: &i3.Node{
			Type: i3.Root,
			Nodes: []*i3.Node{{
				Type: i3.WorkspaceNode,
				Nodes: []*i3.Node{
					{ID: 5, Type: i3.Con, Name: "editor", Floating: i3.FloatingType("auto_off")},
					{ID: 6, Type: i3.Con, Name: "term", Focused: true, Floating: i3.FloatingType("auto_off")},
				},
			}},
		}}, nil
	}
	w, err := backend.Focused(context.Background())
	if err != nil {
		t.Fatalf("Focused: %v", err)
	}
	if w == nil || w.ID != 6 || w.Title != "term" {
		t.Fatalf("unexpected focused window %+v", w)
	}

	backend.getTree = func() (i3.Tree, error) {
		return i3.Tree{Root: &i3.Node{Type: i3.Root, Nodes: []*i3.Node{{Type: i3.WorkspaceNode, Focused: true}}}}, nil
	}
	w, err = backend.Focused(context.Background())
	if err != nil || w != nil {
		t.Fatalf("expected no focused window, got %+v, %v", w, err)
	}
}
