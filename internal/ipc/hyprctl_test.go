package ipc

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeHyprctl writes a shell script that logs its arguments and prints the
// canned output for the matching query.
func fakeHyprctl(t *testing.T, outputs map[string]string) (*Hyprctl, string) {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "calls.log")
	var script strings.Builder
	script.WriteString("#!/bin/sh\n")
	script.WriteString("echo \"$@\" >> " + logPath + "\n")
	script.WriteString("case \"$*\" in\n")
	for args, out := range outputs {
		outPath := filepath.Join(dir, strings.ReplaceAll(args, " ", "_")+".out")
		if err := os.WriteFile(outPath, []byte(out), 0o644); err != nil {
			t.Fatalf("write output: %v", err)
		}
		script.WriteString("  \"" + args + "\") cat " + outPath + " ;;\n")
	}
	script.WriteString("  *) echo ok ;;\nesac\n")
	bin := filepath.Join(dir, "hyprctl")
	if err := os.WriteFile(bin, []byte(script.String()), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return &Hyprctl{Binary: bin}, logPath
}

func TestHyprctlClients(t *testing.T) {
	ctl, _ := fakeHyprctl(t, map[string]string{
		"-j clients": `[{"address":"0x2a","class":"kitty","title":"shell","floating":true,"tags":["scratchpad"]},{"address":"0x2b","title":"editor"}]`,
	})
	clients, err := ctl.Clients(context.Background())
	if err != nil {
		t.Fatalf("Clients: %v", err)
	}
	if len(clients) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(clients))
	}
	if !clients[0].Floating || clients[0].Tags[0] != "scratchpad" {
		t.Fatalf("unexpected first client %+v", clients[0])
	}
}

func TestHyprctlActiveWindowEmpty(t *testing.T) {
	ctl, _ := fakeHyprctl(t, map[string]string{"-j activewindow": `{}`})
	active, err := ctl.ActiveWindow(context.Background())
	if err != nil {
		t.Fatalf("ActiveWindow: %v", err)
	}
	if active != nil {
		t.Fatalf("expected nil active window, got %+v", active)
	}
}

func TestHyprctlDispatch(t *testing.T) {
	ctl, logPath := fakeHyprctl(t, map[string]string{"dispatch focuswindow address:0x0": "No such window"})
	if err := ctl.Dispatch(context.Background(), "submap", "reset"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if err := ctl.Dispatch(context.Background(), "focuswindow", "address:0x0"); err == nil {
		t.Fatalf("expected rejected dispatch")
	}
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "dispatch submap reset" {
		t.Fatalf("unexpected call %q", lines[0])
	}
}

func TestHyprctlMissingBinary(t *testing.T) {
	ctl := &Hyprctl{Binary: filepath.Join(t.TempDir(), "missing")}
	if _, err := ctl.Clients(context.Background()); err == nil {
		t.Fatalf("expected error for missing binary")
	}
}
