package ipc

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	t.Setenv(key, value)
}

// hyprRuntime points the Hyprland socket lookups at a temp dir and returns the
// instance directory.
func hyprRuntime(t *testing.T) string {
	t.Helper()
	runtimeDir, err := os.MkdirTemp("/tmp", "wc")
	if err != nil {
		t.Fatalf("mkdtemp: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(runtimeDir) })
	sig := "instance"
	setEnv(t, "XDG_RUNTIME_DIR", runtimeDir)
	setEnv(t, "HYPRLAND_INSTANCE_SIGNATURE", sig)
	dir := filepath.Join(runtimeDir, "hypr", sig)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	return dir
}

// serveOnce accepts a single connection, records the payload and answers with
// reply.
func serveOnce(t *testing.T, path, reply string) <-chan string {
	t.Helper()
	listener, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })
	payloads := make(chan string, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			close(payloads)
			return
		}
		defer conn.Close()
		buf := make([]byte, 1024)
		n, _ := conn.Read(buf)
		payloads <- string(buf[:n])
		_, _ = conn.Write([]byte(reply))
	}()
	return payloads
}

func TestSocketDispatcherDispatch(t *testing.T) {
	dir := hyprRuntime(t)
	socketPath := filepath.Join(dir, ".socket.sock")
	payloads := serveOnce(t, socketPath, "ok")

	disp, err := newSocketDispatcher()
	if err != nil {
		t.Fatalf("newSocketDispatcher: %v", err)
	}
	if got := disp.DispatchSocketPath(); got != socketPath {
		t.Fatalf("unexpected socket path: got %q want %q", got, socketPath)
	}
	if err := disp.Dispatch(context.Background(), "focuswindow", "address:0x2a"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got := <-payloads; got != "dispatch focuswindow address:0x2a" {
		t.Fatalf("unexpected payload %q", got)
	}
}

func TestSocketDispatcherRejectedReply(t *testing.T) {
	dir := hyprRuntime(t)
	serveOnce(t, filepath.Join(dir, ".socket.sock"), "Window not found")

	disp, err := newSocketDispatcher()
	if err != nil {
		t.Fatalf("newSocketDispatcher: %v", err)
	}
	err = disp.Dispatch(context.Background(), "focuswindow", "address:0x1")
	if err == nil || !strings.Contains(err.Error(), "Window not found") {
		t.Fatalf("expected rejection error, got %v", err)
	}
}

func TestSocketDispatcherMissingEnv(t *testing.T) {
	setEnv(t, "HYPRLAND_INSTANCE_SIGNATURE", "")
	if _, err := newSocketDispatcher(); err == nil {
		t.Fatalf("expected error without instance signature")
	}
}

func TestSocketDispatcherNoSocket(t *testing.T) {
	hyprRuntime(t)
	disp, err := newSocketDispatcher()
	if err != nil {
		t.Fatalf("newSocketDispatcher: %v", err)
	}
	if err := disp.Dispatch(context.Background(), "submap", "reset"); err == nil {
		t.Fatalf("expected connect error")
	}
}
