package ipc

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
)

// Dispatcher issues Hyprland dispatch commands.
type Dispatcher interface {
	Dispatch(ctx context.Context, args ...string) error
}

// DispatchStrategy describes how dispatch commands are issued to Hyprland.
type DispatchStrategy string

const (
	// DispatchStrategySocket uses the Hyprland command socket directly.
	DispatchStrategySocket DispatchStrategy = "socket"
	// DispatchStrategyHyprctl shells out to the hyprctl binary.
	DispatchStrategyHyprctl DispatchStrategy = "hyprctl"
)

const maxDispatchReply = 4096

type socketDispatcher struct {
	path string
}

func newSocketDispatcher() (*socketDispatcher, error) {
	path, err := hyprSocketPath(".socket.sock")
	if err != nil {
		return nil, err
	}
	return &socketDispatcher{path: path}, nil
}

func (d *socketDispatcher) Dispatch(ctx context.Context, args ...string) error {
	if len(args) == 0 {
		return nil
	}
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", d.path)
	if err != nil {
		return fmt.Errorf("connect dispatch socket: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	payload := "dispatch " + strings.Join(args, " ")
	if _, err := conn.Write([]byte(payload)); err != nil {
		return fmt.Errorf("write dispatch payload: %w", err)
	}
	reply, err := io.ReadAll(io.LimitReader(conn, maxDispatchReply))
	if err != nil {
		return fmt.Errorf("read dispatch reply: %w", err)
	}
	return checkDispatchReply(reply)
}

func (d *socketDispatcher) DispatchSocketPath() string {
	return d.path
}

func hyprSocketPath(name string) (string, error) {
	sig := os.Getenv("HYPRLAND_INSTANCE_SIGNATURE")
	if sig == "" {
		return "", fmt.Errorf("HYPRLAND_INSTANCE_SIGNATURE not set")
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return "", fmt.Errorf("XDG_RUNTIME_DIR not set")
	}
	return filepath.Join(runtimeDir, "hypr", sig, name), nil
}

var _ Dispatcher = (*socketDispatcher)(nil)
