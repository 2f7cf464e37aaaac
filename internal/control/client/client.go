package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/hyprpal/wincycler/internal/control"
)

const (
	// defaultTimeout is used when the caller does not provide a context deadline.
	defaultTimeout = 3 * time.Second
)

// ErrDaemonNotRunning reports that nothing is listening on the command socket.
var ErrDaemonNotRunning = errors.New("wincycler daemon is not running")

// Client talks to the running wincycler daemon over its command socket.
type Client struct {
	socketPath string
}

// New creates a client that connects to the provided socket path. When path is
// empty, the default runtime path is used.
func New(path string) *Client {
	if path == "" {
		path = control.DefaultSocketPath()
	}
	return &Client{socketPath: path}
}

// SocketPath reports the socket the client dials.
func (c *Client) SocketPath() string {
	return c.socketPath
}

// Send writes a single command and disconnects. The daemon sends no reply.
func (c *Client) Send(ctx context.Context, command string) error {
	if command == "" {
		return errors.New("command cannot be empty")
	}
	if len(command) > control.MaxCommandSize {
		return fmt.Errorf("command exceeds %d bytes", control.MaxCommandSize)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		if errors.Is(err, unix.ENOENT) || errors.Is(err, unix.ECONNREFUSED) {
			return fmt.Errorf("%w: %s: %v", ErrDaemonNotRunning, c.socketPath, err)
		}
		return fmt.Errorf("dial command socket: %w", err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	if _, err := conn.Write([]byte(command)); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	if uc, ok := conn.(*net.UnixConn); ok {
		if err := uc.CloseWrite(); err != nil {
			return fmt.Errorf("close command stream: %w", err)
		}
	}
	return nil
}
