// Package control hosts the command socket that drives the cycler.
//
// Every connection carries a single command: the server reads up to
// MaxCommandSize bytes, trims whitespace, hands the text to the handler and
// closes the connection. Connections are served one at a time in arrival
// order.
package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/hyprpal/wincycler/internal/util"
)

// CommandHandler applies a single command.
type CommandHandler interface {
	HandleCommand(ctx context.Context, raw string) error
}

// Server hosts the wincycler command socket.
type Server struct {
	handler    CommandHandler
	logger     *util.Logger
	socketPath string

	mu       sync.Mutex
	listener net.Listener
}

// NewServer creates a command server bound to socketPath, or the default path
// when empty.
func NewServer(handler CommandHandler, logger *util.Logger, socketPath string) *Server {
	if logger == nil {
		logger = util.NewNopLogger()
	}
	if socketPath == "" {
		socketPath = DefaultSocketPath()
	}
	return &Server{
		handler:    handler,
		logger:     logger,
		socketPath: socketPath,
	}
}

// SocketPath reports where the server listens.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Listen removes any stale socket and binds a fresh one. Serve calls it when
// the caller has not.
func (s *Server) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	dir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on command socket: %w", err)
	}
	if err := os.Chmod(s.socketPath, 0o600); err != nil {
		listener.Close()
		return fmt.Errorf("chmod command socket: %w", err)
	}
	s.listener = listener
	return nil
}

// Serve accepts connections until ctx is cancelled or Close is called. The
// socket is removed on return.
func (s *Server) Serve(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.logger.Infof("command server listening on %s", s.socketPath)
	defer s.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.closeListener()
		case <-stop:
		}
	}()

	for {
		conn, err := s.accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			s.logger.Errorf("command accept error: %v", err)
			continue
		}
		s.handle(ctx, conn)
	}
}

func (s *Server) accept() (net.Conn, error) {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		return nil, net.ErrClosed
	}
	return listener.Accept()
}

func (s *Server) closeListener() {
	s.mu.Lock()
	listener := s.listener
	s.listener = nil
	s.mu.Unlock()
	if listener != nil {
		listener.Close()
	}
}

// Close stops accepting connections and removes the socket file.
func (s *Server) Close() error {
	s.closeListener()
	if err := os.Remove(s.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warnf("remove command socket: %v", err)
		return err
	}
	return nil
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	raw, err := readCommand(conn)
	if err != nil {
		s.logger.Warnf("read command: %v", err)
		return
	}
	if err := s.handler.HandleCommand(ctx, raw); err != nil {
		s.logger.Debugf("command %q: %v", raw, err)
	}
}

// readCommand takes whatever the first read returns, capped at
// MaxCommandSize. The client does not need to close its end first.
func readCommand(conn io.Reader) (string, error) {
	buf := make([]byte, MaxCommandSize)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			return decodeCommand(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
	}
}

func decodeCommand(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("command is not valid UTF-8")
	}
	return strings.TrimSpace(string(data)), nil
}
