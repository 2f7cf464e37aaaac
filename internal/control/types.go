package control

import (
	"os"
	"path/filepath"
)

const (
	// SocketFileName is the filename of the command socket within the runtime dir.
	SocketFileName = "cycler.sock"

	// FallbackSocketPath is used when no runtime directory is available.
	FallbackSocketPath = "/tmp/.wincycler.sock"

	// MaxCommandSize bounds how much of a connection is read as a command.
	MaxCommandSize = 100
)

// DefaultSocketPath returns the expected location of the wincycler command socket.
func DefaultSocketPath() string {
	if env := os.Getenv("WINCYCLER_SOCKET"); env != "" {
		return env
	}
	if runtimeDir := os.Getenv("XDG_RUNTIME_DIR"); runtimeDir != "" {
		return filepath.Join(runtimeDir, "wincycler", SocketFileName)
	}
	return FallbackSocketPath
}
