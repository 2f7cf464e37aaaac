package keys

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DevicesFile lists the kernel's input devices.
const DevicesFile = "/proc/bus/input/devices"

// Device is an evdev input device.
type Device struct {
	Name string
	Path string
}

// ListDevices returns every device exposing an eventN handler.
func ListDevices(path string) ([]Device, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input device list: %w", err)
	}
	defer f.Close()
	return parseDevices(f)
}

func parseDevices(r io.Reader) ([]Device, error) {
	var (
		devices []Device
		name    string
		handler string
	)
	flush := func() {
		if handler != "" {
			devices = append(devices, Device{Name: name, Path: filepath.Join("/dev/input", handler)})
		}
		name, handler = "", ""
	}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "N: Name="):
			name = strings.Trim(strings.TrimPrefix(line, "N: Name="), `"`)
		case strings.HasPrefix(line, "H: Handlers="):
			for _, h := range strings.Fields(strings.TrimPrefix(line, "H: Handlers=")) {
				if strings.HasPrefix(h, "event") {
					handler = h
				}
			}
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input device list: %w", err)
	}
	return devices, nil
}

// FindKeyboard returns the first device whose name mentions "keyboard".
func FindKeyboard(devices []Device) (Device, bool) {
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.Name), "keyboard") {
			return d, true
		}
	}
	return Device{}, false
}
