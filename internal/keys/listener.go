// Package keys watches a keyboard for the release of the cycling modifier and
// finishes the cycle when it happens.
package keys

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/hyprpal/wincycler/internal/util"
)

// Linux input event constants from linux/input-event-codes.h.
const (
	EvKey       = 0x01
	KeyReleased = 0
)

// InputEvent mirrors struct input_event.
type InputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// ReadEvent decodes one input_event from r.
func ReadEvent(r io.Reader) (InputEvent, error) {
	var ev InputEvent
	err := binary.Read(r, binary.NativeEndian, &ev)
	return ev, err
}

// Listener triggers OnRelease when Keycode is released on the device.
type Listener struct {
	Keycode   int
	Device    string
	PrintAll  bool
	OnRelease func(ctx context.Context) error

	logger *util.Logger
	open   func(path string) (io.ReadCloser, error)
	list   func() ([]Device, error)
}

// NewListener returns a listener for keycode. device may be empty to pick the
// first keyboard.
func NewListener(logger *util.Logger, keycode int, device string, onRelease func(ctx context.Context) error) *Listener {
	if logger == nil {
		logger = util.NewNopLogger()
	}
	return &Listener{
		Keycode:   keycode,
		Device:    device,
		OnRelease: onRelease,
		logger:    logger,
		open: func(path string) (io.ReadCloser, error) {
			return os.Open(path)
		},
		list: func() ([]Device, error) {
			return ListDevices(DevicesFile)
		},
	}
}

func (l *Listener) resolveDevice() (string, error) {
	if l.Device != "" {
		return l.Device, nil
	}
	devices, err := l.list()
	if err != nil {
		return "", err
	}
	if len(devices) == 0 {
		return "", errors.New("no input devices found; run as root or grant access to /dev/input")
	}
	for _, d := range devices {
		l.logger.Debugf("found input device %q at %s", d.Name, d.Path)
	}
	kbd, ok := FindKeyboard(devices)
	if !ok {
		return "", errors.New("keyboard device not found; set keys.device")
	}
	l.logger.Infof("monitoring key events on %s (%s)", kbd.Name, kbd.Path)
	return kbd.Path, nil
}

// Run reads events until ctx is cancelled or the device fails.
func (l *Listener) Run(ctx context.Context) error {
	path, err := l.resolveDevice()
	if err != nil {
		return err
	}
	dev, err := l.open(path)
	if err != nil {
		return fmt.Errorf("open input device: %w", err)
	}
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			dev.Close()
		case <-stop:
			dev.Close()
		}
	}()

	for {
		ev, err := ReadEvent(dev)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("input device %s closed", path)
			}
			return fmt.Errorf("read input event: %w", err)
		}
		l.handle(ctx, ev)
	}
}

func (l *Listener) handle(ctx context.Context, ev InputEvent) {
	if ev.Type != EvKey || ev.Value != KeyReleased {
		return
	}
	match := int(ev.Code) == l.Keycode
	if match || l.PrintAll {
		l.logger.Infof("key with code %d released", ev.Code)
	}
	if !match || l.OnRelease == nil {
		return
	}
	if err := l.OnRelease(ctx); err != nil {
		l.logger.Errorf("release trigger failed: %v", err)
	}
}
