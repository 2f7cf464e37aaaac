package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hyprpal/wincycler/internal/config"
	"github.com/hyprpal/wincycler/internal/control/client"
	"github.com/hyprpal/wincycler/internal/cycle"
	"github.com/hyprpal/wincycler/internal/ipc"
	"github.com/hyprpal/wincycler/internal/keys"
)

func newKeysCmd(opts *rootOptions) *cobra.Command {
	var printAll bool
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Finish the cycle when the modifier key is released",
		Long: `Watch a keyboard input device and, when the configured key is released,
reset the window manager's input mode and send "finish" to the daemon.

Reading /dev/input requires root or membership in the input group.`,
		Example: `  # Left Alt (56) on the first keyboard found
  wincycler keys

  # Left Super on a specific device
  wincycler keys --keycode 125 --device /dev/input/event3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runKeys(cmd, opts, printAll)
		},
	}
	f := cmd.Flags()
	f.Int("keycode", config.DefaultKeycode, "keycode to watch, e.g. 56 for Left Alt or 125 for Left Super")
	f.String("device", "", "evdev device path (default: first keyboard)")
	f.String("reset-mode", "", "i3 mode to return to on release")
	f.String("backend", "", "window manager backend (auto|i3|hyprland)")
	f.BoolVar(&printAll, "print-all-keys", false, "log every released key")
	return cmd
}

func runKeys(cmd *cobra.Command, opts *rootOptions, printAll bool) error {
	cfg, _, err := opts.load(cmd)
	if err != nil {
		return err
	}
	logger := opts.logger(cfg)
	backend, err := ipc.New(logger.With("ipc"), ipc.Options{
		Backend:        ipc.BackendName(cfg.Backend),
		Dispatch:       ipc.DispatchStrategy(cfg.Dispatch),
		ScratchpadMark: cfg.ScratchpadMark,
	})
	if err != nil {
		return fmt.Errorf("connect window manager: %w", err)
	}
	cli := client.New(cfg.SocketPath)

	onRelease := func(ctx context.Context) error {
		if err := backend.ResetMode(ctx, cfg.Keys.ResetMode); err != nil {
			logger.Warnf("reset mode: %v", err)
		}
		return cli.Send(ctx, string(cycle.CommandFinish))
	}
	listener := keys.NewListener(logger.With("keys"), cfg.Keys.Keycode, cfg.Keys.Device, onRelease)
	listener.PrintAll = printAll
	logger.Infof("keycode: %d", cfg.Keys.Keycode)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return listener.Run(ctx)
}
