package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hyprpal/wincycler/internal/config"
	"github.com/hyprpal/wincycler/internal/control"
	"github.com/hyprpal/wincycler/internal/cycle"
	"github.com/hyprpal/wincycler/internal/engine"
	"github.com/hyprpal/wincycler/internal/ipc"
	"github.com/hyprpal/wincycler/internal/metrics"
	"github.com/hyprpal/wincycler/internal/status"
)

func newDaemonCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the cycling daemon",
		Long: `Run the daemon: track focus changes from the window manager, keep the
most-recently-used window list, and serve commands on the command socket.

The daemon exits when the window manager shuts down.`,
		Example: `  # Autodetect i3 or Hyprland
  wincycler daemon

  # Hyprland via hyprctl with a status API
  wincycler daemon --backend hyprland --dispatch hyprctl --status-listen 127.0.0.1:9595`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.String("backend", "", "window manager backend (auto|i3|hyprland)")
	f.String("dispatch", "", "Hyprland dispatch strategy (socket|hyprctl)")
	f.Int("max-history", config.DefaultMaxHistory, "number of windows remembered")
	f.String("scratchpad-mark", "", "tag that sends floating windows to the scratchpad when cycling away")
	f.Bool("redact-titles", false, "mask window titles in logs and the status API")
	f.String("status-listen", "", "serve the status API on host:port")
	return cmd
}

func runDaemon(cmd *cobra.Command, opts *rootOptions) error {
	cfg, raw, err := opts.load(cmd)
	if err != nil {
		return err
	}
	logger := opts.logger(cfg)
	collector := metrics.NewCollector(cfg.Telemetry.Enabled)

	backend, err := ipc.New(logger.With("ipc"), ipc.Options{
		Backend:        ipc.BackendName(cfg.Backend),
		Dispatch:       ipc.DispatchStrategy(cfg.Dispatch),
		ScratchpadMark: cfg.ScratchpadMark,
	})
	if err != nil {
		return fmt.Errorf("connect window manager: %w", err)
	}
	logger.Infof("using %s backend", backend.Name())

	cycler := cycle.New(backend, logger.With("cycle"), cycle.Options{
		MaxHistory:     cfg.MaxHistory,
		ScratchpadMark: cfg.ScratchpadMark,
		RedactTitles:   cfg.RedactTitles,
		Metrics:        collector,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	ctrlSrv := control.NewServer(cycler, logger.With("control"), cfg.SocketPath)
	if err := ctrlSrv.Listen(); err != nil {
		return fmt.Errorf("start command server: %w", err)
	}
	defer ctrlSrv.Close()

	eng := engine.New(backend, cycler, logger.With("engine"), collector, nil)
	if err := eng.Start(ctx); err != nil {
		return err
	}

	errs := make(chan error, 3)
	var statusTarget redactSetter
	if cfg.Status.Listen != "" {
		statusSrv := status.NewServer(cycler, collector, logger.With("status"), backend.Name(), cfg.RedactTitles)
		statusTarget = statusSrv
		go func() {
			if err := statusSrv.ListenAndServe(ctx, cfg.Status.Listen); err != nil {
				errs <- fmt.Errorf("status API: %w", err)
			}
		}()
	}

	reloader := newConfigReloader(opts.configPath, cmd.Flags(), logger, cycler, backend, statusTarget, collector, cfg, raw)

	reloadRequests := make(chan string, 1)
	if cfgPath, err := filepath.Abs(opts.configPath); err == nil {
		cfgPath = filepath.Clean(cfgPath)
		watcher, err := newConfigWatcher(logger, cfgPath)
		if err != nil {
			logger.Debugf("config watching disabled: %v", err)
		} else {
			defer watcher.Close()
			go watchConfig(logger, watcher, cfgPath, reloadRequests)
		}
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigs)

	go func() {
		errs <- eng.Run(ctx)
	}()
	go func() {
		if err := ctrlSrv.Serve(ctx); err != nil {
			errs <- fmt.Errorf("command server: %w", err)
		}
	}()

	for {
		select {
		case err := <-errs:
			if errors.Is(err, ipc.ErrShutdown) {
				// The endpoint is removed by the deferred Close.
				logger.Infof("window manager exited, shutting down")
				return nil
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Errorf("daemon exited: %v", err)
				return err
			}
			logger.Infof("daemon stopped")
			return nil
		case reason := <-reloadRequests:
			if err := reloader.Reload(reason); err != nil {
				logger.Errorf("reload failed: %v", err)
			}
		case sig := <-sigs:
			switch sig {
			case syscall.SIGHUP:
				if err := reloader.Reload("received SIGHUP"); err != nil {
					logger.Errorf("reload failed: %v", err)
				}
			default:
				logger.Infof("received %s, shutting down", sig)
				cancel()
			}
		}
	}
}
