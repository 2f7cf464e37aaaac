package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hyprpal/wincycler/internal/config"
	"github.com/hyprpal/wincycler/internal/util"
)

type rootOptions struct {
	configPath string
	logOut     io.Writer
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "wincycler",
		Short: "Cycle window focus in most-recently-used order",
		Long: `wincycler keeps a most-recently-used list of windows for i3 or Hyprland
and cycles focus through it on command.

Bind "wincycler next" and "wincycler prev" to keys, and run "wincycler keys"
so releasing the modifier finishes the cycle.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if opts.logOut == nil {
			opts.logOut = cmd.ErrOrStderr()
		}
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", config.DefaultPath(), "path to YAML config")
	pf.String("socket", "", "command socket path (default $XDG_RUNTIME_DIR/wincycler/cycler.sock)")
	pf.String("log-level", "", "log level (trace|debug|info|warn|error)")
	pf.String("log-format", "", "log format (console|json)")

	root.AddCommand(
		newDaemonCmd(opts),
		newSendCmd(opts),
		newKeysCmd(opts),
		newWatchCmd(opts),
		newCheckCmd(opts),
	)
	for _, shortcut := range newShortcutCmds(opts) {
		root.AddCommand(shortcut)
	}
	return root
}

// load reads the config file and layers env and flags over it.
func (o *rootOptions) load(cmd *cobra.Command) (*config.Config, []byte, error) {
	cfg, raw, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Overlay(cfg, cmd.Flags()); err != nil {
		return nil, nil, fmt.Errorf("apply overrides: %w", err)
	}
	return cfg, raw, nil
}

func (o *rootOptions) logger(cfg *config.Config) *util.Logger {
	return util.NewLoggerWithFormat(util.ParseLogLevel(cfg.LogLevel), o.logOut, util.ParseFormat(cfg.LogFormat))
}
