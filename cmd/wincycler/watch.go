package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyprpal/wincycler/internal/status"
	"github.com/hyprpal/wincycler/internal/ui/tui"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var refresh time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Show a live dashboard of the MRU list and cycle state",
		Long: `Render the daemon's MRU list, current focus, and session in the terminal.
Requires the daemon to run with status.listen set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if cfg.Status.Listen == "" {
				return errors.New("status API disabled; set status.listen or pass --status-listen")
			}
			src, err := status.NewClient(cfg.Status.Listen)
			if err != nil {
				return err
			}
			renderer := tui.New(src, cmd.OutOrStdout())
			renderer.Refresh = refresh
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := renderer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("dashboard: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().String("status-listen", "", "status API address of the daemon")
	cmd.Flags().DurationVar(&refresh, "refresh", 500*time.Millisecond, "poll interval when streaming is unavailable")
	return cmd
}
