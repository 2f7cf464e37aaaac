package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyprpal/wincycler/internal/control/client"
	"github.com/hyprpal/wincycler/internal/cycle"
)

func newSendCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send <command>",
		Short: "Send a command (next, prev, cancel, finish) to the daemon",
		Example: `  # Cycle forward
  wincycler send next

  # Restore the window focused before cycling
  wincycler send cancel`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, opts, args[0])
		},
	}
}

func newShortcutCmds(opts *rootOptions) []*cobra.Command {
	short := map[cycle.Command]string{
		cycle.CommandNext:   "Focus the next window in MRU order",
		cycle.CommandPrev:   "Focus the previous window in MRU order",
		cycle.CommandCancel: "Refocus the window active before cycling",
		cycle.CommandFinish: "Commit the cycle and promote the focused window",
	}
	cmds := make([]*cobra.Command, 0, len(cycle.Commands))
	for _, command := range cycle.Commands {
		command := command
		cmds = append(cmds, &cobra.Command{
			Use:   string(command),
			Short: short[command],
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runSend(cmd, opts, string(command))
			},
		})
	}
	return cmds
}

// runSend delivers one command. A daemon that is not running is reported with
// guidance but is not an error.
func runSend(cmd *cobra.Command, opts *rootOptions, command string) error {
	cfg, _, err := opts.load(cmd)
	if err != nil {
		return err
	}
	cli := client.New(cfg.SocketPath)
	err = cli.Send(cmd.Context(), command)
	if errors.Is(err, client.ErrDaemonNotRunning) {
		out := cmd.ErrOrStderr()
		fmt.Fprintf(out, "Failed to send command: %v\n", err)
		fmt.Fprintln(out, "Is the wincycler daemon running? Start it with `wincycler daemon`")
		return nil
	}
	if err != nil {
		return fmt.Errorf("send %q: %w", command, err)
	}
	return nil
}
