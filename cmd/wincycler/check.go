package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hyprpal/wincycler/internal/config"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration file",
		Example: `  wincycler check --config ~/.config/wincycler/config.yaml`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runCheck(cmd, opts.configPath)
		},
	}
}

func runCheck(cmd *cobra.Command, path string) error {
	out := cmd.OutOrStdout()
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(out, "%s: not found, defaults apply\n", path)
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	cfg, lintErrs, err := config.LintData(raw)
	if err != nil {
		return err
	}
	if len(lintErrs) > 0 {
		fmt.Fprintf(out, "%s: %d issue(s):\n", path, len(lintErrs))
		for _, lintErr := range lintErrs {
			fmt.Fprintf(out, " - %s\n", lintErr.Error())
		}
		return errors.New("config invalid")
	}
	backend := cfg.Backend
	if backend == "" {
		backend = "auto"
	}
	fmt.Fprintf(out, "%s: ok (backend=%s maxHistory=%d scratchpadMark=%s)\n", path, backend, cfg.MaxHistory, cfg.ScratchpadMark)
	return nil
}
