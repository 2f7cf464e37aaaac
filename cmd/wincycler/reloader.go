package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/hyprpal/wincycler/internal/config"
	"github.com/hyprpal/wincycler/internal/metrics"
	"github.com/hyprpal/wincycler/internal/util"
)

// reloadable is the subset of the cycler that follows config changes.
type reloadable interface {
	SetMaxHistory(max int)
	SetScratchpadMark(mark string)
	SetRedactTitles(enabled bool)
}

// markSetter is a backend whose scratchpad target follows the config.
type markSetter interface {
	SetScratchpadMark(mark string)
}

// redactSetter is a status server whose title redaction follows the config.
type redactSetter interface {
	SetRedactTitles(enabled bool)
}

type configReloader struct {
	path    string
	flags   *pflag.FlagSet
	logger  *util.Logger
	cycler  reloadable
	backend markSetter
	status  redactSetter
	metrics *metrics.Collector

	lastConfig     *config.Config
	lastSerialized []byte
}

// newConfigReloader wires the reload targets. backend and status may be nil.
func newConfigReloader(path string, flags *pflag.FlagSet, logger *util.Logger, cycler reloadable, backend markSetter, status redactSetter, metrics *metrics.Collector, cfg *config.Config, serialized []byte) *configReloader {
	return &configReloader{
		path:           path,
		flags:          flags,
		logger:         logger,
		cycler:         cycler,
		backend:        backend,
		status:         status,
		metrics:        metrics,
		lastConfig:     cfg,
		lastSerialized: append([]byte(nil), serialized...),
	}
}

// Reload re-reads the config file and applies the fields that can change at
// runtime. A rejected file leaves the previous configuration in place.
func (r *configReloader) Reload(reason string) error {
	r.logger.Infof("%s, reloading config", reason)
	raw, err := os.ReadFile(r.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("read config: %w", err)
	}
	cfg, lintErrs, err := config.LintData(raw)
	if err != nil {
		r.logDiff(raw)
		return err
	}
	if len(lintErrs) > 0 {
		r.logLintErrors(lintErrs)
		r.logDiff(raw)
		return lintErrs[0]
	}
	if err := config.Overlay(cfg, r.flags); err != nil {
		return fmt.Errorf("apply overrides: %w", err)
	}
	r.warnRestartOnly(cfg)

	r.logger.SetLevel(util.ParseLogLevel(cfg.LogLevel))
	r.cycler.SetRedactTitles(cfg.RedactTitles)
	r.cycler.SetScratchpadMark(cfg.ScratchpadMark)
	r.cycler.SetMaxHistory(cfg.MaxHistory)
	if r.backend != nil {
		r.backend.SetScratchpadMark(cfg.ScratchpadMark)
	}
	if r.status != nil {
		r.status.SetRedactTitles(cfg.RedactTitles)
	}
	if r.metrics != nil {
		r.metrics.SetEnabled(cfg.Telemetry.Enabled)
	}

	r.lastConfig = cfg
	r.lastSerialized = append([]byte(nil), raw...)
	return nil
}

func (r *configReloader) warnRestartOnly(cfg *config.Config) {
	prev := r.lastConfig
	if prev == nil {
		return
	}
	changed := func(field, before, after string) {
		if before != after {
			r.logger.Warnf("%s changed from %q to %q; restart the daemon to apply", field, before, after)
		}
	}
	changed("backend", prev.Backend, cfg.Backend)
	changed("dispatch", prev.Dispatch, cfg.Dispatch)
	changed("socketPath", prev.SocketPath, cfg.SocketPath)
	changed("status.listen", prev.Status.Listen, cfg.Status.Listen)
}

func (r *configReloader) logDiff(current []byte) {
	diff := config.DiffSerialized(r.lastSerialized, current)
	if diff == "" {
		r.logger.Warnf("config change rejected; unable to compute diff vs last valid config")
		return
	}
	r.logger.Warnf("config change rejected; diff vs last valid config:\n%s", diff)
}

func (r *configReloader) logLintErrors(errs []config.LintError) {
	r.logger.Warnf("config validation failed with %d issue(s):", len(errs))
	for _, lintErr := range errs {
		if lintErr.Path != "" {
			r.logger.Warnf(" - %s: %s", lintErr.Path, lintErr.Message)
			continue
		}
		r.logger.Warnf(" - %s", lintErr.Message)
	}
}
