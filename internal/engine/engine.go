// Package engine pumps window manager events into the cycler.
package engine

import (
	"context"
	"fmt"

	"github.com/hyprpal/wincycler/internal/cycle"
	"github.com/hyprpal/wincycler/internal/ipc"
	"github.com/hyprpal/wincycler/internal/metrics"
	"github.com/hyprpal/wincycler/internal/state"
	"github.com/hyprpal/wincycler/internal/util"
)

// Source is the part of a backend the engine reads from.
type Source interface {
	Subscribe(ctx context.Context) (<-chan ipc.Event, error)
	Focused(ctx context.Context) (*state.Window, error)
}

// Engine ties a backend event stream to a cycler.
type Engine struct {
	source  Source
	cycler  *cycle.Cycler
	logger  *util.Logger
	metrics *metrics.Collector

	onShutdown func(reason string)
	events     <-chan ipc.Event
}

// New creates an engine. onShutdown, when set, runs once if the window manager
// reports a shutdown.
func New(source Source, cycler *cycle.Cycler, logger *util.Logger, collector *metrics.Collector, onShutdown func(reason string)) *Engine {
	if logger == nil {
		logger = util.NewNopLogger()
	}
	return &Engine{
		source:     source,
		cycler:     cycler,
		logger:     logger,
		metrics:    collector,
		onShutdown: onShutdown,
	}
}

// Seed initializes the history from the currently focused window.
func (e *Engine) Seed(ctx context.Context) error {
	focused, err := e.source.Focused(ctx)
	if err != nil {
		return fmt.Errorf("query focused window: %w", err)
	}
	if focused == nil {
		e.logger.Infof("no focused window at startup; history starts empty")
	}
	e.cycler.Initialize(focused)
	return nil
}

// Start subscribes to the event stream and then seeds the history. Events
// raised while seeding stay queued on the stream until Run applies them.
func (e *Engine) Start(ctx context.Context) error {
	events, err := e.source.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if err := e.Seed(ctx); err != nil {
		return err
	}
	e.events = events
	return nil
}

// Run applies events until ctx is done or the window manager shuts down, in
// which case ipc.ErrShutdown is returned. Without a prior Start it subscribes
// itself and skips seeding.
func (e *Engine) Run(ctx context.Context) error {
	events := e.events
	if events == nil {
		var err error
		if events, err = e.source.Subscribe(ctx); err != nil {
			return fmt.Errorf("subscribe: %w", err)
		}
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return e.shutdown("event stream closed")
			}
			if ev.Kind == ipc.EventShutdown {
				return e.shutdown(ev.Reason)
			}
			e.apply(ev)
		}
	}
}

func (e *Engine) apply(ev ipc.Event) {
	switch ev.Kind {
	case ipc.EventFocus:
		e.cycler.OnFocus(ev.Window)
	case ipc.EventNew:
		e.cycler.OnNew(ev.Window)
	case ipc.EventClose:
		e.cycler.OnClose(ev.ID)
	default:
		e.logger.Debugf("ignoring event %q", ev.Kind)
		return
	}
	e.metrics.RecordEvent(string(ev.Kind))
}

func (e *Engine) shutdown(reason string) error {
	e.logger.Warnf("window manager shutdown: %s", reason)
	e.metrics.RecordEvent(string(ipc.EventShutdown))
	if e.onShutdown != nil {
		e.onShutdown(reason)
	}
	return fmt.Errorf("%w: %s", ipc.ErrShutdown, reason)
}
