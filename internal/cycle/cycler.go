// Package cycle implements the focus-cycling state machine on top of the MRU
// history.
//
// All history, current-focus, and session state lives behind a single mutex.
// Window manager events and command-channel commands are applied one at a
// time; manager commands issued during a step run with the lock held, so a
// slow manager delays the next event or command rather than interleaving
// with it.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hyprpal/wincycler/internal/history"
	"github.com/hyprpal/wincycler/internal/metrics"
	"github.com/hyprpal/wincycler/internal/state"
	"github.com/hyprpal/wincycler/internal/util"
)

// DefaultScratchpadMark is the tag that makes a floating window eligible for
// the scratchpad before a cycle step.
const DefaultScratchpadMark = "scratchpad"

// Manager receives the commands issued by the cycler.
type Manager interface {
	Focus(ctx context.Context, id state.WindowID) error
	MoveToScratchpad(ctx context.Context, id state.WindowID) error
}

// Options configures a Cycler.
type Options struct {
	MaxHistory     int
	ScratchpadMark string
	RedactTitles   bool
	Metrics        *metrics.Collector
}

// Session describes the active cycle, if any.
type Session struct {
	Active    bool           `json:"active"`
	Anchor    state.WindowID `json:"anchor,omitempty"`
	HasAnchor bool           `json:"hasAnchor"`
	Cursor    int            `json:"cursor"`
}

// State is a point-in-time copy of everything the cycler owns.
type State struct {
	History                []state.Window `json:"history"`
	Current                *state.Window  `json:"current,omitempty"`
	Session                Session        `json:"session"`
	SuppressHistoryUpdates bool           `json:"suppressHistoryUpdates"`
	MaxHistory             int            `json:"maxHistory"`
}

// Redacted returns a copy with every title masked.
func (s State) Redacted() State {
	out := s
	out.History = state.CloneWindows(s.History)
	for i := range out.History {
		out.History[i].Title = history.RedactedTitle
	}
	if s.Current != nil {
		out.Current = state.CloneWindow(s.Current)
		out.Current.Title = history.RedactedTitle
	}
	return out
}

// Cycler is the focus-cycling state machine.
type Cycler struct {
	manager Manager
	logger  *util.Logger
	metrics *metrics.Collector

	mu             sync.Mutex
	history        *history.History
	current        *state.Window
	session        Session
	suppress       bool
	scratchpadMark string
	redactTitles   bool
	subscribers    map[int]chan State
	nextSubscriber int
}

// New returns an idle cycler with an empty history.
func New(manager Manager, logger *util.Logger, opts Options) *Cycler {
	if logger == nil {
		logger = util.NewNopLogger()
	}
	mark := opts.ScratchpadMark
	if mark == "" {
		mark = DefaultScratchpadMark
	}
	return &Cycler{
		manager:        manager,
		logger:         logger,
		metrics:        opts.Metrics,
		history:        history.New(opts.MaxHistory),
		scratchpadMark: mark,
		redactTitles:   opts.RedactTitles,
		subscribers:    make(map[int]chan State),
	}
}

// Initialize seeds the history with the currently focused window, or leaves
// it empty when nothing is focused.
func (c *Cycler) Initialize(focused *state.Window) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history.Initialize(focused)
	c.current = state.CloneWindow(focused)
	c.logListLocked("initialized window list")
	c.publishLocked()
}

// OnFocus records a focus notification. CurrentFocus is always updated; the
// history is only reordered while no cycle is active.
func (c *Cycler) OnFocus(w state.Window) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger.Debugf("window focused: %d", w.ID)
	c.current = state.CloneWindow(&w)
	if c.suppress {
		c.logger.Debugf("ignoring focus event for window list update")
		c.publishLocked()
		return
	}
	c.history.Promote(w)
	c.logListLocked("updated window list")
	c.publishLocked()
}

// OnNew records a newly created window. New windows always enter the history,
// even mid-cycle.
func (c *Cycler) OnNew(w state.Window) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger.Debugf("new window opened: %d", w.ID)
	c.history.Insert(w)
	c.logListLocked("updated window list")
	c.publishLocked()
}

// OnClose drops a closed window from the history.
func (c *Cycler) OnClose(id state.WindowID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger.Debugf("window closed: %d", id)
	if c.history.Remove(id) {
		c.logListLocked("updated window list")
	}
	c.publishLocked()
}

// HandleCommand dispatches a raw command token. Unknown tokens are logged and
// leave the state unchanged.
func (c *Cycler) HandleCommand(ctx context.Context, raw string) error {
	cmd, ok := ParseCommand(raw)
	c.logger.Debugf("handling command: %s", cmd)
	if !ok {
		c.logger.Errorf("unknown command %q", string(cmd))
		c.metrics.RecordCommand("unknown")
		return fmt.Errorf("%w %q", ErrUnknownCommand, string(cmd))
	}
	c.metrics.RecordCommand(string(cmd))
	switch cmd {
	case CommandNext:
		return c.Next(ctx)
	case CommandPrev:
		return c.Prev(ctx)
	case CommandCancel:
		return c.Cancel(ctx)
	default:
		return c.Finish(ctx)
	}
}

// Start begins a session anchored on the history head. It is a no-op while a
// session is already active.
func (c *Cycler) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startLocked()
	c.publishLocked()
}

// Next focuses the next window in the history, starting a session if needed.
func (c *Cycler) Next(ctx context.Context) error {
	return c.step(ctx, 1)
}

// Prev focuses the previous window in the history, starting a session if needed.
func (c *Cycler) Prev(ctx context.Context) error {
	return c.step(ctx, -1)
}

// Cancel refocuses the anchor window and ends the session.
func (c *Cycler) Cancel(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.Active {
		return nil
	}
	c.logger.Debugf("cycling canceled")
	var err error
	if c.session.HasAnchor {
		err = c.focusLocked(ctx, c.session.Anchor)
	}
	c.endLocked()
	c.metrics.RecordSession(metrics.SessionCancelled)
	c.logListLocked("window list after cancel")
	c.publishLocked()
	return err
}

// Finish ends the session and moves the currently focused window to the
// front of the history.
func (c *Cycler) Finish(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.Active {
		return nil
	}
	c.logger.Debugf("cycling finished")
	c.endLocked()
	if c.current != nil {
		c.history.Promote(*c.current)
	}
	c.metrics.RecordSession(metrics.SessionFinished)
	c.logListLocked("window list at finish")
	c.publishLocked()
	return nil
}

// State returns a copy of the cycler's state.
func (c *Cycler) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Subscribe returns a channel receiving the latest state after every change,
// and a function that cancels the subscription. Slow readers only see the
// most recent state.
func (c *Cycler) Subscribe() (<-chan State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSubscriber
	c.nextSubscriber++
	ch := make(chan State, 1)
	c.subscribers[id] = ch
	ch <- c.stateLocked()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subscribers, id)
			c.mu.Unlock()
			close(ch)
		})
	}
}

// SetScratchpadMark changes the tag checked by the scratchpad policy.
func (c *Cycler) SetScratchpadMark(mark string) {
	if mark == "" {
		mark = DefaultScratchpadMark
	}
	c.mu.Lock()
	c.scratchpadMark = mark
	c.mu.Unlock()
}

// SetMaxHistory changes the history bound, truncating if needed.
func (c *Cycler) SetMaxHistory(max int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history.Resize(max)
	c.publishLocked()
}

// SetRedactTitles toggles title redaction in log output.
func (c *Cycler) SetRedactTitles(enabled bool) {
	c.mu.Lock()
	c.redactTitles = enabled
	c.mu.Unlock()
}

func (c *Cycler) step(ctx context.Context, delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.publishLocked()
	if !c.session.Active {
		c.logger.Debugf("cycling not started, starting now")
		c.startLocked()
	}
	n := c.history.Len()
	if n == 0 {
		c.logger.Debugf("window list is empty, nothing to cycle")
		return nil
	}

	var errs []error
	if err := c.banishLocked(ctx); err != nil {
		errs = append(errs, err)
	}

	next := c.session.Cursor + delta
	switch {
	case next >= n:
		c.logger.Debugf("reached end of window list, wrapping around")
	case next < 0:
		c.logger.Debugf("reached beginning of window list, wrapping around")
	}
	next = ((next % n) + n) % n
	c.session.Cursor = next

	target, _ := c.history.At(next)
	if err := c.focusLocked(ctx, target.ID); err != nil {
		errs = append(errs, err)
	}
	c.logger.Debugf("focused window %d, cursor is now %d", target.ID, next)
	return errors.Join(errs...)
}

// banishLocked sends the currently focused window to the scratchpad when it
// is floating and carries the scratchpad mark.
func (c *Cycler) banishLocked(ctx context.Context) error {
	w := c.current
	if w == nil || !w.Floating.IsOn() || !w.HasTag(c.scratchpadMark) {
		return nil
	}
	if err := c.manager.MoveToScratchpad(ctx, w.ID); err != nil {
		c.metrics.RecordDispatchError("scratchpad")
		c.logger.Errorf("move window %d to scratchpad: %v", w.ID, err)
		return fmt.Errorf("move window %d to scratchpad: %w", w.ID, err)
	}
	c.metrics.RecordScratchpadMove()
	c.logger.Debugf("window %d sent to scratchpad", w.ID)
	return nil
}

func (c *Cycler) focusLocked(ctx context.Context, id state.WindowID) error {
	if err := c.manager.Focus(ctx, id); err != nil {
		c.metrics.RecordDispatchError("focus")
		c.logger.Errorf("focus window %d: %v", id, err)
		return fmt.Errorf("focus window %d: %w", id, err)
	}
	return nil
}

func (c *Cycler) startLocked() {
	if c.session.Active {
		c.logger.Debugf("already cycling")
		return
	}
	c.session = Session{Active: true}
	if head, ok := c.history.Head(); ok {
		c.session.Anchor = head.ID
		c.session.HasAnchor = true
	}
	c.suppress = true
	c.metrics.RecordSession(metrics.SessionStarted)
	c.logger.Debugf("cycling started, initial window %d", c.session.Anchor)
	c.logListLocked("window list at start")
}

func (c *Cycler) endLocked() {
	c.session = Session{}
	c.suppress = false
}

func (c *Cycler) stateLocked() State {
	return State{
		History:                c.history.Snapshot(),
		Current:                state.CloneWindow(c.current),
		Session:                c.session,
		SuppressHistoryUpdates: c.suppress,
		MaxHistory:             c.history.Max(),
	}
}

func (c *Cycler) publishLocked() {
	if len(c.subscribers) == 0 {
		return
	}
	snapshot := c.stateLocked()
	for _, ch := range c.subscribers {
		select {
		case <-ch:
		default:
		}
		ch <- snapshot
	}
}

func (c *Cycler) logListLocked(label string) {
	if !c.logger.Enabled(util.LevelDebug) {
		return
	}
	c.logger.Debugf("%s:\n%s", label, c.history.Describe(c.redactTitles))
}
