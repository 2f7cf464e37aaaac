package tui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hyprpal/wincycler/internal/cycle"
	"github.com/hyprpal/wincycler/internal/metrics"
	"github.com/hyprpal/wincycler/internal/state"
	"github.com/hyprpal/wincycler/internal/status"
)

const (
	defaultRefresh = 500 * time.Millisecond
	titleWidth     = 48
)

// Source provides status snapshots from a running daemon.
type Source interface {
	State(ctx context.Context) (status.Status, error)
	Stream(ctx context.Context, fn func(status.Status) error) error
}

// Renderer renders a textual dashboard of the MRU list and cycle session.
// It follows the daemon's push stream and falls back to polling when the
// stream is unavailable.
type Renderer struct {
	Source  Source
	Writer  io.Writer
	Refresh time.Duration
}

// New returns a renderer configured with sensible defaults.
func New(src Source, w io.Writer) *Renderer {
	return &Renderer{Source: src, Writer: w, Refresh: defaultRefresh}
}

// Run starts the render loop until the context is cancelled.
func (r *Renderer) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if r.Writer == nil {
		r.Writer = os.Stdout
	}
	if r.Source == nil {
		return fmt.Errorf("tui renderer requires a status source")
	}

	fmt.Fprint(r.Writer, "\033[?25l")
	defer fmt.Fprint(r.Writer, "\033[?25h")

	err := r.Source.Stream(ctx, func(st status.Status) error {
		r.draw(st, nil)
		return nil
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	r.draw(status.Status{}, fmt.Errorf("stream unavailable, polling: %w", err))
	return r.poll(ctx)
}

func (r *Renderer) poll(ctx context.Context) error {
	refresh := r.Refresh
	if refresh <= 0 {
		refresh = defaultRefresh
	}
	ticker := time.NewTicker(refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			st, err := r.Source.State(ctx)
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			r.draw(st, err)
		}
	}
}

func (r *Renderer) draw(st status.Status, err error) {
	fmt.Fprint(r.Writer, Render(st, err, time.Now()))
}

// Render formats a single dashboard frame.
func Render(st status.Status, err error, now time.Time) string {
	var buf bytes.Buffer
	buf.WriteString("\033[H\033[2J")
	buf.WriteString("wincycler status (Ctrl+C to exit)\n")
	buf.WriteString(now.Format(time.RFC1123))
	buf.WriteString("\n\n")

	if err != nil {
		buf.WriteString(fmt.Sprintf("error: %v\n", err))
		return buf.String()
	}
	if st.Backend != "" {
		buf.WriteString(fmt.Sprintf("Backend: %s\n", st.Backend))
	}
	buf.WriteString(formatSession(st.Cycler))
	buf.WriteByte('\n')
	buf.WriteString(renderHistory(st.Cycler))
	buf.WriteString(renderCounters(st.Metrics))
	return buf.String()
}

func formatSession(c cycle.State) string {
	var b strings.Builder
	if !c.Session.Active {
		b.WriteString("Session: idle\n")
	} else {
		anchor := "(none)"
		if c.Session.HasAnchor {
			anchor = c.Session.Anchor.String()
		}
		b.WriteString(fmt.Sprintf("Session: cycling (anchor %s, cursor %d)\n", anchor, c.Session.Cursor))
	}
	current := "(none)"
	if c.Current != nil {
		current = fmt.Sprintf("[%s] %s", c.Current.ID, truncate(c.Current.Title, titleWidth))
	}
	b.WriteString(fmt.Sprintf("Current focus: %s\n", current))
	return b.String()
}

func renderHistory(c cycle.State) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("History (%d/%d):\n", len(c.History), c.MaxHistory))
	if len(c.History) == 0 {
		b.WriteString("  (empty)\n\n")
		return b.String()
	}
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tID\tTitle\tState")
	for i, w := range c.History {
		idx := fmt.Sprintf("%d", i)
		if c.Session.Active && i == c.Session.Cursor {
			idx = ">" + idx
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", idx, w.ID, truncate(w.Title, titleWidth), windowState(w, c))
	}
	tw.Flush()
	b.WriteByte('\n')
	return b.String()
}

func renderCounters(snap metrics.Snapshot) string {
	if !snap.Enabled {
		return ""
	}
	var b strings.Builder
	b.WriteString("Counters:\n")
	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	groups := []struct {
		label    string
		counters []metrics.Counter
	}{
		{"command", snap.Commands},
		{"event", snap.Events},
		{"session", snap.Sessions},
		{"dispatch error", snap.DispatchErrors},
	}
	for _, g := range groups {
		for _, c := range g.counters {
			fmt.Fprintf(tw, "%s\t%s\t%d\n", g.label, c.Name, c.Value)
		}
	}
	fmt.Fprintf(tw, "scratchpad\tmoves\t%d\n", snap.ScratchpadMoves)
	tw.Flush()
	return b.String()
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 1 {
		return string(runes[:max])
	}
	return string(runes[:max-1]) + "…"
}

func windowState(w state.Window, c cycle.State) string {
	var parts []string
	if c.Current != nil && c.Current.ID == w.ID {
		parts = append(parts, "focused")
	}
	if c.Session.HasAnchor && c.Session.Anchor == w.ID {
		parts = append(parts, "anchor")
	}
	if w.Floating.IsOn() {
		parts = append(parts, "floating")
	}
	if len(w.Tags) > 0 {
		parts = append(parts, "tags="+strings.Join(w.Tags, ","))
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}
