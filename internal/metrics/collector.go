package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wincycler"

// Session outcomes recorded by RecordSession.
const (
	SessionStarted   = "started"
	SessionFinished  = "finished"
	SessionCancelled = "cancelled"
)

// Collector aggregates counters for cycle commands, sessions, and manager
// dispatches. It implements prometheus.Collector.
type Collector struct {
	mu             sync.RWMutex
	enabled        bool
	started        time.Time
	commands       map[string]uint64
	events         map[string]uint64
	sessions       map[string]uint64
	dispatchErrors map[string]uint64
	scratchpad     uint64
	lastCommand    time.Time
}

// Counter is a single labelled value in a snapshot.
type Counter struct {
	Name  string `json:"name"`
	Value uint64 `json:"value"`
}

// Snapshot is the serializable view of the current metrics state.
type Snapshot struct {
	Enabled         bool      `json:"enabled"`
	Started         time.Time `json:"started,omitempty"`
	LastCommand     time.Time `json:"lastCommand,omitempty"`
	Commands        []Counter `json:"commands,omitempty"`
	Events          []Counter `json:"events,omitempty"`
	Sessions        []Counter `json:"sessions,omitempty"`
	DispatchErrors  []Counter `json:"dispatchErrors,omitempty"`
	ScratchpadMoves uint64    `json:"scratchpadMoves"`
}

var (
	commandsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "commands_total"),
		"Commands received on the command channel.",
		[]string{"command"}, nil,
	)
	eventsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "events_total"),
		"Window manager events applied to the history.",
		[]string{"kind"}, nil,
	)
	sessionsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "sessions_total"),
		"Cycle sessions by outcome.",
		[]string{"outcome"}, nil,
	)
	dispatchErrorsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "dispatch_errors_total"),
		"Failed window manager commands.",
		[]string{"op"}, nil,
	)
	scratchpadDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "", "scratchpad_moves_total"),
		"Windows moved to the scratchpad before a cycle step.",
		nil, nil,
	)
)

// NewCollector returns a collector with the provided opt-in state.
func NewCollector(enabled bool) *Collector {
	c := &Collector{}
	c.SetEnabled(enabled)
	return c
}

// Enabled reports whether collection is currently active.
func (c *Collector) Enabled() bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.enabled
}

// SetEnabled toggles collection, resetting counters when enabling.
func (c *Collector) SetEnabled(enabled bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled == enabled && c.commands != nil {
		return
	}
	c.enabled = enabled
	c.commands = make(map[string]uint64)
	c.events = make(map[string]uint64)
	c.sessions = make(map[string]uint64)
	c.dispatchErrors = make(map[string]uint64)
	c.scratchpad = 0
	c.lastCommand = time.Time{}
	if !enabled {
		c.started = time.Time{}
		return
	}
	c.started = time.Now()
}

// RecordCommand counts a command received on the command channel.
func (c *Collector) RecordCommand(name string) {
	c.update(func(now time.Time) {
		c.commands[name]++
		c.lastCommand = now
	})
}

// RecordEvent counts a window manager event.
func (c *Collector) RecordEvent(kind string) {
	c.update(func(time.Time) {
		c.events[kind]++
	})
}

// RecordSession counts a session transition.
func (c *Collector) RecordSession(outcome string) {
	c.update(func(time.Time) {
		c.sessions[outcome]++
	})
}

// RecordScratchpadMove counts a scratchpad banish.
func (c *Collector) RecordScratchpadMove() {
	c.update(func(time.Time) {
		c.scratchpad++
	})
}

// RecordDispatchError counts a failed manager command.
func (c *Collector) RecordDispatchError(op string) {
	c.update(func(time.Time) {
		c.dispatchErrors[op]++
	})
}

func (c *Collector) update(mutate func(time.Time)) {
	if c == nil || mutate == nil {
		return
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	mutate(now)
}

// Snapshot returns the current counters for serialization or display.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := Snapshot{Enabled: c.enabled}
	if !c.enabled {
		return snap
	}
	snap.Started = c.started
	snap.LastCommand = c.lastCommand
	snap.Commands = sortedCounters(c.commands)
	snap.Events = sortedCounters(c.events)
	snap.Sessions = sortedCounters(c.sessions)
	snap.DispatchErrors = sortedCounters(c.dispatchErrors)
	snap.ScratchpadMoves = c.scratchpad
	return snap
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- commandsDesc
	ch <- eventsDesc
	ch <- sessionsDesc
	ch <- dispatchErrorsDesc
	ch <- scratchpadDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.Snapshot()
	if !snap.Enabled {
		return
	}
	emit := func(desc *prometheus.Desc, counters []Counter) {
		for _, counter := range counters {
			ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(counter.Value), counter.Name)
		}
	}
	emit(commandsDesc, snap.Commands)
	emit(eventsDesc, snap.Events)
	emit(sessionsDesc, snap.Sessions)
	emit(dispatchErrorsDesc, snap.DispatchErrors)
	ch <- prometheus.MustNewConstMetric(scratchpadDesc, prometheus.CounterValue, float64(snap.ScratchpadMoves))
}

var _ prometheus.Collector = (*Collector)(nil)

func sortedCounters(values map[string]uint64) []Counter {
	if len(values) == 0 {
		return nil
	}
	out := make([]Counter, 0, len(values))
	for name, value := range values {
		out = append(out, Counter{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
