package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// Hyprctl wraps hyprctl shell-outs.
type Hyprctl struct {
	Binary string
}

// NewHyprctl returns a hyprctl client using the binary on PATH.
func NewHyprctl() *Hyprctl {
	return &Hyprctl{Binary: "hyprctl"}
}

// hyprClient is the subset of `hyprctl -j clients` the cycler needs.
type hyprClient struct {
	Address        string   `json:"address"`
	Class          string   `json:"class"`
	Title          string   `json:"title"`
	Floating       bool     `json:"floating"`
	Tags           []string `json:"tags"`
	FocusHistoryID int      `json:"focusHistoryID"`
}

func (c *Hyprctl) run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("hyprctl %s: %v: %s", strings.Join(args, " "), err, stderr.String())
	}
	return stdout.Bytes(), nil
}

func (c *Hyprctl) queryJSON(ctx context.Context, topic string) ([]byte, error) {
	return c.run(ctx, "-j", topic)
}

// Clients returns every mapped client.
func (c *Hyprctl) Clients(ctx context.Context) ([]hyprClient, error) {
	data, err := c.queryJSON(ctx, "clients")
	if err != nil {
		return nil, err
	}
	var clients []hyprClient
	if err := json.Unmarshal(data, &clients); err != nil {
		return nil, fmt.Errorf("decode clients: %w", err)
	}
	return clients, nil
}

// ActiveWindow returns the focused client, or nil when nothing is focused.
func (c *Hyprctl) ActiveWindow(ctx context.Context) (*hyprClient, error) {
	data, err := c.queryJSON(ctx, "activewindow")
	if err != nil {
		return nil, err
	}
	var client hyprClient
	if err := json.Unmarshal(data, &client); err != nil {
		return nil, fmt.Errorf("decode activewindow: %w", err)
	}
	if client.Address == "" {
		return nil, nil
	}
	return &client, nil
}

// Dispatch invokes `hyprctl dispatch`.
func (c *Hyprctl) Dispatch(ctx context.Context, args ...string) error {
	dispatchArgs := append([]string{"dispatch"}, args...)
	out, err := c.run(ctx, dispatchArgs...)
	if err != nil {
		return err
	}
	return checkDispatchReply(out)
}

func checkDispatchReply(out []byte) error {
	reply := strings.TrimSpace(string(out))
	if reply == "" || reply == "ok" {
		return nil
	}
	return fmt.Errorf("dispatch rejected: %s", reply)
}

var _ Dispatcher = (*Hyprctl)(nil)
