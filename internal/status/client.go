package status

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Client reads the status API of a running daemon.
type Client struct {
	base *url.URL
	http *http.Client
}

// NewClient accepts host:port or a full http URL.
func NewClient(addr string) (*Client, error) {
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	base, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("parse status address: %w", err)
	}
	return &Client{base: base, http: &http.Client{Timeout: 3 * time.Second}}, nil
}

// State fetches a single snapshot.
func (c *Client) State(ctx context.Context) (Status, error) {
	u := *c.base
	u.Path = "/api/state"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Status{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Status{}, fmt.Errorf("fetch state: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Status{}, fmt.Errorf("fetch state: unexpected status %s", resp.Status)
	}
	var st Status
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return Status{}, fmt.Errorf("decode state: %w", err)
	}
	return st, nil
}

// Stream calls fn with every pushed snapshot until ctx is done, the server
// closes the stream, or fn returns an error.
func (c *Client) Stream(ctx context.Context, fn func(Status) error) error {
	u := *c.base
	u.Path = "/api/stream"
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial status stream: %w", err)
	}
	defer conn.Close()
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	for {
		var st Status
		if err := conn.ReadJSON(&st); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read status stream: %w", err)
		}
		if err := fn(st); err != nil {
			return err
		}
	}
}
