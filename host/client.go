package host

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// ErrClosed is returned by Call once the connection is gone.
var ErrClosed = errors.New("host connection closed")

// SocketPath returns the default host daemon socket path.
func SocketPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "sotto", "sotto.sock")
	}
	return filepath.Join(configDir, "sotto", "sotto.sock")
}

// Caller is the request/response surface consumed by the rest of the
// application, narrow enough to fake in tests. result may be nil when the
// caller only cares about success.
type Caller interface {
	Call(ctx context.Context, method string, params any, result any) error
}

// Client talks to the host daemon. A single read loop demultiplexes
// responses (matched to pending requests by id) from pushed events, which
// keeps per-connection event order intact.
type Client struct {
	conn net.Conn

	writeMu sync.Mutex

	mu      sync.Mutex
	pending map[string]chan Response
	closed  bool

	events chan Event
	done   chan struct{}

	quit      chan struct{}
	closeOnce sync.Once
}

// Connect dials the host daemon Unix socket and starts the read loop.
func Connect(socketPath string) (*Client, error) {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to host: %w", err)
	}

	c := &Client{
		conn:    conn,
		pending: make(map[string]chan Response),
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
		quit:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Events returns the stream of host-pushed events. The channel closes when
// the connection does.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Close shuts down the connection. Pending calls fail with ErrClosed, and
// the read loop is released even if nobody is draining the event channel.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.quit) })
	return c.conn.Close()
}

// Call sends one request and blocks until its response, ctx cancellation,
// or connection loss. result, when non-nil, receives the unmarshalled
// response payload.
func (c *Client) Call(ctx context.Context, method string, params any, result any) error {
	req := Request{ID: uuid.New().String(), Method: method}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
		req.Params = data
	}

	ch := make(chan Response, 1)
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
	}()

	data, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	data = append(data, '\n')

	c.writeMu.Lock()
	_, err = c.conn.Write(data)
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("write request: %w", err)
	}

	select {
	case resp := <-ch:
		if !resp.OK {
			if resp.Error == "" {
				return fmt.Errorf("%s failed", method)
			}
			return fmt.Errorf("%s: %s", method, resp.Error)
		}
		if result != nil && len(resp.Result) > 0 {
			if err := json.Unmarshal(resp.Result, result); err != nil {
				return fmt.Errorf("unmarshal %s result: %w", method, err)
			}
		}
		return nil
	case <-c.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readLoop reads NDJSON lines for the connection's lifetime. Lines carrying
// an event name go to the event channel in arrival order; everything else
// is matched to a pending request.
func (c *Client) readLoop() {
	defer func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.done)
		close(c.events)
	}()

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB lines

	for scanner.Scan() {
		line := scanner.Bytes()

		var envelope struct {
			ID    string `json:"id"`
			Event string `json:"event"`
		}
		if err := json.Unmarshal(line, &envelope); err != nil {
			slog.Warn("drop unparseable host line", "error", err)
			continue
		}

		if envelope.Event != "" {
			var ev Event
			if err := json.Unmarshal(line, &ev); err != nil {
				slog.Warn("drop malformed host event", "error", err)
				continue
			}
			// Closing the socket can't release a blocked channel send, so a
			// send backed up behind an absent consumer must also watch for
			// shutdown.
			select {
			case c.events <- ev:
			case <-c.quit:
				return
			}
			continue
		}

		var resp Response
		if err := json.Unmarshal(line, &resp); err != nil {
			slog.Warn("drop malformed host response", "error", err)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		c.mu.Unlock()
		if !ok {
			slog.Warn("response with no pending request", "id", resp.ID)
			continue
		}
		ch <- resp
	}

	if err := scanner.Err(); err != nil {
		slog.Error("host read loop", "error", err)
	}
}
