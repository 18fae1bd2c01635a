package protocol

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

// RemoteError is an OpError response.
type RemoteError struct {
	Kind    string
	Message string
}

func (e *RemoteError) Error() string { return e.Kind + ": " + e.Message }

// parseRemoteError splits "<Kind>: <message>".
func parseRemoteError(fields []string) *RemoteError {
	if len(fields) == 0 {
		return &RemoteError{Kind: "Unknown", Message: "error without message"}
	}
	kind, msg, ok := strings.Cut(fields[0], ": ")
	if !ok {
		return &RemoteError{Kind: "Unknown", Message: fields[0]}
	}
	return &RemoteError{Kind: kind, Message: msg}
}

// Client sends requests over one connection.  Calls are serialised; the
// server answers each request with exactly one response.
type Client struct {
	mu      sync.Mutex
	conn    net.Conn
	r       *Reader
	timeout time.Duration
}

// Dial connects to a server.
func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return NewClient(conn), nil
}

// NewClient wraps an established connection.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn, r: NewReader(conn), timeout: 30 * time.Second}
}

// Call sends op with fields and returns the response fields.  An OpError
// response is returned as *RemoteError.
func (c *Client) Call(op Op, fields ...string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timeout > 0 {
		_ = c.conn.SetDeadline(time.Now().Add(c.timeout))
	}
	if _, err := c.conn.Write(New(op, fields...).Encode()); err != nil {
		return nil, fmt.Errorf("send %s: %w", op, err)
	}
	resp, err := c.r.Read()
	if err != nil {
		return nil, fmt.Errorf("receive %s: %w", op, err)
	}
	switch resp.Op {
	case OpOK:
		return resp.Fields, nil
	case OpError:
		return nil, parseRemoteError(resp.Fields)
	default:
		return nil, fmt.Errorf("%w: unexpected response code %d", ErrMalformed, resp.Op)
	}
}

func (c *Client) Close() error { return c.conn.Close() }
