package ipc

import (
	"context"
	"encoding/json"
	"net"
	"sync/atomic"
	"time"

	"github.com/Atlas-Launcher/runner/internal/atlaserr"
)

// Client is a synchronous request/response connection to a runnerd
// socket. One Client serializes its own requests; concurrent callers
// should use separate Clients or their own external locking.
type Client struct {
	conn   net.Conn
	nextID uint64
}

// Dial connects to a runnerd unix socket at sockPath.
func Dial(ctx context.Context, sockPath string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", sockPath)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error { return c.conn.Close() }

// Call sends a request payload and waits for the matching response
// envelope, decoding its payload into out.
func (c *Client) Call(ctx context.Context, req interface{}, out interface{}) error {
	id := atomic.AddUint64(&c.nextID, 1)

	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
	} else {
		_ = c.conn.SetDeadline(time.Time{})
	}

	if err := WriteFrame(c.conn, Envelope{ID: id, Payload: body}); err != nil {
		return err
	}

	for {
		env, err := ReadFrame(c.conn)
		if err != nil {
			return err
		}
		if env.ID != id {
			// An event frame delivered ahead of our response; callers
			// that subscribe concurrently should use a dedicated
			// Client for the subscription stream instead.
			continue
		}
		if kind, err := DecodeKind(env.Payload); err == nil && kind == KindError {
			var errResp ErrorResponse
			if err := json.Unmarshal(env.Payload, &errResp); err != nil {
				return err
			}
			return atlaserr.New(errResp.Code, errResp.Message).WithDetails(errResp.Details)
		}
		if out == nil {
			return nil
		}
		return json.Unmarshal(env.Payload, out)
	}
}

// Events returns a channel of decoded event envelopes received after a
// Subscribe call, closed when the connection ends. Call this instead of
// Call for the lifetime of a subscription.
func (c *Client) Events() <-chan Envelope {
	ch := make(chan Envelope)
	go func() {
		defer close(ch)
		for {
			env, err := ReadFrame(c.conn)
			if err != nil {
				return
			}
			ch <- env
		}
	}()
	return ch
}
