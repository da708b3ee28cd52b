package observer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/go-theft-craft/hologram/internal/hologram/payload"
	"github.com/go-theft-craft/hologram/internal/server/world"
)

// Client is the observer side of the feed.
type Client struct {
	conn    *websocket.Conn
	session string
}

// Dial connects to url (ws://host:port/observe) and reads the greeting.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, http.Header{})
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	c := &Client{conn: conn}
	f, err := c.next()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if f.Type != TypeHello {
		conn.Close()
		return nil, fmt.Errorf("expected hello, got %q", f.Type)
	}
	c.session = f.Session
	return c, nil
}

// Session returns the id the server assigned.
func (c *Client) Session() string { return c.session }

func (c *Client) next() (Frame, error) {
	_, msg, err := c.conn.ReadMessage()
	if err != nil {
		return Frame{}, fmt.Errorf("read frame: %w", err)
	}
	return Decode(msg)
}

// Run delivers updates to fn until ctx is cancelled or the connection
// fails.
func (c *Client) Run(ctx context.Context, fn func(payload.BusUpdate)) error {
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()
	for {
		f, err := c.next()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if f.Type == TypeUpdate && f.Update != nil {
			fn(*f.Update)
		}
	}
}

// Watch asks the server to watch the projector containing seed.
func (c *Client) Watch(seed world.BlockPos) error {
	req := payload.NewWatchRequest(seed)
	return writeFrame(c.conn, Frame{Type: TypeWatch, Watch: &req})
}

// Close closes the connection.
func (c *Client) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}
