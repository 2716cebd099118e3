package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

// sendBuffer is how many undelivered messages a connection may accumulate
// before broadcasts start dropping for it.
const sendBuffer = 64

const writeTimeout = 5 * time.Second

// Client adapts one websocket connection to the Subscriber interface. A
// single writer goroutine drains the outbound channel, so messages reach the
// socket in the order the hub enqueued them.
type Client struct {
	conn      *websocket.Conn
	out       chan Message
	closeOnce sync.Once
	done      chan struct{}
}

// NewClient wraps conn and starts its writer. The caller owns the read side;
// Close must be called when the connection ends.
func NewClient(ctx context.Context, conn *websocket.Conn) *Client {
	c := &Client{
		conn: conn,
		out:  make(chan Message, sendBuffer),
		done: make(chan struct{}),
	}
	go c.writeLoop(ctx)
	return c
}

// Send enqueues msg for delivery. It never blocks: a full buffer or a closed
// connection reports false and the message is dropped for this client.
func (c *Client) Send(msg Message) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.out <- msg:
		return true
	default:
		return false
	}
}

// Close stops the writer and closes the socket. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.conn.Close(websocket.StatusNormalClosure, "")
	})
}

func (c *Client) writeLoop(ctx context.Context) {
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			c.Close()
			return
		case msg := <-c.out:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(writeCtx, c.conn, msg)
			cancel()
			if err != nil {
				slog.Debug("websocket write failed, closing connection", "error", err)
				c.Close()
				return
			}
		}
	}
}
