/*
Package chat implements the real-time side of the server: the room registry, presence tracking,
message relay and the WebSocket client that feeds them.

All room state changes and broadcasts run on the Hub's single loop. Client connections only
decode frames and submit typed events; history reads and writes happen off the loop.
*/
package chat

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"labchat/internal/app/user"
	"labchat/internal/pkg/logx"
	"labchat/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a frame sent by the client.
	maxMessageSize = 32 * 1024

	// sendQueueSize is how many outbound frames may wait for a slow client before it is dropped.
	sendQueueSize = 256
)

// Client is one WebSocket connection.
type Client struct {
	id      string
	hub     *Hub
	conn    *websocket.Conn
	session user.User

	// send queues outbound frames for WritePump. It is never closed; closed signals shutdown.
	send chan []byte

	closed    chan struct{}
	closeOnce sync.Once

	// close frame written by WritePump on exit; the first Kick decides it.
	closeCode   int
	closeReason string

	logger zerolog.Logger
}

// NewClient wraps wsConn. session carries the identity from the connection's token and may be zero.
func NewClient(hub *Hub, wsConn *websocket.Conn, session user.User) *Client {
	id := randx.ConnectionID()

	return &Client{
		id:      id,
		hub:     hub,
		conn:    wsConn,
		session: session,
		send:    make(chan []byte, sendQueueSize),
		closed:  make(chan struct{}),
		logger:  logx.Component("Client").With().Str("conn_id", id).Logger(),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Send queues frame for WritePump. A full queue means the client cannot keep up; it is closed.
func (c *Client) Send(frame []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send queue full, closing slow connection.")
		c.Kick(websocket.ClosePolicyViolation, "send queue overflow")
		return false
	}
}

// Kick stops the connection. WritePump flushes the frames already queued, then sends a close
// frame with code and reason. It may be called from any goroutine.
func (c *Client) Kick(code int, reason string) {
	c.logger.Warn().
		Int("close_code", code).
		Str("reason", reason).
		Msg("Closing connection.")

	c.stopWith(code, reason)
}

func (c *Client) stop() {
	c.stopWith(websocket.CloseNormalClosure, "")
}

func (c *Client) stopWith(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.closed)
	})
}

// ReadPump reads frames until the connection fails, then runs the hub's disconnect handling
// before returning. It must run on its own goroutine per connection.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			return
		}

		c.processInboundMessage(data)
	}
}

// cleanupOnDisconnect handles the necessary cleanup steps when ReadPump terminates.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Debug().Msg("Client connection cleanup starting.")

	c.hub.Disconnect(c.id)
	c.stop()

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

func (c *Client) processInboundMessage(data []byte) {
	ev, err := DecodeEvent(data)
	if err != nil {
		c.logger.Warn().Err(err).Int("frame_bytes", len(data)).Msg("Client sent invalid event, dropping it.")
		return
	}

	if join, ok := ev.(JoinRoom); ok {
		join.SessionID = c.session.SessionID
		ev = join
	}

	if !c.hub.Submit(context.Background(), c.id, ev) {
		c.logger.Warn().Str("event", ev.eventType()).Msg("Hub stopped, dropping event.")
	}
}

// WritePump drains the send queue to the connection and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.stop()

		// ensure the connection is closed on exit so ReadPump unblocks
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame := <-c.send:
			if !c.writeFrame(frame) {
				return
			}

		case <-ticker.C:
			if !c.writePing() {
				return
			}

		case <-c.closed:
			if c.drain() {
				c.writeClose()
			}
			return
		}
	}
}

// drain flushes frames queued before the connection was stopped, such as the error frame
// preceding a kick. It reports whether the connection is still writable.
func (c *Client) drain() bool {
	for {
		select {
		case frame := <-c.send:
			if !c.writeFrame(frame) {
				return false
			}
		default:
			return true
		}
	}
}

// writeClose sends the close frame chosen by Kick. closeCode is safe to read here because
// closed has been closed after it was set.
func (c *Client) writeClose() {
	closeMessage := websocket.FormatCloseMessage(c.closeCode, c.closeReason)
	if err := c.conn.WriteControl(websocket.CloseMessage, closeMessage, time.Now().Add(writeWait)); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to send WS close message.")
	}
}

func (c *Client) writeFrame(frame []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
