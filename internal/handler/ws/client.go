package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"telecare-backend/internal/domain"
	"telecare-backend/pkg/constants"
	"telecare-backend/pkg/logger"
)

// Client is one accepted WebSocket connection. Each client runs an
// independent read pump and write pump; everything it shares with other
// connections goes through the Hub.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	user *domain.User
	room RoomKey

	// Buffered outbound queue; the write pump is its only reader. The
	// channel is never closed, so delivery into it is always safe;
	// shutdown is signalled through done instead.
	send chan []byte

	// done is closed exactly once when the connection is torn down.
	done chan struct{}

	closeOnce sync.Once

	// handleFrame processes one inbound frame. Set by the session that
	// owns the connection before readPump starts.
	handleFrame func(frame []byte)

	// onClose runs exactly once when the connection winds down.
	onClose func()

	// onPong fires on every pong from the peer, after the read deadline
	// has been pushed out.
	onPong func()
}

func newClient(hub *Hub, conn *websocket.Conn, user *domain.User, room RoomKey) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		user: user,
		room: room,
		send: make(chan []byte, constants.WebSocketSendBuffer),
		done: make(chan struct{}),
	}
}

// UserID returns the authenticated user's id
func (c *Client) UserID() int64 {
	return c.user.ID
}

// User returns the authenticated user
func (c *Client) User() *domain.User {
	return c.user
}

// Room returns the room this connection joined
func (c *Client) Room() RoomKey {
	return c.room
}

// shutdown tears the connection down. Safe from any goroutine and safe
// to call more than once; the send channel stays open so in-flight
// broadcasts can never hit a closed channel.
func (c *Client) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// readPump reads frames until the transport drops, then leaves the room
// and runs the close hook. It owns the read side of the connection.
func (c *Client) readPump() {
	defer func() {
		c.hub.Leave(c.room, c)
		if c.onClose != nil {
			c.onClose()
		}
		c.shutdown()
	}()

	c.conn.SetReadLimit(constants.MaxInboundFrameSize)
	c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPongTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(constants.WebSocketPongTimeout))
		if c.onPong != nil {
			c.onPong()
		}
		return nil
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error",
					zap.String("room", string(c.room)),
					zap.Int64("user_id", c.user.ID),
					zap.Error(err))
			}
			return
		}

		if c.handleFrame != nil {
			c.handleFrame(frame)
		}
	}
}

// writePump drains the send queue to the socket and keeps the
// connection alive with periodic pings. It owns the write side.
func (c *Client) writePump() {
	ticker := time.NewTicker(constants.WebSocketPingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(payload)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(constants.WebSocketWriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
