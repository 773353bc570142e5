package websocket

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/padlink/padlink/metrics"
	"github.com/padlink/padlink/relay/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Outbound frames queued per connection before drops begin.
	sendBufferSize = 256
)

var errSendBufferFull = errors.New("send buffer full")

// Client is the per-connection handler. It owns the socket for the
// connection's lifetime and runs the Unregistered → Registered → Closed
// state machine: sess is nil until a register frame succeeds, and both
// sess and role are written only by the read pump.
type Client struct {
	id       string
	registry *session.Registry
	conn     *websocket.Conn
	send     chan []byte
	log      *zap.Logger

	sess *session.Session
	role session.Role
}

// ID identifies the connection in logs and implements session.Member.
func (c *Client) ID() string {
	return c.id
}

// Send queues a frame for delivery without blocking. It implements
// session.Member; a full buffer means the peer is too slow and the
// frame is dropped.
func (c *Client) Send(payload []byte) error {
	select {
	case c.send <- payload:
		return nil
	default:
		return errSendBufferFull
	}
}

// readPump pumps frames from the websocket connection through the
// state machine. It runs in its own goroutine and is the single writer
// of c.sess and c.role, and the single closer of c.send.
func (c *Client) readPump() {
	defer func() {
		if c.sess != nil {
			c.sess.RemoveClient(c)
			metrics.ConnectedClients.WithLabelValues(c.role.String()).Dec()
			c.log.Info("client detached",
				zap.String("client_id", c.id),
				zap.String("session_id", c.sess.ID()))
		}
		c.conn.Close()
		close(c.send)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read error",
					zap.String("client_id", c.id),
					zap.Error(err))
			}
			break
		}
		c.handleFrame(data)
	}
}

// handleFrame routes one inbound frame. Malformed frames are dropped;
// register frames drive the state machine; everything else is relayed
// through the session once registered and dropped before that.
func (c *Client) handleFrame(data []byte) {
	var header frameHeader
	if err := json.Unmarshal(data, &header); err != nil {
		c.log.Debug("dropping malformed frame",
			zap.String("client_id", c.id),
			zap.Error(err))
		return
	}

	if header.Type == "register" {
		c.handleRegister(data)
		return
	}

	if c.sess == nil {
		// Unregistered connections may only register.
		return
	}

	c.sess.Broadcast(data, c)
}

// handleRegister resolves the requested session and attaches the
// connection to it. A connection registers at most once; a second
// attempt is rejected and the existing membership is untouched.
func (c *Client) handleRegister(data []byte) {
	var req registerRequest
	if err := json.Unmarshal(data, &req); err != nil {
		c.log.Debug("dropping malformed register frame",
			zap.String("client_id", c.id),
			zap.Error(err))
		return
	}

	if c.sess != nil {
		c.sendError("Already registered")
		return
	}

	role, ok := session.ParseRole(req.Client)
	if !ok {
		c.sendError("Invalid client role")
		return
	}

	sess, err := c.registry.Get(req.SessionID)
	if err != nil {
		c.log.Info("registration against unknown session",
			zap.String("client_id", c.id),
			zap.String("session_id", req.SessionID))
		c.sendError("Invalid session")
		return
	}

	c.sess = sess
	c.role = role
	sess.AddClient(c, role)
	metrics.ConnectedClients.WithLabelValues(role.String()).Inc()
	metrics.Registrations.WithLabelValues(role.String()).Inc()

	c.sendJSON(registeredMessage{
		Type:      "registered",
		SessionID: sess.ID(),
		Client:    role.String(),
		Timestamp: time.Now().UnixMilli(),
	})

	c.log.Info("client registered",
		zap.String("client_id", c.id),
		zap.String("session_id", sess.ID()),
		zap.String("role", role.String()))
}

func (c *Client) sendError(reason string) {
	c.sendJSON(errorMessage{
		Type:      "error",
		Message:   reason,
		Timestamp: time.Now().UnixMilli(),
	})
}

func (c *Client) sendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		c.log.Error("failed to marshal frame", zap.Error(err))
		return
	}
	if err := c.Send(data); err != nil {
		c.log.Warn("send failed",
			zap.String("client_id", c.id),
			zap.Error(err))
	}
}

// writePump pumps frames from the send channel to the websocket
// connection and keeps the peer alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The read pump closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
