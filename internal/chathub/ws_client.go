package chathub

import (
	"encoding/json"
	"sync"
	"time"

	"dmsync/backend/internal/apperrors"
	"dmsync/backend/internal/config"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 32 << 10
)

// WebSocketClient implements Client over a gorilla/websocket connection.
type WebSocketClient struct {
	ClientID string
	Conn     *websocket.Conn
	Gateway  *Gateway
	Send     chan ServerFrame

	done      chan struct{}
	closeOnce sync.Once
	logger    *zap.SugaredLogger
}

func NewWebSocketClient(gw *Gateway, conn *websocket.Conn) *WebSocketClient {
	id := uuid.NewString()
	return &WebSocketClient{
		ClientID: id,
		Conn:     conn,
		Gateway:  gw,
		Send:     make(chan ServerFrame, config.ClientSendBuffer),
		done:     make(chan struct{}),
		logger:   gw.logger.With("client_id", id),
	}
}

func (c *WebSocketClient) ID() string { return c.ClientID }

// Deliver never blocks; Send is never closed, so a late delivery after Close
// is simply dropped.
func (c *WebSocketClient) Deliver(frame ServerFrame) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.Send <- frame:
		return true
	default:
		return false
	}
}

// Run registers the client and starts its pumps.
func (c *WebSocketClient) Run() {
	if !c.Gateway.Register(c) {
		_ = c.Conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

// Close stops the write pump, which closes the connection and in turn ends
// the read pump.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

func (c *WebSocketClient) readPump() {
	session := c.Gateway.NewSession(c)
	defer func() {
		session.Close()
		c.Gateway.Unregister(c)
		c.Close()
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Warnw("WebSocket read failed", "error", err)
			}
			return
		}

		var frame ClientFrame
		if err := json.Unmarshal(message, &frame); err != nil {
			c.Deliver(errorFrame("", apperrors.NewInvalidRequest("malformed frame")))
			continue
		}
		session.Handle(frame)
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case frame := <-c.Send:
			if err := c.write(frame); err != nil {
				c.logger.Debugw("WebSocket write failed", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"))
			return
		}
	}
}

func (c *WebSocketClient) write(frame ServerFrame) error {
	_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	data, err := json.Marshal(frame)
	if err != nil {
		c.logger.Errorw("Failed to encode frame", "type", frame.Type, "error", err)
		return nil
	}
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}
