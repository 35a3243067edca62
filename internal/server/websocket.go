package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/phillmac/orbit-core/internal/protocol"
)

// WSConnection represents a WebSocket control connection
type WSConnection struct {
	conn    *websocket.Conn
	handler *protocol.Handler
	ctx     context.Context
	logger  *zap.Logger
	sendCh  chan *protocol.Message
	mu      sync.Mutex
	closed  bool
	closeCh chan struct{}
}

// NewWSConnection creates a new WebSocket connection handler
func NewWSConnection(ctx context.Context, conn *websocket.Conn, handler *protocol.Handler, logger *zap.Logger) *WSConnection {
	return &WSConnection{
		conn:    conn,
		handler: handler,
		ctx:     ctx,
		logger:  logger,
		sendCh:  make(chan *protocol.Message, 100),
		closeCh: make(chan struct{}),
	}
}

// Start begins processing the WebSocket connection
func (ws *WSConnection) Start() {
	go ws.readPump()
	go ws.writePump()
}

// SendMessage queues a message to be sent to the client
func (ws *WSConnection) SendMessage(msg *protocol.Message) error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.closed {
		return fmt.Errorf("connection closed")
	}

	select {
	case ws.sendCh <- msg:
		return nil
	default:
		return fmt.Errorf("send buffer full")
	}
}

// Close closes the WebSocket connection
func (ws *WSConnection) Close() {
	ws.mu.Lock()
	if ws.closed {
		ws.mu.Unlock()
		return
	}
	ws.closed = true
	ws.mu.Unlock()

	close(ws.closeCh)
	ws.conn.Close()
}

// readPump reads messages from the WebSocket
func (ws *WSConnection) readPump() {
	defer ws.Close()

	for {
		_, data, err := ws.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				ws.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}

		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			ws.logger.Warn("failed to unmarshal message", zap.Error(err))
			continue
		}

		ws.logger.Debug("ws received",
			zap.String("method", msg.Method), zap.Int("requestid", msg.RequestID))

		response, err := ws.handler.HandleClientMessage(ws.ctx, &msg)
		if err != nil {
			ws.logger.Warn("failed to handle message", zap.Error(err))
			continue
		}

		if err := ws.SendMessage(response); err != nil {
			ws.logger.Warn("failed to send response", zap.Error(err))
			return
		}
	}
}

// writePump writes messages to the WebSocket
func (ws *WSConnection) writePump() {
	defer ws.Close()

	for {
		select {
		case msg := <-ws.sendCh:
			data, err := json.Marshal(msg)
			if err != nil {
				ws.logger.Warn("failed to marshal message", zap.Error(err))
				continue
			}

			if err := ws.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				ws.logger.Warn("failed to write message", zap.Error(err))
				return
			}

			ws.logger.Debug("ws sent",
				zap.String("method", msg.Method), zap.Int("requestid", msg.RequestID))

		case <-ws.closeCh:
			return
		}
	}
}
