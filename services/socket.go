package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"chatbot/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

// SocketHub accepts WebSocket connections and relays chat events between clients and the Router
type SocketHub struct {
	router   *Router
	logger   *zap.Logger
	upgrader websocket.Upgrader
	mu       sync.Mutex
	conns    map[string]*socketConn
}

// socketConn serializes writes; a gorilla connection allows only one concurrent writer.
type socketConn struct {
	id      string
	ws      *websocket.Conn
	writeMu sync.Mutex
}

// NewSocketHub creates a hub that routes every inbound chat message through router
func NewSocketHub(router *Router, logger *zap.Logger) *SocketHub {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &SocketHub{
		router: router,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[string]*socketConn),
	}
}

// ServeHTTP upgrades the request and runs the connection until the client goes away
func (h *SocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	conn := &socketConn{id: uuid.NewString(), ws: ws}
	h.register(conn)
	h.router.Open(conn.id)
	h.logger.Info("User connected", zap.String("connection_id", conn.id))

	defer func() {
		h.unregister(conn.id)
		h.router.Close(conn.id)
		ws.Close()
		h.logger.Info("User disconnected", zap.String("connection_id", conn.id))
	}()

	if err := conn.write(models.Frame{Event: models.EventConnected, Data: conn.id}); err != nil {
		h.logger.Warn("Failed to send connected frame", zap.String("connection_id", conn.id), zap.Error(err))
		return
	}

	h.readLoop(conn)
}

func (h *SocketHub) readLoop(conn *socketConn) {
	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("WebSocket read error", zap.String("connection_id", conn.id), zap.Error(err))
			}
			return
		}

		message, ok := decodeChatMessage(data)
		if !ok {
			h.logger.Warn("Ignoring unsupported frame", zap.String("connection_id", conn.id), zap.ByteString("frame", data))
			continue
		}

		h.logger.Info("Received message", zap.String("connection_id", conn.id), zap.String("message", message))

		action := h.router.Route(conn.id, message)
		if err := h.Dispatch(conn.id, action); err != nil {
			h.logger.Warn("Failed to send response", zap.String("connection_id", conn.id), zap.Error(err))
			return
		}
	}
}

// decodeChatMessage extracts the text of an inbound chat message frame.
// A chat message whose data is absent or not a string decodes as the empty message.
// ok is false for unparseable frames and other events.
func decodeChatMessage(data []byte) (string, bool) {
	var frame struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		return "", false
	}
	if frame.Event != models.EventChatMessage {
		return "", false
	}

	var message string
	if len(frame.Data) == 0 || json.Unmarshal(frame.Data, &message) != nil {
		return "", true
	}
	return message, true
}

// ActionFrame converts a routing decision into the outbound wire frame
func ActionFrame(action models.Action) models.Frame {
	if action.Kind == models.ActionFallback {
		return models.Frame{Event: models.EventHardFallback}
	}
	return models.Frame{Event: models.EventChatMessage, Data: action.Text}
}

// Dispatch sends action to the connection identified by connectionID only
func (h *SocketHub) Dispatch(connectionID string, action models.Action) error {
	h.mu.Lock()
	conn, exists := h.conns[connectionID]
	h.mu.Unlock()

	if !exists {
		return fmt.Errorf("connection %s not found", connectionID)
	}
	return h.dispatch(conn, action)
}

func (h *SocketHub) dispatch(conn *socketConn, action models.Action) error {
	if action.Kind == models.ActionFallback {
		h.logger.Info("Sending hard fallback", zap.String("connection_id", conn.id))
	} else {
		h.logger.Info("Sending response", zap.String("connection_id", conn.id), zap.String("response", action.Text))
	}
	return conn.write(ActionFrame(action))
}

func (c *socketConn) write(frame models.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteJSON(frame)
}

func (h *SocketHub) register(conn *socketConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn.id] = conn
}

func (h *SocketHub) unregister(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, id)
}

// Count returns the number of open connections
func (h *SocketHub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// CloseAll sends a close frame to every client and closes the connections
func (h *SocketHub) CloseAll() {
	h.mu.Lock()
	conns := make([]*socketConn, 0, len(h.conns))
	for _, conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	for _, conn := range conns {
		conn.writeMu.Lock()
		msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
		if err := conn.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil {
			h.logger.Debug("Failed to send close frame", zap.String("connection_id", conn.id), zap.Error(err))
		}
		conn.writeMu.Unlock()
		conn.ws.Close()
	}
}
