package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/chemvis/dashboard/internal/broadcast"
)

// WebSocket message types
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypePong      = "pong"
	MsgTypeView      = broadcast.EventView
	MsgTypeNotice    = broadcast.EventNotice
	MsgTypeError     = "error"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
)

// WSMessage is the envelope of every websocket frame.
type WSMessage struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WebSocketHandler streams a session's view events to the browser.
type WebSocketHandler struct {
	hub      broadcast.Hub
	upgrader websocket.Upgrader
	maxSize  int64
	logger   *slog.Logger
}

// NewWebSocketHandler creates an event handler reading from hub. maxKB
// caps the size of client frames.
func NewWebSocketHandler(hub broadcast.Hub, maxKB int, logger *slog.Logger) EventHandler {
	if maxKB <= 0 {
		maxKB = 64
	}
	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from the dev server
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		maxSize: int64(maxKB) * 1024,
		logger:  logger,
	}
}

// HandleEvents upgrades the connection, sends the current view and then
// forwards every event published for the session until either side closes.
func (wsh *WebSocketHandler) HandleEvents(c echo.Context) error {
	state, err := sessionFrom(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	events, cancel, err := wsh.hub.Subscribe(ctx, state.ID)
	if err != nil {
		return NewServiceUnavailableError("event stream unavailable")
	}
	defer cancel()

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		return nil
	}
	defer ws.Close()

	sid := state.ID
	if len(sid) > 8 {
		sid = sid[:8]
	}
	wsh.logger.Debug("websocket connected", "session", sid)

	pings := make(chan struct{}, 1)
	done := make(chan struct{})
	go wsh.readLoop(ws, pings, done)

	initial, err := json.Marshal(state.Controller.Snapshot())
	if err != nil {
		wsh.send(ws, WSMessage{Type: MsgTypeError})
		return nil
	}
	if err := wsh.send(ws, WSMessage{Type: MsgTypeConnected}); err != nil {
		return nil
	}
	if err := wsh.send(ws, WSMessage{Type: MsgTypeView, Data: initial}); err != nil {
		return nil
	}

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				wsh.closeWith(ws, websocket.CloseGoingAway, "session closed")
				return nil
			}
			if err := wsh.send(ws, WSMessage{Type: ev.Type, Data: ev.Data}); err != nil {
				return nil
			}
		case <-pings:
			if err := wsh.send(ws, WSMessage{Type: MsgTypePong}); err != nil {
				return nil
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		case <-done:
			wsh.logger.Debug("websocket disconnected", "session", sid)
			return nil
		}
	}
}

// readLoop consumes client frames. Only ping messages are understood; the
// loop ends, closing done, when the connection fails or is closed.
func (wsh *WebSocketHandler) readLoop(ws *websocket.Conn, pings chan<- struct{}, done chan<- struct{}) {
	defer close(done)

	ws.SetReadLimit(wsh.maxSize)
	ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsh.logger.Debug("websocket read failed", "error", err)
			}
			return
		}
		ws.SetReadDeadline(time.Now().Add(wsPongWait))

		if msg.Type == MsgTypePing {
			select {
			case pings <- struct{}{}:
			default:
			}
		}
	}
}

func (wsh *WebSocketHandler) send(ws *websocket.Conn, msg WSMessage) error {
	msg.Timestamp = time.Now().UnixMilli()
	ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return ws.WriteJSON(msg)
}

func (wsh *WebSocketHandler) closeWith(ws *websocket.Conn, code int, text string) {
	deadline := time.Now().Add(wsWriteWait)
	ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), deadline)
}
