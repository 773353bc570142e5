package websocket

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/padlink/padlink/relay/session"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Controllers connect from phones on the LAN, so the Origin
		// header never matches the server host.
		return true
	},
}

// Handler upgrades HTTP requests to websocket connections and hands
// each one to a Client. Connections start unregistered; they join a
// session by sending a register frame.
type Handler struct {
	registry *session.Registry
	log      *zap.Logger
}

// NewHandler creates a websocket handler backed by registry.
func NewHandler(registry *session.Registry, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		registry: registry,
		log:      log,
	}
}

// ServeWS handles a websocket upgrade request.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		id:       uuid.NewString(),
		registry: h.registry,
		conn:     conn,
		send:     make(chan []byte, sendBufferSize),
		log:      h.log,
	}

	h.log.Info("client connected",
		zap.String("client_id", client.id),
		zap.String("remote_addr", conn.RemoteAddr().String()))

	go client.writePump()
	go client.readPump()
}
