package handlers

import (
	"net/http"

	"chat-core/internal/auth"
	"chat-core/internal/database"
	"chat-core/internal/pipeline"
	"chat-core/internal/presence"
	"chat-core/internal/registry"
	ws "chat-core/internal/websocket"
	"chat-core/pkg/logger"

	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	authService    *auth.Service
	registry       *registry.Registry
	pipeline       *pipeline.Pipeline
	presence       presence.Tracker
	db             database.Database
	sendBufferSize int
	upgrader       websocket.Upgrader
}

func NewWebSocketHandlers(
	authService *auth.Service,
	reg *registry.Registry,
	pipe *pipeline.Pipeline,
	tracker presence.Tracker,
	db database.Database,
	sendBufferSize int,
) *WebSocketHandlers {
	return &WebSocketHandlers{
		authService:    authService,
		registry:       reg,
		pipeline:       pipe,
		presence:       tracker,
		db:             db,
		sendBufferSize: sendBufferSize,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // Configure for production
		},
	}
}

// HandleWebSocket upgrades the connection and starts its pumps. The token
// authenticates the user once; room subscriptions happen over the socket.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	user, err := h.authService.GetUserFromToken(r.Context(), tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	client := ws.NewClient(conn, user.ID, user.Username, h.registry, h.pipeline, h.presence, h.db, h.sendBufferSize)

	// Connecting counts as the first liveness signal.
	if err := h.presence.Heartbeat(r.Context(), user.ID); err != nil {
		logger.Error("Presence heartbeat failed for user %d: %v", user.ID, err)
	}

	logger.Info("User %s connected (%s)", user.Username, client.ID())

	go client.WritePump()
	go client.ReadPump()
}
