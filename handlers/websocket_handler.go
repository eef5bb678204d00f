package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Dosada05/scorekeeper/live"
	"github.com/Dosada05/scorekeeper/services"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub            *live.Hub
	historyService services.HistoryService
	upgrader       websocket.Upgrader
	logger         *slog.Logger
}

// NewWebSocketHandler accepts upgrades from any origin when allowedOrigins is empty.
func NewWebSocketHandler(hub *live.Hub, hs services.HistoryService, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}
	return &WebSocketHandler{
		hub:            hub,
		historyService: hs,
		logger:         logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowed) == 0 {
					return true
				}
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// ServeSession streams the events of one session of the caller's group.
func (h *WebSocketHandler) ServeSession(w http.ResponseWriter, r *http.Request) {
	group, ok := requireGroup(w, r)
	if !ok {
		return
	}
	sessionID, err := getUUIDFromURL(r, "sessionID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if _, err := h.historyService.GetSession(r.Context(), group, sessionID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Warn("websocket upgrade failed", slog.String("session_id", sessionID.String()), slog.Any("error", err))
		return
	}

	if h.hub.Attach(conn, live.RoomForSession(sessionID)) == nil {
		h.logger.Warn("websocket hub stopped, connection dropped", slog.String("session_id", sessionID.String()))
		return
	}
	h.logger.Debug("websocket client attached", slog.String("session_id", sessionID.String()), slog.String("group", group.String()))
}
