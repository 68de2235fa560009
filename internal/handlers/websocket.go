package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"mentorlink/internal/config"
	"mentorlink/internal/middleware"
	"mentorlink/internal/utils"
	"mentorlink/internal/ws"
	"mentorlink/pkg/logger"
)

// WebSocketHandler upgrades authenticated requests to websocket
// connections and registers them with the hub.
type WebSocketHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(hub *ws.Hub, cfg *config.Config) *WebSocketHandler {
	allowed := cfg.Server.CORS.AllowedOrigins

	return &WebSocketHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.Server.WebSocket.ReadBufferSize,
			WriteBufferSize: cfg.Server.WebSocket.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					// Non-browser clients send no Origin header.
					return true
				}
				for _, a := range allowed {
					if a == "*" || a == origin {
						return true
					}
				}
				return false
			},
		},
	}
}

// Handle upgrades the connection. JWTAuth runs before this and has already
// verified the token from the Authorization header or token query param.
func (h *WebSocketHandler) Handle(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithError(err).Error("Failed to upgrade websocket connection")
		return
	}

	client := ws.NewClient(conn, h.hub, userID)
	h.hub.Register <- client

	logger.LogUserAction(userID, "websocket_connected", map[string]interface{}{
		"ip": c.ClientIP(),
	})

	go client.WritePump()
	go client.ReadPump()
}
