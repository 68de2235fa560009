package routes

import (
	"github.com/gin-gonic/gin"

	"mentorlink/internal/config"
	"mentorlink/internal/handlers"
	"mentorlink/internal/middleware"
	"mentorlink/internal/services"
	"mentorlink/internal/signaling"
	"mentorlink/internal/ws"
)

// Deps carries the shared components the route handlers need.
type Deps struct {
	Config        *config.Config
	Hub           *ws.Hub
	Router        *signaling.MessageRouter
	CallLogs      *services.CallLogService
	Notifications *services.NotificationService
}

// SetupRoutes wires middleware and the REST/websocket surface.
func SetupRoutes(router *gin.Engine, deps Deps) {
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.Config)
	callHandler := handlers.NewCallHandler(deps.CallLogs)
	chatHandler := handlers.NewChatHandler(deps.Router)
	notificationHandler := handlers.NewNotificationHandler(deps.Notifications)

	limiter := middleware.NewRateLimiter(20, 40)

	router.Use(middleware.CORS())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"version": deps.Config.App.Version,
		})
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.JWTAuth())
	{
		// Signaling and chat both ride one websocket connection.
		v1.GET("/ws", wsHandler.Handle)

		rest := v1.Group("/")
		rest.Use(limiter.Middleware())
		{
			calls := rest.Group("/calls")
			{
				calls.GET("", callHandler.List)
				calls.GET("/:call_id", callHandler.Get)
			}

			chats := rest.Group("/chats")
			{
				chats.POST("/messages", chatHandler.Send)
				chats.GET("/:chat_key/messages", chatHandler.History)
				chats.GET("/:chat_key/calls", callHandler.ListForChat)
				chats.GET("/:chat_key/unread", chatHandler.UnreadCount)
				chats.POST("/:chat_key/read", chatHandler.MarkRead)
			}

			notifications := rest.Group("/notifications")
			{
				notifications.GET("", notificationHandler.List)
				notifications.GET("/unread", notificationHandler.UnreadCount)
				notifications.PUT("/:id/read", notificationHandler.MarkRead)
			}
		}
	}
}
