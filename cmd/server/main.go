package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"mentorlink/internal/config"
	"mentorlink/internal/routes"
	"mentorlink/internal/services"
	"mentorlink/internal/signaling"
	"mentorlink/internal/ws"
	"mentorlink/pkg/database"
	"mentorlink/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	logger.Init()
	cfg := config.Load()

	if err := database.InitMongoDB(cfg.MongoDB); err != nil {
		logger.Fatal("Failed to connect to MongoDB: " + err.Error())
	}
	db := database.GetDatabase()

	hub := ws.NewHub()
	go hub.Run()

	// Persistence services
	callLogService := services.NewCallLogService(db)
	directoryService := services.NewDirectoryService(db)
	notificationService := services.NewNotificationService(db, hub)
	messageService := services.NewMessageService(db)

	// Signaling core
	registry := signaling.NewRegistry(cfg.Call.EndedDedupeTTL)
	scheduler := signaling.NewScheduler()
	lifecycle := signaling.NewCallLogLifecycle(callLogService, hub)

	direct := signaling.NewDirectCallCoordinator(
		registry, hub, directoryService, lifecycle, notificationService,
		scheduler, cfg.Call.RingTimeout,
	)
	group := signaling.NewGroupCallCoordinator(
		registry, hub, directoryService, lifecycle, notificationService,
		scheduler, cfg.Call.RingTimeout,
	)

	tracker := signaling.NewActiveChatTracker()
	messageRouter := signaling.NewMessageRouter(
		messageService, directoryService, notificationService, hub, tracker,
	)

	dispatcher := signaling.NewDispatcher(direct, group, messageRouter, hub, tracker)
	hub.SetEventHandler(dispatcher.HandleEvent)
	hub.SetDisconnectHandler(dispatcher.HandleDisconnect)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	routes.SetupRoutes(router, routes.Deps{
		Config:        cfg,
		Hub:           hub,
		Router:        messageRouter,
		CallLogs:      callLogService,
		Notifications: notificationService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}

	logger.Info("Server starting on port: " + port)
	if err := router.Run(":" + port); err != nil {
		logger.Fatal("Failed to start server: " + err.Error())
	}
}
