package app

import (
	"fmt"

	"crmchat_backend/database"
	"crmchat_backend/internal/config"
	"crmchat_backend/internal/handlers"
	"crmchat_backend/internal/logger"
	"crmchat_backend/internal/middleware"
	"crmchat_backend/internal/repositories"
	repoChat "crmchat_backend/internal/repositories/chat"
	"crmchat_backend/internal/routes"
	chat "crmchat_backend/internal/services/chat"
	"crmchat_backend/internal/storage"
	"crmchat_backend/internal/validator"
	"crmchat_backend/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Run boots the chat service: config, logger, database, migration, router.
func Run() {
	config.LoadConfig()
	cfg := config.AppConfig

	logger.Init(cfg.Server.Env)
	logger.Info("logger initialized", "env", cfg.Server.Env)

	gormDB, err := database.ConnectGorm()
	if err != nil {
		logger.Fatal("failed to connect to database", "error", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("database unavailable", "error", err)
	}
	logger.Info("database connected")

	if err := database.Migrate(gormDB); err != nil {
		logger.Fatal("migration failed", "error", err)
	}

	router := SetupRouter(cfg, gormDB)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("server starting", "address", address)
	if err := router.Run(address); err != nil {
		logger.Fatal("server startup error", "error", err)
	}
}

// SetupRouter wires repositories, services, the broker registry and the HTTP
// router. Shared with the integration test server.
func SetupRouter(cfg *config.Config, gormDB *gorm.DB) *gin.Engine {
	storageInstance, err := storage.NewStorage(storage.Config{
		Type:      cfg.Storage.Type,
		BasePath:  cfg.Storage.BasePath,
		BaseURL:   cfg.Storage.BaseURL,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
	})
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	logger.Info("storage initialized", "type", cfg.Storage.Type)

	// Repositories
	userRepo := repositories.NewUserRepository(gormDB)
	roomRepo := repoChat.NewRoomRepository(gormDB)
	memberRepo := repoChat.NewRoomMemberRepository(gormDB)
	messageRepo := repoChat.NewMessageRepository(gormDB)
	receiptRepo := repoChat.NewMessageReadReceiptRepository(gormDB)
	attachmentRepo := repoChat.NewMessageAttachmentRepository(gormDB)

	// Services
	chatService := chat.NewChatService(gormDB, roomRepo, memberRepo, messageRepo, receiptRepo, attachmentRepo)
	roomService := chat.NewRoomService(roomRepo, memberRepo, userRepo)
	attachmentService := chat.NewAttachmentService(storageInstance, attachmentRepo, cfg.Upload.MaxSize)

	// Live-connection layer
	registry := ws.NewRegistry(cfg.BrokerGrace())
	presence := ws.NewPresenceTracker(cfg.TypingTTL())
	wsHandler := ws.NewWebSocketHandler(registry, chatService, presence, cfg.Chat.SendQueueSize)

	// Handlers
	baseHandler := handlers.NewBaseHandler(validator.New())
	chatHandler := handlers.NewChatHandler(
		baseHandler, roomService, chatService, attachmentService, registry, cfg.Chat.DefaultPageSize)
	appHandlers := handlers.NewAppHandlers(chatHandler)

	router := initializeGinRouter()
	routes.RegisterRoutes(router, appHandlers)
	routes.RegisterWebSocketRoutes(router, wsHandler)

	// Local blobs are served straight from disk; remote backends hand out
	// their own URLs.
	if local, ok := storageInstance.(*storage.LocalStorage); ok {
		router.Static("/files", local.Root())
	}

	return router
}

func initializeGinRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	return router
}
