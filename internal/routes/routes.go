package routes

import (
	"crmchat_backend/internal/handlers"
	"crmchat_backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the REST API and the internal orchestration hooks.
func RegisterRoutes(router *gin.Engine, appHandlers *handlers.AppHandlers) {
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware())
	{
		appHandlers.ChatHandler.RegisterRoutes(api)
	}

	internal := router.Group("/internal/v1")
	{
		appHandlers.ChatHandler.RegisterInternalRoutes(internal)
	}
}
