package routes

import (
	"crmchat_backend/internal/logger"
	"crmchat_backend/ws"

	"github.com/gin-gonic/gin"
)

// RegisterWebSocketRoutes mounts the live-connection endpoint. Authentication
// happens inside the handler, after the upgrade, so rejections arrive as
// close codes the browser client can read.
func RegisterWebSocketRoutes(router *gin.Engine, wsHandler *ws.WebSocketHandler) {
	router.GET("/ws/chat/:roomId", wsHandler.ServeWS)
	logger.Info("websocket route /ws/chat/:roomId registered")
}
