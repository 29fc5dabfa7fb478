package ws

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"crmchat_backend/internal/auth"
	"crmchat_backend/internal/logger"
	chat "crmchat_backend/internal/services/chat"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin policy is enforced at the proxy
	},
}

// WebSocketHandler upgrades HTTP requests into room sessions.
type WebSocketHandler struct {
	Registry  *Registry
	Chat      *chat.ChatService
	Presence  *PresenceTracker
	QueueSize int
}

func NewWebSocketHandler(registry *Registry, chatSvc *chat.ChatService, presence *PresenceTracker, queueSize int) *WebSocketHandler {
	return &WebSocketHandler{
		Registry:  registry,
		Chat:      chatSvc,
		Presence:  presence,
		QueueSize: queueSize,
	}
}

// ServeWS handles GET /ws/chat/:roomId. Authentication and authorization
// failures are reported with application close codes after the upgrade, so
// browser clients (which cannot read HTTP error bodies on a websocket
// request) still learn why they were rejected.
func (h *WebSocketHandler) ServeWS(c *gin.Context) {
	roomID := c.Param("roomId")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	claims, err := h.authenticate(c)
	if err != nil {
		rejectConn(conn, CloseUnauthorized, "authentication required")
		return
	}

	ctx := c.Request.Context()
	room, err := h.Chat.GetRoom(ctx, roomID)
	if err != nil {
		rejectConn(conn, CloseNotFound, "room not found")
		return
	}

	member, err := h.Chat.GetMembership(ctx, roomID, claims.UserID)
	if err != nil || !chat.CanRead(room, member) {
		rejectConn(conn, CloseForbidden, "not a room member")
		return
	}

	broker := h.Registry.Acquire(roomID)
	client := newClient(conn, claims.UserID, claims.Username, roomID, broker, h.Registry, h.Chat, h.Presence, h.QueueSize)
	broker.Subscribe(client)

	logger.Info("websocket session opened", "room_id", roomID, "user_id", claims.UserID)

	go client.writePump()
	go client.readPump()
}

// authenticate pulls the bearer token from the Authorization header or,
// for browser websocket clients that cannot set headers, the token query
// parameter.
func (h *WebSocketHandler) authenticate(c *gin.Context) (*auth.Claims, error) {
	token := c.Query("token")
	if token == "" {
		header := c.GetHeader("Authorization")
		token = strings.TrimPrefix(header, "Bearer ")
		if token == header {
			token = ""
		}
	}
	return auth.ParseToken(token)
}

func rejectConn(conn *websocket.Conn, code int, reason string) {
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeWait),
	)
	_ = conn.Close()
}
