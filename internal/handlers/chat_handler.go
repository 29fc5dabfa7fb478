package handlers

import (
	"net/http"

	"crmchat_backend/internal/middleware"
	chat "crmchat_backend/internal/services/chat"
	"crmchat_backend/pkg/apperrors"
	"crmchat_backend/ws"

	"github.com/gin-gonic/gin"
)

// ChatHandler is the REST surface over the chat core: room lifecycle,
// history, receipts and attachment upload. Live messaging happens on the
// websocket; mutations done here are mirrored to any connected sessions
// through the broker registry.
type ChatHandler struct {
	*BaseHandler
	Rooms       *chat.RoomService
	Chat        *chat.ChatService
	Attachments *chat.AttachmentService
	Registry    *ws.Registry
	PageSize    int
}

func NewChatHandler(
	base *BaseHandler,
	rooms *chat.RoomService,
	chatSvc *chat.ChatService,
	attachments *chat.AttachmentService,
	registry *ws.Registry,
	pageSize int,
) *ChatHandler {
	return &ChatHandler{
		BaseHandler: base,
		Rooms:       rooms,
		Chat:        chatSvc,
		Attachments: attachments,
		Registry:    registry,
		PageSize:    pageSize,
	}
}

// RegisterRoutes mounts the authenticated REST surface under the api group.
func (h *ChatHandler) RegisterRoutes(api *gin.RouterGroup) {
	rooms := api.Group("/rooms")
	{
		rooms.GET("", h.ListRooms)
		rooms.POST("", h.CreateRoom)
		rooms.GET("/:roomId/summary", h.RoomSummary)
		rooms.POST("/:roomId/join", h.JoinRoom)
		rooms.POST("/:roomId/leave", h.LeaveRoom)
		rooms.GET("/:roomId/members", h.ListMembers)
		rooms.POST("/:roomId/members", h.AddMember)
		rooms.GET("/:roomId/messages", h.ListMessages)
		rooms.POST("/:roomId/messages", h.SendMessage)
		rooms.POST("/:roomId/read", h.MarkAllRead)
		rooms.POST("/:roomId/attachments", h.UploadAttachment)
	}

	messages := api.Group("/messages")
	{
		messages.PATCH("/:messageId", h.EditMessage)
		messages.DELETE("/:messageId", h.DeleteMessage)
		messages.POST("/:messageId/read", h.MarkRead)
	}
}

// RegisterInternalRoutes mounts the community orchestration hooks. These sit
// behind the service mesh, not the public gateway.
func (h *ChatHandler) RegisterInternalRoutes(internal *gin.RouterGroup) {
	internal.POST("/communities/:communityId/room", h.CreateCommunityRoom)
	internal.PUT("/communities/:communityId/members/:userId", h.SyncCommunityMember)
}

type createRoomRequest struct {
	Name            string `json:"name" validate:"required,min=1,max=255"`
	Kind            string `json:"kind" validate:"omitempty,room_kind"`
	ReadOnly        bool   `json:"read_only"`
	MaxParticipants *int   `json:"max_participants" validate:"omitempty,min=2"`
}

type addMemberRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Role   string `json:"role" validate:"omitempty,member_role"`
}

type sendMessageRequest struct {
	Content        string  `json:"content"`
	Kind           string  `json:"kind" validate:"omitempty,message_kind"`
	ReplyTo        *string `json:"reply_to" validate:"omitempty,uuid"`
	AttachmentURL  *string `json:"attachment_url"`
	AttachmentName *string `json:"attachment_name"`
	AttachmentSize *int64  `json:"attachment_size"`
}

type editMessageRequest struct {
	Content string `json:"content" validate:"required"`
}

type markReadUpToRequest struct {
	MessageID string `json:"message_id" validate:"required,uuid"`
}

type communityRoomRequest struct {
	Name      string `json:"name" validate:"required,min=1,max=255"`
	CreatorID string `json:"creator_id" validate:"required,uuid"`
}

type communityMemberRequest struct {
	Role   string `json:"role" validate:"omitempty,member_role"`
	Active *bool  `json:"active" validate:"required"`
}

// ListRooms handles GET /rooms.
func (h *ChatHandler) ListRooms(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	rooms, err := h.Rooms.ListRooms(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// CreateRoom handles POST /rooms.
func (h *ChatHandler) CreateRoom(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req createRoomRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	room, err := h.Rooms.CreateRoom(c.Request.Context(), chat.CreateRoomInput{
		CreatorID:       userID,
		Name:            req.Name,
		Kind:            req.Kind,
		ReadOnly:        req.ReadOnly,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, chat.BuildRoomResponse(room))
}

// RoomSummary handles GET /rooms/:roomId/summary.
func (h *ChatHandler) RoomSummary(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	summary, err := h.Chat.RoomSummary(c.Request.Context(), c.Param("roomId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// JoinRoom handles POST /rooms/:roomId/join.
func (h *ChatHandler) JoinRoom(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	member, err := h.Rooms.JoinRoom(c.Request.Context(), c.Param("roomId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_id": member.RoomID, "role": member.Role})
}

// LeaveRoom handles POST /rooms/:roomId/leave.
func (h *ChatHandler) LeaveRoom(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	if err := h.Rooms.LeaveRoom(c.Request.Context(), c.Param("roomId"), userID); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListMembers handles GET /rooms/:roomId/members.
func (h *ChatHandler) ListMembers(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	members, err := h.Rooms.ListMembers(c.Request.Context(), c.Param("roomId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}

// AddMember handles POST /rooms/:roomId/members.
func (h *ChatHandler) AddMember(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req addMemberRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	member, err := h.Rooms.AddMember(c.Request.Context(), c.Param("roomId"), userID, req.UserID, req.Role)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"room_id": member.RoomID, "user_id": member.UserID, "role": member.Role})
}

// ListMessages handles GET /rooms/:roomId/messages?before=<id>&limit=<n>.
// Pages run backwards from the anchor; the response is chronological.
func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	limit := ParseQueryInt(c, "limit", h.PageSize)
	if limit <= 0 || limit > 200 {
		limit = h.PageSize
	}

	var before *string
	if v := c.Query("before"); v != "" {
		before = &v
	}

	page, err := h.Chat.ListMessages(c.Request.Context(), c.Param("roomId"), userID, before, limit)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// SendMessage handles POST /rooms/:roomId/messages. The REST path exists for
// attachment messages and non-interactive clients; live sessions hear about
// the message through the broker just as with a websocket send.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req sendMessageRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	msg, err := h.Chat.CreateMessage(c.Request.Context(), chat.SendMessageInput{
		RoomID:         c.Param("roomId"),
		SenderID:       userID,
		Kind:           req.Kind,
		Content:        req.Content,
		ReplyToID:      req.ReplyTo,
		AttachmentURL:  req.AttachmentURL,
		AttachmentName: req.AttachmentName,
		AttachmentSize: req.AttachmentSize,
	})
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.notifyRoom(msg.RoomID, ws.NewMessageEvent{
		Type:    ws.EventNewMessage,
		Message: chat.BuildMessageResponse(msg, ""),
	})
	c.JSON(http.StatusCreated, chat.BuildMessageResponse(msg, ""))
}

// EditMessage handles PATCH /messages/:messageId.
func (h *ChatHandler) EditMessage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req editMessageRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	msg, err := h.Chat.EditMessage(c.Request.Context(), "", c.Param("messageId"), userID, req.Content)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.notifyRoom(msg.RoomID, ws.MessageEditedEvent{
		Type:    ws.EventMessageEdited,
		Message: chat.BuildMessageResponse(msg, ""),
	})
	c.JSON(http.StatusOK, chat.BuildMessageResponse(msg, ""))
}

// DeleteMessage handles DELETE /messages/:messageId.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	msg, err := h.Chat.SoftDeleteMessage(c.Request.Context(), "", c.Param("messageId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.notifyRoom(msg.RoomID, ws.MessageDeletedEvent{
		Type:      ws.EventMessageDeleted,
		MessageID: msg.ID,
		DeletedBy: userID,
	})
	c.JSON(http.StatusOK, chat.BuildMessageResponse(msg, ""))
}

// MarkRead handles POST /messages/:messageId/read.
func (h *ChatHandler) MarkRead(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	msg, err := h.Chat.MarkRead(c.Request.Context(), "", c.Param("messageId"), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	h.notifyRoom(msg.RoomID, ws.MessageReadEvent{
		Type:      ws.EventMessageRead,
		MessageID: msg.ID,
		UserID:    userID,
		Username:  middleware.GetUsername(c),
	})
	c.Status(http.StatusNoContent)
}

// MarkAllRead handles POST /rooms/:roomId/read. Marks every message up to and
// including the given one as read.
func (h *ChatHandler) MarkAllRead(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req markReadUpToRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	if err := h.Chat.MarkAllReadUpTo(c.Request.Context(), c.Param("roomId"), userID, req.MessageID); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UploadAttachment handles POST /rooms/:roomId/attachments (multipart). The
// blob is stored first; the returned reference goes into a follow-up message
// or, when message_id is supplied, is attached to it directly.
func (h *ChatHandler) UploadAttachment(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}
	roomID := c.Param("roomId")

	ctx := c.Request.Context()
	room, err := h.Chat.GetRoom(ctx, roomID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	member, err := h.Chat.GetMembership(ctx, roomID, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	if !chat.CanSend(room, member) {
		h.HandleServiceError(c, apperrors.ErrReadOnlyRoom)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		apperrors.HandleError(c, apperrors.NewBadRequestError("Missing 'file' form field"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		apperrors.HandleError(c, apperrors.InternalError(err))
		return
	}
	defer file.Close()

	blob, err := h.Attachments.UploadBlob(ctx, file, fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"), fileHeader.Size)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	if messageID := c.PostForm("message_id"); messageID != "" {
		if _, err := h.Attachments.AddToMessage(ctx, messageID, userID, blob); err != nil {
			h.HandleServiceError(c, err)
			return
		}
	}
	c.JSON(http.StatusCreated, blob)
}

// CreateCommunityRoom handles POST /internal/communities/:communityId/room,
// the explicit hook the community workflow calls when a community is created.
func (h *ChatHandler) CreateCommunityRoom(c *gin.Context) {
	var req communityRoomRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	room, err := h.Rooms.CreateRoomForCommunity(c.Request.Context(), c.Param("communityId"), req.Name, req.CreatorID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, chat.BuildRoomResponse(room))
}

// SyncCommunityMember handles PUT /internal/communities/:communityId/members/:userId.
func (h *ChatHandler) SyncCommunityMember(c *gin.Context) {
	var req communityMemberRequest
	if !h.BindAndValidateJSON(c, &req) {
		return
	}

	err := h.Rooms.SyncCommunityMember(c.Request.Context(),
		c.Param("communityId"), c.Param("userId"), req.Role, *req.Active)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// notifyRoom mirrors a REST mutation to the room's live sessions, if any.
func (h *ChatHandler) notifyRoom(roomID string, event any) {
	if broker := h.Registry.Peek(roomID); broker != nil {
		broker.Publish(&ws.Publication{Event: event})
	}
}
