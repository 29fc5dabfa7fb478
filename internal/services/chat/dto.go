package chat

import (
	"time"

	modelChat "crmchat_backend/internal/models/chat"
)

// Request/Response structures

type SendMessageInput struct {
	RoomID         string
	SenderID       string
	Kind           string // text, image, file, system
	Content        string
	ReplyToID      *string
	AttachmentURL  *string
	AttachmentName *string
	AttachmentSize *int64
}

type CreateRoomInput struct {
	CreatorID       string
	Name            string
	Kind            string
	ReadOnly        bool
	MaxParticipants *int
}

type ReplyPreview struct {
	ID        string `json:"id"`
	SenderID  string `json:"sender_id"`
	Content   string `json:"content"`
	IsDeleted bool   `json:"is_deleted"`
}

type AttachmentResponse struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	FileName string `json:"file_name"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
}

type MessageResponse struct {
	ID             string               `json:"id"`
	RoomID         string               `json:"room_id"`
	SenderID       string               `json:"sender_id"`
	SenderName     string               `json:"sender_name,omitempty"`
	Kind           string               `json:"kind"`
	Content        string               `json:"content"`
	AttachmentURL  *string              `json:"attachment_url,omitempty"`
	AttachmentName *string              `json:"attachment_name,omitempty"`
	AttachmentSize *int64               `json:"attachment_size,omitempty"`
	ReplyTo        *ReplyPreview        `json:"reply_to,omitempty"`
	Attachments    []AttachmentResponse `json:"attachments,omitempty"`
	IsEdited       bool                 `json:"is_edited"`
	IsDeleted      bool                 `json:"is_deleted"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

type MessageListResponse struct {
	Messages []*MessageResponse `json:"messages"`
	HasMore  bool               `json:"has_more"`
}

type MemberResponse struct {
	UserID               string     `json:"user_id"`
	Username             string     `json:"username,omitempty"`
	Role                 string     `json:"role"`
	JoinedAt             time.Time  `json:"joined_at"`
	LastSeenAt           *time.Time `json:"last_seen_at,omitempty"`
	IsMuted              bool       `json:"is_muted"`
	NotificationsEnabled bool       `json:"notifications_enabled"`
}

type RoomResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Kind            string    `json:"kind"`
	CommunityID     *string   `json:"community_id,omitempty"`
	CreatedBy       string    `json:"created_by"`
	ReadOnly        bool      `json:"read_only"`
	MaxParticipants *int      `json:"max_participants,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type RoomSummaryResponse struct {
	Room             *RoomResponse    `json:"room"`
	LastMessage      *MessageResponse `json:"last_message,omitempty"`
	UnreadCount      int64            `json:"unread_count"`
	ParticipantCount int64            `json:"participant_count"`
}

// BuildMessageResponse maps a message row to its wire shape.
func BuildMessageResponse(msg *modelChat.Message, senderName string) *MessageResponse {
	resp := &MessageResponse{
		ID:             msg.ID,
		RoomID:         msg.RoomID,
		SenderID:       msg.SenderID,
		SenderName:     senderName,
		Kind:           msg.Kind,
		Content:        msg.Content,
		AttachmentURL:  msg.AttachmentURL,
		AttachmentName: msg.AttachmentName,
		AttachmentSize: msg.AttachmentSize,
		IsEdited:       msg.IsEdited,
		IsDeleted:      msg.IsDeleted,
		CreatedAt:      msg.CreatedAt,
		UpdatedAt:      msg.UpdatedAt,
	}

	if msg.ReplyTo != nil {
		// A reply to a later-deleted message keeps its link; the preview
		// simply carries the redacted content.
		resp.ReplyTo = &ReplyPreview{
			ID:        msg.ReplyTo.ID,
			SenderID:  msg.ReplyTo.SenderID,
			Content:   msg.ReplyTo.Content,
			IsDeleted: msg.ReplyTo.IsDeleted,
		}
	}

	for _, a := range msg.Attachments {
		resp.Attachments = append(resp.Attachments, AttachmentResponse{
			ID:       a.ID,
			MimeType: a.MimeType,
			FileName: a.FileName,
			URL:      a.URL,
			Size:     a.Size,
		})
	}

	return resp
}

// BuildRoomResponse maps a room row to its wire shape.
func BuildRoomResponse(room *modelChat.Room) *RoomResponse {
	return &RoomResponse{
		ID:              room.ID,
		Name:            room.Name,
		Kind:            room.Kind,
		CommunityID:     room.CommunityID,
		CreatedBy:       room.CreatedBy,
		ReadOnly:        room.ReadOnly,
		MaxParticipants: room.MaxParticipants,
		CreatedAt:       room.CreatedAt,
		UpdatedAt:       room.UpdatedAt,
	}
}
