package ws

import (
	"encoding/json"
	"fmt"

	chat "crmchat_backend/internal/services/chat"
)

// Inbound frame types (closed set).
const (
	EventSendMessage   = "send_message"
	EventEditMessage   = "edit_message"
	EventDeleteMessage = "delete_message"
	EventMarkRead      = "mark_read"
	EventTyping        = "typing"
)

// Outbound frame types.
const (
	EventNewMessage     = "new_message"
	EventMessageEdited  = "message_edited"
	EventMessageDeleted = "message_deleted"
	EventMessageRead    = "message_read"
	EventPresence       = "presence"
	EventError          = "error"
)

// Websocket close codes. The 4xxx range is reserved for applications.
const (
	CloseUnauthorized = 4001 // bad or missing identity
	CloseForbidden    = 4003 // valid identity, no room access
	CloseNotFound     = 4004 // room missing or inactive
	CloseSlowConsumer = 4008 // outbound queue overflow
)

// InboundEvent is the closed set of client frames. Dispatch is over concrete
// variants, not raw type strings: an unknown type never reaches a handler.
type InboundEvent interface {
	isInboundEvent()
}

type SendMessageEvent struct {
	Content     string  `json:"content"`
	MessageType string  `json:"message_type"`
	ReplyTo     *string `json:"reply_to,omitempty"`
}

type EditMessageEvent struct {
	MessageID string `json:"message_id"`
	Content   string `json:"content"`
}

type DeleteMessageEvent struct {
	MessageID string `json:"message_id"`
}

type MarkReadEvent struct {
	MessageID string `json:"message_id"`
}

type TypingInEvent struct {
	IsTyping bool `json:"is_typing"`
}

func (SendMessageEvent) isInboundEvent()   {}
func (EditMessageEvent) isInboundEvent()   {}
func (DeleteMessageEvent) isInboundEvent() {}
func (MarkReadEvent) isInboundEvent()      {}
func (TypingInEvent) isInboundEvent()      {}

// UnknownEventError reports an inbound frame whose type is not in the set.
type UnknownEventError struct {
	Type string
}

func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("unknown message type: %s", e.Type)
}

type inboundEnvelope struct {
	Type string `json:"type"`
}

// DecodeInbound parses a raw client frame into its typed variant.
func DecodeInbound(data []byte) (InboundEvent, error) {
	var env inboundEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid JSON frame: %w", err)
	}

	switch env.Type {
	case EventSendMessage:
		var ev SendMessageEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventEditMessage:
		var ev EditMessageEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventDeleteMessage:
		var ev DeleteMessageEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventMarkRead:
		var ev MarkReadEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case EventTyping:
		var ev TypingInEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return nil, &UnknownEventError{Type: env.Type}
	}
}

// Outbound frames. Each carries its own type tag so writePump can hand the
// struct straight to WriteJSON.

type NewMessageEvent struct {
	Type    string                `json:"type"`
	Message *chat.MessageResponse `json:"message"`
}

type MessageEditedEvent struct {
	Type    string                `json:"type"`
	Message *chat.MessageResponse `json:"message"`
}

type MessageDeletedEvent struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	DeletedBy string `json:"deleted_by"`
}

type MessageReadEvent struct {
	Type      string `json:"type"`
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
}

type PresenceEvent struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Status    string `json:"status"` // online, offline
	Timestamp string `json:"timestamp"`
}

type TypingEvent struct {
	Type     string `json:"type"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

type ErrorEvent struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
