package ws

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"crmchat_backend/internal/logger"
	chat "crmchat_backend/internal/services/chat"
	"crmchat_backend/pkg/apperrors"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client is one websocket session bound to one room. A user with two tabs
// open has two independent clients.
type Client struct {
	UserID   string
	Username string

	roomID string
	conn   *websocket.Conn
	// send is the bounded outbound queue. Only the broker goroutine writes to
	// or closes it, so writePump can safely range over it.
	send chan any

	ctx    context.Context
	cancel context.CancelFunc

	broker   *Broker
	registry *Registry
	chat     *chat.ChatService
	presence *PresenceTracker

	closeOnce sync.Once
}

func newClient(
	conn *websocket.Conn,
	userID, username, roomID string,
	broker *Broker,
	registry *Registry,
	chatSvc *chat.ChatService,
	presence *PresenceTracker,
	queueSize int,
) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	return &Client{
		UserID:   userID,
		Username: username,
		roomID:   roomID,
		conn:     conn,
		send:     make(chan any, queueSize),
		ctx:      ctx,
		cancel:   cancel,
		broker:   broker,
		registry: registry,
		chat:     chatSvc,
		presence: presence,
	}
}

func (c *Client) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("websocket read error", "room_id", c.roomID, "user_id", c.UserID, "error", err)
			}
			return
		}

		event, err := DecodeInbound(data)
		if err != nil {
			c.sendError("invalid_event", err.Error())
			continue
		}
		c.handleEvent(event)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleEvent dispatches one inbound frame. Persistence always completes
// before anything is broadcast; on failure only the originator hears about it.
func (c *Client) handleEvent(event InboundEvent) {
	switch ev := event.(type) {
	case SendMessageEvent:
		c.handleSendMessage(ev)
	case EditMessageEvent:
		c.handleEditMessage(ev)
	case DeleteMessageEvent:
		c.handleDeleteMessage(ev)
	case MarkReadEvent:
		c.handleMarkRead(ev)
	case TypingInEvent:
		c.handleTyping(ev)
	}
}

func (c *Client) handleSendMessage(ev SendMessageEvent) {
	msg, err := c.chat.CreateMessage(c.ctx, chat.SendMessageInput{
		RoomID:    c.roomID,
		SenderID:  c.UserID,
		Kind:      ev.MessageType,
		Content:   ev.Content,
		ReplyToID: ev.ReplyTo,
	})
	if err != nil {
		c.reportError(err)
		return
	}

	c.broker.Publish(&Publication{
		Event: NewMessageEvent{
			Type:    EventNewMessage,
			Message: chat.BuildMessageResponse(msg, c.Username),
		},
		Origin: c,
	})
}

func (c *Client) handleEditMessage(ev EditMessageEvent) {
	msg, err := c.chat.EditMessage(c.ctx, c.roomID, ev.MessageID, c.UserID, ev.Content)
	if err != nil {
		c.reportError(err)
		return
	}

	c.broker.Publish(&Publication{
		Event: MessageEditedEvent{
			Type:    EventMessageEdited,
			Message: chat.BuildMessageResponse(msg, ""),
		},
		Origin: c,
	})
}

func (c *Client) handleDeleteMessage(ev DeleteMessageEvent) {
	msg, err := c.chat.SoftDeleteMessage(c.ctx, c.roomID, ev.MessageID, c.UserID)
	if err != nil {
		c.reportError(err)
		return
	}

	c.broker.Publish(&Publication{
		Event: MessageDeletedEvent{
			Type:      EventMessageDeleted,
			MessageID: msg.ID,
			DeletedBy: c.UserID,
		},
		Origin: c,
	})
}

func (c *Client) handleMarkRead(ev MarkReadEvent) {
	msg, err := c.chat.MarkRead(c.ctx, c.roomID, ev.MessageID, c.UserID)
	if err != nil {
		c.reportError(err)
		return
	}

	c.broker.Publish(&Publication{
		Event: MessageReadEvent{
			Type:      EventMessageRead,
			MessageID: msg.ID,
			UserID:    c.UserID,
			Username:  c.Username,
		},
		Origin:     c,
		SkipOrigin: true,
	})
}

func (c *Client) handleTyping(ev TypingInEvent) {
	// Typing touches no storage, so the membership re-check happens here.
	room, err := c.chat.GetRoom(c.ctx, c.roomID)
	if err != nil {
		c.reportError(err)
		return
	}
	member, err := c.chat.GetMembership(c.ctx, c.roomID, c.UserID)
	if err != nil {
		c.reportError(err)
		return
	}
	if !chat.CanRead(room, member) {
		c.reportError(apperrors.ErrNotMember)
		return
	}

	c.presence.SetTyping(c.broker, c, ev.IsTyping)
}

// reportError turns a failed operation into an error frame for this session.
// A revoked membership additionally terminates the connection.
func (c *Client) reportError(err error) {
	appErr := apperrors.From(err)
	c.sendError(string(appErr.Code), appErr.Message)

	if apperrors.Is(err, apperrors.ErrNotMember) {
		c.closeWithCode(CloseForbidden, "membership revoked")
	}
}

func (c *Client) sendError(code, message string) {
	c.broker.Publish(&Publication{
		Event: ErrorEvent{
			Type:    EventError,
			Code:    code,
			Message: message,
		},
		Target: c,
	})
}

// close tears the session down exactly once: typing state, broker
// subscription, broker reference and the underlying connection.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.presence.ClearSession(c.roomID, c.UserID)
		c.broker.Unsubscribe(c)
		c.registry.Release(c.roomID)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// closeWithCode sends a close frame with an application close code before
// tearing down. Used for policy closes (forbidden, slow consumer).
func (c *Client) closeWithCode(code int, reason string) {
	if c.conn != nil {
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(writeWait),
		)
	}
	c.close()
}
