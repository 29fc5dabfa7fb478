package chat

import (
	"context"
	"strings"
	"time"

	modelChat "crmchat_backend/internal/models/chat"
	repoChat "crmchat_backend/internal/repositories/chat"
	"crmchat_backend/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatService is the durable message store. Every mutation completes (or
// fails) before any event derived from it is broadcast, so a message is never
// visible to a peer before it is persisted.
type ChatService struct {
	DB           *gorm.DB
	Rooms        *repoChat.RoomRepository
	Members      *repoChat.RoomMemberRepository
	Messages     *repoChat.MessageRepository
	ReadReceipts *repoChat.MessageReadReceiptRepository
	Attachments  *repoChat.MessageAttachmentRepository
}

func NewChatService(
	db *gorm.DB,
	rooms *repoChat.RoomRepository,
	members *repoChat.RoomMemberRepository,
	messages *repoChat.MessageRepository,
	readReceipts *repoChat.MessageReadReceiptRepository,
	attachments *repoChat.MessageAttachmentRepository,
) *ChatService {
	return &ChatService{
		DB:           db,
		Rooms:        rooms,
		Members:      members,
		Messages:     messages,
		ReadReceipts: readReceipts,
		Attachments:  attachments,
	}
}

// GetRoom returns an active room or ErrRoomNotFound.
func (s *ChatService) GetRoom(ctx context.Context, roomID string) (*modelChat.Room, error) {
	room, err := s.Rooms.FindByID(ctx, roomID)
	if err != nil {
		if apperrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRoomNotFound
		}
		return nil, apperrors.ErrStoreUnavailable(err)
	}
	return room, nil
}

// GetMembership returns the caller's active membership row or ErrNotMember.
// Sessions call this before every event so role changes apply immediately.
func (s *ChatService) GetMembership(ctx context.Context, roomID, userID string) (*modelChat.RoomMember, error) {
	member, err := s.Members.FindActive(ctx, roomID, userID)
	if err != nil {
		if apperrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotMember
		}
		return nil, apperrors.ErrStoreUnavailable(err)
	}
	return member, nil
}

// CreateMessage validates, persists and returns a new message. The sender's
// own read receipt is recorded and their last-seen advanced, mirroring what a
// client would otherwise do immediately after sending.
func (s *ChatService) CreateMessage(ctx context.Context, input SendMessageInput) (*modelChat.Message, error) {
	room, err := s.GetRoom(ctx, input.RoomID)
	if err != nil {
		return nil, err
	}

	member, err := s.GetMembership(ctx, input.RoomID, input.SenderID)
	if err != nil {
		return nil, err
	}

	if !CanSend(room, member) {
		return nil, apperrors.ErrReadOnlyRoom
	}

	kind := input.Kind
	if kind == "" {
		kind = modelChat.MessageKindText
	}

	content := strings.TrimSpace(input.Content)
	if kind == modelChat.MessageKindText && content == "" {
		return nil, apperrors.ErrEmptyBody
	}

	var replyTo *modelChat.Message
	if input.ReplyToID != nil {
		replyTo, err = s.resolveReplyTarget(ctx, input.RoomID, *input.ReplyToID)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now()
	message := &modelChat.Message{
		ID:             uuid.New().String(),
		RoomID:         input.RoomID,
		SenderID:       input.SenderID,
		Kind:           kind,
		Content:        content,
		AttachmentURL:  input.AttachmentURL,
		AttachmentName: input.AttachmentName,
		AttachmentSize: input.AttachmentSize,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if replyTo != nil {
		message.ReplyToID = &replyTo.ID
	}

	if err := s.Messages.Create(ctx, message); err != nil {
		return nil, apperrors.ErrStoreUnavailable(err)
	}
	message.ReplyTo = replyTo

	// Best effort; losing these does not lose the message.
	_ = s.ReadReceipts.Upsert(ctx, &modelChat.MessageReadReceipt{
		ID:        uuid.New().String(),
		MessageID: message.ID,
		UserID:    input.SenderID,
		ReadAt:    now,
	})
	_ = s.Members.TouchLastSeen(ctx, input.RoomID, input.SenderID)
	_ = s.Rooms.Touch(ctx, input.RoomID)

	return message, nil
}

// resolveReplyTarget enforces the reply invariants: target exists, belongs to
// the same room and is not soft-deleted at send time.
func (s *ChatService) resolveReplyTarget(ctx context.Context, roomID, replyToID string) (*modelChat.Message, error) {
	target, err := s.Messages.GetByIDInRoom(ctx, replyToID, roomID)
	if err != nil {
		if apperrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrReplyNotFound
		}
		return nil, apperrors.ErrStoreUnavailable(err)
	}
	if target.IsDeleted {
		return nil, apperrors.ErrReplyNotFound
	}
	return target, nil
}

// EditMessage updates a message's content under a row lock, so a concurrent
// delete of the same message cannot interleave: whichever commits second sees
// the other's outcome. A non-empty roomID scopes the edit to that room;
// sessions pass their own room, so a message ID from another room reads as
// not found and the transaction never commits.
func (s *ChatService) EditMessage(ctx context.Context, roomID, messageID, editorID, newContent string) (*modelChat.Message, error) {
	newContent = strings.TrimSpace(newContent)
	if newContent == "" {
		return nil, apperrors.ErrEmptyBody
	}

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msg, err := s.Messages.GetForUpdate(ctx, tx, messageID)
		if err != nil {
			if apperrors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrMessageNotFound
			}
			return apperrors.ErrStoreUnavailable(err)
		}
		if roomID != "" && msg.RoomID != roomID {
			return apperrors.ErrMessageNotFound
		}
		if msg.IsDeleted {
			return apperrors.ErrAlreadyDeleted
		}

		member, _ := s.Members.FindActive(ctx, msg.RoomID, editorID)
		if !CanEdit(msg, editorID, member, time.Now()) {
			return apperrors.ErrCannotEditMessage
		}

		if err := s.Messages.SaveEdit(ctx, tx, messageID, newContent); err != nil {
			return apperrors.ErrStoreUnavailable(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	msg, err := s.Messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, apperrors.ErrStoreUnavailable(err)
	}
	return msg, nil
}

// SoftDeleteMessage redacts a message under a row lock. A second delete of
// the same message always fails with ErrAlreadyDeleted. roomID scopes the
// delete the same way it scopes EditMessage.
func (s *ChatService) SoftDeleteMessage(ctx context.Context, roomID, messageID, requesterID string) (*modelChat.Message, error) {
	var deleted *modelChat.Message

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msg, err := s.Messages.GetForUpdate(ctx, tx, messageID)
		if err != nil {
			if apperrors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrMessageNotFound
			}
			return apperrors.ErrStoreUnavailable(err)
		}
		if roomID != "" && msg.RoomID != roomID {
			return apperrors.ErrMessageNotFound
		}
		if msg.IsDeleted {
			return apperrors.ErrAlreadyDeleted
		}

		member, _ := s.Members.FindActive(ctx, msg.RoomID, requesterID)
		if !CanDelete(msg, requesterID, member) {
			return apperrors.ErrCannotDeleteMessage
		}

		if err := s.Messages.SaveSoftDelete(ctx, tx, messageID); err != nil {
			return apperrors.ErrStoreUnavailable(err)
		}

		msg.Content = modelChat.DeletedContentSentinel
		msg.IsDeleted = true
		deleted = msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// ListMessages returns a chronological page of room history. Soft-deleted
// rows stay in the listing with their redacted content: pagination anchors
// must not shift when a message is deleted.
func (s *ChatService) ListMessages(ctx context.Context, roomID, userID string, beforeID *string, limit int) (*MessageListResponse, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	member, err := s.GetMembership(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !CanRead(room, member) {
		return nil, apperrors.ErrNotMember
	}

	var before *modelChat.Message
	if beforeID != nil && *beforeID != "" {
		// A bad anchor just means "from the top", as in the original API.
		before, _ = s.Messages.GetByIDInRoom(ctx, *beforeID, roomID)
	}

	messages, err := s.Messages.ListBefore(ctx, roomID, before, limit)
	if err != nil {
		return nil, apperrors.ErrStoreUnavailable(err)
	}

	// Newest-first from the query, chronological for the client.
	resp := &MessageListResponse{HasMore: len(messages) == limit}
	for i := len(messages) - 1; i >= 0; i-- {
		resp.Messages = append(resp.Messages, BuildMessageResponse(&messages[i], ""))
	}
	return resp, nil
}

// MarkRead upserts a single read receipt. Calling it twice for the same
// (message, user) pair leaves exactly one row. A non-empty roomID rejects
// message IDs from other rooms before anything is written.
func (s *ChatService) MarkRead(ctx context.Context, roomID, messageID, userID string) (*modelChat.Message, error) {
	msg, err := s.Messages.GetByID(ctx, messageID)
	if err != nil {
		if apperrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrMessageNotFound
		}
		return nil, apperrors.ErrStoreUnavailable(err)
	}
	if roomID != "" && msg.RoomID != roomID {
		return nil, apperrors.ErrMessageNotFound
	}

	if _, err := s.GetMembership(ctx, msg.RoomID, userID); err != nil {
		return nil, err
	}

	err = s.ReadReceipts.Upsert(ctx, &modelChat.MessageReadReceipt{
		ID:        uuid.New().String(),
		MessageID: messageID,
		UserID:    userID,
		ReadAt:    time.Now(),
	})
	if err != nil {
		return nil, apperrors.ErrStoreUnavailable(err)
	}
	return msg, nil
}

// MarkAllReadUpTo marks every non-deleted room message created at or before
// the target message as read, and advances the member's last-seen timestamp.
func (s *ChatService) MarkAllReadUpTo(ctx context.Context, roomID, userID, messageID string) error {
	if _, err := s.GetMembership(ctx, roomID, userID); err != nil {
		return err
	}

	target, err := s.Messages.GetByIDInRoom(ctx, messageID, roomID)
	if err != nil {
		if apperrors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrMessageNotFound
		}
		return apperrors.ErrStoreUnavailable(err)
	}

	ids, err := s.Messages.IDsUpTo(ctx, roomID, target)
	if err != nil {
		return apperrors.ErrStoreUnavailable(err)
	}

	now := time.Now()
	receipts := make([]modelChat.MessageReadReceipt, 0, len(ids))
	for _, id := range ids {
		receipts = append(receipts, modelChat.MessageReadReceipt{
			ID:        uuid.New().String(),
			MessageID: id,
			UserID:    userID,
			ReadAt:    now,
		})
	}
	if err := s.ReadReceipts.UpsertMany(ctx, receipts); err != nil {
		return apperrors.ErrStoreUnavailable(err)
	}

	return s.Members.TouchLastSeen(ctx, roomID, userID)
}

// RoomSummary exposes the per-room aggregate the room-listing layer shows.
func (s *ChatService) RoomSummary(ctx context.Context, roomID, userID string) (*RoomSummaryResponse, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetMembership(ctx, roomID, userID); err != nil {
		return nil, err
	}

	summary := &RoomSummaryResponse{Room: BuildRoomResponse(room)}

	last, err := s.Messages.FindLatestInRoom(ctx, roomID)
	if err == nil {
		summary.LastMessage = BuildMessageResponse(last, "")
	} else if !apperrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrStoreUnavailable(err)
	}

	summary.UnreadCount, err = s.ReadReceipts.UnreadCountByRoom(ctx, roomID, userID)
	if err != nil {
		return nil, apperrors.ErrStoreUnavailable(err)
	}

	summary.ParticipantCount, err = s.Members.CountActive(ctx, roomID)
	if err != nil {
		return nil, apperrors.ErrStoreUnavailable(err)
	}

	return summary, nil
}
