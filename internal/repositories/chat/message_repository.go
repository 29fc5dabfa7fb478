package chat

import (
	"context"

	"crmchat_backend/internal/models/chat"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository struct {
	DB *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{DB: db}
}

// Create persists a new message.
func (r *MessageRepository) Create(ctx context.Context, message *chat.Message) error {
	return r.DB.WithContext(ctx).Create(message).Error
}

// GetByID returns a message by ID, with its reply target preloaded.
func (r *MessageRepository) GetByID(ctx context.Context, id string) (*chat.Message, error) {
	var msg chat.Message
	err := r.DB.WithContext(ctx).
		Preload("ReplyTo").Preload("Attachments").
		First(&msg, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetByIDInRoom returns a message only if it belongs to the given room.
func (r *MessageRepository) GetByIDInRoom(ctx context.Context, id, roomID string) (*chat.Message, error) {
	var msg chat.Message
	err := r.DB.WithContext(ctx).
		Preload("ReplyTo").Preload("Attachments").
		First(&msg, "id = ? AND room_id = ?", id, roomID).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// GetForUpdate loads a message inside tx with a row lock. Concurrent edit and
// delete of the same message serialize on this lock.
func (r *MessageRepository) GetForUpdate(ctx context.Context, tx *gorm.DB, id string) (*chat.Message, error) {
	var msg chat.Message
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&msg, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListBefore returns up to limit messages of a room older than the anchor
// time, newest first. Soft-deleted rows are included; their content was
// redacted at delete time.
func (r *MessageRepository) ListBefore(ctx context.Context, roomID string, before *chat.Message, limit int) ([]chat.Message, error) {
	q := r.DB.WithContext(ctx).
		Where("room_id = ?", roomID).
		Preload("ReplyTo").Preload("Attachments").
		Order("created_at DESC").
		Limit(limit)

	if before != nil {
		q = q.Where("created_at < ?", before.CreatedAt)
	}

	var messages []chat.Message
	err := q.Find(&messages).Error
	return messages, err
}

// IDsUpTo returns the IDs of all non-deleted room messages created at or
// before the target message's creation time.
func (r *MessageRepository) IDsUpTo(ctx context.Context, roomID string, target *chat.Message) ([]string, error) {
	var ids []string
	err := r.DB.WithContext(ctx).Model(&chat.Message{}).
		Where("room_id = ? AND is_deleted = false AND created_at <= ?", roomID, target.CreatedAt).
		Pluck("id", &ids).Error
	return ids, err
}

// FindLatestInRoom returns the most recent message of a room.
func (r *MessageRepository) FindLatestInRoom(ctx context.Context, roomID string) (*chat.Message, error) {
	var msg chat.Message
	err := r.DB.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").Limit(1).
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// SaveEdit applies an edit inside the caller's transaction.
func (r *MessageRepository) SaveEdit(ctx context.Context, tx *gorm.DB, id, newContent string) error {
	return tx.WithContext(ctx).Model(&chat.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":   newContent,
			"is_edited": true,
		}).Error
}

// SaveSoftDelete redacts the message inside the caller's transaction.
func (r *MessageRepository) SaveSoftDelete(ctx context.Context, tx *gorm.DB, id string) error {
	return tx.WithContext(ctx).Model(&chat.Message{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"content":    chat.DeletedContentSentinel,
			"is_deleted": true,
		}).Error
}
