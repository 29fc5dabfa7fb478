package chat

import (
	"context"

	"crmchat_backend/internal/models/chat"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageReadReceiptRepository struct {
	DB *gorm.DB
}

func NewMessageReadReceiptRepository(db *gorm.DB) *MessageReadReceiptRepository {
	return &MessageReadReceiptRepository{DB: db}
}

// Upsert records a read receipt idempotently: a second call for the same
// (message, user) pair is a no-op, never a duplicate row.
func (r *MessageReadReceiptRepository) Upsert(ctx context.Context, receipt *chat.MessageReadReceipt) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(receipt).Error
}

// UpsertMany bulk-inserts receipts, skipping pairs that already exist.
func (r *MessageReadReceiptRepository) UpsertMany(ctx context.Context, receipts []chat.MessageReadReceipt) error {
	if len(receipts) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).
		Create(&receipts).Error
}

// UnreadCountByRoom returns how many room messages the user has not read yet.
func (r *MessageReadReceiptRepository) UnreadCountByRoom(ctx context.Context, roomID, userID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).
		Raw(`
			SELECT COUNT(*) FROM chat.messages m
			WHERE m.room_id = ?
			AND m.is_deleted = false
			AND NOT EXISTS (
				SELECT 1 FROM chat.message_read_receipts r
				WHERE r.message_id = m.id AND r.user_id = ?
			)
		`, roomID, userID).
		Scan(&count).Error
	return count, err
}
