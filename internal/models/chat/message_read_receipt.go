package chat

import "time"

// MessageReadReceipt records that a user saw a message. Unique per
// (message, user), created idempotently, never deleted.
type MessageReadReceipt struct {
	ID        string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	MessageID string `gorm:"uniqueIndex:idx_message_user;index;not null"`
	UserID    string `gorm:"uniqueIndex:idx_message_user;index;not null"`
	ReadAt    time.Time
}

func (MessageReadReceipt) TableName() string {
	return "chat.message_read_receipts"
}
