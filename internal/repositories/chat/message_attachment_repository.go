package chat

import (
	"context"

	"crmchat_backend/internal/models/chat"

	"gorm.io/gorm"
)

type MessageAttachmentRepository struct {
	DB *gorm.DB
}

func NewMessageAttachmentRepository(db *gorm.DB) *MessageAttachmentRepository {
	return &MessageAttachmentRepository{DB: db}
}

func (r *MessageAttachmentRepository) Create(ctx context.Context, attachment *chat.MessageAttachment) error {
	return r.DB.WithContext(ctx).Create(attachment).Error
}
