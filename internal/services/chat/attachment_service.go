package chat

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	modelChat "crmchat_backend/internal/models/chat"
	repoChat "crmchat_backend/internal/repositories/chat"
	"crmchat_backend/internal/storage"
	"crmchat_backend/pkg/apperrors"

	"github.com/google/uuid"
)

// BlobInfo is what the opaque blob store hands back for an uploaded file.
type BlobInfo struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

// AttachmentService uploads message attachments to blob storage and records
// the attachment rows. The chat core treats the blob itself as opaque.
type AttachmentService struct {
	Storage     storage.Storage
	Attachments *repoChat.MessageAttachmentRepository
	MaxSize     int64
}

func NewAttachmentService(store storage.Storage, attachments *repoChat.MessageAttachmentRepository, maxSize int64) *AttachmentService {
	return &AttachmentService{
		Storage:     store,
		Attachments: attachments,
		MaxSize:     maxSize,
	}
}

// UploadBlob stores the file and returns its public reference.
func (s *AttachmentService) UploadBlob(ctx context.Context, reader io.Reader, filename, contentType string, size int64) (*BlobInfo, error) {
	if s.MaxSize > 0 && size > s.MaxSize {
		return nil, apperrors.New(
			apperrors.CodeLimitExceeded,
			"chat",
			"Attachment exceeds the allowed size",
			413,
		)
	}

	now := time.Now()
	path := fmt.Sprintf("chat_attachments/%04d/%02d/%s%s",
		now.Year(), now.Month(), uuid.New().String(), filepath.Ext(filename))

	if err := s.Storage.Save(ctx, path, reader, contentType); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalError, "storage", "Failed to store attachment", 500)
	}

	url, err := s.Storage.GetURL(ctx, path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalError, "storage", "Failed to resolve attachment URL", 500)
	}

	return &BlobInfo{
		URL:         url,
		Name:        filename,
		Size:        size,
		ContentType: contentType,
	}, nil
}

// AddToMessage records an attachment row for an already-persisted message.
func (s *AttachmentService) AddToMessage(ctx context.Context, messageID, uploaderID string, blob *BlobInfo) (*modelChat.MessageAttachment, error) {
	attachment := &modelChat.MessageAttachment{
		ID:         uuid.New().String(),
		MessageID:  messageID,
		UploaderID: uploaderID,
		MimeType:   blob.ContentType,
		FileName:   blob.Name,
		URL:        blob.URL,
		Size:       blob.Size,
		CreatedAt:  time.Now(),
	}
	if err := s.Attachments.Create(ctx, attachment); err != nil {
		return nil, apperrors.ErrStoreUnavailable(err)
	}
	return attachment, nil
}
