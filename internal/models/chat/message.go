package chat

import (
	"time"

	"gorm.io/datatypes"
)

// Message kinds.
const (
	MessageKindText   = "text"
	MessageKindImage  = "image"
	MessageKindFile   = "file"
	MessageKindSystem = "system"
)

// DeletedContentSentinel replaces the body of a soft-deleted message.
// The row itself is kept forever.
const DeletedContentSentinel = "[message deleted]"

// EditWindow is how long a plain member may edit their own message.
const EditWindow = 15 * time.Minute

type Message struct {
	ID       string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	RoomID   string `gorm:"index:idx_messages_room_created;not null"`
	SenderID string `gorm:"index;not null"`
	Kind     string `gorm:"type:varchar(20);default:'text'"`
	Content  string `gorm:"type:text"`

	// Opaque attachment reference; the blob itself lives in external storage.
	AttachmentURL  *string
	AttachmentName *string
	AttachmentSize *int64

	// ReplyToID must reference a message in the same room.
	ReplyToID *string `gorm:"index"`

	IsEdited  bool `gorm:"default:false"`
	IsDeleted bool `gorm:"default:false;index:idx_messages_room_deleted"`

	// Extra payload for system messages.
	SystemData datatypes.JSON

	CreatedAt time.Time `gorm:"index:idx_messages_room_created"`
	UpdatedAt time.Time

	ReplyTo      *Message             `gorm:"foreignKey:ReplyToID"`
	ReadReceipts []MessageReadReceipt `gorm:"foreignKey:MessageID"`
	Attachments  []MessageAttachment  `gorm:"foreignKey:MessageID"`
}

func (Message) TableName() string {
	return "chat.messages"
}

// EditableUntil returns the end of the sender's self-edit window.
func (m *Message) EditableUntil() time.Time {
	return m.CreatedAt.Add(EditWindow)
}
