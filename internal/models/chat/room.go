package chat

import "time"

// Room kinds.
const (
	RoomKindCommunity = "community"
	RoomKindPrivate   = "private"
	RoomKindGroup     = "group"
)

type Room struct {
	ID   string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name string `gorm:"not null"`
	Kind string `gorm:"type:varchar(20);default:'community';index:idx_rooms_kind_active"`

	// Set for community-backed rooms; one room per community.
	CommunityID *string `gorm:"uniqueIndex"`

	CreatedBy       string `gorm:"index;not null"`
	ReadOnly        bool   `gorm:"default:false"`
	MaxParticipants *int
	IsActive        bool `gorm:"default:true;index:idx_rooms_kind_active"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Members  []RoomMember `gorm:"foreignKey:RoomID"`
	Messages []Message    `gorm:"foreignKey:RoomID"`
}

func (Room) TableName() string {
	return "chat.rooms"
}
