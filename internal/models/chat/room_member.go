package chat

import "time"

// Member roles.
const (
	RoleAdmin     = "admin"
	RoleModerator = "moderator"
	RoleMember    = "member"
)

// RoomMember is the (room, user) membership row. Leaving deactivates the row
// instead of deleting it so read receipts and audit history stay consistent.
type RoomMember struct {
	ID     string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	RoomID string `gorm:"uniqueIndex:idx_room_user;index:idx_members_room_active;not null"`
	UserID string `gorm:"uniqueIndex:idx_room_user;index;not null"`
	Role   string `gorm:"type:varchar(20);default:'member'"`

	IsActive   bool `gorm:"default:true;index:idx_members_room_active"`
	JoinedAt   time.Time
	LastSeenAt *time.Time

	NotificationsEnabled bool `gorm:"default:true"`
	IsMuted              bool `gorm:"default:false"`
}

func (RoomMember) TableName() string {
	return "chat.room_members"
}

// IsModerator reports whether the member holds a moderation-capable role.
func (m *RoomMember) IsModerator() bool {
	return m.Role == RoleAdmin || m.Role == RoleModerator
}
