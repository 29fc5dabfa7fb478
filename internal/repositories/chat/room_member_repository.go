package chat

import (
	"context"
	"time"

	"crmchat_backend/internal/models/chat"

	"gorm.io/gorm"
)

type RoomMemberRepository struct {
	DB *gorm.DB
}

func NewRoomMemberRepository(db *gorm.DB) *RoomMemberRepository {
	return &RoomMemberRepository{DB: db}
}

// Create persists a new membership row.
func (r *RoomMemberRepository) Create(ctx context.Context, member *chat.RoomMember) error {
	return r.DB.WithContext(ctx).Create(member).Error
}

// Find returns the membership row for (room, user) regardless of active flag.
func (r *RoomMemberRepository) Find(ctx context.Context, roomID, userID string) (*chat.RoomMember, error) {
	var member chat.RoomMember
	err := r.DB.WithContext(ctx).
		First(&member, "room_id = ? AND user_id = ?", roomID, userID).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// FindActive returns the active membership row for (room, user).
func (r *RoomMemberRepository) FindActive(ctx context.Context, roomID, userID string) (*chat.RoomMember, error) {
	var member chat.RoomMember
	err := r.DB.WithContext(ctx).
		First(&member, "room_id = ? AND user_id = ? AND is_active = true", roomID, userID).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// ListActive returns all active members of a room.
func (r *RoomMemberRepository) ListActive(ctx context.Context, roomID string) ([]chat.RoomMember, error) {
	var members []chat.RoomMember
	err := r.DB.WithContext(ctx).
		Where("room_id = ? AND is_active = true", roomID).
		Order("joined_at ASC").
		Find(&members).Error
	return members, err
}

// CountActive returns the number of active members in a room.
func (r *RoomMemberRepository) CountActive(ctx context.Context, roomID string) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&chat.RoomMember{}).
		Where("room_id = ? AND is_active = true", roomID).
		Count(&count).Error
	return count, err
}

// SetActive flips the membership active flag (join re-activation / leave).
func (r *RoomMemberRepository) SetActive(ctx context.Context, roomID, userID string, active bool) error {
	return r.DB.WithContext(ctx).Model(&chat.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("is_active", active).Error
}

// UpdateRole changes the member's role in place.
func (r *RoomMemberRepository) UpdateRole(ctx context.Context, roomID, userID, role string) error {
	return r.DB.WithContext(ctx).Model(&chat.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("role", role).Error
}

// TouchLastSeen advances the member's last-seen timestamp.
func (r *RoomMemberRepository) TouchLastSeen(ctx context.Context, roomID, userID string) error {
	now := time.Now()
	return r.DB.WithContext(ctx).Model(&chat.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("last_seen_at", now).Error
}
