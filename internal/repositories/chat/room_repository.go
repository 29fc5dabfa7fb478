package chat

import (
	"context"

	"crmchat_backend/internal/models/chat"

	"gorm.io/gorm"
)

type RoomRepository struct {
	DB *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{DB: db}
}

// Create persists a new room.
func (r *RoomRepository) Create(ctx context.Context, room *chat.Room) error {
	return r.DB.WithContext(ctx).Create(room).Error
}

// FindByID returns an active room by ID.
func (r *RoomRepository) FindByID(ctx context.Context, id string) (*chat.Room, error) {
	var room chat.Room
	err := r.DB.WithContext(ctx).First(&room, "id = ? AND is_active = true", id).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// FindByCommunity returns the room backing a community, if one exists.
func (r *RoomRepository) FindByCommunity(ctx context.Context, communityID string) (*chat.Room, error) {
	var room chat.Room
	err := r.DB.WithContext(ctx).
		First(&room, "community_id = ? AND kind = ?", communityID, chat.RoomKindCommunity).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// FindAllByUser returns every active room where the user holds an active
// membership, most recently updated first.
func (r *RoomRepository) FindAllByUser(ctx context.Context, userID string) ([]chat.Room, error) {
	var rooms []chat.Room
	err := r.DB.WithContext(ctx).
		Joins("JOIN chat.room_members rm ON rm.room_id = rooms.id").
		Where("rm.user_id = ? AND rm.is_active = true AND rooms.is_active = true", userID).
		Order("rooms.updated_at DESC").
		Find(&rooms).Error
	return rooms, err
}

// Touch bumps the room's updated_at so room listings sort by recent activity.
func (r *RoomRepository) Touch(ctx context.Context, roomID string) error {
	return r.DB.WithContext(ctx).Model(&chat.Room{}).
		Where("id = ?", roomID).
		Update("updated_at", gorm.Expr("now()")).Error
}

// Deactivate soft-deletes a room. Rows are never hard-deleted.
func (r *RoomRepository) Deactivate(ctx context.Context, roomID string) error {
	return r.DB.WithContext(ctx).Model(&chat.Room{}).
		Where("id = ?", roomID).
		Update("is_active", false).Error
}
