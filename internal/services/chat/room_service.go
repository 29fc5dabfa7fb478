package chat

import (
	"context"
	"time"

	modelChat "crmchat_backend/internal/models/chat"
	"crmchat_backend/internal/repositories"
	repoChat "crmchat_backend/internal/repositories/chat"
	"crmchat_backend/pkg/apperrors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RoomService owns room and membership lifecycle: creation, joining, leaving
// and the explicit community orchestration hooks.
type RoomService struct {
	Rooms   *repoChat.RoomRepository
	Members *repoChat.RoomMemberRepository
	Users   *repositories.UserRepository
}

func NewRoomService(
	rooms *repoChat.RoomRepository,
	members *repoChat.RoomMemberRepository,
	users *repositories.UserRepository,
) *RoomService {
	return &RoomService{Rooms: rooms, Members: members, Users: users}
}

// CreateRoom opens a new room with the creator as admin.
func (s *RoomService) CreateRoom(ctx context.Context, input CreateRoomInput) (*modelChat.Room, error) {
	kind := input.Kind
	if kind == "" {
		kind = modelChat.RoomKindGroup
	}
	switch kind {
	case modelChat.RoomKindCommunity, modelChat.RoomKindPrivate, modelChat.RoomKindGroup:
	default:
		return nil, apperrors.NewBadRequestError("Unknown room kind: " + kind)
	}

	room := &modelChat.Room{
		ID:              uuid.New().String(),
		Name:            input.Name,
		Kind:            kind,
		CreatedBy:       input.CreatorID,
		ReadOnly:        input.ReadOnly,
		MaxParticipants: input.MaxParticipants,
		IsActive:        true,
	}
	if err := s.Rooms.Create(ctx, room); err != nil {
		return nil, apperrors.ErrStoreUnavailable(err)
	}

	admin := &modelChat.RoomMember{
		ID:       uuid.New().String(),
		RoomID:   room.ID,
		UserID:   input.CreatorID,
		Role:     modelChat.RoleAdmin,
		IsActive: true,
		JoinedAt: time.Now(),
	}
	if err := s.Members.Create(ctx, admin); err != nil {
		return nil, apperrors.ErrStoreUnavailable(err)
	}

	return room, nil
}

// CreateRoomForCommunity is the explicit hook the community-creation workflow
// calls instead of relying on implicit side effects. Idempotent per
// community: a second call returns the existing room.
func (s *RoomService) CreateRoomForCommunity(ctx context.Context, communityID, name, creatorID string) (*modelChat.Room, error) {
	existing, err := s.Rooms.FindByCommunity(ctx, communityID)
	if err == nil {
		return existing, nil
	}
	if !apperrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrStoreUnavailable(err)
	}

	room := &modelChat.Room{
		ID:          uuid.New().String(),
		Name:        name,
		Kind:        modelChat.RoomKindCommunity,
		CommunityID: &communityID,
		CreatedBy:   creatorID,
		IsActive:    true,
	}
	if err := s.Rooms.Create(ctx, room); err != nil {
		return nil, apperrors.ErrStoreUnavailable(err)
	}

	admin := &modelChat.RoomMember{
		ID:       uuid.New().String(),
		RoomID:   room.ID,
		UserID:   creatorID,
		Role:     modelChat.RoleAdmin,
		IsActive: true,
		JoinedAt: time.Now(),
	}
	if err := s.Members.Create(ctx, admin); err != nil {
		return nil, apperrors.ErrStoreUnavailable(err)
	}

	return room, nil
}

// SyncCommunityMember mirrors a community membership change into the
// community's room: join, role change, or deactivation. Called explicitly by
// the community workflow.
func (s *RoomService) SyncCommunityMember(ctx context.Context, communityID, userID, role string, active bool) error {
	room, err := s.Rooms.FindByCommunity(ctx, communityID)
	if err != nil {
		if apperrors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrRoomNotFound
		}
		return apperrors.ErrStoreUnavailable(err)
	}

	// An omitted role means "leave the role alone"; only the active flag is
	// being synced. New members default to plain membership.
	chatRole := ""
	switch role {
	case modelChat.RoleAdmin, modelChat.RoleModerator, modelChat.RoleMember:
		chatRole = role
	}

	member, err := s.Members.Find(ctx, room.ID, userID)
	if err != nil {
		if !apperrors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrStoreUnavailable(err)
		}
		if !active {
			return nil
		}
		if chatRole == "" {
			chatRole = modelChat.RoleMember
		}
		return s.createMember(ctx, room.ID, userID, chatRole)
	}

	if chatRole != "" && member.Role != chatRole {
		if err := s.Members.UpdateRole(ctx, room.ID, userID, chatRole); err != nil {
			return apperrors.ErrStoreUnavailable(err)
		}
	}
	if member.IsActive != active {
		if err := s.Members.SetActive(ctx, room.ID, userID, active); err != nil {
			return apperrors.ErrStoreUnavailable(err)
		}
	}
	return nil
}

// JoinRoom adds the user as a member, re-activating a previous membership if
// one exists. Enforces the room's participant limit.
func (s *RoomService) JoinRoom(ctx context.Context, roomID, userID string) (*modelChat.RoomMember, error) {
	room, err := s.Rooms.FindByID(ctx, roomID)
	if err != nil {
		if apperrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrRoomNotFound
		}
		return nil, apperrors.ErrStoreUnavailable(err)
	}

	member, err := s.Members.Find(ctx, roomID, userID)
	if err == nil {
		if member.IsActive {
			return member, nil
		}
		if err := s.checkCapacity(ctx, room); err != nil {
			return nil, err
		}
		if err := s.Members.SetActive(ctx, roomID, userID, true); err != nil {
			return nil, apperrors.ErrStoreUnavailable(err)
		}
		member.IsActive = true
		return member, nil
	}
	if !apperrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrStoreUnavailable(err)
	}

	if err := s.checkCapacity(ctx, room); err != nil {
		return nil, err
	}
	if err := s.createMember(ctx, roomID, userID, modelChat.RoleMember); err != nil {
		return nil, err
	}
	return s.Members.Find(ctx, roomID, userID)
}

// LeaveRoom deactivates the membership; the row survives for audit and
// read-receipt consistency.
func (s *RoomService) LeaveRoom(ctx context.Context, roomID, userID string) error {
	member, err := s.Members.Find(ctx, roomID, userID)
	if err != nil || !member.IsActive {
		return apperrors.ErrNotMember
	}
	if err := s.Members.SetActive(ctx, roomID, userID, false); err != nil {
		return apperrors.ErrStoreUnavailable(err)
	}
	return nil
}

// AddMember lets a room admin add another user with an explicit role.
func (s *RoomService) AddMember(ctx context.Context, roomID, requesterID, userID, role string) (*modelChat.RoomMember, error) {
	requester, err := s.Members.FindActive(ctx, roomID, requesterID)
	if err != nil {
		return nil, apperrors.ErrNotMember
	}
	if !CanManageMembers(requester) {
		return nil, apperrors.ErrOnlyAdminsManageMembers
	}

	if role == "" {
		role = modelChat.RoleMember
	}
	switch role {
	case modelChat.RoleAdmin, modelChat.RoleModerator, modelChat.RoleMember:
	default:
		return nil, apperrors.NewBadRequestError("Unknown member role: " + role)
	}

	member, err := s.JoinRoom(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if member.Role != role {
		if err := s.Members.UpdateRole(ctx, roomID, userID, role); err != nil {
			return nil, apperrors.ErrStoreUnavailable(err)
		}
		member.Role = role
	}
	return member, nil
}

// ListRooms returns the caller's active rooms, most recent activity first.
func (s *RoomService) ListRooms(ctx context.Context, userID string) ([]*RoomResponse, error) {
	rooms, err := s.Rooms.FindAllByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.ErrStoreUnavailable(err)
	}
	resp := make([]*RoomResponse, 0, len(rooms))
	for i := range rooms {
		resp = append(resp, BuildRoomResponse(&rooms[i]))
	}
	return resp, nil
}

// ListMembers returns the room's active members with resolved usernames.
func (s *RoomService) ListMembers(ctx context.Context, roomID, requesterID string) ([]*MemberResponse, error) {
	if _, err := s.Members.FindActive(ctx, roomID, requesterID); err != nil {
		return nil, apperrors.ErrNotMember
	}

	members, err := s.Members.ListActive(ctx, roomID)
	if err != nil {
		return nil, apperrors.ErrStoreUnavailable(err)
	}

	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	users, err := s.Users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.ErrStoreUnavailable(err)
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}

	resp := make([]*MemberResponse, 0, len(members))
	for _, m := range members {
		resp = append(resp, &MemberResponse{
			UserID:               m.UserID,
			Username:             names[m.UserID],
			Role:                 m.Role,
			JoinedAt:             m.JoinedAt,
			LastSeenAt:           m.LastSeenAt,
			IsMuted:              m.IsMuted,
			NotificationsEnabled: m.NotificationsEnabled,
		})
	}
	return resp, nil
}

func (s *RoomService) checkCapacity(ctx context.Context, room *modelChat.Room) error {
	if room.MaxParticipants == nil {
		return nil
	}
	count, err := s.Members.CountActive(ctx, room.ID)
	if err != nil {
		return apperrors.ErrStoreUnavailable(err)
	}
	if count >= int64(*room.MaxParticipants) {
		return apperrors.ErrRoomFull
	}
	return nil
}

func (s *RoomService) createMember(ctx context.Context, roomID, userID, role string) error {
	member := &modelChat.RoomMember{
		ID:       uuid.New().String(),
		RoomID:   roomID,
		UserID:   userID,
		Role:     role,
		IsActive: true,
		JoinedAt: time.Now(),
	}
	if err := s.Members.Create(ctx, member); err != nil {
		return apperrors.ErrStoreUnavailable(err)
	}
	return nil
}
