package chat

import (
	"testing"
	"time"

	modelChat "crmchat_backend/internal/models/chat"

	"github.com/stretchr/testify/assert"
)

func activeRoom() *modelChat.Room {
	return &modelChat.Room{ID: "r1", Kind: modelChat.RoomKindGroup, IsActive: true}
}

func member(role string) *modelChat.RoomMember {
	return &modelChat.RoomMember{RoomID: "r1", UserID: "u1", Role: role, IsActive: true}
}

func TestCanRead(t *testing.T) {
	assert.True(t, CanRead(activeRoom(), member(modelChat.RoleMember)))

	inactive := activeRoom()
	inactive.IsActive = false
	assert.False(t, CanRead(inactive, member(modelChat.RoleMember)), "inactive room")

	left := member(modelChat.RoleMember)
	left.IsActive = false
	assert.False(t, CanRead(activeRoom(), left), "deactivated membership")

	assert.False(t, CanRead(activeRoom(), nil), "non-member")
	assert.False(t, CanRead(nil, member(modelChat.RoleMember)), "missing room")
}

func TestCanSend_ReadOnlyRoom(t *testing.T) {
	room := activeRoom()
	room.ReadOnly = true

	assert.False(t, CanSend(room, member(modelChat.RoleMember)), "plain member in read-only room")
	assert.True(t, CanSend(room, member(modelChat.RoleModerator)))
	assert.True(t, CanSend(room, member(modelChat.RoleAdmin)))

	room.ReadOnly = false
	assert.True(t, CanSend(room, member(modelChat.RoleMember)))
}

func TestCanEdit_SenderWindow(t *testing.T) {
	now := time.Now()
	msg := &modelChat.Message{ID: "m1", RoomID: "r1", SenderID: "u1", CreatedAt: now}

	assert.True(t, CanEdit(msg, "u1", member(modelChat.RoleMember), now.Add(14*time.Minute)),
		"sender inside the window")
	assert.False(t, CanEdit(msg, "u1", member(modelChat.RoleMember), now.Add(16*time.Minute)),
		"sender outside the window")
	assert.False(t, CanEdit(msg, "u2", member(modelChat.RoleMember), now),
		"non-sender plain member")
}

func TestCanEdit_ModeratorUnbounded(t *testing.T) {
	old := &modelChat.Message{
		ID:        "m1",
		RoomID:    "r1",
		SenderID:  "u1",
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}

	assert.True(t, CanEdit(old, "u2", member(modelChat.RoleModerator), time.Now()))
	assert.True(t, CanEdit(old, "u2", member(modelChat.RoleAdmin), time.Now()))

	inactive := member(modelChat.RoleModerator)
	inactive.IsActive = false
	assert.False(t, CanEdit(old, "u2", inactive, time.Now()), "deactivated moderator")
}

func TestCanEdit_DeletedMessageFrozen(t *testing.T) {
	msg := &modelChat.Message{ID: "m1", SenderID: "u1", CreatedAt: time.Now(), IsDeleted: true}

	assert.False(t, CanEdit(msg, "u1", member(modelChat.RoleAdmin), time.Now()))
}

func TestCanDelete(t *testing.T) {
	old := &modelChat.Message{
		ID:        "m1",
		SenderID:  "u1",
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}

	// The sender may always delete their own message, with no time window.
	assert.True(t, CanDelete(old, "u1", member(modelChat.RoleMember)))
	assert.True(t, CanDelete(old, "u1", nil))

	assert.False(t, CanDelete(old, "u2", member(modelChat.RoleMember)))
	assert.True(t, CanDelete(old, "u2", member(modelChat.RoleModerator)))
	assert.True(t, CanDelete(old, "u2", member(modelChat.RoleAdmin)))

	deleted := &modelChat.Message{ID: "m2", SenderID: "u1", IsDeleted: true}
	assert.False(t, CanDelete(deleted, "u1", member(modelChat.RoleAdmin)), "already deleted")
}

func TestCanManageMembers(t *testing.T) {
	assert.True(t, CanManageMembers(member(modelChat.RoleAdmin)))
	assert.False(t, CanManageMembers(member(modelChat.RoleModerator)))
	assert.False(t, CanManageMembers(member(modelChat.RoleMember)))
	assert.False(t, CanManageMembers(nil))

	inactive := member(modelChat.RoleAdmin)
	inactive.IsActive = false
	assert.False(t, CanManageMembers(inactive))
}
