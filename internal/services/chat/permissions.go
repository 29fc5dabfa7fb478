package chat

import (
	"time"

	modelChat "crmchat_backend/internal/models/chat"
)

// Pure permission evaluator. No I/O happens here: callers pass freshly-read
// room/membership rows so role changes take effect on the very next event.

// CanRead reports whether the member may see the room at all.
func CanRead(room *modelChat.Room, member *modelChat.RoomMember) bool {
	if room == nil || !room.IsActive {
		return false
	}
	return member != nil && member.IsActive
}

// CanSend reports whether the member may post. In a read-only room only
// admins and moderators keep posting rights.
func CanSend(room *modelChat.Room, member *modelChat.RoomMember) bool {
	if !CanRead(room, member) {
		return false
	}
	if room.ReadOnly {
		return member.IsModerator()
	}
	return true
}

// CanEdit reports whether the user may edit the message: the sender within
// the 15-minute window, or any admin/moderator with no time bound.
func CanEdit(msg *modelChat.Message, userID string, member *modelChat.RoomMember, now time.Time) bool {
	if msg == nil || msg.IsDeleted {
		return false
	}
	if msg.SenderID == userID && now.Before(msg.EditableUntil()) {
		return true
	}
	return member != nil && member.IsActive && member.IsModerator()
}

// CanDelete reports whether the user may delete the message: the sender
// (no time window), or any admin/moderator.
func CanDelete(msg *modelChat.Message, userID string, member *modelChat.RoomMember) bool {
	if msg == nil || msg.IsDeleted {
		return false
	}
	if msg.SenderID == userID {
		return true
	}
	return member != nil && member.IsActive && member.IsModerator()
}

// CanManageMembers reports whether the member may add or remove others.
func CanManageMembers(member *modelChat.RoomMember) bool {
	return member != nil && member.IsActive && member.Role == modelChat.RoleAdmin
}
