package apperrors

import "net/http"

// Factories and predefined errors for the chat domain. Repositories return
// raw gorm errors; services translate them through these so that handlers and
// websocket sessions never see storage internals.

// ErrNotFound converts a repository "record not found" into a 404.
func ErrNotFound(err error, message string) *AppError {
	return Wrap(err, CodeNotFound, "chat", message, http.StatusNotFound)
}

// ErrStoreUnavailable marks a persistence I/O failure. The triggering action
// fails; the broker and other sessions keep running.
func ErrStoreUnavailable(err error) *AppError {
	return Wrap(err, CodeDatabaseError, "chat", "Message store unavailable", http.StatusServiceUnavailable)
}

var ErrRoomNotFound = New(
	CodeNotFound,
	"chat",
	"Room not found or inactive",
	http.StatusNotFound,
)

var ErrMessageNotFound = New(
	CodeNotFound,
	"chat",
	"Message not found",
	http.StatusNotFound,
)

// ErrNotMember - the caller has no active membership in the room.
var ErrNotMember = New(
	CodeForbidden,
	"chat",
	"You are not a member of this room",
	http.StatusForbidden,
)

// ErrReadOnlyRoom - a plain member tried to post into a read-only room.
var ErrReadOnlyRoom = New(
	CodeForbidden,
	"chat",
	"This room is read-only",
	http.StatusForbidden,
)

var ErrCannotEditMessage = New(
	CodeForbidden,
	"chat",
	"You cannot edit this message",
	http.StatusForbidden,
)

var ErrCannotDeleteMessage = New(
	CodeForbidden,
	"chat",
	"You cannot delete this message",
	http.StatusForbidden,
)

// ErrEmptyBody - text messages must carry non-whitespace content.
var ErrEmptyBody = New(
	CodeValidationFailed,
	"chat",
	"Message content cannot be empty",
	http.StatusBadRequest,
)

// ErrReplyNotFound - reply target missing, deleted, or in another room.
var ErrReplyNotFound = New(
	CodeValidationFailed,
	"chat",
	"Reply target not found in this room",
	http.StatusBadRequest,
)

// ErrAlreadyDeleted - the message was soft-deleted earlier; it is immutable.
var ErrAlreadyDeleted = New(
	CodeConflict,
	"chat",
	"Message is already deleted",
	http.StatusConflict,
)

// ErrRoomFull - joining would exceed the room's participant limit.
var ErrRoomFull = New(
	CodeLimitExceeded,
	"chat",
	"Room participant limit reached",
	http.StatusConflict,
)

var ErrOnlyAdminsManageMembers = New(
	CodeForbidden,
	"chat",
	"Only admins can manage room members",
	http.StatusForbidden,
)
