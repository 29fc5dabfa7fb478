package integration_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"crmchat_backend/test/helpers"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type roomPayload struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind string `json:"kind"`
}

type messagePayload struct {
	ID        string `json:"id"`
	RoomID    string `json:"room_id"`
	SenderID  string `json:"sender_id"`
	Content   string `json:"content"`
	IsEdited  bool   `json:"is_edited"`
	IsDeleted bool   `json:"is_deleted"`
}

type messagePage struct {
	Messages []messagePayload `json:"messages"`
	HasMore  bool             `json:"has_more"`
}

func TestChat_RoomAndMessageFlow(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables(t)

	_, aliceToken := helpers.CreateUser(t, ts.DB, "alice")
	_, bobToken := helpers.CreateUser(t, ts.DB, "bob")

	// Alice opens a group room.
	res, body := ts.SendRequest(t, "POST", "/api/v1/rooms", aliceToken, map[string]interface{}{
		"name": "project-x",
		"kind": "group",
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, body)

	var room roomPayload
	require.NoError(t, json.Unmarshal([]byte(body), &room))
	require.NotEmpty(t, room.ID)

	// Bob joins.
	res, body = ts.SendRequest(t, "POST", "/api/v1/rooms/"+room.ID+"/join", bobToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, body)

	// Alice sends a message over the REST path.
	res, body = ts.SendRequest(t, "POST", "/api/v1/rooms/"+room.ID+"/messages", aliceToken,
		map[string]interface{}{"content": "hello bob"})
	require.Equal(t, http.StatusCreated, res.StatusCode, body)

	var msg messagePayload
	require.NoError(t, json.Unmarshal([]byte(body), &msg))
	assert.Equal(t, "hello bob", msg.Content)

	// Bob replies to it.
	res, body = ts.SendRequest(t, "POST", "/api/v1/rooms/"+room.ID+"/messages", bobToken,
		map[string]interface{}{"content": "hi alice", "reply_to": msg.ID})
	require.Equal(t, http.StatusCreated, res.StatusCode, body)

	// History comes back chronological.
	res, body = ts.SendRequest(t, "GET", "/api/v1/rooms/"+room.ID+"/messages", bobToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, body)

	var page messagePage
	require.NoError(t, json.Unmarshal([]byte(body), &page))
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "hello bob", page.Messages[0].Content)
	assert.Equal(t, "hi alice", page.Messages[1].Content)
	assert.False(t, page.HasMore)

	// Alice edits her message inside the window.
	res, body = ts.SendRequest(t, "PATCH", "/api/v1/messages/"+msg.ID, aliceToken,
		map[string]interface{}{"content": "hello bob (edited)"})
	require.Equal(t, http.StatusOK, res.StatusCode, body)

	var edited messagePayload
	require.NoError(t, json.Unmarshal([]byte(body), &edited))
	assert.Equal(t, "hello bob (edited)", edited.Content)
	assert.True(t, edited.IsEdited)

	// Bob cannot edit Alice's message.
	res, body = ts.SendRequest(t, "PATCH", "/api/v1/messages/"+msg.ID, bobToken,
		map[string]interface{}{"content": "hijacked"})
	assert.Equal(t, http.StatusForbidden, res.StatusCode, body)

	// Alice deletes it; content is redacted, row survives in listings.
	res, body = ts.SendRequest(t, "DELETE", "/api/v1/messages/"+msg.ID, aliceToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, body)

	var deleted messagePayload
	require.NoError(t, json.Unmarshal([]byte(body), &deleted))
	assert.True(t, deleted.IsDeleted)
	assert.Equal(t, "[message deleted]", deleted.Content)

	res, body = ts.SendRequest(t, "GET", "/api/v1/rooms/"+room.ID+"/messages", bobToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	require.NoError(t, json.Unmarshal([]byte(body), &page))
	require.Len(t, page.Messages, 2, "deleted message must stay in the listing")
	assert.Equal(t, "[message deleted]", page.Messages[0].Content)

	// A second delete conflicts.
	res, body = ts.SendRequest(t, "DELETE", "/api/v1/messages/"+msg.ID, aliceToken, nil)
	assert.Equal(t, http.StatusConflict, res.StatusCode, body)

	// Replying to a deleted message is rejected.
	res, body = ts.SendRequest(t, "POST", "/api/v1/rooms/"+room.ID+"/messages", bobToken,
		map[string]interface{}{"content": "too late", "reply_to": msg.ID})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode, body)
}

func TestChat_ReadReceiptsAndSummary(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables(t)

	_, aliceToken := helpers.CreateUser(t, ts.DB, "alice")
	_, bobToken := helpers.CreateUser(t, ts.DB, "bob")

	res, body := ts.SendRequest(t, "POST", "/api/v1/rooms", aliceToken,
		map[string]interface{}{"name": "receipts"})
	require.Equal(t, http.StatusCreated, res.StatusCode, body)
	var room roomPayload
	require.NoError(t, json.Unmarshal([]byte(body), &room))

	res, body = ts.SendRequest(t, "POST", "/api/v1/rooms/"+room.ID+"/join", bobToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, body)

	var lastID string
	for i := 0; i < 3; i++ {
		res, body = ts.SendRequest(t, "POST", "/api/v1/rooms/"+room.ID+"/messages", aliceToken,
			map[string]interface{}{"content": fmt.Sprintf("note %d", i)})
		require.Equal(t, http.StatusCreated, res.StatusCode, body)
		var msg messagePayload
		require.NoError(t, json.Unmarshal([]byte(body), &msg))
		lastID = msg.ID
	}

	// Bob has everything unread.
	res, body = ts.SendRequest(t, "GET", "/api/v1/rooms/"+room.ID+"/summary", bobToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	var summary struct {
		UnreadCount      int64 `json:"unread_count"`
		ParticipantCount int64 `json:"participant_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &summary))
	assert.Equal(t, int64(3), summary.UnreadCount)
	assert.Equal(t, int64(2), summary.ParticipantCount)

	// Mark everything up to the last message as read. Doing it twice stays
	// idempotent.
	for i := 0; i < 2; i++ {
		res, body = ts.SendRequest(t, "POST", "/api/v1/rooms/"+room.ID+"/read", bobToken,
			map[string]interface{}{"message_id": lastID})
		require.Equal(t, http.StatusNoContent, res.StatusCode, body)
	}

	res, body = ts.SendRequest(t, "GET", "/api/v1/rooms/"+room.ID+"/summary", bobToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	require.NoError(t, json.Unmarshal([]byte(body), &summary))
	assert.Equal(t, int64(0), summary.UnreadCount)
}

func TestChat_ReadOnlyRoomPermissions(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables(t)

	_, adminToken := helpers.CreateUser(t, ts.DB, "admin")
	_, memberToken := helpers.CreateUser(t, ts.DB, "member")

	res, body := ts.SendRequest(t, "POST", "/api/v1/rooms", adminToken, map[string]interface{}{
		"name":      "announcements",
		"read_only": true,
	})
	require.Equal(t, http.StatusCreated, res.StatusCode, body)
	var room roomPayload
	require.NoError(t, json.Unmarshal([]byte(body), &room))

	res, body = ts.SendRequest(t, "POST", "/api/v1/rooms/"+room.ID+"/join", memberToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, body)

	// The creator is admin and may post; the plain member may not.
	res, body = ts.SendRequest(t, "POST", "/api/v1/rooms/"+room.ID+"/messages", adminToken,
		map[string]interface{}{"content": "release tonight"})
	assert.Equal(t, http.StatusCreated, res.StatusCode, body)

	res, body = ts.SendRequest(t, "POST", "/api/v1/rooms/"+room.ID+"/messages", memberToken,
		map[string]interface{}{"content": "can I talk?"})
	assert.Equal(t, http.StatusForbidden, res.StatusCode, body)

	// Non-members cannot even list.
	_, strangerToken := helpers.CreateUser(t, ts.DB, "stranger")
	res, body = ts.SendRequest(t, "GET", "/api/v1/rooms/"+room.ID+"/messages", strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, res.StatusCode, body)
}

func TestChat_CommunityHooks(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables(t)

	creator, creatorToken := helpers.CreateUser(t, ts.DB, "owner")
	member, _ := helpers.CreateUser(t, ts.DB, "joiner")

	communityID := "11111111-1111-1111-1111-111111111111"

	// Creating the community room twice returns the same room.
	var roomID string
	for i := 0; i < 2; i++ {
		res, body := ts.SendRequest(t, "POST", "/internal/v1/communities/"+communityID+"/room", "",
			map[string]interface{}{"name": "community chat", "creator_id": creator.ID})
		require.Equal(t, http.StatusCreated, res.StatusCode, body)
		var room roomPayload
		require.NoError(t, json.Unmarshal([]byte(body), &room))
		if roomID == "" {
			roomID = room.ID
		} else {
			assert.Equal(t, roomID, room.ID, "community room creation must be idempotent")
		}
	}

	// Membership sync: join as moderator, then deactivate.
	active := true
	res, body := ts.SendRequest(t, "PUT",
		"/internal/v1/communities/"+communityID+"/members/"+member.ID, "",
		map[string]interface{}{"role": "moderator", "active": &active})
	require.Equal(t, http.StatusNoContent, res.StatusCode, body)

	res, body = ts.SendRequest(t, "GET", "/api/v1/rooms/"+roomID+"/members", creatorToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	var members struct {
		Members []struct {
			UserID string `json:"user_id"`
			Role   string `json:"role"`
		} `json:"members"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &members))
	require.Len(t, members.Members, 2)

	// A sync without a role only touches the active flag; the moderator
	// keeps their role.
	res, body = ts.SendRequest(t, "PUT",
		"/internal/v1/communities/"+communityID+"/members/"+member.ID, "",
		map[string]interface{}{"active": &active})
	require.Equal(t, http.StatusNoContent, res.StatusCode, body)

	res, body = ts.SendRequest(t, "GET", "/api/v1/rooms/"+roomID+"/members", creatorToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	require.NoError(t, json.Unmarshal([]byte(body), &members))
	for _, m := range members.Members {
		if m.UserID == member.ID {
			assert.Equal(t, "moderator", m.Role)
		}
	}

	inactive := false
	res, body = ts.SendRequest(t, "PUT",
		"/internal/v1/communities/"+communityID+"/members/"+member.ID, "",
		map[string]interface{}{"active": &inactive})
	require.Equal(t, http.StatusNoContent, res.StatusCode, body)

	res, body = ts.SendRequest(t, "GET", "/api/v1/rooms/"+roomID+"/members", creatorToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	require.NoError(t, json.Unmarshal([]byte(body), &members))
	assert.Len(t, members.Members, 1, "deactivated member must leave the active listing")
}
