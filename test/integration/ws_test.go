package integration_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"crmchat_backend/test/helpers"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsFrame map[string]interface{}

func dialRoom(t *testing.T, ts *helpers.TestServer, roomID, token string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(ts.WebSocketURL(roomID, token), nil)
	require.NoError(t, err)
	return conn
}

// readFrame reads frames until one of the wanted type arrives, discarding
// presence noise from parallel joins.
func readFrame(t *testing.T, conn *websocket.Conn, wantType string) wsFrame {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))

	for {
		var frame wsFrame
		require.NoError(t, conn.ReadJSON(&frame))
		if frame["type"] == wantType {
			return frame
		}
	}
}

func expectCloseCode(t *testing.T, conn *websocket.Conn, wantCode int) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var frame wsFrame
	err := conn.ReadJSON(&frame)
	require.Error(t, err)

	closeErr, ok := err.(*websocket.CloseError)
	require.True(t, ok, "expected close error, got %v", err)
	assert.Equal(t, wantCode, closeErr.Code)
}

func createRoomWithMembers(t *testing.T, ts *helpers.TestServer, name string, tokens ...string) string {
	t.Helper()
	res, body := ts.SendRequest(t, "POST", "/api/v1/rooms", tokens[0],
		map[string]interface{}{"name": name})
	require.Equal(t, http.StatusCreated, res.StatusCode, body)

	var room roomPayload
	require.NoError(t, json.Unmarshal([]byte(body), &room))

	for _, token := range tokens[1:] {
		res, body = ts.SendRequest(t, "POST", "/api/v1/rooms/"+room.ID+"/join", token, nil)
		require.Equal(t, http.StatusOK, res.StatusCode, body)
	}
	return room.ID
}

func TestWS_LiveMessageFlow(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables(t)

	_, aliceToken := helpers.CreateUser(t, ts.DB, "alice")
	_, bobToken := helpers.CreateUser(t, ts.DB, "bob")
	roomID := createRoomWithMembers(t, ts, "live", aliceToken, bobToken)

	alice := dialRoom(t, ts, roomID, aliceToken)
	defer alice.Close()
	bob := dialRoom(t, ts, roomID, bobToken)
	defer bob.Close()

	// Alice sends; both sessions receive the persisted message.
	require.NoError(t, alice.WriteJSON(wsFrame{
		"type":    "send_message",
		"content": "hello over the wire",
	}))

	for _, conn := range []*websocket.Conn{alice, bob} {
		frame := readFrame(t, conn, "new_message")
		message := frame["message"].(map[string]interface{})
		assert.Equal(t, "hello over the wire", message["content"])
		assert.Equal(t, "alice", message["sender_name"])
	}

	// Typing reaches the peer but never echoes to the originator.
	require.NoError(t, alice.WriteJSON(wsFrame{"type": "typing", "is_typing": true}))
	frame := readFrame(t, bob, "typing")
	assert.Equal(t, true, frame["is_typing"])

	// Bob marks the message read; Alice is notified.
	messageID := readFrameMessageID(t, ts, roomID, bobToken)
	require.NoError(t, bob.WriteJSON(wsFrame{"type": "mark_read", "message_id": messageID}))
	frame = readFrame(t, alice, "message_read")
	assert.Equal(t, messageID, frame["message_id"])
}

// readFrameMessageID fetches the latest message id over REST.
func readFrameMessageID(t *testing.T, ts *helpers.TestServer, roomID, token string) string {
	t.Helper()
	res, body := ts.SendRequest(t, "GET", "/api/v1/rooms/"+roomID+"/messages", token, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, body)

	var page messagePage
	require.NoError(t, json.Unmarshal([]byte(body), &page))
	require.NotEmpty(t, page.Messages)
	return page.Messages[len(page.Messages)-1].ID
}

func TestWS_EditAndDeleteBroadcast(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables(t)

	_, aliceToken := helpers.CreateUser(t, ts.DB, "alice")
	_, bobToken := helpers.CreateUser(t, ts.DB, "bob")
	roomID := createRoomWithMembers(t, ts, "editing", aliceToken, bobToken)

	alice := dialRoom(t, ts, roomID, aliceToken)
	defer alice.Close()
	bob := dialRoom(t, ts, roomID, bobToken)
	defer bob.Close()

	require.NoError(t, alice.WriteJSON(wsFrame{"type": "send_message", "content": "draft"}))
	frame := readFrame(t, bob, "new_message")
	messageID := frame["message"].(map[string]interface{})["id"].(string)
	readFrame(t, alice, "new_message")

	require.NoError(t, alice.WriteJSON(wsFrame{
		"type":       "edit_message",
		"message_id": messageID,
		"content":    "final",
	}))
	frame = readFrame(t, bob, "message_edited")
	message := frame["message"].(map[string]interface{})
	assert.Equal(t, "final", message["content"])
	assert.Equal(t, true, message["is_edited"])

	// Bob may not delete Alice's message; only he hears the error.
	require.NoError(t, bob.WriteJSON(wsFrame{"type": "delete_message", "message_id": messageID}))
	errFrame := readFrame(t, bob, "error")
	assert.NotEmpty(t, errFrame["message"])

	require.NoError(t, alice.WriteJSON(wsFrame{"type": "delete_message", "message_id": messageID}))
	frame = readFrame(t, bob, "message_deleted")
	assert.Equal(t, messageID, frame["message_id"])
}

func TestWS_MutationsScopedToSessionRoom(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables(t)

	_, aliceToken := helpers.CreateUser(t, ts.DB, "alice")
	_, bobToken := helpers.CreateUser(t, ts.DB, "bob")
	roomA := createRoomWithMembers(t, ts, "room-a", aliceToken, bobToken)
	roomB := createRoomWithMembers(t, ts, "room-b", aliceToken, bobToken)

	// Alice's message lives in room B.
	res, body := ts.SendRequest(t, "POST", "/api/v1/rooms/"+roomB+"/messages", aliceToken,
		map[string]interface{}{"content": "original"})
	require.Equal(t, http.StatusCreated, res.StatusCode, body)
	var msg messagePayload
	require.NoError(t, json.Unmarshal([]byte(body), &msg))

	alice := dialRoom(t, ts, roomA, aliceToken)
	defer alice.Close()
	bob := dialRoom(t, ts, roomA, bobToken)
	defer bob.Close()

	// Editing or deleting through a room A session must fail even though
	// alice owns the message, and nothing may be persisted.
	require.NoError(t, alice.WriteJSON(wsFrame{
		"type": "edit_message", "message_id": msg.ID, "content": "hijacked",
	}))
	frame := readFrame(t, alice, "error")
	assert.Equal(t, "NOT_FOUND", frame["code"])

	require.NoError(t, alice.WriteJSON(wsFrame{"type": "delete_message", "message_id": msg.ID}))
	frame = readFrame(t, alice, "error")
	assert.Equal(t, "NOT_FOUND", frame["code"])

	// Bob cannot smuggle a room B read receipt through his room A session.
	require.NoError(t, bob.WriteJSON(wsFrame{"type": "mark_read", "message_id": msg.ID}))
	frame = readFrame(t, bob, "error")
	assert.Equal(t, "NOT_FOUND", frame["code"])

	// Room B is untouched: content, flags and bob's unread count.
	res, body = ts.SendRequest(t, "GET", "/api/v1/rooms/"+roomB+"/messages", aliceToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	var page messagePage
	require.NoError(t, json.Unmarshal([]byte(body), &page))
	require.Len(t, page.Messages, 1)
	assert.Equal(t, "original", page.Messages[0].Content)
	assert.False(t, page.Messages[0].IsEdited)
	assert.False(t, page.Messages[0].IsDeleted)

	res, body = ts.SendRequest(t, "GET", "/api/v1/rooms/"+roomB+"/summary", bobToken, nil)
	require.Equal(t, http.StatusOK, res.StatusCode, body)
	var summary struct {
		UnreadCount int64 `json:"unread_count"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &summary))
	assert.Equal(t, int64(1), summary.UnreadCount)
}

func TestWS_RestMarkReadCarriesUsername(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables(t)

	_, aliceToken := helpers.CreateUser(t, ts.DB, "alice")
	bob, bobToken := helpers.CreateUser(t, ts.DB, "bob")
	roomID := createRoomWithMembers(t, ts, "receipts-live", aliceToken, bobToken)

	alice := dialRoom(t, ts, roomID, aliceToken)
	defer alice.Close()

	res, body := ts.SendRequest(t, "POST", "/api/v1/rooms/"+roomID+"/messages", aliceToken,
		map[string]interface{}{"content": "read me"})
	require.Equal(t, http.StatusCreated, res.StatusCode, body)
	var msg messagePayload
	require.NoError(t, json.Unmarshal([]byte(body), &msg))

	res, body = ts.SendRequest(t, "POST", "/api/v1/messages/"+msg.ID+"/read", bobToken, nil)
	require.Equal(t, http.StatusNoContent, res.StatusCode, body)

	frame := readFrame(t, alice, "message_read")
	assert.Equal(t, msg.ID, frame["message_id"])
	assert.Equal(t, bob.ID, frame["user_id"])
	assert.Equal(t, "bob", frame["username"])
}

func TestWS_UnknownEventGetsError(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables(t)

	_, token := helpers.CreateUser(t, ts.DB, "alice")
	roomID := createRoomWithMembers(t, ts, "solo", token)

	conn := dialRoom(t, ts, roomID, token)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsFrame{"type": "launch_rocket"}))
	frame := readFrame(t, conn, "error")
	assert.Contains(t, frame["message"], "unknown message type")
}

func TestWS_HandshakeRejections(t *testing.T) {
	ts := GetTestServer(t)
	ts.ClearTables(t)

	_, token := helpers.CreateUser(t, ts.DB, "alice")
	_, outsiderToken := helpers.CreateUser(t, ts.DB, "outsider")
	roomID := createRoomWithMembers(t, ts, "private", token)

	// Bad token: the upgrade succeeds, then the close code explains.
	conn, _, err := websocket.DefaultDialer.Dial(ts.WebSocketURL(roomID, "garbage"), nil)
	require.NoError(t, err)
	expectCloseCode(t, conn, 4001)
	conn.Close()

	// Unknown room.
	conn, _, err = websocket.DefaultDialer.Dial(
		ts.WebSocketURL("00000000-0000-0000-0000-000000000000", token), nil)
	require.NoError(t, err)
	expectCloseCode(t, conn, 4004)
	conn.Close()

	// Valid identity, no membership.
	conn, _, err = websocket.DefaultDialer.Dial(ts.WebSocketURL(roomID, outsiderToken), nil)
	require.NoError(t, err)
	expectCloseCode(t, conn, 4003)
	conn.Close()
}
