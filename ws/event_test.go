package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeInbound_SendMessage(t *testing.T) {
	raw := []byte(`{"type":"send_message","content":"hello","message_type":"text"}`)

	event, err := DecodeInbound(raw)
	require.NoError(t, err)

	send, ok := event.(SendMessageEvent)
	require.True(t, ok, "expected SendMessageEvent, got %T", event)
	assert.Equal(t, "hello", send.Content)
	assert.Equal(t, "text", send.MessageType)
	assert.Nil(t, send.ReplyTo)
}

func TestDecodeInbound_SendMessageWithReply(t *testing.T) {
	raw := []byte(`{"type":"send_message","content":"re","reply_to":"abc-123"}`)

	event, err := DecodeInbound(raw)
	require.NoError(t, err)

	send := event.(SendMessageEvent)
	require.NotNil(t, send.ReplyTo)
	assert.Equal(t, "abc-123", *send.ReplyTo)
}

func TestDecodeInbound_EditMessage(t *testing.T) {
	raw := []byte(`{"type":"edit_message","message_id":"m1","content":"fixed"}`)

	event, err := DecodeInbound(raw)
	require.NoError(t, err)

	edit, ok := event.(EditMessageEvent)
	require.True(t, ok)
	assert.Equal(t, "m1", edit.MessageID)
	assert.Equal(t, "fixed", edit.Content)
}

func TestDecodeInbound_DeleteAndMarkRead(t *testing.T) {
	event, err := DecodeInbound([]byte(`{"type":"delete_message","message_id":"m2"}`))
	require.NoError(t, err)
	assert.Equal(t, DeleteMessageEvent{MessageID: "m2"}, event)

	event, err = DecodeInbound([]byte(`{"type":"mark_read","message_id":"m3"}`))
	require.NoError(t, err)
	assert.Equal(t, MarkReadEvent{MessageID: "m3"}, event)
}

func TestDecodeInbound_Typing(t *testing.T) {
	event, err := DecodeInbound([]byte(`{"type":"typing","is_typing":true}`))
	require.NoError(t, err)
	assert.Equal(t, TypingInEvent{IsTyping: true}, event)
}

func TestDecodeInbound_UnknownType(t *testing.T) {
	_, err := DecodeInbound([]byte(`{"type":"launch_rocket"}`))
	require.Error(t, err)

	var unknown *UnknownEventError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "launch_rocket", unknown.Type)
}

func TestDecodeInbound_InvalidJSON(t *testing.T) {
	_, err := DecodeInbound([]byte(`{not json`))
	assert.Error(t, err)
}
