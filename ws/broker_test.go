package ws

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, reg *Registry, roomID, userID string, queueSize int) *Client {
	t.Helper()
	broker := reg.Acquire(roomID)
	presence := NewPresenceTracker(time.Minute)
	return newClient(nil, userID, "user-"+userID, roomID, broker, reg, nil, presence, queueSize)
}

// receive pulls the next event, failing the test on timeout.
func receive(t *testing.T, c *Client) any {
	t.Helper()
	select {
	case event, ok := <-c.send:
		require.True(t, ok, "send channel closed unexpectedly")
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

// receiveSkippingPresence discards presence frames until a non-presence event
// arrives.
func receiveSkippingPresence(t *testing.T, c *Client) any {
	t.Helper()
	for {
		event := receive(t, c)
		if _, ok := event.(PresenceEvent); ok {
			continue
		}
		return event
	}
}

func TestBrokerDeliversInPublishOrder(t *testing.T) {
	reg := NewRegistry(time.Minute)
	a := newTestClient(t, reg, "room-1", "u1", 64)
	b := newTestClient(t, reg, "room-1", "u2", 64)

	broker := a.broker
	broker.Subscribe(a)
	broker.Subscribe(b)
	require.Equal(t, 2, broker.SubscriberCount())

	for i := 0; i < 10; i++ {
		broker.Publish(&Publication{Event: MessageReadEvent{
			Type:      EventMessageRead,
			MessageID: string(rune('a' + i)),
		}})
	}

	for _, c := range []*Client{a, b} {
		for i := 0; i < 10; i++ {
			event := receiveSkippingPresence(t, c)
			read, ok := event.(MessageReadEvent)
			require.True(t, ok, "expected MessageReadEvent, got %T", event)
			assert.Equal(t, string(rune('a'+i)), read.MessageID)
		}
	}
}

func TestBrokerSubscribeAnnouncesPresence(t *testing.T) {
	reg := NewRegistry(time.Minute)
	a := newTestClient(t, reg, "room-1", "u1", 64)
	b := newTestClient(t, reg, "room-1", "u2", 64)

	broker := a.broker
	broker.Subscribe(a)
	broker.Subscribe(b)
	require.Equal(t, 2, broker.SubscriberCount())

	// a hears that b came online; b hears nothing about itself.
	event := receive(t, a)
	presence, ok := event.(PresenceEvent)
	require.True(t, ok)
	assert.Equal(t, "u2", presence.UserID)
	assert.Equal(t, "online", presence.Status)

	broker.Unsubscribe(b)
	event = receive(t, a)
	presence, ok = event.(PresenceEvent)
	require.True(t, ok)
	assert.Equal(t, "u2", presence.UserID)
	assert.Equal(t, "offline", presence.Status)
}

func TestBrokerSkipOrigin(t *testing.T) {
	reg := NewRegistry(time.Minute)
	a := newTestClient(t, reg, "room-1", "u1", 64)
	b := newTestClient(t, reg, "room-1", "u2", 64)

	broker := a.broker
	broker.Subscribe(a)
	broker.Subscribe(b)
	require.Equal(t, 2, broker.SubscriberCount())

	broker.Publish(&Publication{
		Event:      TypingEvent{Type: EventTyping, UserID: "u1", IsTyping: true},
		Origin:     a,
		SkipOrigin: true,
	})

	event := receiveSkippingPresence(t, b)
	typing, ok := event.(TypingEvent)
	require.True(t, ok)
	assert.Equal(t, "u1", typing.UserID)

	select {
	case event := <-a.send:
		if _, isPresence := event.(PresenceEvent); !isPresence {
			t.Fatalf("origin received its own event: %#v", event)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBrokerTargetedDelivery(t *testing.T) {
	reg := NewRegistry(time.Minute)
	a := newTestClient(t, reg, "room-1", "u1", 64)
	b := newTestClient(t, reg, "room-1", "u2", 64)

	broker := a.broker
	broker.Subscribe(a)
	broker.Subscribe(b)
	require.Equal(t, 2, broker.SubscriberCount())

	broker.Publish(&Publication{
		Event:  ErrorEvent{Type: EventError, Code: "FORBIDDEN", Message: "no"},
		Target: a,
	})

	event := receiveSkippingPresence(t, a)
	require.IsType(t, ErrorEvent{}, event)

	select {
	case event := <-b.send:
		if _, isPresence := event.(PresenceEvent); !isPresence {
			t.Fatalf("non-target received targeted event: %#v", event)
		}
	case <-time.After(100 * time.Millisecond):
	}
}

func TestBrokerDropsSlowConsumer(t *testing.T) {
	reg := NewRegistry(time.Minute)
	slow := newTestClient(t, reg, "room-1", "slow", 1)
	fast := newTestClient(t, reg, "room-1", "fast", 64)

	broker := slow.broker
	broker.Subscribe(slow)
	broker.Subscribe(fast)
	require.Equal(t, 2, broker.SubscriberCount())

	// The slow client never drains. Its one-slot queue already holds the
	// presence event for "fast", so the next publish overflows it.
	for i := 0; i < 3; i++ {
		broker.Publish(&Publication{Event: MessageReadEvent{Type: EventMessageRead, MessageID: "m"}})
	}

	require.Eventually(t, func() bool {
		return broker.SubscriberCount() == 1
	}, 2*time.Second, 10*time.Millisecond, "slow consumer was not dropped")

	// The survivor hears the dropped session go offline.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-fast.send:
			if presence, ok := event.(PresenceEvent); ok &&
				presence.UserID == "slow" && presence.Status == "offline" {
				return
			}
		case <-deadline:
			t.Fatal("no offline presence for dropped session")
		}
	}
}

func TestRegistryReusesBrokerAcrossSessions(t *testing.T) {
	reg := NewRegistry(time.Minute)

	b1 := reg.Acquire("room-1")
	b2 := reg.Acquire("room-1")
	assert.Same(t, b1, b2)
	assert.Equal(t, 1, reg.ActiveRooms())

	other := reg.Acquire("room-2")
	assert.NotSame(t, b1, other)
	assert.Equal(t, 2, reg.ActiveRooms())
}

func TestRegistryTearsDownAfterGrace(t *testing.T) {
	reg := NewRegistry(50 * time.Millisecond)

	broker := reg.Acquire("room-1")
	reg.Release("room-1")

	require.Eventually(t, func() bool {
		return reg.ActiveRooms() == 0
	}, 2*time.Second, 10*time.Millisecond)

	// The done channel is closed, so publishes no longer block.
	broker.Publish(&Publication{Event: ErrorEvent{Type: EventError}})
}

func TestRegistryGraceReacquireKeepsBroker(t *testing.T) {
	reg := NewRegistry(200 * time.Millisecond)

	b1 := reg.Acquire("room-1")
	reg.Release("room-1")

	// Reconnect within the grace period reuses the same broker.
	b2 := reg.Acquire("room-1")
	assert.Same(t, b1, b2)

	time.Sleep(400 * time.Millisecond)
	assert.Equal(t, 1, reg.ActiveRooms(), "held broker must survive the old grace timer")
	assert.Equal(t, 0, b1.SubscriberCount())
}

func TestRegistryPeek(t *testing.T) {
	reg := NewRegistry(time.Minute)

	assert.Nil(t, reg.Peek("room-1"))
	broker := reg.Acquire("room-1")
	assert.Same(t, broker, reg.Peek("room-1"))
	assert.Equal(t, 1, reg.ActiveRooms(), "Peek must not create brokers")
}
