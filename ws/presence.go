package ws

import (
	"sync"
	"time"
)

type typingKey struct {
	roomID string
	userID string
}

// PresenceTracker keeps the ephemeral typing state. Nothing here touches the
// database: typing indicators live only as long as their TTL and die with the
// process.
type PresenceTracker struct {
	mu     sync.Mutex
	ttl    time.Duration
	timers map[typingKey]*time.Timer
}

func NewPresenceTracker(ttl time.Duration) *PresenceTracker {
	return &PresenceTracker{
		ttl:    ttl,
		timers: make(map[typingKey]*time.Timer),
	}
}

// SetTyping broadcasts the typing state to the room, skipping the originator.
// A started indicator expires on its own after the TTL, so a client that
// stops typing without saying so does not stay "typing" forever.
func (p *PresenceTracker) SetTyping(b *Broker, c *Client, isTyping bool) {
	key := typingKey{roomID: b.roomID, userID: c.UserID}

	p.mu.Lock()
	if t, ok := p.timers[key]; ok {
		t.Stop()
		delete(p.timers, key)
	}
	if isTyping {
		var t *time.Timer
		t = time.AfterFunc(p.ttl, func() {
			p.expire(b, c, key, t)
		})
		p.timers[key] = t
	}
	p.mu.Unlock()

	b.Publish(&Publication{
		Event: TypingEvent{
			Type:     EventTyping,
			UserID:   c.UserID,
			Username: c.Username,
			IsTyping: isTyping,
		},
		Origin:     c,
		SkipOrigin: true,
	})
}

func (p *PresenceTracker) expire(b *Broker, c *Client, key typingKey, t *time.Timer) {
	p.mu.Lock()
	if p.timers[key] != t {
		// A newer typing event replaced or cleared this timer.
		p.mu.Unlock()
		return
	}
	delete(p.timers, key)
	p.mu.Unlock()

	b.Publish(&Publication{
		Event: TypingEvent{
			Type:     EventTyping,
			UserID:   c.UserID,
			Username: c.Username,
			IsTyping: false,
		},
		Origin:     c,
		SkipOrigin: true,
	})
}

// ClearSession drops any pending typing timer for a disconnecting session.
// No broadcast: the broker's offline presence event already tells the room.
func (p *PresenceTracker) ClearSession(roomID, userID string) {
	key := typingKey{roomID: roomID, userID: userID}
	p.mu.Lock()
	if t, ok := p.timers[key]; ok {
		t.Stop()
		delete(p.timers, key)
	}
	p.mu.Unlock()
}
