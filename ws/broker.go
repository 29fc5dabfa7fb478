package ws

import (
	"time"

	"crmchat_backend/internal/logger"
)

// Publication is one event handed to the broker for fan-out.
type Publication struct {
	Event any
	// Origin is the session that produced the event.
	Origin *Client
	// SkipOrigin excludes the origin from delivery (read/typing/presence
	// events are echoes the originator does not need).
	SkipOrigin bool
	// Target, when set, delivers to that one session only. Used for error
	// frames that concern nobody else in the room.
	Target *Client
}

type brokerCmd struct {
	subscribe   *Client
	unsubscribe *Client
	publish     *Publication
	count       chan int
}

// Broker is the per-room fan-out hub. A single goroutine drains one command
// channel, so subscribe/unsubscribe/publish for a room are processed strictly
// sequentially and every subscriber observes the same publish order.
type Broker struct {
	roomID   string
	commands chan brokerCmd
	done     chan struct{}

	// Owned by the run loop.
	sessions map[*Client]struct{}
}

func newBroker(roomID string) *Broker {
	return &Broker{
		roomID:   roomID,
		commands: make(chan brokerCmd, 64),
		done:     make(chan struct{}),
		sessions: make(map[*Client]struct{}),
	}
}

func (b *Broker) run() {
	for {
		select {
		case cmd := <-b.commands:
			switch {
			case cmd.subscribe != nil:
				b.handleSubscribe(cmd.subscribe)
			case cmd.unsubscribe != nil:
				b.handleUnsubscribe(cmd.unsubscribe)
			case cmd.publish != nil:
				b.handlePublish(cmd.publish)
			case cmd.count != nil:
				cmd.count <- len(b.sessions)
			}
		case <-b.done:
			// Teardown: any session still attached is orphaned by a
			// registry bug, not a normal path.
			for c := range b.sessions {
				close(c.send)
			}
			b.sessions = nil
			return
		}
	}
}

// Subscribe registers the session and announces it to the room.
func (b *Broker) Subscribe(c *Client) {
	select {
	case b.commands <- brokerCmd{subscribe: c}:
	case <-b.done:
		close(c.send)
	}
}

// Unsubscribe removes the session and announces its departure.
func (b *Broker) Unsubscribe(c *Client) {
	select {
	case b.commands <- brokerCmd{unsubscribe: c}:
	case <-b.done:
	}
}

// Publish fans the event out to the room's live sessions.
func (b *Broker) Publish(pub *Publication) {
	select {
	case b.commands <- brokerCmd{publish: pub}:
	case <-b.done:
	}
}

// SubscriberCount returns a snapshot of the live session count.
func (b *Broker) SubscriberCount() int {
	reply := make(chan int, 1)
	select {
	case b.commands <- brokerCmd{count: reply}:
		return <-reply
	case <-b.done:
		return 0
	}
}

func (b *Broker) handleSubscribe(c *Client) {
	b.sessions[c] = struct{}{}

	b.deliver(&Publication{
		Event: PresenceEvent{
			Type:      EventPresence,
			UserID:    c.UserID,
			Username:  c.Username,
			Status:    "online",
			Timestamp: time.Now().Format(time.RFC3339),
		},
		Origin:     c,
		SkipOrigin: true,
	})

	logger.Debug("session subscribed", "room_id", b.roomID, "user_id", c.UserID, "sessions", len(b.sessions))
}

func (b *Broker) handleUnsubscribe(c *Client) {
	if _, ok := b.sessions[c]; !ok {
		return
	}
	delete(b.sessions, c)
	close(c.send)

	b.deliver(&Publication{
		Event: PresenceEvent{
			Type:      EventPresence,
			UserID:    c.UserID,
			Username:  c.Username,
			Status:    "offline",
			Timestamp: time.Now().Format(time.RFC3339),
		},
		Origin:     c,
		SkipOrigin: true,
	})

	logger.Debug("session unsubscribed", "room_id", b.roomID, "user_id", c.UserID, "sessions", len(b.sessions))
}

func (b *Broker) handlePublish(pub *Publication) {
	b.deliver(pub)
}

// deliver pushes the event into each subscriber's bounded queue. It never
// blocks: a subscriber whose queue is full is dropped on the spot so one slow
// peer cannot stall the room.
func (b *Broker) deliver(pub *Publication) {
	var dropped []*Client
	for c := range b.sessions {
		if pub.Target != nil && c != pub.Target {
			continue
		}
		if pub.SkipOrigin && c == pub.Origin {
			continue
		}
		select {
		case c.send <- pub.Event:
		default:
			delete(b.sessions, c)
			close(c.send)
			go c.closeWithCode(CloseSlowConsumer, "slow consumer")
			dropped = append(dropped, c)
			logger.Warn("session dropped: send queue full",
				"room_id", b.roomID, "user_id", c.UserID)
		}
	}

	// Announce departures the dropped sessions can no longer announce
	// themselves.
	for _, c := range dropped {
		b.deliver(&Publication{
			Event: PresenceEvent{
				Type:      EventPresence,
				UserID:    c.UserID,
				Username:  c.Username,
				Status:    "offline",
				Timestamp: time.Now().Format(time.RFC3339),
			},
			Origin:     c,
			SkipOrigin: true,
		})
	}
}
