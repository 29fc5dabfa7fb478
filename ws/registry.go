package ws

import (
	"sync"
	"time"

	"crmchat_backend/internal/logger"
)

// Registry is the concurrency-safe index of live room brokers. Brokers are
// created lazily on first acquire and torn down reference-counted, with a
// grace period so a quick reconnect reuses the existing broker instead of
// churning goroutines.
type Registry struct {
	mu      sync.Mutex
	brokers map[string]*brokerEntry
	grace   time.Duration
}

type brokerEntry struct {
	broker     *Broker
	refs       int
	graceTimer *time.Timer
}

func NewRegistry(grace time.Duration) *Registry {
	return &Registry{
		brokers: make(map[string]*brokerEntry),
		grace:   grace,
	}
}

// Acquire returns the broker for a room, starting one if needed. Every
// Acquire must be paired with a Release.
func (r *Registry) Acquire(roomID string) *Broker {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.brokers[roomID]
	if !ok {
		entry = &brokerEntry{broker: newBroker(roomID)}
		r.brokers[roomID] = entry
		go entry.broker.run()
		logger.Debug("room broker started", "room_id", roomID)
	}

	if entry.graceTimer != nil {
		entry.graceTimer.Stop()
		entry.graceTimer = nil
	}
	entry.refs++
	return entry.broker
}

// Release drops one reference. When the last reference goes, the broker
// lingers for the grace period before it is stopped.
func (r *Registry) Release(roomID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.brokers[roomID]
	if !ok {
		return
	}
	entry.refs--
	if entry.refs > 0 {
		return
	}

	entry.graceTimer = time.AfterFunc(r.grace, func() {
		r.teardown(roomID, entry)
	})
}

func (r *Registry) teardown(roomID string, entry *brokerEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// A session may have re-acquired during the grace period.
	current, ok := r.brokers[roomID]
	if !ok || current != entry || entry.refs > 0 {
		return
	}
	delete(r.brokers, roomID)
	close(entry.broker.done)
	logger.Debug("room broker stopped", "room_id", roomID)
}

// Peek returns the room's broker if one is live, without creating it or
// taking a reference. REST mutations use it to notify connected sessions.
func (r *Registry) Peek(roomID string) *Broker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry, ok := r.brokers[roomID]; ok {
		return entry.broker
	}
	return nil
}

// ActiveRooms returns the number of rooms with a live broker.
func (r *Registry) ActiveRooms() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.brokers)
}
