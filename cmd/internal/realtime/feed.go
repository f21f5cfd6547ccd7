package realtime

import (
	"log/slog"
	"sync"
)

// feed is the subscriber set of one event.
//
// subscribe/unsubscribe are safe under concurrent broadcast, and broadcast never blocks:
// a full or closing subscriber queue drops the envelope.
type feed struct {
	log     *slog.Logger
	eventID string

	mu      sync.RWMutex
	members map[string]*Client
}

func newFeed(log *slog.Logger, eventID string) *feed {
	return &feed{
		log:     log,
		eventID: eventID,
		members: make(map[string]*Client),
	}
}

func (f *feed) subscribe(c *Client) {
	f.mu.Lock()
	f.members[c.SessionID] = c
	f.mu.Unlock()

	f.log.Info("live.subscribe", "event_id", f.eventID, "session_id", c.SessionID, "user_id", c.UserID)
}

// unsubscribe removes the session and reports how many subscribers remain.
func (f *feed) unsubscribe(sessionID string) int {
	f.mu.Lock()
	cl := f.members[sessionID]
	delete(f.members, sessionID)
	left := len(f.members)
	f.mu.Unlock()

	// Close after removal so no broadcaster still holds the client.
	if cl != nil {
		cl.Close()
		f.log.Info("live.unsubscribe", "event_id", f.eventID, "session_id", sessionID)
	}
	return left
}

// broadcast reports how many subscribers the envelope was dropped for.
func (f *feed) broadcast(env Envelope) (dropped int) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, m := range f.members {
		select {
		case <-m.Done():
			continue
		default:
		}

		select {
		case m.Send <- env:
		default:
			dropped++
		}
	}
	return dropped
}

func (f *feed) size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.members)
}
