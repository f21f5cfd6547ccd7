package realtime

import (
	"log/slog"
	"strings"
	"sync"
)

// Hub routes activities to the subscribers of each event. The zero of *Hub (nil) is a
// valid no-op publisher.
type Hub struct {
	log *slog.Logger

	mu    sync.Mutex
	feeds map[string]*feed
}

// NewHub constructs a Hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:   log,
		feeds: make(map[string]*feed),
	}
}

// Subscribe attaches c to eventID's feed.
func (h *Hub) Subscribe(eventID string, c *Client) {
	if h == nil || c == nil || c.SessionID == "" {
		return
	}
	h.mu.Lock()
	f, ok := h.feeds[eventID]
	if !ok {
		f = newFeed(h.log, eventID)
		h.feeds[eventID] = f
	}
	f.subscribe(c)
	h.mu.Unlock()
}

// Unsubscribe detaches a session and drops the feed once it is empty.
func (h *Hub) Unsubscribe(eventID, sessionID string) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	f, ok := h.feeds[eventID]
	if !ok {
		return
	}
	if f.unsubscribe(sessionID) == 0 {
		delete(h.feeds, eventID)
	}
}

// Publish fans a out to the event's subscribers. It never blocks.
func (h *Hub) Publish(a Activity) {
	if h == nil || strings.TrimSpace(a.EventID) == "" || a.Type == "" {
		return
	}

	h.mu.Lock()
	f := h.feeds[a.EventID]
	h.mu.Unlock()
	if f == nil {
		return
	}

	env, err := newEnvelope(a.Type, a, a.At)
	if err != nil {
		h.log.Error("live.publish.fail", "event_id", a.EventID, "type", a.Type, "err", err)
		return
	}
	if dropped := f.broadcast(env); dropped > 0 {
		h.log.Warn("live.publish.dropped", "event_id", a.EventID, "type", a.Type, "dropped", dropped)
	}
}

// Subscribers reports the number of live subscribers for eventID.
func (h *Hub) Subscribers(eventID string) int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	f := h.feeds[eventID]
	h.mu.Unlock()
	if f == nil {
		return 0
	}
	return f.size()
}

// Close detaches every subscriber, which makes their connections close. Publish after
// Close is a no-op until someone subscribes again.
func (h *Hub) Close() {
	if h == nil {
		return
	}
	h.mu.Lock()
	feeds := h.feeds
	h.feeds = make(map[string]*feed)
	h.mu.Unlock()

	for _, f := range feeds {
		f.mu.Lock()
		members := f.members
		f.members = make(map[string]*Client)
		f.mu.Unlock()
		for _, c := range members {
			c.Close()
		}
	}
	h.log.Info("live.closed", "feeds", len(feeds))
}
