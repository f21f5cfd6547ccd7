package realtime

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHubPublishFansOutPerEvent(t *testing.T) {
	h := NewHub(testLogger())

	a := NewClient("u1", "s1", 4)
	b := NewClient("u2", "s2", 4)
	other := NewClient("u3", "s3", 4)
	h.Subscribe("ev1", a)
	h.Subscribe("ev1", b)
	h.Subscribe("ev2", other)

	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	h.Publish(Activity{Type: TypeGuestRSVP, EventID: "ev1", GuestID: "g1", Status: "attending", At: at})

	for _, c := range []*Client{a, b} {
		select {
		case env := <-c.Send:
			require.Equal(t, Version, env.V)
			require.Equal(t, TypeGuestRSVP, env.Type)
			require.NotEmpty(t, env.ID)
			require.True(t, env.TS.Equal(at))

			var got map[string]any
			require.NoError(t, json.Unmarshal(env.Payload, &got))
			require.Equal(t, "ev1", got["event_id"])
			require.Equal(t, "g1", got["guest_id"])
			require.Equal(t, "attending", got["status"])
			require.NotContains(t, got, "type")
		default:
			t.Fatalf("client %s got nothing", c.SessionID)
		}
	}

	select {
	case env := <-other.Send:
		t.Fatalf("other event received %q", env.Type)
	default:
	}
}

func TestHubPublishDropsWhenQueueFull(t *testing.T) {
	h := NewHub(testLogger())
	c := NewClient("u1", "s1", 1)
	h.Subscribe("ev1", c)

	h.Publish(Activity{Type: TypeGuestOpened, EventID: "ev1", GuestID: "g1"})
	h.Publish(Activity{Type: TypeGuestClicked, EventID: "ev1", GuestID: "g1"})

	require.Len(t, c.Send, 1)
	env := <-c.Send
	require.Equal(t, TypeGuestOpened, env.Type)
}

func TestHubUnsubscribeClosesClientAndDropsEmptyFeed(t *testing.T) {
	h := NewHub(testLogger())
	a := NewClient("u1", "s1", 4)
	b := NewClient("u1", "s2", 4)
	h.Subscribe("ev1", a)
	h.Subscribe("ev1", b)
	require.Equal(t, 2, h.Subscribers("ev1"))

	h.Unsubscribe("ev1", "s1")
	require.Equal(t, 1, h.Subscribers("ev1"))
	select {
	case <-a.Done():
	default:
		t.Fatal("unsubscribed client not closed")
	}

	h.Unsubscribe("ev1", "s2")
	require.Equal(t, 0, h.Subscribers("ev1"))

	h.mu.Lock()
	_, ok := h.feeds["ev1"]
	h.mu.Unlock()
	require.False(t, ok)

	// Unknown ids are ignored.
	h.Unsubscribe("ev1", "s2")
	h.Unsubscribe("nope", "s9")
}

func TestHubPublishSkipsClosedClients(t *testing.T) {
	h := NewHub(testLogger())
	c := NewClient("u1", "s1", 4)
	h.Subscribe("ev1", c)
	c.Close()

	h.Publish(Activity{Type: TypeGiftRecorded, EventID: "ev1", GiftID: "gf1"})
	require.Empty(t, c.Send)
}

func TestNilHubIsNoop(t *testing.T) {
	var h *Hub
	h.Publish(Activity{Type: TypeGuestRSVP, EventID: "ev1"})
	h.Subscribe("ev1", NewClient("u", "s", 1))
	h.Unsubscribe("ev1", "s")
	require.Equal(t, 0, h.Subscribers("ev1"))
}

func TestHubPublishIgnoresIncompleteActivity(t *testing.T) {
	h := NewHub(testLogger())
	c := NewClient("u1", "s1", 4)
	h.Subscribe("ev1", c)

	h.Publish(Activity{EventID: "ev1"})
	h.Publish(Activity{Type: TypeGuestRSVP, EventID: "  "})
	require.Empty(t, c.Send)
}

func TestClientCloseIsIdempotent(t *testing.T) {
	c := NewClient("u1", "s1", 0)
	require.Equal(t, defaultSendQueue, cap(c.Send))
	c.Close()
	c.Close()
	<-c.Done()

	var nilClient *Client
	nilClient.Close()
	<-nilClient.Done()
}

func TestRateLimiterTokenBucket(t *testing.T) {
	// Burst of two, one token every 500ms.
	rl := NewRateLimiter(2, time.Second)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.True(t, rl.Allow(base))
	require.True(t, rl.Allow(base.Add(100*time.Millisecond)))
	require.False(t, rl.Allow(base.Add(200*time.Millisecond)))
	require.True(t, rl.Allow(base.Add(1100*time.Millisecond)))
}

func TestHubCloseReleasesEveryone(t *testing.T) {
	h := NewHub(testLogger())
	a := NewClient("u1", "s1", 4)
	b := NewClient("u2", "s2", 4)
	h.Subscribe("ev1", a)
	h.Subscribe("ev2", b)

	h.Close()
	<-a.Done()
	<-b.Done()
	require.Equal(t, 0, h.Subscribers("ev1"))

	h.Publish(Activity{Type: TypeGuestRSVP, EventID: "ev1"})
	require.Empty(t, a.Send)
}
