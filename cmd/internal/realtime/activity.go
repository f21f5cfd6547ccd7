// Package realtime pushes guest activity to hosts watching an event over a WebSocket.
//
// The feed is best effort: publishers never block, slow subscribers lose events, and
// nothing is replayed on reconnect. The REST API stays the source of truth.
package realtime

import (
	"encoding/json"
	"time"

	"guestlist/cmd/internal/ids"
)

// Version is the live-feed protocol version carried in every envelope.
const Version = 1

// Activity types.
const (
	TypeHello              = "hello"
	TypeInvitationCreated  = "invitation.created"
	TypeInvitationResponse = "invitation.responded"
	TypeGuestCreated       = "guest.created"
	TypeGuestOpened        = "guest.opened"
	TypeGuestClicked       = "guest.clicked"
	TypeGuestRSVP          = "guest.rsvp"
	TypeGuestRemoved       = "guest.removed"
	TypeTokenRotated       = "guest.token_rotated"
	TypeGiftRecorded       = "gift.recorded"
	TypeGiftRemoved        = "gift.removed"
)

// Activity is one thing that happened on an event. It never carries invite tokens.
type Activity struct {
	Type         string    `json:"-"`
	EventID      string    `json:"event_id"`
	InvitationID string    `json:"invitation_id,omitempty"`
	GuestID      string    `json:"guest_id,omitempty"`
	GiftID       string    `json:"gift_id,omitempty"`
	Status       string    `json:"status,omitempty"`
	At           time.Time `json:"at"`
}

// Envelope is the wire frame sent to subscribers.
type Envelope struct {
	V       int             `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	TS      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload"`
}

func newEnvelope(typ string, payload any, ts time.Time) (Envelope, error) {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	id, err := ids.New(ts)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{V: Version, Type: typ, ID: id, TS: ts, Payload: raw}, nil
}
