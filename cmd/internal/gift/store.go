package gift

import (
	"context"
	"time"
)

// CreateRecord is a normalized gift insert payload.
type CreateRecord struct {
	ID            string
	GuestID       string
	EventID       string
	PaymentMethod PaymentMethod
	Currency      Currency
	Amount        Amount
	Note          *string
	ReceiptImage  *string
	CreatedAt     time.Time
}

// UpdateRecord carries validated patch values; nil fields are unchanged.
type UpdateRecord struct {
	ID            string
	PaymentMethod *PaymentMethod
	Currency      *Currency
	Amount        *Amount
	Note          *string
	ReceiptImage  *string
	Now           time.Time
}

// Store is the persistence boundary for gifts. Listings are newest first.
type Store interface {
	Create(ctx context.Context, in CreateRecord) (Gift, error)
	Get(ctx context.Context, id string) (Gift, error)
	Update(ctx context.Context, in UpdateRecord) (Gift, error)
	Delete(ctx context.Context, id string) (Gift, error)
	DeleteByGuest(ctx context.Context, guestID string) (int, error)
	ListByGuest(ctx context.Context, guestID string) ([]Gift, error)
	ListByEvent(ctx context.Context, eventID string) ([]Gift, error)
	CountByGuest(ctx context.Context, guestID string) (int, error)
}
