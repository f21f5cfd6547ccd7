package gift

import (
	"context"
	"testing"

	"guestlist/cmd/internal/errs"
	"guestlist/cmd/internal/guest"
	"guestlist/cmd/internal/storage/pgtest"
)

func TestGiftPostgres_CRUD(t *testing.T) {
	t.Parallel()

	db := pgtest.Open(t, "gift")

	guestStore, err := guest.NewPostgresStore(db.Pool, guest.WithSchema(db.Schema))
	if err != nil {
		t.Fatalf("guest store: %v", err)
	}
	guests, err := guest.NewService(guestStore)
	if err != nil {
		t.Fatalf("guest service: %v", err)
	}
	store, err := NewPostgresStore(db.Pool, WithSchema(db.Schema))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	svc, err := NewService(store, guests)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	ctx := context.Background()
	host := pgtest.NewULID(t)
	event := pgtest.NewULID(t)
	db.InsertUser(t, host, "Host")
	db.InsertEvent(t, event, host)

	g, err := guests.Create(ctx, guest.CreateInput{EventID: event, Name: "Sokha"})
	if err != nil {
		t.Fatalf("create guest: %v", err)
	}

	amount, err := ParseAmount("50000")
	if err != nil {
		t.Fatalf("amount: %v", err)
	}
	created, err := svc.Create(ctx, CreateInput{GuestID: g.ID, PaymentMethod: "cash", Currency: "khr", Amount: amount})
	if err != nil {
		t.Fatalf("create gift: %v", err)
	}
	if created.Amount.String() != "50000.00" || created.EventID != event {
		t.Fatalf("unexpected gift: amount=%s event=%s", created.Amount, created.EventID)
	}

	receipt := "https://cdn.example.com/receipt.png"
	method := "khqr"
	updated, err := svc.Update(ctx, created.ID, Patch{PaymentMethod: &method, ReceiptImage: &receipt})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.PaymentMethod != MethodKHQR || updated.ReceiptImage == nil || updated.Amount.Cents() != amount.Cents() {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	list, err := svc.ListByGuest(ctx, g.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 gift, got %d", len(list))
	}

	if err := guests.Delete(ctx, g.ID); err != nil {
		t.Fatalf("delete guest: %v", err)
	}
	if _, err := svc.Get(ctx, created.ID); !errs.IsNotFound(err) {
		t.Fatalf("expected gift to cascade with guest, got %v", err)
	}
}
