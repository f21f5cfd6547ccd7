package gift

import (
	"context"
	"testing"
	"time"

	"guestlist/cmd/internal/errs"
	"guestlist/cmd/internal/guest"

	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newTestService(t *testing.T) (*Service, guest.Guest) {
	t.Helper()

	guests, err := guest.NewService(guest.NewMemoryStore())
	require.NoError(t, err)
	g, err := guests.Create(context.Background(), guest.CreateInput{EventID: "e1", Name: "Sokha"})
	require.NoError(t, err)

	svc, err := NewService(NewMemoryStore(), guests)
	require.NoError(t, err)
	return svc, g
}

func mustAmount(t *testing.T, s string) Amount {
	t.Helper()
	a, err := ParseAmount(s)
	require.NoError(t, err)
	return a
}

func TestCreate_RejectsNonPositiveAmount(t *testing.T) {
	t.Parallel()

	svc, g := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{GuestID: g.ID, PaymentMethod: "cash", Currency: "khr", Amount: mustAmount(t, "-5")})
	require.True(t, errs.IsInvalidInput(err), "got %v", err)

	_, err = svc.Create(ctx, CreateInput{GuestID: g.ID, PaymentMethod: "cash", Currency: "khr"})
	require.True(t, errs.IsInvalidInput(err), "zero amount, got %v", err)

	list, err := svc.ListByGuest(ctx, g.ID)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestCreate_RecordsAndLists(t *testing.T) {
	t.Parallel()

	svc, g := newTestService(t)
	ctx := context.Background()

	gift, err := svc.Create(ctx, CreateInput{
		GuestID:       g.ID,
		PaymentMethod: "CASH",
		Currency:      "khr",
		Amount:        mustAmount(t, "50000"),
		Note:          strPtr(" congratulations "),
	})
	require.NoError(t, err)
	require.Equal(t, g.EventID, gift.EventID)
	require.Equal(t, MethodCash, gift.PaymentMethod)
	require.Equal(t, CurrencyKHR, gift.Currency)
	require.Equal(t, "50000.00", gift.Amount.String())
	require.Equal(t, "congratulations", *gift.Note)

	byGuest, err := svc.ListByGuest(ctx, g.ID)
	require.NoError(t, err)
	require.Len(t, byGuest, 1)
	require.Equal(t, gift.ID, byGuest[0].ID)

	byEvent, err := svc.ListByEvent(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, byEvent, 1)

	n, err := svc.CountByGuest(ctx, g.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestCreate_Validation(t *testing.T) {
	t.Parallel()

	svc, g := newTestService(t)
	ctx := context.Background()
	ok := mustAmount(t, "10")

	cases := []struct {
		name  string
		in    CreateInput
		check func(error) bool
	}{
		{name: "method", in: CreateInput{GuestID: g.ID, PaymentMethod: "card", Currency: "usd", Amount: ok}, check: errs.IsInvalidInput},
		{name: "currency", in: CreateInput{GuestID: g.ID, PaymentMethod: "khqr", Currency: "eur", Amount: ok}, check: errs.IsInvalidInput},
		{name: "relative receipt", in: CreateInput{GuestID: g.ID, PaymentMethod: "khqr", Currency: "usd", Amount: ok, ReceiptImage: strPtr("/uploads/r.png")}, check: errs.IsInvalidInput},
		{name: "ftp receipt", in: CreateInput{GuestID: g.ID, PaymentMethod: "khqr", Currency: "usd", Amount: ok, ReceiptImage: strPtr("ftp://cdn.example.com/r.png")}, check: errs.IsInvalidInput},
		{name: "event mismatch", in: CreateInput{GuestID: g.ID, EventID: "e2", PaymentMethod: "cash", Currency: "usd", Amount: ok}, check: errs.IsInvalidInput},
		{name: "unknown guest", in: CreateInput{GuestID: "nope", PaymentMethod: "cash", Currency: "usd", Amount: ok}, check: errs.IsNotFound},
	}
	for _, tc := range cases {
		_, err := svc.Create(ctx, tc.in)
		require.True(t, tc.check(err), "%s: got %v", tc.name, err)
	}

	gift, err := svc.Create(ctx, CreateInput{GuestID: g.ID, PaymentMethod: "khqr", Currency: "usd", Amount: ok, ReceiptImage: strPtr("https://cdn.example.com/r.png")})
	require.NoError(t, err)
	require.Equal(t, "https://cdn.example.com/r.png", *gift.ReceiptImage)
}

func TestUpdate_OnlyProvidedFields(t *testing.T) {
	t.Parallel()

	svc, g := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{GuestID: g.ID, PaymentMethod: "cash", Currency: "usd", Amount: mustAmount(t, "20"), Note: strPtr("hi")})
	require.NoError(t, err)

	later := created.CreatedAt.Add(time.Minute)
	amt := mustAmount(t, "25.5")
	updated, err := svc.Update(ctx, created.ID, Patch{Amount: &amt, Now: later})
	require.NoError(t, err)
	require.Equal(t, "25.50", updated.Amount.String())
	require.Equal(t, MethodCash, updated.PaymentMethod)
	require.Equal(t, "hi", *updated.Note)
	require.True(t, updated.UpdatedAt.Equal(later))

	updated, err = svc.Update(ctx, created.ID, Patch{Note: strPtr("  ")})
	require.NoError(t, err)
	require.Nil(t, updated.Note, "blank note clears it")

	neg := mustAmount(t, "-1")
	_, err = svc.Update(ctx, created.ID, Patch{Amount: &neg})
	require.True(t, errs.IsInvalidInput(err))

	_, err = svc.Update(ctx, created.ID, Patch{Currency: strPtr("eur")})
	require.True(t, errs.IsInvalidInput(err))

	_, err = svc.Update(ctx, "missing", Patch{Currency: strPtr("usd")})
	require.True(t, errs.IsNotFound(err))
}

func TestRemove_ReturnsGift(t *testing.T) {
	t.Parallel()

	svc, g := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateInput{GuestID: g.ID, PaymentMethod: "cash", Currency: "usd", Amount: mustAmount(t, "1")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{GuestID: g.ID, PaymentMethod: "cash", Currency: "usd", Amount: mustAmount(t, "2")})
	require.NoError(t, err)

	removed, err := svc.Remove(ctx, a.ID)
	require.NoError(t, err)
	require.Equal(t, g.ID, removed.GuestID)

	n, err := svc.CountByGuest(ctx, g.ID)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	_, err = svc.Remove(ctx, a.ID)
	require.True(t, errs.IsNotFound(err))

	deleted, err := svc.RemoveByGuest(ctx, g.ID)
	require.NoError(t, err)
	require.Equal(t, 1, deleted)
}
