package guest

import (
	"context"
	"testing"
	"time"

	"guestlist/cmd/internal/errs"
	"guestlist/cmd/security/token"

	"github.com/stretchr/testify/require"
)

func mustCreate(t *testing.T, svc *Service, in CreateInput) Guest {
	t.Helper()
	g, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	return g
}

func TestMemoryStore_FirstTouchKeepsFirstValue(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc, err := NewService(store)
	require.NoError(t, err)
	g := mustCreate(t, svc, CreateInput{EventID: "e1", Name: "A"})

	ctx := context.Background()
	t1 := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	changed, err := store.MarkOpened(ctx, g.InviteToken, t1)
	require.NoError(t, err)
	require.True(t, changed)

	changed, err = store.MarkOpened(ctx, g.InviteToken, t2)
	require.NoError(t, err)
	require.False(t, changed)

	got, err := store.GetByToken(ctx, g.InviteToken)
	require.NoError(t, err)
	require.NotNil(t, got.OpenedAt)
	require.True(t, got.OpenedAt.Equal(t1))
	require.Nil(t, got.ClickedAt)

	changed, err = store.MarkClicked(ctx, "unknown-token", t2)
	require.NoError(t, err)
	require.False(t, changed)
}

func TestMemoryStore_UpdateRSVP_LastWins(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc, err := NewService(store)
	require.NoError(t, err)
	g := mustCreate(t, svc, CreateInput{EventID: "e1", Name: "A"})

	ctx := context.Background()
	note := "cannot make it"
	got, err := store.UpdateRSVP(ctx, RSVPRecord{Token: g.InviteToken, Status: StatusDeclined, Notes: &note, Now: time.Now().UTC()})
	require.NoError(t, err)
	require.Equal(t, StatusDeclined, got.Status)
	require.Equal(t, note, *got.Notes)

	got, err = store.UpdateRSVP(ctx, RSVPRecord{Token: g.InviteToken, Status: StatusConfirmed, Now: time.Now().UTC()})
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, got.Status)
	require.Equal(t, note, *got.Notes, "absent message keeps notes")

	_, err = store.UpdateRSVP(ctx, RSVPRecord{Token: "missing", Status: StatusConfirmed})
	require.True(t, errs.IsNotFound(err))
}

func TestMemoryStore_RotateToken(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc, err := NewService(store)
	require.NoError(t, err)
	g := mustCreate(t, svc, CreateInput{EventID: "e1", Name: "A"})
	other := mustCreate(t, svc, CreateInput{EventID: "e1", Name: "B"})

	ctx := context.Background()
	fresh, err := token.NewInviteToken()
	require.NoError(t, err)

	rotated, err := store.RotateToken(ctx, g.ID, fresh, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, fresh, rotated.InviteToken)

	_, err = store.GetByToken(ctx, g.InviteToken)
	require.True(t, errs.IsNotFound(err))
	byNew, err := store.GetByToken(ctx, fresh)
	require.NoError(t, err)
	require.Equal(t, g.ID, byNew.ID)

	_, err = store.RotateToken(ctx, g.ID, other.InviteToken, time.Now().UTC())
	require.True(t, errs.IsConflictOn(err, ConflictInviteToken))

	_, err = store.RotateToken(ctx, "missing", fresh, time.Now().UTC())
	require.True(t, errs.IsNotFound(err))
}

func TestMemoryStore_ListDeleteAndGiftFlag(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc, err := NewService(store)
	require.NoError(t, err)

	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	older := mustCreate(t, svc, CreateInput{EventID: "e1", Name: "Old", UserID: strPtr("u1"), Now: base})
	newer := mustCreate(t, svc, CreateInput{EventID: "e1", Name: "New", Now: base.Add(time.Minute)})
	mustCreate(t, svc, CreateInput{EventID: "e2", Name: "Elsewhere", Now: base})

	ctx := context.Background()
	list, err := store.ListByEvent(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, newer.ID, list[0].ID)
	require.Equal(t, older.ID, list[1].ID)

	require.NoError(t, store.SetHasGivenGift(ctx, newer.ID, true, base.Add(time.Hour)))
	got, err := store.Get(ctx, newer.ID)
	require.NoError(t, err)
	require.True(t, got.HasGivenGift)

	require.NoError(t, store.Delete(ctx, older.ID))
	_, err = store.GetByEventUser(ctx, "e1", "u1")
	require.True(t, errs.IsNotFound(err))
	_, err = store.GetByToken(ctx, older.InviteToken)
	require.True(t, errs.IsNotFound(err))
	require.True(t, errs.IsNotFound(store.Delete(ctx, older.ID)))
}
