package invitation

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"guestlist/cmd/internal/directory"
	"guestlist/cmd/internal/errs"
	"guestlist/cmd/internal/guest"

	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc    *Service
	store  *MemoryStore
	dir    *directory.MemoryStore
	guests *guest.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	dir := directory.NewMemoryStore()
	dir.PutUser(directory.User{ID: "host", Name: "Host"})
	dir.PutUser(directory.User{ID: "u1", Name: "Sokha"})
	dir.PutUser(directory.User{ID: "u2", Name: "Dara"})
	dir.PutEvent(directory.Event{ID: "e1", HostID: "host", Title: "Wedding"})

	guests, err := guest.NewService(guest.NewMemoryStore())
	require.NoError(t, err)

	store := NewMemoryStore()
	svc, err := NewService(store, dir, guests)
	require.NoError(t, err)
	return fixture{svc: svc, store: store, dir: dir, guests: guests}
}

func TestCreate_DuplicateIsConflict(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	msg := "  please let me in  "
	inv, err := f.svc.Create(ctx, CreateInput{EventID: "e1", UserID: "u1", Message: &msg})
	require.NoError(t, err)
	require.Equal(t, StatusPending, inv.Status)
	require.Nil(t, inv.RespondedAt)
	require.Equal(t, "please let me in", *inv.Message)

	_, err = f.svc.Create(ctx, CreateInput{EventID: "e1", UserID: "u1"})
	require.True(t, errs.IsConflictOn(err, ConflictEventUser), "got %v", err)
}

func TestCreate_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	blank := "   "
	inv, err := f.svc.Create(ctx, CreateInput{EventID: "e1", UserID: "u2", Message: &blank})
	require.NoError(t, err)
	require.Nil(t, inv.Message)

	long := strings.Repeat("x", maxMessageLen+1)
	_, err = f.svc.Create(ctx, CreateInput{EventID: "e1", UserID: "host", Message: &long})
	require.True(t, errs.IsInvalidInput(err), "got %v", err)

	_, err = f.svc.Create(ctx, CreateInput{EventID: "missing", UserID: "u1"})
	require.True(t, errs.IsNotFound(err), "got %v", err)

	_, err = f.svc.Create(ctx, CreateInput{EventID: "e1", UserID: "ghost"})
	require.True(t, errs.IsNotFound(err), "got %v", err)

	_, err = f.svc.Create(ctx, CreateInput{EventID: "", UserID: "u1"})
	require.True(t, errs.IsInvalidInput(err), "got %v", err)
}

func TestUpdateStatus_ApproveMaterializesGuest(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.Create(ctx, CreateInput{EventID: "e1", UserID: "u1"})
	require.NoError(t, err)

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	approved, err := f.svc.UpdateStatus(ctx, UpdateStatusInput{InvitationID: inv.ID, Status: StatusApproved, ActorID: "host", Now: now})
	require.NoError(t, err)
	require.Equal(t, StatusApproved, approved.Status)
	require.NotNil(t, approved.RespondedAt)
	require.True(t, approved.RespondedAt.Equal(now))

	g, err := f.guests.GetByEventUser(ctx, "e1", "u1")
	require.NoError(t, err)
	require.Equal(t, guest.StatusConfirmed, g.Status)
	require.Equal(t, "Sokha", g.Name)

	_, err = f.svc.UpdateStatus(ctx, UpdateStatusInput{InvitationID: inv.ID, Status: StatusDeclined, ActorID: "host"})
	require.True(t, errs.IsInvalidInput(err), "second response must be rejected, got %v", err)
}

func TestUpdateStatus_ExistingGuestIsNotDuplicated(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	u1 := "u1"
	existing, err := f.guests.Create(ctx, guest.CreateInput{EventID: "e1", UserID: &u1, Name: "Manual entry"})
	require.NoError(t, err)

	inv, err := f.svc.Create(ctx, CreateInput{EventID: "e1", UserID: "u1"})
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(ctx, UpdateStatusInput{InvitationID: inv.ID, Status: StatusApproved, ActorID: "host"})
	require.NoError(t, err)

	list, err := f.guests.ListByEvent(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, existing.ID, list[0].ID)
}

func TestUpdateStatus_Authorization(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.Create(ctx, CreateInput{EventID: "e1", UserID: "u1"})
	require.NoError(t, err)

	cases := []struct {
		name  string
		in    UpdateStatusInput
		check func(error) bool
	}{
		{name: "non host", in: UpdateStatusInput{InvitationID: inv.ID, Status: StatusApproved, ActorID: "u2"}, check: errs.IsForbidden},
		{name: "requester", in: UpdateStatusInput{InvitationID: inv.ID, Status: StatusApproved, ActorID: "u1"}, check: errs.IsForbidden},
		{name: "missing", in: UpdateStatusInput{InvitationID: "nope", Status: StatusApproved, ActorID: "host"}, check: errs.IsNotFound},
		{name: "pending target", in: UpdateStatusInput{InvitationID: inv.ID, Status: StatusPending, ActorID: "host"}, check: errs.IsInvalidInput},
		{name: "unknown target", in: UpdateStatusInput{InvitationID: inv.ID, Status: "maybe", ActorID: "host"}, check: errs.IsInvalidInput},
	}
	for _, tc := range cases {
		_, err := f.svc.UpdateStatus(ctx, tc.in)
		require.True(t, tc.check(err), "%s: got %v", tc.name, err)
	}

	got, err := f.svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, got.Status)
}

func TestUpdateStatus_DeclineCreatesNoGuest(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.Create(ctx, CreateInput{EventID: "e1", UserID: "u1"})
	require.NoError(t, err)
	declined, err := f.svc.UpdateStatus(ctx, UpdateStatusInput{InvitationID: inv.ID, Status: StatusDeclined, ActorID: "host"})
	require.NoError(t, err)
	require.Equal(t, StatusDeclined, declined.Status)

	_, err = f.guests.GetByEventUser(ctx, "e1", "u1")
	require.True(t, errs.IsNotFound(err))

	_, err = f.svc.Materialize(ctx, inv.ID, "host")
	require.True(t, errs.IsInvalidInput(err), "got %v", err)
}

type flakyGuests struct {
	mu    sync.Mutex
	fail  error
	inner *guest.Service
}

func (g *flakyGuests) Create(ctx context.Context, in guest.CreateInput) (guest.Guest, error) {
	g.mu.Lock()
	fail := g.fail
	g.mu.Unlock()
	if fail != nil {
		return guest.Guest{}, fail
	}
	return g.inner.Create(ctx, in)
}

func (g *flakyGuests) GetByEventUser(ctx context.Context, eventID, userID string) (guest.Guest, error) {
	return g.inner.GetByEventUser(ctx, eventID, userID)
}

func TestUpdateStatus_MaterializeFailureKeepsApproval(t *testing.T) {
	t.Parallel()

	dir := directory.NewMemoryStore()
	dir.PutUser(directory.User{ID: "host", Name: "Host"})
	dir.PutUser(directory.User{ID: "u1", Name: "Sokha"})
	dir.PutEvent(directory.Event{ID: "e1", HostID: "host"})

	inner, err := guest.NewService(guest.NewMemoryStore())
	require.NoError(t, err)
	boom := errors.New("guest store unavailable")
	guests := &flakyGuests{fail: boom, inner: inner}

	svc, err := NewService(NewMemoryStore(), dir, guests)
	require.NoError(t, err)
	ctx := context.Background()

	inv, err := svc.Create(ctx, CreateInput{EventID: "e1", UserID: "u1"})
	require.NoError(t, err)

	approved, err := svc.UpdateStatus(ctx, UpdateStatusInput{InvitationID: inv.ID, Status: StatusApproved, ActorID: "host"})
	require.Error(t, err)
	require.True(t, IsMaterializeError(err))
	require.ErrorIs(t, err, boom)
	require.Equal(t, StatusApproved, approved.Status)

	stored, err := svc.Get(ctx, inv.ID)
	require.NoError(t, err)
	require.Equal(t, StatusApproved, stored.Status, "approval is not rolled back")

	guests.mu.Lock()
	guests.fail = nil
	guests.mu.Unlock()

	_, err = svc.Materialize(ctx, inv.ID, "u1")
	require.True(t, errs.IsForbidden(err))

	g1, err := svc.Materialize(ctx, inv.ID, "host")
	require.NoError(t, err)
	g2, err := svc.Materialize(ctx, inv.ID, "host")
	require.NoError(t, err)
	require.Equal(t, g1.ID, g2.ID)
}

func TestRemove_Permissions(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, CreateInput{EventID: "e1", UserID: "u1"})
	require.NoError(t, err)
	b, err := f.svc.Create(ctx, CreateInput{EventID: "e1", UserID: "u2"})
	require.NoError(t, err)

	require.True(t, errs.IsForbidden(f.svc.Remove(ctx, a.ID, "u2")))
	require.NoError(t, f.svc.Remove(ctx, a.ID, "u1"))
	require.NoError(t, f.svc.Remove(ctx, b.ID, "host"))
	require.True(t, errs.IsNotFound(f.svc.Remove(ctx, a.ID, "u1")))

	// A removed request can be submitted again.
	_, err = f.svc.Create(ctx, CreateInput{EventID: "e1", UserID: "u1"})
	require.NoError(t, err)
}

func TestList_FilterAndPaging(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	f.dir.PutEvent(directory.Event{ID: "e2", HostID: "host"})

	base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	var created []Invitation
	for i, pair := range [][2]string{{"e1", "u1"}, {"e1", "u2"}, {"e2", "u1"}} {
		inv, err := f.svc.Create(ctx, CreateInput{EventID: pair[0], UserID: pair[1], Now: base.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
		created = append(created, inv)
	}
	_, err := f.svc.UpdateStatus(ctx, UpdateStatusInput{InvitationID: created[0].ID, Status: StatusDeclined, ActorID: "host"})
	require.NoError(t, err)

	res, err := f.svc.List(ctx, Filter{EventID: "e1"}, Page{})
	require.NoError(t, err)
	require.Equal(t, 2, res.Total)
	require.Equal(t, 1, res.Page)
	require.Equal(t, defaultPageSize, res.PageSize)
	require.Equal(t, created[1].ID, res.Items[0].ID, "newest first")

	res, err = f.svc.List(ctx, Filter{UserID: "u1"}, Page{Number: 2, Size: 1})
	require.NoError(t, err)
	require.Equal(t, 2, res.Total)
	require.Len(t, res.Items, 1)
	require.Equal(t, created[0].ID, res.Items[0].ID)

	res, err = f.svc.List(ctx, Filter{Status: StatusDeclined}, Page{Size: 500})
	require.NoError(t, err)
	require.Equal(t, maxPageSize, res.PageSize)
	require.Len(t, res.Items, 1)

	res, err = f.svc.List(ctx, Filter{EventID: "e1"}, Page{Number: 9})
	require.NoError(t, err)
	require.Empty(t, res.Items)
	require.Equal(t, 2, res.Total)

	_, err = f.svc.List(ctx, Filter{Status: "bogus"}, Page{})
	require.True(t, errs.IsInvalidInput(err))

	// Offsets past maxPage would overflow.
	_, err = f.svc.List(ctx, Filter{}, Page{Number: math.MaxInt, Size: 20})
	require.True(t, errs.IsInvalidInput(err))

	items, total, err := f.store.List(ctx, Filter{EventID: "e1"}, 20, -40)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, items, 2)
}

func TestConcurrentResponses_OnlyOneWins(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	inv, err := f.svc.Create(ctx, CreateInput{EventID: "e1", UserID: "u1"})
	require.NoError(t, err)

	const n = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			to := StatusApproved
			if i%2 == 1 {
				to = StatusDeclined
			}
			if _, err := f.svc.UpdateStatus(ctx, UpdateStatusInput{InvitationID: inv.ID, Status: to, ActorID: "host"}); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, 1, success)
}
