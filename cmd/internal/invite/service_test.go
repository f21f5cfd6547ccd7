package invite

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"guestlist/cmd/internal/directory"
	"guestlist/cmd/internal/errs"
	"guestlist/cmd/internal/guest"
	"guestlist/cmd/internal/metrics"
	"guestlist/cmd/internal/realtime"

	"github.com/stretchr/testify/require"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type fixture struct {
	svc   *Service
	store *guest.MemoryStore
	dir   *directory.MemoryStore
	guest guest.Guest
	logs  *syncBuffer
	clock *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	slug := "classic"
	dir := directory.NewMemoryStore()
	dir.PutUser(directory.User{ID: "host", Name: "Host"})
	dir.PutTemplate(directory.Template{
		Slug: slug,
		Name: "Classic",
		Assets: directory.TemplateAssets{
			Images: []string{"https://cdn.example.com/bg.png"},
			Colors: []string{"default_0", "#222222"},
			Fonts:  []string{"Battambang"},
		},
	})
	dir.PutEvent(directory.Event{
		ID:           "e1",
		HostID:       "host",
		Title:        "Wedding",
		TemplateSlug: &slug,
		UserTemplateConfig: directory.AssetSet{
			Colors: map[string]string{"default_0": "#FFFFFF"},
		},
	})

	store := guest.NewMemoryStore()
	guests, err := guest.NewService(store)
	require.NoError(t, err)
	g, err := guests.Create(context.Background(), guest.CreateInput{EventID: "e1", Name: "Sokha"})
	require.NoError(t, err)

	logs := &syncBuffer{}
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	f := &fixture{store: store, dir: dir, guest: g, logs: logs, clock: &now}

	svc, err := NewService(store, dir,
		WithLogger(slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))),
		WithMetrics(metrics.New()),
		WithClock(func() time.Time { return *f.clock }),
	)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestRenderData_MergesOverrides(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	view, err := f.svc.RenderData(context.Background(), f.guest.InviteToken)
	require.NoError(t, err)

	require.Equal(t, "e1", view.Event.ID)
	require.Equal(t, f.guest.ID, view.Guest.ID)
	require.NotNil(t, view.Template)
	require.Equal(t, "classic", view.Template.Slug)
	require.Equal(t, "#FFFFFF", view.Assets.Colors["default_0"])
	require.Equal(t, "#222222", view.Assets.Colors["default_1"])
	require.Equal(t, "https://cdn.example.com/bg.png", view.Assets.Images["default_0"])
	require.Equal(t, "Battambang", view.Assets.Fonts["default_0"])
}

func TestRenderData_MissingTemplateIsNotAnError(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	missing := "gone"
	f.dir.PutEvent(directory.Event{
		ID:                 "e1",
		HostID:             "host",
		TemplateSlug:       &missing,
		UserTemplateConfig: directory.AssetSet{Fonts: map[string]string{"default_0": "Moul"}},
	})

	view, err := f.svc.RenderData(context.Background(), f.guest.InviteToken)
	require.NoError(t, err)
	require.Nil(t, view.Template)
	require.Empty(t, view.Assets.Colors)
	require.Equal(t, "Moul", view.Assets.Fonts["default_0"])
}

func TestRenderData_UnknownAndMalformedTokensLookTheSame(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	_, errMalformed := f.svc.RenderData(ctx, "short")
	_, errUnknown := f.svc.RenderData(ctx, strings.Repeat("A", 43))
	require.True(t, errs.IsNotFound(errMalformed))
	require.True(t, errs.IsNotFound(errUnknown))
	require.Equal(t, errMalformed.Error(), errUnknown.Error())
}

func TestTrackOpen_FirstValueWins(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	first := *f.clock

	f.svc.TrackOpen(ctx, f.guest.InviteToken)
	*f.clock = first.Add(time.Hour)
	f.svc.TrackOpen(ctx, f.guest.InviteToken)
	f.svc.TrackOpen(ctx, "not-a-token")

	g, err := f.store.Get(ctx, f.guest.ID)
	require.NoError(t, err)
	require.NotNil(t, g.OpenedAt)
	require.True(t, g.OpenedAt.Equal(first))
	require.Nil(t, g.ClickedAt)

	f.svc.TrackClick(ctx, f.guest.InviteToken)
	g, err = f.store.Get(ctx, f.guest.ID)
	require.NoError(t, err)
	require.NotNil(t, g.ClickedAt)

	require.NotContains(t, f.logs.String(), f.guest.InviteToken)
	require.Contains(t, f.logs.String(), "token_fp")
}

type failingStore struct {
	guest.Store
}

func (failingStore) MarkOpened(context.Context, string, time.Time) (bool, error) {
	return false, errors.New("db down")
}

func TestTrack_StoreFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	logs := &syncBuffer{}
	svc, err := NewService(failingStore{Store: f.store}, f.dir, WithLogger(slog.New(slog.NewJSONHandler(logs, nil))))
	require.NoError(t, err)

	svc.TrackOpen(context.Background(), f.guest.InviteToken)
	require.Contains(t, logs.String(), "invite.track.fail")
	require.NotContains(t, logs.String(), f.guest.InviteToken)
}

func TestSubmitRSVP_LastWins(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	msg := "sorry"
	g, err := f.svc.SubmitRSVP(ctx, RSVPInput{Token: f.guest.InviteToken, Status: "declined", Message: &msg})
	require.NoError(t, err)
	require.Equal(t, guest.StatusDeclined, g.Status)

	g, err = f.svc.SubmitRSVP(ctx, RSVPInput{Token: f.guest.InviteToken, Status: "confirmed"})
	require.NoError(t, err)
	require.Equal(t, guest.StatusConfirmed, g.Status)
	require.Equal(t, "sorry", *g.Notes)

	_, err = f.svc.SubmitRSVP(ctx, RSVPInput{Token: f.guest.InviteToken, Status: "maybe"})
	require.True(t, errs.IsInvalidInput(err))

	_, err = f.svc.SubmitRSVP(ctx, RSVPInput{Token: strings.Repeat("B", 43), Status: "confirmed"})
	require.True(t, errs.IsNotFound(err))

	require.NotContains(t, f.logs.String(), f.guest.InviteToken)
}

func TestRegenerateToken(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RegenerateToken(ctx, f.guest.ID, "someone-else")
	require.True(t, errs.IsForbidden(err))

	_, err = f.svc.RegenerateToken(ctx, "missing", "host")
	require.True(t, errs.IsNotFound(err))

	fresh, err := f.svc.RegenerateToken(ctx, f.guest.ID, "host")
	require.NoError(t, err)
	require.NotEqual(t, f.guest.InviteToken, fresh)

	_, err = f.svc.RenderData(ctx, f.guest.InviteToken)
	require.True(t, errs.IsNotFound(err), "old token must stop resolving")

	view, err := f.svc.RenderData(ctx, fresh)
	require.NoError(t, err)
	require.Equal(t, f.guest.ID, view.Guest.ID)

	require.NotContains(t, f.logs.String(), fresh)
}

func TestNewService_RequiresCollaborators(t *testing.T) {
	t.Parallel()

	_, err := NewService(nil, directory.NewMemoryStore())
	require.ErrorIs(t, err, errs.ErrInvalidInput)
	_, err = NewService(guest.NewMemoryStore(), nil)
	require.ErrorIs(t, err, errs.ErrInvalidInput)
	_, err = NewService(guest.NewMemoryStore(), directory.NewMemoryStore(), WithLogger(nil))
	require.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestLiveFeed_PublishesGuestActivity(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	hub := realtime.NewHub(slog.New(slog.NewJSONHandler(f.logs, nil)))
	sub := realtime.NewClient("host", "s1", 16)
	hub.Subscribe("e1", sub)

	svc, err := NewService(f.store, f.dir, WithLiveFeed(hub), WithClock(func() time.Time { return *f.clock }))
	require.NoError(t, err)

	svc.TrackOpen(ctx, f.guest.InviteToken)
	svc.TrackOpen(ctx, f.guest.InviteToken)
	_, err = svc.SubmitRSVP(ctx, RSVPInput{Token: f.guest.InviteToken, Status: "confirmed"})
	require.NoError(t, err)
	_, err = svc.RegenerateToken(ctx, f.guest.ID, "host")
	require.NoError(t, err)

	var types []string
	for len(sub.Send) > 0 {
		env := <-sub.Send
		types = append(types, env.Type)
		require.NotContains(t, string(env.Payload), "invite_token")
	}
	require.Equal(t, []string{realtime.TypeGuestOpened, realtime.TypeGuestRSVP, realtime.TypeTokenRotated}, types)
}
