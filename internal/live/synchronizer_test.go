package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claims-service/internal/model"
	"claims-service/internal/repository"
)

type fakeStore struct {
	mu       sync.Mutex
	fn       func(archived bool) ([]model.ClaimView, error)
	archived []bool
}

func (f *fakeStore) Snapshot(ctx context.Context, archived bool) ([]model.ClaimView, error) {
	f.mu.Lock()
	fn := f.fn
	f.archived = append(f.archived, archived)
	f.mu.Unlock()
	return fn(archived)
}

func (f *fakeStore) set(fn func(archived bool) ([]model.ClaimView, error)) {
	f.mu.Lock()
	f.fn = fn
	f.mu.Unlock()
}

func claimView(name string, createdAt time.Time) model.ClaimView {
	return model.ClaimView{Claim: model.Claim{
		ID:        uuid.New(),
		Name:      name,
		Status:    model.ClaimStatusPending,
		CreatedAt: createdAt,
	}}
}

func waitUpdate(t *testing.T, sync *Synchronizer) Update {
	t.Helper()
	select {
	case update := <-sync.Updates():
		return update
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
		return Update{}
	}
}

func TestLastDeliveredSnapshotWins(t *testing.T) {
	store := &fakeStore{}
	feed := repository.NewClaimFeed()
	snapA := []model.ClaimView{claimView("a", time.Now())}
	snapB := []model.ClaimView{claimView("b1", time.Now()), claimView("b2", time.Now())}
	store.set(func(bool) ([]model.ClaimView, error) { return snapA, nil })

	s := NewSynchronizer(store, feed, FilterActive, time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	first := waitUpdate(t, s)
	require.Len(t, first.Claims, 1)

	store.set(func(bool) ([]model.ClaimView, error) { return snapB, nil })
	feed.Publish()
	second := waitUpdate(t, s)
	require.Len(t, second.Claims, 2)

	// aunque el contenido "más viejo" llegue después, el último entregado gana
	store.set(func(bool) ([]model.ClaimView, error) { return snapA, nil })
	feed.Publish()
	third := waitUpdate(t, s)
	require.Len(t, third.Claims, 1)
	assert.Equal(t, "a", third.Claims[0].Name)
	assert.Len(t, s.Snapshot(), 1)
}

func TestSnapshotOrderingIsDeterministic(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	older := claimView("older", now.Add(-time.Hour))
	tied1 := claimView("tied1", now)
	tied2 := claimView("tied2", now)

	claims := []model.ClaimView{older, tied1, tied2}
	sortSnapshot(claims)

	// created_at descendente; empate resuelto por id descendente
	assert.Equal(t, "older", claims[2].Name)
	first, second := claims[0], claims[1]
	assert.True(t, first.ID.String() > second.ID.String())
}

func TestRefreshRetriesWithLinearBackoff(t *testing.T) {
	store := &fakeStore{}
	failures := 2
	calls := 0
	snap := []model.ClaimView{claimView("a", time.Now())}
	store.set(func(bool) ([]model.ClaimView, error) {
		calls++
		if calls <= failures {
			return nil, errors.New("connection refused")
		}
		return snap, nil
	})

	base := 10 * time.Millisecond
	s := NewSynchronizer(store, repository.NewClaimFeed(), FilterActive, base, zerolog.Nop())
	var slept []time.Duration
	s.sleep = func(d time.Duration) { slept = append(slept, d) }

	require.NoError(t, s.refresh(context.Background()))
	assert.Equal(t, []time.Duration{base, 2 * base}, slept)

	update := waitUpdate(t, s)
	assert.Empty(t, update.Error)
	assert.Len(t, update.Claims, 1)
}

func TestRefreshSurfacesPersistentConnectivityError(t *testing.T) {
	store := &fakeStore{}
	store.set(func(bool) ([]model.ClaimView, error) {
		return nil, errors.New("connection refused")
	})

	base := 5 * time.Millisecond
	s := NewSynchronizer(store, repository.NewClaimFeed(), FilterActive, base, zerolog.Nop())
	var slept []time.Duration
	s.sleep = func(d time.Duration) { slept = append(slept, d) }

	// el error transitorio agotado no mata la suscripción
	require.NoError(t, s.refresh(context.Background()))
	assert.Equal(t, []time.Duration{base, 2 * base, 3 * base}, slept)

	update := waitUpdate(t, s)
	assert.NotEmpty(t, update.Error)
	assert.False(t, update.Fatal)
}

func TestRefreshIndexMissingIsFatal(t *testing.T) {
	store := &fakeStore{}
	store.set(func(bool) ([]model.ClaimView, error) {
		return nil, &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}
	})

	s := NewSynchronizer(store, repository.NewClaimFeed(), FilterActive, time.Millisecond, zerolog.Nop())
	s.sleep = func(time.Duration) {}

	err := s.refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndexMissing)

	update := waitUpdate(t, s)
	assert.True(t, update.Fatal)
	assert.NotEmpty(t, update.Error)
}

func TestSetFilterModeResubscribes(t *testing.T) {
	store := &fakeStore{}
	store.set(func(archived bool) ([]model.ClaimView, error) {
		if archived {
			return []model.ClaimView{claimView("archivado", time.Now())}, nil
		}
		return []model.ClaimView{claimView("activo", time.Now())}, nil
	})
	feed := repository.NewClaimFeed()

	s := NewSynchronizer(store, feed, FilterActive, time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	first := waitUpdate(t, s)
	assert.Equal(t, FilterActive, first.Mode)
	assert.Equal(t, "activo", first.Claims[0].Name)

	s.SetFilterMode(FilterArchived)
	second := waitUpdate(t, s)
	assert.Equal(t, FilterArchived, second.Mode)
	assert.Equal(t, "archivado", second.Claims[0].Name)

	// la suscripción vieja se dio de baja: queda exactamente una
	assert.Equal(t, 1, feed.SubscriberCount())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := &fakeStore{}
	store.set(func(bool) ([]model.ClaimView, error) { return nil, nil })
	feed := repository.NewClaimFeed()

	s := NewSynchronizer(store, feed, FilterActive, time.Millisecond, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	waitUpdate(t, s)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
	assert.Equal(t, 0, feed.SubscriberCount())
}

func TestIsIndexMissing(t *testing.T) {
	assert.True(t, IsIndexMissing(ErrIndexMissing))
	assert.True(t, IsIndexMissing(&pgconn.PgError{Code: "42P01"}))
	assert.True(t, IsIndexMissing(&pgconn.PgError{Code: "42703"}))
	assert.False(t, IsIndexMissing(&pgconn.PgError{Code: "08006"}))
	assert.False(t, IsIndexMissing(errors.New("connection refused")))
	assert.False(t, IsIndexMissing(nil))
}
