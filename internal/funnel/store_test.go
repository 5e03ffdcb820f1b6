// internal/funnel/store_test.go
package funnel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnel-orders/internal/common/database"
	apperrors "funnel-orders/internal/common/errors"
	"funnel-orders/internal/models"
)

func newTestStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	return NewSessionStore(client, 30*time.Minute), mr
}

func TestSessionStore_CreateAndGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created, err := store.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.StepPlanSelect, created.Step)

	loaded, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, loaded.ID)
	assert.Equal(t, models.StepPlanSelect, loaded.Step)
}

func TestSessionStore_SaveRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	session, err := store.Create(ctx)
	require.NoError(t, err)

	session.Step = models.StepAddOns
	session.Email = "jane@example.com"
	session.ParentOrderID = "ORD-100"
	session.CustomerID = "C1"
	session.PlanName = "Pro Plan"
	session.TotalSpent = 49.99
	require.NoError(t, store.Save(ctx, session))

	loaded, err := store.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StepAddOns, loaded.Step)
	assert.Equal(t, "ORD-100", loaded.ParentOrderID)
	assert.Equal(t, "C1", loaded.CustomerID)
	assert.Equal(t, 49.99, loaded.TotalSpent)
}

func TestSessionStore_GetMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "no-such-session")
	require.Error(t, err)

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeSessionNotFound, stdErr.Code)
}

func TestSessionStore_TTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	store := NewSessionStore(client, time.Minute)
	ctx := context.Background()

	session, err := store.Create(ctx)
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = store.Get(ctx, session.ID)
	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeSessionNotFound, stdErr.Code)
}

func TestSessionStore_SaveRefreshesTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	store := NewSessionStore(client, time.Minute)
	ctx := context.Background()

	session, err := store.Create(ctx)
	require.NoError(t, err)

	mr.FastForward(45 * time.Second)
	require.NoError(t, store.Save(ctx, session))
	mr.FastForward(45 * time.Second)

	// 90s elapsed total but the save reset the clock.
	_, err = store.Get(ctx, session.ID)
	require.NoError(t, err)
}

func TestSessionStore_Delete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	session, err := store.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, session.ID))

	_, err = store.Get(ctx, session.ID)
	require.Error(t, err)
}

func TestSessionStore_CorruptPayload(t *testing.T) {
	mr := miniredis.RunT(t)
	client := database.NewRedisFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	store := NewSessionStore(client, time.Minute)

	require.NoError(t, mr.Set(sessionKeyPrefix+"bad", "{not json"))

	_, err := store.Get(context.Background(), "bad")
	require.Error(t, err)

	var stdErr *apperrors.StandardError
	require.True(t, errors.As(err, &stdErr))
	assert.Equal(t, apperrors.ErrCodeSessionStoreFailed, stdErr.Code)
}
