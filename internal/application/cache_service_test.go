package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/televault/televault/internal/domain"
)

func newTestCache(store domain.CacheStore) (*CacheService, *time.Time) {
	now := time.Unix(1_700_000_000, 0)
	svc := NewCacheService(store, &staticProvider{cfg: testConfig()}, nopLogger{}, func() time.Time { return now })
	return svc, &now
}

func TestCacheServiceFreshnessMonotonicity(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc, now := newTestCache(store)

	svc.Put(ctx, domain.CategoryMedia, "movie_1", []byte(`{"title":"x"}`))

	// Fresh inside the staleness window.
	result := svc.Get(ctx, domain.CategoryMedia, "movie_1")
	assert.Equal(t, domain.Fresh, result.Freshness)
	assert.Equal(t, []byte(`{"title":"x"}`), result.Payload)

	// Stale after the window, payload still served.
	*now = now.Add(61 * time.Minute)
	result = svc.Get(ctx, domain.CategoryMedia, "movie_1")
	assert.Equal(t, domain.Stale, result.Freshness)
	assert.Equal(t, []byte(`{"title":"x"}`), result.Payload)

	// Absent after hard expiry; never back to fresh or stale.
	*now = now.Add(24 * time.Hour)
	result = svc.Get(ctx, domain.CategoryMedia, "movie_1")
	assert.Equal(t, domain.Absent, result.Freshness)
	assert.Nil(t, result.Payload)
}

func TestCacheServiceExpiryEvictsAndStaysAbsent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc, now := newTestCache(store)

	svc.Put(ctx, domain.CategoryResponse, "trending_movies_p1", []byte(`[]`))
	*now = now.Add(5 * time.Hour)

	first := svc.Get(ctx, domain.CategoryResponse, "trending_movies_p1")
	assert.Equal(t, domain.Absent, first.Freshness)

	// The expired row was evicted; a second read behaves identically.
	_, err := store.Get(ctx, domain.CategoryResponse, "trending_movies_p1")
	require.ErrorIs(t, err, domain.ErrCacheMiss)
	second := svc.Get(ctx, domain.CategoryResponse, "trending_movies_p1")
	assert.Equal(t, domain.Absent, second.Freshness)
}

func TestCacheServiceResponseCategoryHasNoStaleSplit(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc, now := newTestCache(store)

	svc.Put(ctx, domain.CategoryResponse, "trending_shows_p1", []byte(`[]`))

	// Fresh right up to expiry: all-or-nothing.
	*now = now.Add(3*time.Hour + 59*time.Minute)
	result := svc.Get(ctx, domain.CategoryResponse, "trending_shows_p1")
	assert.Equal(t, domain.Fresh, result.Freshness)
}

func TestCacheServiceUserDataNeverHardExpires(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc, now := newTestCache(store)

	svc.Put(ctx, domain.CategoryUserData, "watchlist_movies_alice", []byte(`[]`))

	*now = now.Add(365 * 24 * time.Hour)
	result := svc.Get(ctx, domain.CategoryUserData, "watchlist_movies_alice")
	assert.Equal(t, domain.Stale, result.Freshness)
	assert.Equal(t, []byte(`[]`), result.Payload)
}

func TestCacheServiceStorageErrorDegradesToMiss(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	store.getErr = errors.New("disk on fire")
	svc, _ := newTestCache(store)

	result := svc.Get(ctx, domain.CategoryMedia, "movie_1")
	assert.Equal(t, domain.Absent, result.Freshness)
}

func TestCacheServicePutStampsWindows(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc, now := newTestCache(store)
	nowMs := now.UnixMilli()

	svc.Put(ctx, domain.CategoryMedia, "movie_1", []byte(`{}`))
	entry, err := store.Get(ctx, domain.CategoryMedia, "movie_1")
	require.NoError(t, err)
	assert.Equal(t, nowMs, entry.UpdatedAt)
	assert.Equal(t, nowMs+(24*time.Hour).Milliseconds(), entry.ExpiresAt)
	assert.LessOrEqual(t, entry.UpdatedAt, entry.ExpiresAt)

	// User data carries no hard expiry.
	svc.Put(ctx, domain.CategoryUserData, "profile_me", []byte(`{}`))
	entry, err = store.Get(ctx, domain.CategoryUserData, "profile_me")
	require.NoError(t, err)
	assert.Zero(t, entry.ExpiresAt)
}

func TestCacheServiceLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc, _ := newTestCache(store)

	svc.Put(ctx, domain.CategoryMedia, "movie_1", []byte(`{"v":1}`))
	svc.Put(ctx, domain.CategoryMedia, "movie_1", []byte(`{"v":2}`))

	result := svc.Get(ctx, domain.CategoryMedia, "movie_1")
	assert.Equal(t, []byte(`{"v":2}`), result.Payload)
}

func TestCacheServiceDeletePrefix(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc, _ := newTestCache(store)

	svc.Put(ctx, domain.CategoryUserData, "history_p1_alice", []byte(`[]`))
	svc.Put(ctx, domain.CategoryUserData, "history_p2_alice", []byte(`[]`))
	svc.Put(ctx, domain.CategoryUserData, "watchlist_movies_alice", []byte(`[]`))

	svc.DeletePrefix(ctx, domain.CategoryUserData, "history_")

	assert.Equal(t, domain.Absent, svc.Get(ctx, domain.CategoryUserData, "history_p1_alice").Freshness)
	assert.Equal(t, domain.Absent, svc.Get(ctx, domain.CategoryUserData, "history_p2_alice").Freshness)
	assert.NotEqual(t, domain.Absent, svc.Get(ctx, domain.CategoryUserData, "watchlist_movies_alice").Freshness)
}
