package application

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/televault/televault/internal/adapters/trakt"
	"github.com/televault/televault/internal/domain"
)

func userFixture(t *testing.T) (*UserService, *CacheService, *fakeClient, *time.Time, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	store := newMemStore()
	cache, now := newTestCache(store)
	client := &fakeClient{}
	reval := NewRevalidator(&staticProvider{cfg: testConfig()}, cache, newCapturePublisher(), nopLogger{})
	reval.Start(ctx)
	svc := NewUserService(cache, client, reval, trakt.DefaultEndpoints(), nopLogger{})
	return svc, cache, client, now, cancel
}

func TestProfileCachedUnderUserData(t *testing.T) {
	svc, cache, client, _, cancel := userFixture(t)
	defer cancel()

	client.handler = func(method, uri string, opts *domain.RequestOptions) (json.RawMessage, error) {
		require.Equal(t, "/users/me", uri)
		return json.RawMessage(`{"username":"alice","vip":true,"ids":{"slug":"alice"}}`), nil
	}

	profile, err := svc.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", profile.Username)
	assert.True(t, profile.VIP)

	result := cache.Get(context.Background(), domain.CategoryUserData, "profile_me")
	assert.Equal(t, domain.Fresh, result.Freshness)
}

func TestWatchlistExpandsUsernameAndType(t *testing.T) {
	svc, _, client, _, cancel := userFixture(t)
	defer cancel()

	client.handler = func(method, uri string, opts *domain.RequestOptions) (json.RawMessage, error) {
		require.Equal(t, "/users/alice/watchlist/movies", uri)
		return json.RawMessage(`[{"listed_at":"2024-01-01T00:00:00Z","movie":{"title":"A","year":2024,"ids":{"trakt":1,"slug":"a"}}}]`), nil
	}

	items, err := svc.Watchlist(context.Background(), "alice", "movies")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Movie)
	assert.Equal(t, "A", items[0].Movie.Title)
}

func TestHistoryPagesAreCachedSeparately(t *testing.T) {
	svc, _, client, _, cancel := userFixture(t)
	defer cancel()

	client.handler = func(method, uri string, opts *domain.RequestOptions) (json.RawMessage, error) {
		require.Equal(t, "/users/alice/history", uri)
		item := map[string]any{"id": opts.Page, "watched_at": "2024-01-01T00:00:00Z", "type": "movie"}
		raw, _ := json.Marshal([]any{item})
		return raw, nil
	}

	page1, err := svc.History(context.Background(), "alice", 1, 20)
	require.NoError(t, err)
	page2, err := svc.History(context.Background(), "alice", 2, 20)
	require.NoError(t, err)

	assert.Equal(t, 2, client.callCount())
	assert.Equal(t, uint64(1), page1[0].ID)
	assert.Equal(t, uint64(2), page2[0].ID)
}

func TestUserDataStaleStillServes(t *testing.T) {
	svc, _, client, now, cancel := userFixture(t)
	defer cancel()

	client.handler = func(method, uri string, opts *domain.RequestOptions) (json.RawMessage, error) {
		return json.RawMessage(`[{"plays":1,"last_watched_at":null,"last_updated_at":null,"show":{"title":"S","ids":{"trakt":9,"slug":"s"}}}]`), nil
	}

	_, err := svc.WatchedShows(context.Background(), "alice")
	require.NoError(t, err)

	// Far past the staleness window, the cached copy still answers.
	*now = now.Add(30 * 24 * time.Hour)
	items, err := svc.WatchedShows(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "S", items[0].Show.Title)
}
