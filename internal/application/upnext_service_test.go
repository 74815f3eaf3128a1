package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/televault/televault/internal/adapters/trakt"
	"github.com/televault/televault/internal/domain"
)

func watchedShowJSON(id uint32, lastWatched string) string {
	return fmt.Sprintf(`{"plays":1,"last_watched_at":%q,"last_updated_at":null,"show":{"title":"Show %d","ids":{"trakt":%d,"slug":"show-%d"}}}`, lastWatched, id, id, id)
}

func progressJSON(aired, completed uint32, lastWatched string, nextEpisode bool) json.RawMessage {
	next := "null"
	if nextEpisode {
		next = `{"season":1,"number":2,"title":"Next","ids":{"trakt":1000}}`
	}
	return json.RawMessage(fmt.Sprintf(`{"aired":%d,"completed":%d,"last_watched_at":%q,"next_episode":%s}`, aired, completed, lastWatched, next))
}

func upNextFixture(t *testing.T) (*UpNextService, *fakeClient, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	store := newMemStore()
	cache, _ := newTestCache(store)
	client := &fakeClient{}
	provider := &staticProvider{cfg: testConfig()}
	reval := NewRevalidator(provider, cache, newCapturePublisher(), nopLogger{})
	reval.Start(ctx)
	users := NewUserService(cache, client, reval, trakt.DefaultEndpoints(), nopLogger{})
	svc := NewUpNextService(users, cache, client, reval, trakt.DefaultEndpoints(), provider, nopLogger{})
	return svc, client, cancel
}

func TestUpNextKeepsIncompleteShowsSortedByRecency(t *testing.T) {
	svc, client, cancel := upNextFixture(t)
	defer cancel()

	client.handler = func(method, uri string, opts *domain.RequestOptions) (json.RawMessage, error) {
		if uri == "/users/alice/watched/shows" {
			return json.RawMessage("[" + strings.Join([]string{
				watchedShowJSON(1, "2024-01-01T00:00:00Z"),
				watchedShowJSON(2, "2024-03-01T00:00:00Z"),
				watchedShowJSON(3, "2024-02-01T00:00:00Z"),
			}, ",") + "]"), nil
		}
		switch uri {
		case "/shows/1/progress/watched":
			// Fully watched: excluded.
			return progressJSON(10, 10, "2024-01-01T00:00:00Z", true), nil
		case "/shows/2/progress/watched":
			return progressJSON(10, 4, "2024-03-01T00:00:00Z", true), nil
		case "/shows/3/progress/watched":
			return progressJSON(8, 2, "2024-02-01T00:00:00Z", true), nil
		}
		return nil, domain.NewStatusError(404, nil)
	}

	items, err := svc.UpNext(context.Background(), "alice", 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Show 2", items[0].Show.Title)
	assert.Equal(t, "Show 3", items[1].Show.Title)
	assert.Equal(t, uint32(2), items[0].NextEpisode.Number)
}

func TestUpNextSkipsShowsWithoutNextEpisode(t *testing.T) {
	svc, client, cancel := upNextFixture(t)
	defer cancel()

	client.handler = func(method, uri string, opts *domain.RequestOptions) (json.RawMessage, error) {
		if uri == "/users/alice/watched/shows" {
			return json.RawMessage("[" + watchedShowJSON(1, "2024-01-01T00:00:00Z") + "]"), nil
		}
		// Incomplete but nothing airing next.
		return progressJSON(10, 4, "2024-01-01T00:00:00Z", false), nil
	}

	items, err := svc.UpNext(context.Background(), "alice", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUpNextSkipsFailedProgressFetches(t *testing.T) {
	svc, client, cancel := upNextFixture(t)
	defer cancel()

	client.handler = func(method, uri string, opts *domain.RequestOptions) (json.RawMessage, error) {
		if uri == "/users/alice/watched/shows" {
			return json.RawMessage("[" + strings.Join([]string{
				watchedShowJSON(1, "2024-01-01T00:00:00Z"),
				watchedShowJSON(2, "2024-02-01T00:00:00Z"),
			}, ",") + "]"), nil
		}
		if uri == "/shows/1/progress/watched" {
			return nil, domain.NewStatusError(500, nil)
		}
		return progressJSON(10, 4, "2024-02-01T00:00:00Z", true), nil
	}

	items, err := svc.UpNext(context.Background(), "alice", 1, 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Show 2", items[0].Show.Title)
}

func TestUpNextWindowBeyondListIsEmpty(t *testing.T) {
	svc, client, cancel := upNextFixture(t)
	defer cancel()

	client.handler = func(method, uri string, opts *domain.RequestOptions) (json.RawMessage, error) {
		require.Equal(t, "/users/alice/watched/shows", uri)
		return json.RawMessage("[" + watchedShowJSON(1, "2024-01-01T00:00:00Z") + "]"), nil
	}

	items, err := svc.UpNext(context.Background(), "alice", 5, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUpNextPageIsCached(t *testing.T) {
	svc, client, cancel := upNextFixture(t)
	defer cancel()

	client.handler = func(method, uri string, opts *domain.RequestOptions) (json.RawMessage, error) {
		if uri == "/users/alice/watched/shows" {
			return json.RawMessage("[" + watchedShowJSON(1, "2024-01-01T00:00:00Z") + "]"), nil
		}
		return progressJSON(10, 4, "2024-01-01T00:00:00Z", true), nil
	}

	_, err := svc.UpNext(context.Background(), "alice", 1, 10)
	require.NoError(t, err)
	calls := client.callCount()

	_, err = svc.UpNext(context.Background(), "alice", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, calls, client.callCount())
}
