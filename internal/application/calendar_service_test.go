package application

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/televault/televault/internal/adapters/trakt"
	"github.com/televault/televault/internal/domain"
	"github.com/televault/televault/pkg/cachekeys"
)

type fakeCall struct {
	method string
	uri    string
	opts   *domain.RequestOptions
}

// fakeClient scripts upstream responses by URI.
type fakeClient struct {
	mu      sync.Mutex
	calls   []fakeCall
	handler func(method, uri string, opts *domain.RequestOptions) (json.RawMessage, error)
}

func (c *fakeClient) Request(ctx context.Context, method, uri string, opts *domain.RequestOptions) (json.RawMessage, error) {
	c.mu.Lock()
	c.calls = append(c.calls, fakeCall{method: method, uri: uri, opts: opts})
	c.mu.Unlock()
	return c.handler(method, uri, opts)
}

func (c *fakeClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.calls)
}

func (c *fakeClient) callURIs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	uris := make([]string, len(c.calls))
	for i, call := range c.calls {
		uris[i] = call.uri
	}
	return uris
}

func showItemJSON(day string, episodeID uint32) json.RawMessage {
	aired := day + "T01:00:00.000Z"
	item := domain.CalendarShow{
		FirstAired: &aired,
		Episode:    &domain.Episode{Season: 1, Number: episodeID, Title: fmt.Sprintf("E%d", episodeID), IDs: domain.EpisodeIDs{Trakt: episodeID}},
		Show:       domain.Show{Title: "Some Show", IDs: domain.ShowIDs{Trakt: 99}},
	}
	raw, _ := json.Marshal(item)
	return raw
}

func calendarFixture(store *memStore) (*CalendarService, *CacheService, *fakeClient, *capturePublisher, *time.Time) {
	cache, now := newTestCache(store)
	client := &fakeClient{}
	publisher := newCapturePublisher()
	svc := NewCalendarService(cache, client, publisher, trakt.DefaultEndpoints(), nopLogger{})
	return svc, cache, client, publisher, now
}

func TestReconcileFetchesOnlyMissingRuns(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc, cache, client, _, _ := calendarFixture(store)

	// Day 4 of the window is already cached and fresh.
	day4 := []json.RawMessage{showItemJSON("2024-01-04", 4)}
	day4Raw, _ := json.Marshal(day4)
	cache.Put(ctx, domain.CategoryUserData, cachekeys.CalendarDayKey("calendar_shows", "2024-01-04"), day4Raw)

	client.handler = func(method, uri string, opts *domain.RequestOptions) (json.RawMessage, error) {
		switch uri {
		case "/calendars/all/shows/2024-01-01/3":
			return json.RawMessage(fmt.Sprintf("[%s,%s]", showItemJSON("2024-01-02", 2), showItemJSON("2024-01-01", 1))), nil
		case "/calendars/all/shows/2024-01-05/3":
			return json.RawMessage(fmt.Sprintf("[%s]", showItemJSON("2024-01-06", 6))), nil
		}
		return nil, domain.NewStatusError(404, nil)
	}

	items, err := svc.Shows(ctx, "2024-01-01", 7)
	require.NoError(t, err)

	// Exactly one upstream call per missing run, not per day.
	assert.Equal(t, 2, client.callCount())
	assert.ElementsMatch(t, []string{
		"/calendars/all/shows/2024-01-01/3",
		"/calendars/all/shows/2024-01-05/3",
	}, client.callURIs())

	// Each item appears once, sorted by date ascending.
	require.Len(t, items, 4)
	var dates []string
	for _, item := range items {
		dates = append(dates, item.CalendarDate())
	}
	assert.Equal(t, []string{"2024-01-01", "2024-01-02", "2024-01-04", "2024-01-06"}, dates)
}

func TestReconcileWritesConfirmedEmptyDays(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc, cache, client, _, _ := calendarFixture(store)

	// A three-day window where only the middle day has an airing.
	client.handler = func(method, uri string, opts *domain.RequestOptions) (json.RawMessage, error) {
		return json.RawMessage(fmt.Sprintf("[%s]", showItemJSON("2024-02-02", 1))), nil
	}

	_, err := svc.Shows(ctx, "2024-02-01", 3)
	require.NoError(t, err)
	require.Equal(t, 1, client.callCount())

	// The quiet days are confirmed empty, not absent: the next read
	// must not re-derive them as missing.
	for _, day := range []string{"2024-02-01", "2024-02-03"} {
		result := cache.Get(ctx, domain.CategoryUserData, cachekeys.CalendarDayKey("calendar_shows", day))
		require.Equal(t, domain.Fresh, result.Freshness, "day %s", day)
		assert.Equal(t, "[]", string(result.Payload))
	}

	// Reconciling the same window again touches the upstream zero times.
	_, err = svc.Shows(ctx, "2024-02-01", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, client.callCount())
}

func TestReconcileMissingRunErrorAbortsCall(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc, cache, client, _, _ := calendarFixture(store)

	// First day cached; the rest of the window fails upstream.
	dayRaw, _ := json.Marshal([]json.RawMessage{showItemJSON("2024-03-01", 1)})
	cache.Put(ctx, domain.CategoryUserData, cachekeys.CalendarDayKey("calendar_shows", "2024-03-01"), dayRaw)

	client.handler = func(method, uri string, opts *domain.RequestOptions) (json.RawMessage, error) {
		return nil, domain.NewStatusError(503, nil)
	}

	_, err := svc.Shows(ctx, "2024-03-01", 3)
	require.Error(t, err)
	assert.Equal(t, 503, domain.StatusOf(err))
}

func TestReconcileStaleRunRefreshesInBackground(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc, cache, client, publisher, now := calendarFixture(store)

	stale := []json.RawMessage{showItemJSON("2024-04-01", 1)}
	staleRaw, _ := json.Marshal(stale)
	cache.Put(ctx, domain.CategoryUserData, cachekeys.CalendarDayKey("calendar_shows", "2024-04-01"), staleRaw)
	*now = now.Add(10 * time.Minute)

	client.handler = func(method, uri string, opts *domain.RequestOptions) (json.RawMessage, error) {
		return json.RawMessage(fmt.Sprintf("[%s]", showItemJSON("2024-04-01", 7))), nil
	}

	items, err := svc.Shows(ctx, "2024-04-01", 1)
	require.NoError(t, err)

	// The caller gets the stale payload immediately.
	require.Len(t, items, 1)
	assert.Equal(t, uint32(1), items[0].Episode.Number)

	// The detached refresh re-fetches, rewrites the day and notifies.
	select {
	case event := <-publisher.signal:
		assert.Equal(t, "calendar_shows_2024-04-01", event.key)
	case <-time.After(2 * time.Second):
		t.Fatal("expected a data-updated notification from the background refresh")
	}
	assert.Equal(t, 1, client.callCount())

	refreshed := cache.Get(ctx, domain.CategoryUserData, cachekeys.CalendarDayKey("calendar_shows", "2024-04-01"))
	var refreshedItems []domain.CalendarShow
	require.NoError(t, json.Unmarshal(refreshed.Payload, &refreshedItems))
	require.Len(t, refreshedItems, 1)
	assert.Equal(t, uint32(7), refreshedItems[0].Episode.Number)
}

func TestReconcileMalformedDayIsRefetched(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc, cache, client, _, _ := calendarFixture(store)

	cache.Put(ctx, domain.CategoryUserData, cachekeys.CalendarDayKey("calendar_shows", "2024-05-01"), []byte("not json"))

	client.handler = func(method, uri string, opts *domain.RequestOptions) (json.RawMessage, error) {
		return json.RawMessage(fmt.Sprintf("[%s]", showItemJSON("2024-05-01", 3))), nil
	}

	items, err := svc.Shows(ctx, "2024-05-01", 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 1, client.callCount())
}

func TestReconcileRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc, _, _, _, _ := calendarFixture(store)

	_, err := svc.Shows(ctx, "01-01-2024", 7)
	assert.Error(t, err)

	_, err = svc.Shows(ctx, "2024-01-01", 0)
	assert.Error(t, err)
}

func TestReconcileKeepsDatedItemsWhenUndatedFollow(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc, cache, client, _, _ := calendarFixture(store)

	// An undated item lands on the run start after a dated item was
	// already bucketed there; the dated item must survive.
	undated, err := json.Marshal(domain.CalendarShow{
		Episode: &domain.Episode{Season: 1, Number: 2, Title: "E2", IDs: domain.EpisodeIDs{Trakt: 2}},
		Show:    domain.Show{Title: "Some Show", IDs: domain.ShowIDs{Trakt: 99}},
	})
	require.NoError(t, err)
	client.handler = func(method, uri string, opts *domain.RequestOptions) (json.RawMessage, error) {
		return json.RawMessage(fmt.Sprintf("[%s,%s]", showItemJSON("2024-03-01", 1), undated)), nil
	}

	items, err := svc.Shows(ctx, "2024-03-01", 2)
	require.NoError(t, err)
	require.Len(t, items, 2)

	result := cache.Get(ctx, domain.CategoryUserData, cachekeys.CalendarDayKey("calendar_shows", "2024-03-01"))
	require.Equal(t, domain.Fresh, result.Freshness)
	var bucket []json.RawMessage
	require.NoError(t, json.Unmarshal(result.Payload, &bucket))
	assert.Len(t, bucket, 2)
}
