package application

import (
	"context"
	"encoding/json"

	"github.com/televault/televault/internal/adapters/trakt"
	"github.com/televault/televault/internal/domain"
)

// SyncService performs upstream writes (watchlist and history
// mutation). Writes are never cached; each one invalidates the cached
// user-data families it changes, so the next read re-fetches.
type SyncService struct {
	cache     domain.CachePolicy
	client    domain.UpstreamClient
	endpoints *trakt.Endpoints
	logger    domain.Logger
}

// NewSyncService creates the upstream write path.
func NewSyncService(cache domain.CachePolicy, client domain.UpstreamClient, endpoints *trakt.Endpoints, logger domain.Logger) *SyncService {
	return &SyncService{
		cache:     cache,
		client:    client,
		endpoints: endpoints,
		logger:    logger,
	}
}

// SyncItem identifies one title in a sync request body.
type SyncItem struct {
	IDs struct {
		Trakt uint32 `json:"trakt"`
	} `json:"ids"`
	WatchedAt *string `json:"watched_at,omitempty"`
}

// NewSyncItem builds a SyncItem for one upstream ID.
func NewSyncItem(traktID uint32) SyncItem {
	var item SyncItem
	item.IDs.Trakt = traktID
	return item
}

// AddToWatchlist adds titles to the user's watchlist. itemType is
// "movies" or "shows".
func (s *SyncService) AddToWatchlist(ctx context.Context, itemType string, items []SyncItem) (json.RawMessage, error) {
	resp, err := s.post(ctx, s.endpoints.Sync.AddToWatchlist, itemType, items)
	if err != nil {
		return nil, err
	}
	s.invalidateWatchlist(ctx)
	return resp, nil
}

// RemoveFromWatchlist removes titles from the user's watchlist.
func (s *SyncService) RemoveFromWatchlist(ctx context.Context, itemType string, items []SyncItem) (json.RawMessage, error) {
	resp, err := s.post(ctx, s.endpoints.Sync.RemoveFromWatchlist, itemType, items)
	if err != nil {
		return nil, err
	}
	s.invalidateWatchlist(ctx)
	return resp, nil
}

// AddToHistory marks titles as watched, optionally at an explicit
// time carried on each item.
func (s *SyncService) AddToHistory(ctx context.Context, itemType string, items []SyncItem) (json.RawMessage, error) {
	resp, err := s.post(ctx, s.endpoints.Sync.AddToHistory, itemType, items)
	if err != nil {
		return nil, err
	}
	s.invalidateHistory(ctx)
	return resp, nil
}

func (s *SyncService) post(ctx context.Context, endpoint domain.Descriptor, itemType string, items []SyncItem) (json.RawMessage, error) {
	body := map[string]any{itemType: items}
	resp, err := s.client.Request(ctx, endpoint.Method, endpoint.URI, &domain.RequestOptions{Body: body})
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "Upstream sync write applied", "uri", endpoint.URI, "item_type", itemType, "count", len(items))
	return resp, nil
}

func (s *SyncService) invalidateWatchlist(ctx context.Context) {
	s.cache.DeletePrefix(ctx, domain.CategoryUserData, "watchlist_")
}

// invalidateHistory drops everything a new play affects: history
// pages, the watched-shows list and the up-next pages derived from
// it.
func (s *SyncService) invalidateHistory(ctx context.Context) {
	s.cache.DeletePrefix(ctx, domain.CategoryUserData, "history_")
	s.cache.DeletePrefix(ctx, domain.CategoryUserData, "watched_shows_")
	s.cache.DeletePrefix(ctx, domain.CategoryUserData, "up_next_")
}
