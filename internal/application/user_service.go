package application

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/televault/televault/internal/adapters/trakt"
	"github.com/televault/televault/internal/domain"
	"github.com/televault/televault/pkg/cachekeys"
)

// UserService serves the authenticated user's data (profile,
// watchlist, history, watched shows) through the user-data cache.
// User-data entries never hard-expire; they go stale after a short
// window and refresh in the background.
type UserService struct {
	cache     domain.CachePolicy
	client    domain.UpstreamClient
	reval     *Revalidator
	endpoints *trakt.Endpoints
	logger    domain.Logger
}

// NewUserService creates the user-data read path.
func NewUserService(cache domain.CachePolicy, client domain.UpstreamClient, reval *Revalidator, endpoints *trakt.Endpoints, logger domain.Logger) *UserService {
	return &UserService{
		cache:     cache,
		client:    client,
		reval:     reval,
		endpoints: endpoints,
		logger:    logger,
	}
}

// Profile returns the authenticated user's profile.
func (s *UserService) Profile(ctx context.Context) (*domain.UserProfile, error) {
	payload, err := fetchThrough(ctx, s.cache, s.reval, domain.CategoryUserData, cachekeys.UserKey("profile", "me"),
		func(ctx context.Context) (json.RawMessage, error) {
			ep := s.endpoints.Users.Profile
			return s.client.Request(ctx, ep.Method, ep.URI, &domain.RequestOptions{Images: true})
		})
	if err != nil {
		return nil, err
	}
	profile, err := decodeInto[domain.UserProfile](payload)
	if err != nil {
		return nil, fmt.Errorf("%w: user profile: %v", domain.ErrParse, err)
	}
	return &profile, nil
}

// Watchlist returns the user's watchlist filtered by item type
// ("movies", "shows" or "episodes").
func (s *UserService) Watchlist(ctx context.Context, username, itemType string) ([]domain.WatchlistItem, error) {
	key := cachekeys.UserKey("watchlist_"+itemType, username)
	payload, err := fetchThrough(ctx, s.cache, s.reval, domain.CategoryUserData, key,
		s.userListFetch(s.endpoints.Users.Watchlist, username, itemType))
	if err != nil {
		return nil, err
	}
	items, err := decodeInto[[]domain.WatchlistItem](payload)
	if err != nil {
		return nil, fmt.Errorf("%w: watchlist %s: %v", domain.ErrParse, key, err)
	}
	return items, nil
}

// WatchedShows returns the user's watched-shows list with play
// counts, most recently watched first as the upstream orders it.
func (s *UserService) WatchedShows(ctx context.Context, username string) ([]domain.WatchedShow, error) {
	key := cachekeys.UserKey("watched_shows", username)
	payload, err := fetchThrough(ctx, s.cache, s.reval, domain.CategoryUserData, key,
		s.userListFetch(s.endpoints.Users.Watched, username, "shows"))
	if err != nil {
		return nil, err
	}
	items, err := decodeInto[[]domain.WatchedShow](payload)
	if err != nil {
		return nil, fmt.Errorf("%w: watched shows %s: %v", domain.ErrParse, key, err)
	}
	return items, nil
}

// History returns one page of the user's watch history.
func (s *UserService) History(ctx context.Context, username string, page, limit int) ([]domain.HistoryItem, error) {
	key := cachekeys.UserKey(fmt.Sprintf("history_p%d", page), username)
	payload, err := fetchThrough(ctx, s.cache, s.reval, domain.CategoryUserData, key,
		func(ctx context.Context) (json.RawMessage, error) {
			ep := s.endpoints.Users.History
			uri := ep.Expand(map[string]string{"username": username})
			return s.client.Request(ctx, ep.Method, uri, &domain.RequestOptions{
				Limit:  limit,
				Page:   page,
				Images: true,
			})
		})
	if err != nil {
		return nil, err
	}
	items, err := decodeInto[[]domain.HistoryItem](payload)
	if err != nil {
		return nil, fmt.Errorf("%w: history %s: %v", domain.ErrParse, key, err)
	}
	return items, nil
}

func (s *UserService) userListFetch(endpoint domain.Descriptor, username, itemType string) FetchFunc {
	return func(ctx context.Context) (json.RawMessage, error) {
		uri := endpoint.Expand(map[string]string{
			"username": username,
			"type":     itemType,
		})
		return s.client.Request(ctx, endpoint.Method, uri, &domain.RequestOptions{Images: true})
	}
}
