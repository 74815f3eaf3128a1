package application

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/televault/televault/internal/adapters/trakt"
	"github.com/televault/televault/internal/domain"
	"github.com/televault/televault/pkg/cachekeys"
)

// MediaService serves movie and show catalog data through the cache:
// title details under the media category, translations under the
// translation category and trending lists as whole-response entries.
type MediaService struct {
	cache     domain.CachePolicy
	client    domain.UpstreamClient
	reval     *Revalidator
	endpoints *trakt.Endpoints
	tokens    domain.TokenProvider
	logger    domain.Logger
}

// NewMediaService creates the catalog read path.
func NewMediaService(cache domain.CachePolicy, client domain.UpstreamClient, reval *Revalidator, endpoints *trakt.Endpoints, tokens domain.TokenProvider, logger domain.Logger) *MediaService {
	return &MediaService{
		cache:     cache,
		client:    client,
		reval:     reval,
		endpoints: endpoints,
		tokens:    tokens,
		logger:    logger,
	}
}

// searchLimit caps text-search result pages.
const searchLimit = 20

// recommendationLimit is the upstream page size for personalized
// recommendation lists.
const recommendationLimit = 100

// MovieDetails returns one movie by its upstream ID, served
// stale-while-revalidate from the media cache. Titles released well
// in the past change rarely and are written with the long-lived
// expiry window instead of the standard one.
func (s *MediaService) MovieDetails(ctx context.Context, traktID uint32) (*domain.Movie, error) {
	payload, err := s.detail(ctx, cachekeys.MediaKey("movie", traktID), s.detailFetch(s.endpoints.Movies.Details, traktID))
	if err != nil {
		return nil, err
	}
	movie, err := decodeInto[domain.Movie](payload)
	if err != nil {
		return nil, fmt.Errorf("%w: movie %d: %v", domain.ErrParse, traktID, err)
	}
	return &movie, nil
}

// ShowDetails returns one show by its upstream ID, served
// stale-while-revalidate from the media cache.
func (s *MediaService) ShowDetails(ctx context.Context, traktID uint32) (*domain.Show, error) {
	payload, err := s.detail(ctx, cachekeys.MediaKey("show", traktID), s.detailFetch(s.endpoints.Shows.Details, traktID))
	if err != nil {
		return nil, err
	}
	show, err := decodeInto[domain.Show](payload)
	if err != nil {
		return nil, fmt.Errorf("%w: show %d: %v", domain.ErrParse, traktID, err)
	}
	return &show, nil
}

// detail reads one title through the cache. Both media categories
// share the same rows; the stored expiry decides hard eviction, so a
// probe under the standard category sees long-lived rows too. The
// write side picks the category by the title's age.
func (s *MediaService) detail(ctx context.Context, key string, fetch FetchFunc) (json.RawMessage, error) {
	result := s.cache.Get(ctx, domain.CategoryMedia, key)
	switch result.Freshness {
	case domain.Fresh:
		return result.Payload, nil
	case domain.Stale:
		s.reval.Enqueue(detailWriteCategory(result.Payload), key, fetch)
		return result.Payload, nil
	}

	payload, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Put(ctx, detailWriteCategory(payload), key, payload)
	return payload, nil
}

// detailWriteCategory classifies a title payload for expiry purposes.
// Titles from two or more calendar years ago get the long-lived
// window; current and recent titles keep the standard one.
func detailWriteCategory(payload json.RawMessage) domain.Category {
	var probe struct {
		Year *uint32 `json:"year"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil || probe.Year == nil || *probe.Year == 0 {
		return domain.CategoryMedia
	}
	if int(*probe.Year) < time.Now().Year()-1 {
		return domain.CategoryMediaLong
	}
	return domain.CategoryMedia
}

// MovieTranslation returns the localized strings for a movie in the
// given language. Absent translations are cached as an empty triple,
// so an untranslated title does not hit the upstream again for a week.
func (s *MediaService) MovieTranslation(ctx context.Context, traktID uint32, language string) (*domain.Translation, error) {
	return s.translation(ctx, "movie", s.endpoints.Movies.Translations, traktID, language)
}

// ShowTranslation returns the localized strings for a show in the
// given language.
func (s *MediaService) ShowTranslation(ctx context.Context, traktID uint32, language string) (*domain.Translation, error) {
	return s.translation(ctx, "show", s.endpoints.Shows.Translations, traktID, language)
}

// TrendingMovies returns one page of the trending-movies list. Whole
// pages are cached all-or-nothing in the response cache; staleness
// has no split for this category, an entry is either live or gone.
func (s *MediaService) TrendingMovies(ctx context.Context, page, limit int) ([]domain.TrendingMovie, error) {
	payload, err := fetchThrough(ctx, s.cache, s.reval, domain.CategoryResponse, cachekeys.ResponseKey("trending_movies", page),
		s.listFetch(s.endpoints.Movies.Trending, page, limit))
	if err != nil {
		return nil, err
	}
	items, err := decodeInto[[]domain.TrendingMovie](payload)
	if err != nil {
		return nil, fmt.Errorf("%w: trending movies: %v", domain.ErrParse, err)
	}
	return items, nil
}

// TrendingShows returns one page of the trending-shows list.
func (s *MediaService) TrendingShows(ctx context.Context, page, limit int) ([]domain.TrendingShow, error) {
	payload, err := fetchThrough(ctx, s.cache, s.reval, domain.CategoryResponse, cachekeys.ResponseKey("trending_shows", page),
		s.listFetch(s.endpoints.Shows.Trending, page, limit))
	if err != nil {
		return nil, err
	}
	items, err := decodeInto[[]domain.TrendingShow](payload)
	if err != nil {
		return nil, fmt.Errorf("%w: trending shows: %v", domain.ErrParse, err)
	}
	return items, nil
}

// Search runs a text search over movies and shows. Results are a
// pass-through: queries are too varied to be worth a cache row each,
// and the upstream already ranks them.
func (s *MediaService) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	endpoint := s.endpoints.Search.Text
	raw, err := s.client.Request(ctx, endpoint.Method, endpoint.URI, &domain.RequestOptions{
		Query:  map[string]string{"query": query},
		Limit:  searchLimit,
		Images: true,
	})
	if err != nil {
		return nil, err
	}
	results, err := decodeInto[[]domain.SearchResult](payloadOrEmptyList(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: search results: %v", domain.ErrParse, err)
	}
	return results, nil
}

// RecommendedMovies returns one page of the personalized movie
// recommendations. The endpoint requires a session; without one the
// call fails locally with a 401 instead of burning an upstream call.
// Pages live in the response cache like the trending lists.
func (s *MediaService) RecommendedMovies(ctx context.Context, page, limit int) ([]domain.RecommendedMovie, error) {
	payload, err := s.recommendations(ctx, s.endpoints.Recommendations.Movies, "recommended_movies", page, limit)
	if err != nil {
		return nil, err
	}
	items, err := decodeInto[[]domain.RecommendedMovie](payload)
	if err != nil {
		return nil, fmt.Errorf("%w: recommended movies: %v", domain.ErrParse, err)
	}
	return items, nil
}

// RecommendedShows returns one page of the personalized show
// recommendations.
func (s *MediaService) RecommendedShows(ctx context.Context, page, limit int) ([]domain.RecommendedShow, error) {
	payload, err := s.recommendations(ctx, s.endpoints.Recommendations.Shows, "recommended_shows", page, limit)
	if err != nil {
		return nil, err
	}
	items, err := decodeInto[[]domain.RecommendedShow](payload)
	if err != nil {
		return nil, fmt.Errorf("%w: recommended shows: %v", domain.ErrParse, err)
	}
	return items, nil
}

func (s *MediaService) recommendations(ctx context.Context, endpoint domain.Descriptor, keyPrefix string, page, limit int) (json.RawMessage, error) {
	if _, _, authenticated := s.tokens.Snapshot(); !authenticated {
		return nil, domain.NewStatusError(http.StatusUnauthorized, domain.ErrNotAuthenticated)
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = recommendationLimit
	}
	return fetchThrough(ctx, s.cache, s.reval, domain.CategoryResponse, cachekeys.ResponseKey(keyPrefix, page),
		s.listFetch(endpoint, page, limit))
}

// payloadOrEmptyList substitutes an empty JSON list for a bodiless 2xx
// response so list decoding stays uniform.
func payloadOrEmptyList(raw json.RawMessage) json.RawMessage {
	if raw == nil {
		return json.RawMessage("[]")
	}
	return raw
}

func (s *MediaService) detailFetch(endpoint domain.Descriptor, traktID uint32) FetchFunc {
	return func(ctx context.Context) (json.RawMessage, error) {
		uri := endpoint.Expand(map[string]string{"id": strconv.FormatUint(uint64(traktID), 10)})
		return s.client.Request(ctx, endpoint.Method, uri, &domain.RequestOptions{Images: true})
	}
}

func (s *MediaService) listFetch(endpoint domain.Descriptor, page, limit int) FetchFunc {
	return func(ctx context.Context) (json.RawMessage, error) {
		return s.client.Request(ctx, endpoint.Method, endpoint.URI, &domain.RequestOptions{
			Limit:  limit,
			Page:   page,
			Images: true,
		})
	}
}

// translation fetches the language's translation list and keeps the
// first entry. An empty upstream list is stored as an empty triple;
// the cache row itself records that the language was checked.
func (s *MediaService) translation(ctx context.Context, mediaType string, endpoint domain.Descriptor, traktID uint32, language string) (*domain.Translation, error) {
	key := cachekeys.TranslationKey(mediaType, traktID, language)
	payload, err := fetchThrough(ctx, s.cache, s.reval, domain.CategoryTranslation, key, func(ctx context.Context) (json.RawMessage, error) {
		uri := endpoint.Expand(map[string]string{
			"id":       strconv.FormatUint(uint64(traktID), 10),
			"language": language,
		})
		raw, ferr := s.client.Request(ctx, endpoint.Method, uri, nil)
		if ferr != nil {
			return nil, ferr
		}
		var list []domain.Translation
		if raw != nil {
			if uerr := json.Unmarshal(raw, &list); uerr != nil {
				return nil, domain.NewStatusError(http.StatusInternalServerError, fmt.Errorf("%w: translations for %s: %v", domain.ErrParse, key, uerr))
			}
		}
		var tr domain.Translation
		if len(list) > 0 {
			tr = list[0]
		}
		return json.Marshal(tr)
	})
	if err != nil {
		return nil, err
	}
	tr, err := decodeInto[domain.Translation](payload)
	if err != nil {
		return nil, fmt.Errorf("%w: translation %s: %v", domain.ErrParse, key, err)
	}
	return &tr, nil
}
