package application

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/televault/televault/internal/adapters/config"
	"github.com/televault/televault/internal/adapters/trakt"
	"github.com/televault/televault/internal/domain"
	"github.com/televault/televault/pkg/cachekeys"
)

// progressFetchConcurrency bounds the per-show progress fan-out so a
// long watched list does not burst the rate-limited upstream.
const progressFetchConcurrency = 4

// UpNextService computes "up next" episodes: for each partially
// watched show it pairs the show with its next unwatched episode.
// One page scans a window of the watched list (window = factor*limit,
// offset = (page-1)*window) and keeps whatever qualifies, so result
// size varies per page. Pages are cached as user data under one key
// per page.
type UpNextService struct {
	users       *UserService
	cache       domain.CachePolicy
	client      domain.UpstreamClient
	reval       *Revalidator
	endpoints   *trakt.Endpoints
	cfgProvider config.Provider
	logger      domain.Logger
}

// NewUpNextService creates the up-next scanner.
func NewUpNextService(users *UserService, cache domain.CachePolicy, client domain.UpstreamClient, reval *Revalidator, endpoints *trakt.Endpoints, cfgProvider config.Provider, logger domain.Logger) *UpNextService {
	return &UpNextService{
		users:       users,
		cache:       cache,
		client:      client,
		reval:       reval,
		endpoints:   endpoints,
		cfgProvider: cfgProvider,
		logger:      logger,
	}
}

// UpNext returns one page of up-next items for the user, most
// recently watched first.
func (s *UpNextService) UpNext(ctx context.Context, username string, page, limit int) ([]domain.UpNextItem, error) {
	if page < 1 {
		page = 1
	}
	key := cachekeys.UpNextKey(username, page)
	payload, err := fetchThrough(ctx, s.cache, s.reval, domain.CategoryUserData, key,
		func(ctx context.Context) (json.RawMessage, error) {
			return s.scan(ctx, username, page, limit)
		})
	if err != nil {
		return nil, err
	}
	items, err := decodeInto[[]domain.UpNextItem](payload)
	if err != nil {
		return nil, fmt.Errorf("%w: up next %s: %v", domain.ErrParse, key, err)
	}
	return items, nil
}

// scan walks one window of the watched-shows list and fans out
// progress lookups. Shows whose progress cannot be fetched are
// skipped; the scan is best effort and the page simply comes back
// shorter.
func (s *UpNextService) scan(ctx context.Context, username string, page, limit int) (json.RawMessage, error) {
	watched, err := s.users.WatchedShows(ctx, username)
	if err != nil {
		return nil, err
	}

	factor := s.cfgProvider.Get().Cache.UpNextScanWindowFactor
	if factor <= 0 {
		factor = 3
	}
	window := factor * limit
	offset := (page - 1) * window
	if offset >= len(watched) {
		return json.Marshal([]domain.UpNextItem{})
	}
	end := offset + window
	if end > len(watched) {
		end = len(watched)
	}
	slice := watched[offset:end]

	var mu sync.Mutex
	items := make([]domain.UpNextItem, 0, len(slice))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(progressFetchConcurrency)
	for _, ws := range slice {
		g.Go(func() error {
			progress, perr := s.showProgress(gctx, ws.Show.IDs.Trakt)
			if perr != nil {
				s.logger.Warn(gctx, "Skipping show in up-next scan, progress fetch failed",
					"show_id", ws.Show.IDs.Trakt, "error", perr.Error())
				return nil
			}
			if progress.NextEpisode == nil || progress.Completed >= progress.Aired {
				return nil
			}
			mu.Lock()
			items = append(items, domain.UpNextItem{
				Show:        ws.Show,
				NextEpisode: *progress.NextEpisode,
				Progress: domain.ShowProgressSummary{
					Aired:         progress.Aired,
					Completed:     progress.Completed,
					LastWatchedAt: progress.LastWatchedAt,
				},
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Most recently watched first; never-watched entries sink.
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].Progress.LastWatchedAt, items[j].Progress.LastWatchedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
	return json.Marshal(items)
}

func (s *UpNextService) showProgress(ctx context.Context, traktID uint32) (*domain.ShowProgress, error) {
	ep := s.endpoints.Shows.Progress
	uri := ep.Expand(map[string]string{"id": strconv.FormatUint(uint64(traktID), 10)})
	raw, err := s.client.Request(ctx, ep.Method, uri, nil)
	if err != nil {
		return nil, err
	}
	progress, err := decodeInto[domain.ShowProgress](raw)
	if err != nil {
		return nil, fmt.Errorf("%w: progress for show %d: %v", domain.ErrParse, traktID, err)
	}
	return &progress, nil
}
