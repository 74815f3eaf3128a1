package application

import (
	"context"
	"time"

	"github.com/televault/televault/internal/adapters/config"
	"github.com/televault/televault/internal/adapters/metrics"
	"github.com/televault/televault/internal/domain"
)

// CacheService is the cache policy engine: it wraps the store with
// TTL stamping and freshness classification. It is pure logic over
// timestamps; the only I/O is through the store port. Storage
// failures degrade to a miss and are never surfaced; the cache is an
// optimization, not a source of truth.
type CacheService struct {
	store       domain.CacheStore
	cfgProvider config.Provider
	logger      domain.Logger
	now         func() time.Time
}

// NewCacheService creates the policy engine. now is injectable for
// tests; pass time.Now in production wiring.
func NewCacheService(store domain.CacheStore, cfgProvider config.Provider, logger domain.Logger, now func() time.Time) *CacheService {
	if now == nil {
		now = time.Now
	}
	return &CacheService{
		store:       store,
		cfgProvider: cfgProvider,
		logger:      logger,
		now:         now,
	}
}

// Windows returns the TTL/staleness windows for a category from the
// live configuration.
func (s *CacheService) Windows(category domain.Category) domain.CategoryWindows {
	cfg := s.cfgProvider.Get().Cache
	switch category {
	case domain.CategoryMedia:
		return domain.CategoryWindows{
			TTL:   time.Duration(cfg.MediaTTLHours) * time.Hour,
			Stale: time.Duration(cfg.MediaStaleMinutes) * time.Minute,
		}
	case domain.CategoryMediaLong:
		return domain.CategoryWindows{
			TTL:   time.Duration(cfg.MediaLongTTLDays) * 24 * time.Hour,
			Stale: time.Duration(cfg.MediaStaleMinutes) * time.Minute,
		}
	case domain.CategoryResponse:
		// All-or-nothing: no staleness split.
		return domain.CategoryWindows{
			TTL: time.Duration(cfg.ResponseTTLHours) * time.Hour,
		}
	case domain.CategoryUserData:
		// Staleness-only: entries never hard-expire.
		return domain.CategoryWindows{
			Stale: time.Duration(cfg.UserStaleMinutes) * time.Minute,
		}
	case domain.CategoryTranslation:
		return domain.CategoryWindows{
			TTL: time.Duration(cfg.TranslationTTLDays) * 24 * time.Hour,
		}
	default:
		return domain.CategoryWindows{TTL: time.Hour}
	}
}

// Get reads and classifies one entry. Hard-expired rows are evicted
// opportunistically and reported absent; a second Get behaves
// identically.
func (s *CacheService) Get(ctx context.Context, category domain.Category, key string) domain.CacheResult {
	entry, err := s.store.Get(ctx, category, key)
	if err != nil {
		if err != domain.ErrCacheMiss {
			// Storage trouble is a miss, not an error: degrade to re-fetch.
			s.logger.Error(ctx, "Cache read failed, treating as miss", "category", string(category), "key", key, "error", err.Error())
		}
		metrics.IncrementCacheRead(string(category), domain.Absent.String())
		return domain.CacheResult{Freshness: domain.Absent}
	}

	nowMs := s.now().UnixMilli()

	if entry.ExpiresAt > 0 && nowMs > entry.ExpiresAt {
		s.logger.Debug(ctx, "Cache entry expired, evicting", "category", string(category), "key", key)
		if derr := s.store.Delete(ctx, category, key); derr != nil {
			s.logger.Warn(ctx, "Failed to evict expired cache entry", "key", key, "error", derr.Error())
		}
		metrics.IncrementCacheEviction(string(category))
		metrics.IncrementCacheRead(string(category), domain.Absent.String())
		return domain.CacheResult{Freshness: domain.Absent}
	}

	freshness := domain.Fresh
	if w := s.Windows(category); w.Stale > 0 && nowMs > entry.UpdatedAt+w.Stale.Milliseconds() {
		freshness = domain.Stale
	}

	s.logger.Debug(ctx, "Cache hit", "category", string(category), "key", key, "freshness", freshness.String())
	metrics.IncrementCacheRead(string(category), freshness.String())
	return domain.CacheResult{Freshness: freshness, Payload: entry.Payload}
}

// Put upserts one entry with updated_at = now and expires_at = now +
// category TTL. Last writer wins; payloads are idempotent re-fetches
// of the same upstream resource, so no optimistic concurrency is
// needed. Write failures are logged and swallowed.
func (s *CacheService) Put(ctx context.Context, category domain.Category, key string, payload []byte) {
	nowMs := s.now().UnixMilli()
	entry := &domain.CacheEntry{
		Key:       key,
		Payload:   payload,
		UpdatedAt: nowMs,
	}
	if w := s.Windows(category); w.TTL > 0 {
		entry.ExpiresAt = nowMs + w.TTL.Milliseconds()
	}
	if err := s.store.Put(ctx, category, entry); err != nil {
		s.logger.Error(ctx, "Cache write failed", "category", string(category), "key", key, "error", err.Error())
		return
	}
	s.logger.Debug(ctx, "Cache entry written", "category", string(category), "key", key)
}

// Delete removes one entry unconditionally; used for explicit
// invalidation and expired-row GC.
func (s *CacheService) Delete(ctx context.Context, category domain.Category, key string) {
	if err := s.store.Delete(ctx, category, key); err != nil {
		s.logger.Warn(ctx, "Cache delete failed", "category", string(category), "key", key, "error", err.Error())
	}
}

// DeletePrefix removes every entry under a key prefix; used to
// invalidate paged key families after an upstream write.
func (s *CacheService) DeletePrefix(ctx context.Context, category domain.Category, prefix string) {
	if err := s.store.DeletePrefix(ctx, category, prefix); err != nil {
		s.logger.Warn(ctx, "Cache prefix delete failed", "category", string(category), "prefix", prefix, "error", err.Error())
	}
}
