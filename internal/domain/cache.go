package domain

import (
	"context"
	"time"
)

// Category identifies one of the logical cache tables, each with its
// own TTL and staleness policy.
type Category string

const (
	// CategoryMedia holds per-title detail payloads (movie/show/season
	// detail). TTL 1 day by default, stale after 1 hour.
	CategoryMedia Category = "media"

	// CategoryMediaLong is the long-lived variant of CategoryMedia for
	// rarely-changing entities (30 days, same staleness window).
	CategoryMediaLong Category = "media_long"

	// CategoryResponse holds whole list/API responses (trending,
	// search pages). TTL 4 hours, no staleness split: entries are
	// fresh until they expire.
	CategoryResponse Category = "response"

	// CategoryUserData holds per-user payloads (profile, watchlist,
	// history, calendar days). No hard TTL; entries go stale after 5
	// minutes and are revalidated in the background.
	CategoryUserData Category = "user"

	// CategoryTranslation holds localized title/overview/tagline rows.
	// TTL 7 days, no staleness split.
	CategoryTranslation Category = "translation"
)

// Freshness is the three-way classification of a cache probe.
type Freshness int

const (
	// Absent: no usable entry; the caller must fetch upstream.
	Absent Freshness = iota
	// Fresh: the entry is inside its staleness window; serve as-is.
	Fresh
	// Stale: past the staleness window but before hard expiry; serve
	// immediately and revalidate in the background.
	Stale
)

func (f Freshness) String() string {
	switch f {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "absent"
	}
}

// CacheEntry is one row of a cache category: an opaque serialized
// payload plus its write and expiry timestamps (ms since epoch).
// Invariant: UpdatedAt <= ExpiresAt. ExpiresAt == 0 means no hard
// expiry (user-data category).
type CacheEntry struct {
	Key       string
	Payload   []byte
	UpdatedAt int64
	ExpiresAt int64
}

// CacheStore is the persistence port backing the cache policy engine:
// strictly key/value-with-expiry, bytes in and bytes out. Get returns
// ErrCacheMiss for an absent key; expiry interpretation is the policy
// engine's job, not the store's.
type CacheStore interface {
	Get(ctx context.Context, category Category, key string) (*CacheEntry, error)
	Put(ctx context.Context, category Category, entry *CacheEntry) error
	Delete(ctx context.Context, category Category, key string) error
	// DeletePrefix removes every entry whose key starts with prefix,
	// used to invalidate paged key families after an upstream write.
	DeletePrefix(ctx context.Context, category Category, prefix string) error
}

// ConfigStore is the persistence port for the app_config table, used
// for the OAuth token and other durable key/value settings.
type ConfigStore interface {
	GetConfig(ctx context.Context, key string) ([]byte, error)
	SetConfig(ctx context.Context, key string, value []byte) error
	DeleteConfig(ctx context.Context, key string) error
}

// CacheResult is the outcome of a policy-engine read: classification
// plus the payload when one is usable.
type CacheResult struct {
	Freshness Freshness
	Payload   []byte
}

// CachePolicy classifies reads against per-category TTL and staleness
// windows and stamps writes. Storage failures degrade to a miss.
type CachePolicy interface {
	Get(ctx context.Context, category Category, key string) CacheResult
	Put(ctx context.Context, category Category, key string, payload []byte)
	Delete(ctx context.Context, category Category, key string)
	DeletePrefix(ctx context.Context, category Category, prefix string)
}

// CategoryWindows holds the tunable TTL and staleness windows for one
// category. TTL == 0 means no hard expiry; Stale == 0 means no
// staleness split (fresh until expiry).
type CategoryWindows struct {
	TTL   time.Duration
	Stale time.Duration
}
