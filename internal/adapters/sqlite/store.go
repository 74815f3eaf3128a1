// Package sqlite implements the durable cache store over a local
// SQLite database. One engine instance backs all logical tables; the
// interface stays strictly key/value-with-expiry (bytes in, bytes
// out) even though the engine is table-oriented.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/televault/televault/internal/adapters/config"
	"github.com/televault/televault/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS media_cache (
    id TEXT PRIMARY KEY,
    media_type TEXT NOT NULL,
    source_id INTEGER NOT NULL,
    payload TEXT NOT NULL,
    updated_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS api_response_cache (
    key TEXT PRIMARY KEY,
    payload TEXT NOT NULL,
    updated_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS user_data_cache (
    key TEXT PRIMARY KEY,
    payload TEXT NOT NULL,
    updated_at INTEGER NOT NULL,
    dirty_flag BOOLEAN DEFAULT 0
);

CREATE TABLE IF NOT EXISTS translation_cache (
    id TEXT PRIMARY KEY,
    title TEXT,
    overview TEXT,
    tagline TEXT,
    updated_at INTEGER NOT NULL,
    expires_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS app_config (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_media_expires ON media_cache(expires_at);
CREATE INDEX IF NOT EXISTS idx_api_expires ON api_response_cache(expires_at);
`

// Store implements domain.CacheStore and domain.ConfigStore over one
// SQLite connection pool.
type Store struct {
	db     *sql.DB
	logger domain.Logger
	nowMs  func() int64
}

// NewStore opens (or creates) the database file, applies the schema
// and returns the store plus a cleanup that closes the pool.
func NewStore(ctx context.Context, cfgProvider config.Provider, logger domain.Logger, nowMs func() int64) (*Store, func(), error) {
	storeCfg := cfgProvider.Get().Store

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", storeCfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite store at %s: %w", storeCfg.Path, err)
	}

	poolSize := storeCfg.PoolSize
	if poolSize <= 0 {
		poolSize = 5
	}
	db.SetMaxOpenConns(poolSize)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("apply store schema: %w", err)
	}

	logger.Info(ctx, "Cache store opened", "path", storeCfg.Path, "pool_size", poolSize)

	s := &Store{db: db, logger: logger, nowMs: nowMs}
	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Warn(context.Background(), "Failed to close cache store", "error", err.Error())
		}
	}
	return s, cleanup, nil
}

// Ping verifies the engine is reachable, for readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Get reads one entry. Absent keys yield domain.ErrCacheMiss; engine
// failures are wrapped in domain.ErrStorage.
func (s *Store) Get(ctx context.Context, category domain.Category, key string) (*domain.CacheEntry, error) {
	switch category {
	case domain.CategoryMedia, domain.CategoryMediaLong:
		return s.getRow(ctx, key,
			`SELECT payload, updated_at, expires_at FROM media_cache WHERE id = ?`)
	case domain.CategoryResponse:
		return s.getRow(ctx, key,
			`SELECT payload, updated_at, expires_at FROM api_response_cache WHERE key = ?`)
	case domain.CategoryUserData:
		return s.getUserRow(ctx, key)
	case domain.CategoryTranslation:
		return s.getTranslationRow(ctx, key)
	default:
		return nil, fmt.Errorf("%w: unknown cache category %q", domain.ErrStorage, category)
	}
}

func (s *Store) getRow(ctx context.Context, key, query string) (*domain.CacheEntry, error) {
	var payload string
	var updatedAt, expiresAt int64
	err := s.db.QueryRowContext(ctx, query, key).Scan(&payload, &updatedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %v", domain.ErrStorage, key, err)
	}
	return &domain.CacheEntry{Key: key, Payload: []byte(payload), UpdatedAt: updatedAt, ExpiresAt: expiresAt}, nil
}

func (s *Store) getUserRow(ctx context.Context, key string) (*domain.CacheEntry, error) {
	var payload string
	var updatedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, updated_at FROM user_data_cache WHERE key = ?`, key).
		Scan(&payload, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %v", domain.ErrStorage, key, err)
	}
	// User-data rows carry no hard expiry.
	return &domain.CacheEntry{Key: key, Payload: []byte(payload), UpdatedAt: updatedAt}, nil
}

func (s *Store) getTranslationRow(ctx context.Context, key string) (*domain.CacheEntry, error) {
	var title, overview, tagline sql.NullString
	var updatedAt, expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT title, overview, tagline, updated_at, expires_at FROM translation_cache WHERE id = ?`, key).
		Scan(&title, &overview, &tagline, &updatedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %v", domain.ErrStorage, key, err)
	}

	tr := domain.Translation{}
	if title.Valid {
		tr.Title = &title.String
	}
	if overview.Valid {
		tr.Overview = &overview.String
	}
	if tagline.Valid {
		tr.Tagline = &tagline.String
	}
	payload, err := json.Marshal(tr)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal translation %q: %v", domain.ErrStorage, key, err)
	}
	return &domain.CacheEntry{Key: key, Payload: payload, UpdatedAt: updatedAt, ExpiresAt: expiresAt}, nil
}

// Put upserts one entry by primary key. Last writer wins.
func (s *Store) Put(ctx context.Context, category domain.Category, entry *domain.CacheEntry) error {
	var err error
	switch category {
	case domain.CategoryMedia, domain.CategoryMediaLong:
		mediaType, sourceID := splitMediaKey(entry.Key)
		_, err = s.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO media_cache (id, media_type, source_id, payload, updated_at, expires_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			entry.Key, mediaType, sourceID, string(entry.Payload), entry.UpdatedAt, entry.ExpiresAt)
	case domain.CategoryResponse:
		_, err = s.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO api_response_cache (key, payload, updated_at, expires_at)
			 VALUES (?, ?, ?, ?)`,
			entry.Key, string(entry.Payload), entry.UpdatedAt, entry.ExpiresAt)
	case domain.CategoryUserData:
		_, err = s.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO user_data_cache (key, payload, updated_at, dirty_flag)
			 VALUES (?, ?, ?, 0)`,
			entry.Key, string(entry.Payload), entry.UpdatedAt)
	case domain.CategoryTranslation:
		var tr domain.Translation
		if uerr := json.Unmarshal(entry.Payload, &tr); uerr != nil {
			return fmt.Errorf("%w: translation payload for %q: %v", domain.ErrParse, entry.Key, uerr)
		}
		_, err = s.db.ExecContext(ctx,
			`INSERT OR REPLACE INTO translation_cache (id, title, overview, tagline, updated_at, expires_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			entry.Key, tr.Title, tr.Overview, tr.Tagline, entry.UpdatedAt, entry.ExpiresAt)
	default:
		return fmt.Errorf("%w: unknown cache category %q", domain.ErrStorage, category)
	}
	if err != nil {
		return fmt.Errorf("%w: write %q: %v", domain.ErrStorage, entry.Key, err)
	}
	return nil
}

// Delete removes one entry; deleting an absent key is a no-op.
func (s *Store) Delete(ctx context.Context, category domain.Category, key string) error {
	var err error
	switch category {
	case domain.CategoryMedia, domain.CategoryMediaLong:
		_, err = s.db.ExecContext(ctx, `DELETE FROM media_cache WHERE id = ?`, key)
	case domain.CategoryResponse:
		_, err = s.db.ExecContext(ctx, `DELETE FROM api_response_cache WHERE key = ?`, key)
	case domain.CategoryUserData:
		_, err = s.db.ExecContext(ctx, `DELETE FROM user_data_cache WHERE key = ?`, key)
	case domain.CategoryTranslation:
		_, err = s.db.ExecContext(ctx, `DELETE FROM translation_cache WHERE id = ?`, key)
	default:
		return fmt.Errorf("%w: unknown cache category %q", domain.ErrStorage, category)
	}
	if err != nil {
		return fmt.Errorf("%w: delete %q: %v", domain.ErrStorage, key, err)
	}
	return nil
}

// DeletePrefix removes every entry whose key starts with prefix.
// Underscores and percent signs in the prefix match literally.
func (s *Store) DeletePrefix(ctx context.Context, category domain.Category, prefix string) error {
	pattern := escapeLike(prefix) + "%"
	var err error
	switch category {
	case domain.CategoryMedia, domain.CategoryMediaLong:
		_, err = s.db.ExecContext(ctx, `DELETE FROM media_cache WHERE id LIKE ? ESCAPE '\'`, pattern)
	case domain.CategoryResponse:
		_, err = s.db.ExecContext(ctx, `DELETE FROM api_response_cache WHERE key LIKE ? ESCAPE '\'`, pattern)
	case domain.CategoryUserData:
		_, err = s.db.ExecContext(ctx, `DELETE FROM user_data_cache WHERE key LIKE ? ESCAPE '\'`, pattern)
	case domain.CategoryTranslation:
		_, err = s.db.ExecContext(ctx, `DELETE FROM translation_cache WHERE id LIKE ? ESCAPE '\'`, pattern)
	default:
		return fmt.Errorf("%w: unknown cache category %q", domain.ErrStorage, category)
	}
	if err != nil {
		return fmt.Errorf("%w: delete prefix %q: %v", domain.ErrStorage, prefix, err)
	}
	return nil
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// GetConfig reads one app_config value.
func (s *Store) GetConfig(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app_config WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read config %q: %v", domain.ErrStorage, key, err)
	}
	return []byte(value), nil
}

// SetConfig upserts one app_config value.
func (s *Store) SetConfig(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO app_config (key, value, updated_at) VALUES (?, ?, ?)`,
		key, string(value), s.nowMs())
	if err != nil {
		return fmt.Errorf("%w: write config %q: %v", domain.ErrStorage, key, err)
	}
	return nil
}

// DeleteConfig removes one app_config value.
func (s *Store) DeleteConfig(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM app_config WHERE key = ?`, key); err != nil {
		return fmt.Errorf("%w: delete config %q: %v", domain.ErrStorage, key, err)
	}
	return nil
}

// splitMediaKey recovers the media_type and numeric source id from a
// "{type}_{id}" composite key for the typed media_cache columns.
func splitMediaKey(key string) (string, int64) {
	mediaType, idStr, ok := strings.Cut(key, "_")
	if !ok {
		return key, 0
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return mediaType, 0
	}
	return mediaType, id
}
