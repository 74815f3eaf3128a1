package application

import (
	"context"
	"strings"
	"sync"

	"github.com/televault/televault/internal/adapters/config"
	"github.com/televault/televault/internal/domain"
)

// nopLogger satisfies domain.Logger for tests.
type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, fields ...any) {}
func (nopLogger) Info(ctx context.Context, msg string, fields ...any)  {}
func (nopLogger) Warn(ctx context.Context, msg string, fields ...any)  {}
func (nopLogger) Error(ctx context.Context, msg string, fields ...any) {}
func (nopLogger) Fatal(ctx context.Context, msg string, fields ...any) {}
func (l nopLogger) With(fields ...any) domain.Logger                   { return l }

// stubTokens satisfies domain.TokenProvider with a fixed session state.
type stubTokens struct {
	authenticated bool
}

func (s *stubTokens) Snapshot() (domain.Token, uint64, bool) {
	if !s.authenticated {
		return domain.Token{}, 0, false
	}
	return domain.Token{AccessToken: "tok", TokenType: "bearer", ExpiresIn: 86400, CreatedAt: 1_700_000_000}, 1, true
}

func (s *stubTokens) EnsureRefreshed(ctx context.Context, observedGeneration uint64) error {
	return nil
}

// staticProvider serves a fixed config without Viper.
type staticProvider struct {
	cfg *config.Config
}

func (p *staticProvider) Get() *config.Config { return p.cfg }

func testConfig() *config.Config {
	return &config.Config{
		Cache: config.CacheConfig{
			MediaTTLHours:          24,
			MediaLongTTLDays:       30,
			MediaStaleMinutes:      60,
			ResponseTTLHours:       4,
			UserStaleMinutes:       5,
			TranslationTTLDays:     7,
			RevalidateQueueSize:    16,
			RevalidateWorkerCount:  2,
			UpNextScanWindowFactor: 3,
		},
		Trakt: config.TraktConfig{
			APIHost:   "https://api.example.test",
			ClientID:  "client-id",
			UserAgent: "televault-test",
		},
	}
}

// memStore is an in-memory CacheStore + ConfigStore.
type memStore struct {
	mu      sync.Mutex
	entries map[domain.Category]map[string]*domain.CacheEntry
	configs map[string][]byte
	getErr  error
}

func newMemStore() *memStore {
	return &memStore{
		entries: make(map[domain.Category]map[string]*domain.CacheEntry),
		configs: make(map[string][]byte),
	}
}

func (m *memStore) table(category domain.Category) map[string]*domain.CacheEntry {
	if category == domain.CategoryMediaLong {
		category = domain.CategoryMedia
	}
	t, ok := m.entries[category]
	if !ok {
		t = make(map[string]*domain.CacheEntry)
		m.entries[category] = t
	}
	return t
}

func (m *memStore) Get(ctx context.Context, category domain.Category, key string) (*domain.CacheEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	entry, ok := m.table(category)[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	cp := *entry
	return &cp, nil
}

func (m *memStore) Put(ctx context.Context, category domain.Category, entry *domain.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *entry
	m.table(category)[entry.Key] = &cp
	return nil
}

func (m *memStore) Delete(ctx context.Context, category domain.Category, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.table(category), key)
	return nil
}

func (m *memStore) DeletePrefix(ctx context.Context, category domain.Category, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.table(category)
	for key := range t {
		if strings.HasPrefix(key, prefix) {
			delete(t, key)
		}
	}
	return nil
}

func (m *memStore) GetConfig(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.configs[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return value, nil
}

func (m *memStore) SetConfig(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.configs[key] = value
	return nil
}

func (m *memStore) DeleteConfig(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.configs, key)
	return nil
}

// publishedEvent is one captured PublishDataUpdated call.
type publishedEvent struct {
	key     string
	payload any
}

// capturePublisher records notifications and signals each one.
type capturePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	signal chan publishedEvent
}

func newCapturePublisher() *capturePublisher {
	return &capturePublisher{signal: make(chan publishedEvent, 32)}
}

func (p *capturePublisher) PublishDataUpdated(ctx context.Context, key string, payload any) error {
	p.mu.Lock()
	p.events = append(p.events, publishedEvent{key: key, payload: payload})
	p.mu.Unlock()
	p.signal <- publishedEvent{key: key, payload: payload}
	return nil
}

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}
