package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/televault/televault/internal/adapters/config"
	"github.com/televault/televault/internal/adapters/metrics"
	"github.com/televault/televault/internal/adapters/trakt"
	"github.com/televault/televault/internal/domain"
	"github.com/televault/televault/pkg/crypto"
)

// tokenConfigKey is the app_config row holding the persisted token.
const tokenConfigKey = "token"

// AuthService owns the single process-wide token and drives its
// lifecycle: code exchange, lazy refresh, revoke and startup
// recovery. One mutex guards the token; a refresh holds it for the
// whole upstream exchange, so concurrent callers observe either the
// pre- or post-refresh token, never a partial one.
type AuthService struct {
	logger      domain.Logger
	cfgProvider config.Provider
	configStore domain.ConfigStore
	endpoints   *trakt.Endpoints
	httpClient  *http.Client

	mu         sync.Mutex
	token      domain.Token
	generation uint64
}

// NewAuthService creates the auth service. Token-endpoint calls use a
// dedicated plain HTTP client, not the authenticated session, so a
// refresh never races the header set it is about to replace.
func NewAuthService(cfgProvider config.Provider, configStore domain.ConfigStore, endpoints *trakt.Endpoints, logger domain.Logger) *AuthService {
	return &AuthService{
		logger:      logger,
		cfgProvider: cfgProvider,
		configStore: configStore,
		endpoints:   endpoints,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Load recovers a previously-persisted token at startup. An expired
// token triggers one refresh attempt; terminal failure leaves the
// session unauthenticated without failing startup.
func (s *AuthService) Load(ctx context.Context) error {
	raw, err := s.configStore.GetConfig(ctx, tokenConfigKey)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.Warn(ctx, "Failed to read persisted token, starting unauthenticated", "error", err.Error())
		}
		return nil
	}

	var token domain.Token
	if err := json.Unmarshal(raw, &token); err != nil {
		s.logger.Warn(ctx, "Persisted token is malformed, discarding", "error", err.Error())
		_ = s.configStore.DeleteConfig(ctx, tokenConfigKey)
		return nil
	}
	if token.IsZero() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.generation++

	if token.IsExpired() {
		s.logger.Info(ctx, "Persisted token is expired, attempting refresh",
			"token_fingerprint", crypto.Fingerprint(token.AccessToken))
		if err := s.refreshLocked(ctx); err != nil {
			s.logger.Warn(ctx, "Startup token refresh failed, starting unauthenticated", "error", err.Error())
			return nil
		}
	}

	s.logger.Info(ctx, "Recovered persisted session",
		"token_fingerprint", crypto.Fingerprint(s.token.AccessToken))
	return nil
}

// Snapshot returns the current token, its generation and whether the
// session is authenticated.
func (s *AuthService) Snapshot() (domain.Token, uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, s.generation, !s.token.IsZero()
}

// IsAuthenticated reports whether a usable (possibly expired but
// refreshable) token is held.
func (s *AuthService) IsAuthenticated() bool {
	_, _, ok := s.Snapshot()
	return ok
}

// EnsureRefreshed refreshes the token if its generation still matches
// observedGeneration. Callers that lost the race to another refresh
// return immediately with the post-refresh token already in place.
func (s *AuthService) EnsureRefreshed(ctx context.Context, observedGeneration uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != observedGeneration {
		// Someone refreshed (or cleared) while we waited for the lock.
		metrics.IncrementTokenRefresh("coalesced")
		if s.token.IsZero() {
			return domain.ErrNotAuthenticated
		}
		return nil
	}
	if s.token.IsZero() {
		return domain.ErrNotAuthenticated
	}
	return s.refreshLocked(ctx)
}

// refreshLocked exchanges the refresh token for a new credential set.
// The caller must hold s.mu. On failure the stored and in-memory
// token are both cleared: the session drops to unauthenticated.
func (s *AuthService) refreshLocked(ctx context.Context) error {
	traktCfg := s.cfgProvider.Get().Trakt
	body := map[string]any{
		"refresh_token": s.token.RefreshToken,
		"client_id":     traktCfg.ClientID,
		"client_secret": traktCfg.ClientSecret,
		"redirect_uri":  s.redirectURI(),
		"grant_type":    "refresh_token",
	}

	token, err := s.tokenRequest(ctx, s.endpoints.Auth.GetToken.URI, body)
	if err != nil {
		metrics.IncrementTokenRefresh("failure")
		s.clearLocked(ctx)
		return fmt.Errorf("%w: %v", domain.ErrRefreshFailed, err)
	}

	s.setTokenLocked(ctx, token)
	metrics.IncrementTokenRefresh("success")
	s.logger.Info(ctx, "Token refreshed",
		"token_fingerprint", crypto.Fingerprint(token.AccessToken))
	return nil
}

// ExchangeCode trades an authorization code for the first token of a
// session. If a token is already held it is returned unchanged.
func (s *AuthService) ExchangeCode(ctx context.Context, code string) (domain.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.token.IsZero() {
		s.logger.Info(ctx, "Token already present, skipping code exchange")
		return s.token, nil
	}

	traktCfg := s.cfgProvider.Get().Trakt
	desc := s.endpoints.Auth.GetToken
	body := make(map[string]any, len(desc.Body)+4)
	for k, v := range desc.Body {
		body[k] = v
	}
	body["code"] = code
	body["client_id"] = traktCfg.ClientID
	body["client_secret"] = traktCfg.ClientSecret
	body["redirect_uri"] = s.redirectURI()

	token, err := s.tokenRequest(ctx, desc.URI, body)
	if err != nil {
		return domain.Token{}, fmt.Errorf("authorization code exchange: %w", err)
	}

	s.setTokenLocked(ctx, token)
	s.logger.Info(ctx, "Session authenticated via code exchange",
		"token_fingerprint", crypto.Fingerprint(token.AccessToken))
	return token, nil
}

// Revoke tells the upstream to invalidate the token, best-effort, and
// clears local state regardless of the upstream outcome.
func (s *AuthService) Revoke(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token.IsZero() {
		return nil
	}

	traktCfg := s.cfgProvider.Get().Trakt
	body := map[string]any{
		"token":         s.token.AccessToken,
		"client_id":     traktCfg.ClientID,
		"client_secret": traktCfg.ClientSecret,
	}
	if _, err := s.tokenRequest(ctx, s.endpoints.Auth.RevokeToken.URI, body); err != nil {
		// Local state is cleared either way.
		s.logger.Warn(ctx, "Upstream token revoke failed", "error", err.Error())
	}

	s.clearLocked(ctx)
	s.logger.Info(ctx, "Session revoked")
	return nil
}

// tokenRequest posts a JSON body to an auth endpoint and decodes the
// token response. The caller must hold s.mu.
func (s *AuthService) tokenRequest(ctx context.Context, uri string, body map[string]any) (domain.Token, error) {
	traktCfg := s.cfgProvider.Get().Trakt

	raw, err := json.Marshal(body)
	if err != nil {
		return domain.Token{}, fmt.Errorf("encode token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, traktCfg.APIHost+uri, bytes.NewReader(raw))
	if err != nil {
		return domain.Token{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", traktCfg.UserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.Token{}, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.Token{}, domain.NewStatusError(resp.StatusCode, nil)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Token{}, fmt.Errorf("%w: %v", domain.ErrTransport, err)
	}

	var token domain.Token
	if err := json.Unmarshal(respBody, &token); err != nil {
		return domain.Token{}, fmt.Errorf("%w: decode token response: %v", domain.ErrParse, err)
	}
	if token.IsZero() {
		return domain.Token{}, fmt.Errorf("%w: token response missing access_token", domain.ErrParse)
	}
	return token, nil
}

// setTokenLocked swaps all token fields atomically and persists them.
// The caller must hold s.mu.
func (s *AuthService) setTokenLocked(ctx context.Context, token domain.Token) {
	s.token = token
	s.generation++

	raw, err := json.Marshal(token)
	if err != nil {
		s.logger.Error(ctx, "Failed to encode token for persistence", "error", err.Error())
		return
	}
	if err := s.configStore.SetConfig(ctx, tokenConfigKey, raw); err != nil {
		s.logger.Error(ctx, "Failed to persist token", "error", err.Error())
	}
}

// clearLocked zeroes the in-memory token and removes the persisted
// copy. The caller must hold s.mu.
func (s *AuthService) clearLocked(ctx context.Context) {
	s.token = domain.Token{}
	s.generation++
	if err := s.configStore.DeleteConfig(ctx, tokenConfigKey); err != nil {
		s.logger.Warn(ctx, "Failed to delete persisted token", "error", err.Error())
	}
}

// redirectURI resolves the configured redirect URI: absolute values
// pass through, relative paths resolve against the local OAuth port.
func (s *AuthService) redirectURI() string {
	traktCfg := s.cfgProvider.Get().Trakt
	if strings.HasPrefix(traktCfg.RedirectURI, "http") {
		return traktCfg.RedirectURI
	}
	return fmt.Sprintf("http://localhost:%d%s", traktCfg.OAuthPort, traktCfg.RedirectURI)
}
