// Package trakt implements the authenticated upstream client and the
// declarative endpoint catalog for the media-catalog REST API.
package trakt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/televault/televault/internal/adapters/config"
	"github.com/televault/televault/internal/adapters/metrics"
	"github.com/televault/televault/internal/domain"
)

const apiVersion = "2"

// Client is the single upstream HTTP session. The bearer header is
// snapshotted from the token provider before each call and the HTTP
// exchange runs outside the token lock, so unrelated traffic is never
// serialized behind a slow response.
type Client struct {
	httpClient  *http.Client
	cfgProvider config.Provider
	tokens      domain.TokenProvider
	logger      domain.Logger
}

// NewClient builds the upstream client with the configured connect
// timeout. Only the connect phase is bounded; response reads follow
// the caller's context.
func NewClient(cfgProvider config.Provider, tokens domain.TokenProvider, logger domain.Logger) *Client {
	traktCfg := cfgProvider.Get().Trakt
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: traktCfg.ConnectTimeout(),
		}).DialContext,
	}
	return &Client{
		httpClient:  &http.Client{Transport: transport},
		cfgProvider: cfgProvider,
		tokens:      tokens,
		logger:      logger,
	}
}

// Request executes one upstream call. The uri may be absolute or
// relative to the configured API host. On a 401 it attempts exactly
// one token refresh and still returns the original 401: the caller
// must resubmit, which avoids replaying non-idempotent calls on a
// refreshed token while self-healing the session for the next one.
func (c *Client) Request(ctx context.Context, method, uri string, opts *domain.RequestOptions) (json.RawMessage, error) {
	traktCfg := c.cfgProvider.Get().Trakt
	if opts == nil {
		opts = &domain.RequestOptions{}
	}

	method = strings.ToUpper(method)
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return nil, domain.NewStatusError(http.StatusMethodNotAllowed, fmt.Errorf("unsupported method %q", method))
	}

	u, err := c.buildURL(traktCfg.APIHost, uri, opts)
	if err != nil {
		return nil, domain.NewStatusError(http.StatusInternalServerError, err)
	}

	var bodyReader io.Reader
	if opts.Body != nil {
		raw, merr := json.Marshal(opts.Body)
		if merr != nil {
			return nil, domain.NewStatusError(http.StatusInternalServerError, fmt.Errorf("%w: encode request body: %v", domain.ErrParse, merr))
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), bodyReader)
	if err != nil {
		return nil, domain.NewStatusError(http.StatusInternalServerError, err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("trakt-api-version", apiVersion)
	req.Header.Set("trakt-api-key", traktCfg.ClientID)
	req.Header.Set("User-Agent", traktCfg.UserAgent)

	// Snapshot the token under its lock, release, then run the call.
	token, generation, authenticated := c.tokens.Snapshot()
	if authenticated {
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error(ctx, "Upstream request failed", "method", method, "url", u.String(), "error", err.Error())
		metrics.IncrementUpstreamRequest(method, "transport_error")
		return nil, domain.NewStatusError(http.StatusInternalServerError, fmt.Errorf("%w: %v", domain.ErrTransport, err))
	}
	defer resp.Body.Close()

	metrics.IncrementUpstreamRequest(method, strconv.Itoa(resp.StatusCode))
	c.logger.Debug(ctx, "Upstream response", "method", method, "url", u.String(), "status", resp.StatusCode)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		body, rerr := io.ReadAll(resp.Body)
		if rerr != nil {
			return nil, domain.NewStatusError(http.StatusInternalServerError, fmt.Errorf("%w: read response body: %v", domain.ErrTransport, rerr))
		}
		if len(bytes.TrimSpace(body)) == 0 {
			// 204-style responses carry no body.
			return nil, nil
		}
		if !json.Valid(body) {
			c.logger.Error(ctx, "Upstream returned malformed JSON", "method", method, "url", u.String())
			return nil, domain.NewStatusError(http.StatusInternalServerError, fmt.Errorf("%w: upstream body is not valid JSON", domain.ErrParse))
		}
		return json.RawMessage(body), nil
	}

	if resp.StatusCode == http.StatusUnauthorized && authenticated {
		c.logger.Warn(ctx, "Received 401, attempting token refresh", "url", u.String())
		if rerr := c.tokens.EnsureRefreshed(ctx, generation); rerr != nil {
			c.logger.Error(ctx, "Token refresh after 401 failed", "error", rerr.Error())
		}
		// The original request is deliberately not replayed.
	}

	return nil, domain.NewStatusError(resp.StatusCode, nil)
}

func (c *Client) buildURL(apiHost, uri string, opts *domain.RequestOptions) (*url.URL, error) {
	var raw string
	if strings.HasPrefix(uri, "http") {
		raw = uri
	} else {
		if !strings.HasPrefix(uri, "/") {
			uri = "/" + uri
		}
		raw = apiHost + uri
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse upstream url %q: %w", raw, err)
	}

	q := u.Query()
	if opts.Images {
		q.Set("extended", "images")
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	for key, value := range opts.Query {
		q.Set(key, value)
	}
	u.RawQuery = q.Encode()
	return u, nil
}
