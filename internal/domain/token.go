package domain

import (
	"context"
	"time"
)

// Token is the OAuth credential set returned by the upstream token
// endpoint. Exactly one instance is owned by the auth service; every
// other component reads snapshots, never a second mutable copy.
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	CreatedAt    int64  `json:"created_at"`
}

// IsZero reports whether the token carries no credential at all.
func (t Token) IsZero() bool {
	return t.AccessToken == ""
}

// ExpiredAt reports whether the token is expired at the given
// instant: now_seconds >= created_at + expires_in.
func (t Token) ExpiredAt(now time.Time) bool {
	return now.Unix() >= t.CreatedAt+t.ExpiresIn
}

// IsExpired reports expiry against the wall clock.
func (t Token) IsExpired() bool {
	return t.ExpiredAt(time.Now())
}

// TokenProvider is the port through which the upstream client reads
// credentials. Snapshot returns a fully-formed token copy together
// with a generation counter; EnsureRefreshed performs at most one
// upstream refresh for a given observed generation, so N concurrent
// 401s coalesce into a single refresh call.
type TokenProvider interface {
	// Snapshot returns the current token, its generation and whether
	// the session is authenticated. The read is taken under the token
	// lock, so callers never observe a half-updated token.
	Snapshot() (Token, uint64, bool)

	// EnsureRefreshed refreshes the token if its generation still
	// matches observedGeneration. Callers whose observed generation is
	// already behind return immediately: someone else refreshed. A
	// terminal failure clears the session and returns ErrRefreshFailed.
	EnsureRefreshed(ctx context.Context, observedGeneration uint64) error
}

