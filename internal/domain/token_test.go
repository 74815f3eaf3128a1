package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenExpiryBoundary(t *testing.T) {
	token := Token{
		AccessToken: "a",
		ExpiresIn:   7200,
		CreatedAt:   1_700_000_000,
	}

	// Expired exactly at created_at + expires_in, not a second before.
	assert.False(t, token.ExpiredAt(time.Unix(1_700_007_199, 0)))
	assert.True(t, token.ExpiredAt(time.Unix(1_700_007_200, 0)))
	assert.True(t, token.ExpiredAt(time.Unix(1_700_007_201, 0)))
}

func TestTokenIsZero(t *testing.T) {
	assert.True(t, Token{}.IsZero())
	assert.True(t, Token{RefreshToken: "r"}.IsZero())
	assert.False(t, Token{AccessToken: "a"}.IsZero())
}
