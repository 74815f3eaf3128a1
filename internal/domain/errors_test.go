package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusOf(t *testing.T) {
	assert.Equal(t, 404, StatusOf(NewStatusError(404, nil)))
	assert.Equal(t, 401, StatusOf(fmt.Errorf("wrapped: %w", NewStatusError(401, nil))))
	assert.Equal(t, 500, StatusOf(errors.New("plain")))
}

func TestStatusErrorUnwrap(t *testing.T) {
	err := NewStatusError(500, fmt.Errorf("%w: boom", ErrTransport))
	assert.ErrorIs(t, err, ErrTransport)
	assert.Contains(t, err.Error(), "upstream status 500")

	bare := NewStatusError(429, nil)
	assert.Equal(t, "upstream status 429", bare.Error())
}
