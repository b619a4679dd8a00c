package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotRegisteredError(t *testing.T) {
	err := NewNotRegisteredError("webpush")
	assert.Contains(t, err.Error(), "webpush")
	assert.Contains(t, err.Error(), "not registered")
}

func TestNotRegisteredErrorUnwrapsThroughChain(t *testing.T) {
	wrapped := fmt.Errorf("resolving channel: %w", NewNotRegisteredError("fcm"))

	var notRegistered *NotRegisteredError
	require.True(t, errors.As(wrapped, &notRegistered))
	assert.Equal(t, "fcm", notRegistered.Name)
}

func TestUnauthorizedErrorDefaultMessage(t *testing.T) {
	assert.Equal(t, "unauthorized", NewUnauthorizedError("").Error())
	assert.Equal(t, "bad key", NewUnauthorizedError("bad key").Error())
}

func TestTransportError(t *testing.T) {
	err := NewTransportError("fcm", "connection refused")
	assert.Equal(t, "fcm transport error: connection refused", err.Error())
}
