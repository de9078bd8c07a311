package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapKeepsExistingAppError(t *testing.T) {
	original := NotFound("course not found", nil)
	wrapped := fmt.Errorf("loading outline: %w", original)

	got := Wrap(wrapped, "internal", http.StatusInternalServerError, ErrInternal)
	require.NotNil(t, got)
	assert.Equal(t, http.StatusNotFound, got.StatusCode())
	assert.True(t, Is(wrapped, ErrNotFound))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "x", http.StatusInternalServerError, ErrInternal))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(Unavailable("cache down", errors.New("dial tcp"))))
	assert.False(t, Retryable(Validation("bad input", map[string]string{"title": "required"})))
	assert.False(t, Retryable(errors.New("plain")))
}

func TestValidationFields(t *testing.T) {
	err := Validation("invalid video", map[string]string{"url": "unsupported provider"})
	assert.Equal(t, "unsupported provider", err.Fields()["url"])
	assert.Equal(t, ErrValidation, err.Code())
}

func TestCodeForStatus(t *testing.T) {
	assert.Equal(t, ErrNotFound, CodeForStatus(http.StatusNotFound))
	assert.Equal(t, ErrUnavailable, CodeForStatus(http.StatusServiceUnavailable))
	assert.Equal(t, ErrInternal, CodeForStatus(http.StatusInternalServerError))
	assert.Equal(t, ErrValidation, CodeForStatus(http.StatusBadRequest))
}
