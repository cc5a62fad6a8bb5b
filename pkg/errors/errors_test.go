package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsTypedErrors(t *testing.T) {
	wrapped := fmt.Errorf("load: %w", ErrNotFound)
	assert.Same(t, ErrNotFound, FromError(wrapped))
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	err := FromError(errors.New("boom"))
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.EqualError(t, err, "internal server error: boom")
}

func TestCloneOverridesMessage(t *testing.T) {
	clone := Clone(ErrInvalidState, "submission already uploaded")
	assert.Equal(t, ErrInvalidState.Code, clone.Code)
	assert.Equal(t, "submission already uploaded", clone.Message)
	assert.Equal(t, "submission is not in a valid state for this operation", ErrInvalidState.Message)
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("poll: %w", Clone(ErrInvalidState, "already complete"))
	assert.True(t, HasCode(err, ErrNotFound, ErrInvalidState))
	assert.False(t, HasCode(err, ErrNotFound))
	assert.False(t, HasCode(errors.New("plain"), ErrInternal))
	assert.False(t, HasCode(nil, ErrInternal))
}

func TestErrorsIsMatchesClones(t *testing.T) {
	err := Wrap(errors.New("dial tcp"), ErrRemoteUnavailable.Code, ErrRemoteUnavailable.Status, "create failed")
	assert.ErrorIs(t, err, ErrRemoteUnavailable)
	assert.NotErrorIs(t, err, ErrInternal)
}
