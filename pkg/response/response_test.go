package response

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errNotFound = NewError(404, "not found")

func TestError_Is(t *testing.T) {
	assert.ErrorIs(t, NewError(404, "not found"), errNotFound)
	assert.NotErrorIs(t, NewError(400, "not found"), errNotFound)
	assert.ErrorIs(t, fmt.Errorf("wrapped: %w", errNotFound), errNotFound)
}

func TestWithDetail(t *testing.T) {
	err := WithDetail(errNotFound, "prediction 01H... does not exist")

	assert.ErrorIs(t, err, errNotFound)
	var e *Error
	assert.True(t, errors.As(err, &e))
	assert.Equal(t, "prediction 01H... does not exist", e.Detail)
	assert.Equal(t, 404, e.Code)

	// the sentinel itself is untouched
	errors.As(errNotFound, &e)
	assert.Empty(t, e.Detail)

	plain := errors.New("plain")
	assert.Equal(t, plain, WithDetail(plain, "x"))
}
