package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeNotFound, CodeOf(New(CodeNotFound, "missing")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))

	// Codes survive wrapping with %w.
	wrapped := fmt.Errorf("outer: %w", New(CodeConflict, "busy"))
	assert.Equal(t, CodeConflict, CodeOf(wrapped))
	assert.True(t, IsCode(wrapped, CodeConflict))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk on fire")
	err := Wrap(CodeInternal, cause, "save order")
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "save order: disk on fire", err.Error())
	assert.Equal(t, "no luck", New(CodeNotFound, "no %s", "luck").Error())
}
