package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	base := Insufficient(2, 1, "sample standard deviation")
	wrapped := Wrap(base, "describe delta")

	assert.Equal(t, CodeInsufficient, GetCode(wrapped))
	assert.True(t, HasCode(wrapped, CodeInsufficient))
	assert.Contains(t, wrapped.Error(), "needs at least 2 observations, got 1")
}

func TestGetCodeThroughStdlibWrap(t *testing.T) {
	err := fmt.Errorf("outer: %w", Degenerate("constant series"))
	assert.Equal(t, CodeDegenerateInput, GetCode(err))
}

func TestWrapPlainError(t *testing.T) {
	err := Wrap(fmt.Errorf("boom"), "load trials")
	assert.Equal(t, CodeInternalError, GetCode(err))
	assert.Nil(t, Wrap(nil, "nothing"))
	assert.False(t, HasCode(nil, CodeInternalError))
	assert.Equal(t, "UNKNOWN", GetCode(fmt.Errorf("plain")))
}
