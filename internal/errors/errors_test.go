package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errSentinel = stderrors.New("sentinel")

func TestWrapKeepsCodeAndCause(t *testing.T) {
	base := ConfigError(errSentinel)
	wrapped := Wrap(base, "cleaner stage")

	assert.Equal(t, CodeConfigInvalid, GetCode(wrapped))
	assert.True(t, stderrors.Is(wrapped, errSentinel))
	assert.Contains(t, wrapped.Error(), "cleaner stage")
}

func TestWrapPlainErrorIsInternal(t *testing.T) {
	err := Wrapf(errSentinel, "step %d", 3)
	assert.Equal(t, CodeInternalError, GetCode(err))
	assert.Equal(t, "step 3: sentinel", err.Error())
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestGetCodeThroughFmtWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", UnsupportedFormat("data.parquet", errSentinel))
	assert.Equal(t, CodeUnsupportedFormat, GetCode(err))
	assert.True(t, IsAppError(err))
	assert.Equal(t, "UNKNOWN", GetCode(errSentinel))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeInvalidInput, errSentinel)
	assert.Equal(t, CodeInvalidInput, GetCode(err))
	assert.Nil(t, WithCode(CodeInvalidInput, nil))
}
