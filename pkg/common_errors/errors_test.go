package common_errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/xerrors"
)

func TestIsStartupError(t *testing.T) {
	assert.True(t, IsStartupError(ErrInvalidMessageCount))
	assert.True(t, IsStartupError(xerrors.Errorf("parse config: %w", ErrInvalidConfig)))
	assert.True(t, IsStartupError(xerrors.Errorf("serde: %w", ErrUnrecognizedSerdeFormat)))
	assert.False(t, IsStartupError(ErrPoolStart))
	assert.False(t, IsStartupError(nil))
}

func TestIsQueueClosedError(t *testing.T) {
	assert.True(t, IsQueueClosedError(xerrors.Errorf("push: %w", ErrQueueClosed)))
	assert.False(t, IsQueueClosedError(ErrShutdownTimeout))
}
