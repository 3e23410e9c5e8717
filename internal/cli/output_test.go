package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetExitCode_ExitError(t *testing.T) {
	err := NewExitError(ExitCommandError, "bad path")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGetExitCode_WrappedExitError(t *testing.T) {
	inner := WrapExitError(ExitFailure, "replay diverged", errors.New("boom"))
	err := fmt.Errorf("outer: %w", inner)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestGetExitCode_PlainError(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

func TestExitError_Message(t *testing.T) {
	err := WrapExitError(ExitCommandError, "failed to open input", errors.New("no such file"))
	assert.Equal(t, "failed to open input: no such file", err.Error())
	assert.Equal(t, "no such file", errors.Unwrap(err).Error())
}
