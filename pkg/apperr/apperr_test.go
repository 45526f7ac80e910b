package apperr_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"browser-pause-agent/pkg/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_UnwrapsToCause(t *testing.T) {
	err := apperr.Wrap("Check", apperr.CodePauseInputFailed, context.Canceled, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "Check: context canceled", err.Error())

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.NotNil(t, appErr.Metadata)
}

func TestWrapErrorWithReason(t *testing.T) {
	err := apperr.WrapErrorWithReason("Execute", apperr.CodeBrowserNotReady, "browser_not_ready")

	var appErr *apperr.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "browser_not_ready", appErr.Metadata[apperr.MetaReason])
	assert.Equal(t, "Execute: browser_not_ready", err.Error())
}

func TestCodeOf(t *testing.T) {
	inner := apperr.InvalidReqError("handleAction", "url", errors.New("empty"))
	outer := fmt.Errorf("step 3: %w", inner)

	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(outer))
	assert.Equal(t, "", apperr.CodeOf(errors.New("plain")))
	assert.Equal(t, "", apperr.CodeOf(nil))
}
