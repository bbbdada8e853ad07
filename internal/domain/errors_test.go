package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainErrorFormat(t *testing.T) {
	err := NewDomainError("Cycle.Start", ErrLinkNotEnabled, "link 'a'")
	want := "Cycle.Start: link 'a': link is not enabled"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorFormatNoDetail(t *testing.T) {
	err := NewDomainError("Cycle.Start", ErrNoEnabledLinks, "")
	want := "Cycle.Start: no enabled links"
	if err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	err := NewDomainError("Display.Open", ErrDisplayOpen, "https://example.com")
	if !errors.Is(err, ErrDisplayOpen) {
		t.Error("errors.Is should match ErrDisplayOpen")
	}
}

func TestWrapOp(t *testing.T) {
	assert.NoError(t, WrapOp("op", nil))
	err := WrapOp("Store.Load", ErrStore)
	assert.ErrorIs(t, err, ErrStore)
	assert.Equal(t, "Store.Load: store operation failed", err.Error())
}

func TestErrorCodeOf_DirectSentinel(t *testing.T) {
	assert.Equal(t, CodeNoEnabledLinks, ErrorCodeOf(ErrNoEnabledLinks))
	assert.Equal(t, CodeAlreadyRunning, ErrorCodeOf(ErrAlreadyRunning))
	assert.Equal(t, CodeRateLimit, ErrorCodeOf(ErrRateLimit))
}

func TestErrorCodeOf_SubSystem(t *testing.T) {
	err := NewSubSystemError("link", "Link.Validate", ErrInvalidInput, "title is required")
	assert.Equal(t, CodeLinkInvalid, ErrorCodeOf(err))

	err = NewSubSystemError("settings", "Settings.Validate", ErrInvalidInput, "bad")
	assert.Equal(t, CodeSettingsInvalid, err.Code())

	err = NewSubSystemError("other", "Op", ErrInvalidInput, "bad")
	assert.Equal(t, CodeInvalidInput, err.Code())
}

func TestErrorCodeOf_WrappedSpecificBeatsCategory(t *testing.T) {
	wrapped := fmt.Errorf("lookup: %w", ErrLinkUnknown)
	assert.Equal(t, CodeLinkNotFound, ErrorCodeOf(wrapped))

	auth := fmt.Errorf("ws: %w", ErrGatewayAuthFailed)
	assert.Equal(t, CodeGatewayAuth, ErrorCodeOf(auth))
}

func TestErrorCodeOf_UnknownAndNil(t *testing.T) {
	assert.Equal(t, CodeUnknown, ErrorCodeOf(fmt.Errorf("some random error")))
	assert.Equal(t, CodeUnknown, ErrorCodeOf(nil))
}

func TestDomainErrorAs(t *testing.T) {
	err := WrapOp("Linkset.Add", NewDomainError("Link.Validate", ErrInvalidInput, "title"))
	var de *DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "Link.Validate", de.Op)
}

func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(fmt.Errorf("x: %w", ErrRateLimit)))
	assert.True(t, IsRetryableError(ErrTimeout))
	assert.False(t, IsRetryableError(ErrAuthInvalid))
}
