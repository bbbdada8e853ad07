package uxerror

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"clickloop/internal/domain"
)

func TestHumanize(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantTitle string
		wantCode  domain.ErrorCode
	}{
		{"no links", domain.NewDomainError("Cycle.Start", domain.ErrNoEnabledLinks, ""), "No Enabled Links", domain.CodeNoEnabledLinks},
		{"wrapped active", fmt.Errorf("outer: %w", domain.NewDomainError("linkset.Update", domain.ErrCycleActive, "")), "Cycle Active", domain.CodeCycleActive},
		{"invalid link", domain.NewSubSystemError("link", "Link.Validate", domain.ErrInvalidInput, "title is required"), "Invalid Input", domain.CodeLinkInvalid},
		{"not found", domain.NewSubSystemError("link", "linkset.Delete", domain.ErrNotFound, `link "x"`), "Not Found", domain.CodeLinkNotFound},
		{"network", errors.New("dial tcp 127.0.0.1:9222: connection refused"), "Connection Failed", domain.CodeUnknown},
		{"other", errors.New("boom"), "Unexpected Error", domain.CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fe := Humanize(tt.err)
			assert.Equal(t, tt.wantTitle, fe.Title)
			assert.Equal(t, tt.wantCode, fe.Code)
			assert.Equal(t, tt.err.Error(), fe.Raw)
		})
	}
}

func TestHumanizeDetail(t *testing.T) {
	fe := Humanize(domain.WrapOp("linkset.Add", domain.NewSubSystemError("link", "Link.Validate", domain.ErrInvalidInput, "title is required")))
	assert.Equal(t, "title is required", fe.Message)
}

func TestRender(t *testing.T) {
	out := Humanize(domain.ErrNoEnabledLinks).Render()
	assert.True(t, strings.HasPrefix(out, "No Enabled Links\n"))
	assert.Contains(t, out, "Suggestions:")
	assert.Contains(t, out, "clickloop link add")
}
