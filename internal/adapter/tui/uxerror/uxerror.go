// Package uxerror translates raw errors into user-friendly messages with
// recovery hints for the TUI and the CLI.
package uxerror

import (
	"errors"
	"fmt"
	"strings"

	"clickloop/internal/adapter/tui/theme"
	"clickloop/internal/domain"
)

// FriendlyError is a user-facing error with suggestions for recovery.
type FriendlyError struct {
	Title   string   // short heading, e.g. "No Enabled Links"
	Message string   // one-liner explanation
	Hints   []string // actionable recovery suggestions
	Code    domain.ErrorCode
	Raw     string // original error text
}

// Render formats the FriendlyError as a multi-line block.
func (fe FriendlyError) Render() string {
	var sb strings.Builder
	sb.WriteString(fe.Title)
	if fe.Message != "" {
		sb.WriteString("\n  ")
		sb.WriteString(fe.Message)
	}
	if len(fe.Hints) > 0 {
		sb.WriteString("\n  Suggestions:")
		for _, h := range fe.Hints {
			sb.WriteString(fmt.Sprintf("\n    %s %s", theme.SymbolBullet, h))
		}
	}
	return sb.String()
}

type errorPattern struct {
	match   func(err error) bool
	produce func(err error) FriendlyError
}

var patterns = []errorPattern{
	// Domain sentinels first so errors.Is works through wrapping.
	{
		match: is(domain.ErrNoEnabledLinks),
		produce: constantError("No Enabled Links", "There is nothing to cycle through.",
			[]string{"Add a link with 'clickloop link add <url>'", "Enable a link with 'clickloop link toggle <id>'"}),
	},
	{
		match: is(domain.ErrLinkNotEnabled),
		produce: constantError("Link Not Enabled", "A single-link loop needs an enabled link.",
			[]string{"Enable it with 'clickloop link toggle <id>'", "Check the id with 'clickloop link list'"}),
	},
	{
		match:   is(domain.ErrAlreadyRunning),
		produce: constantError("Already Running", "A cycle is already in progress.", []string{"Stop it first, or pause and resume it"}),
	},
	{
		match:   is(domain.ErrCycleActive),
		produce: constantError("Cycle Active", "Links cannot be edited while a cycle is running.", []string{"Stop the cycle, then edit"}),
	},
	{
		match:   is(domain.ErrNoSuggestion),
		produce: constantError("No Suggestions", "The suggester returned no usable URLs.", []string{"Try a broader topic", "Pass example URLs to steer the result"}),
	},
	{
		match: is(domain.ErrDecryption),
		produce: constantError("Decryption Failed", "An encrypted config value could not be read.",
			[]string{"Check CLICKLOOP_CONFIG_KEY", "Re-encrypt the value with 'clickloop encrypt'"}),
	},
	{
		match: is(domain.ErrNotFound),
		produce: func(err error) FriendlyError {
			return FriendlyError{Title: "Not Found", Message: detailOf(err), Hints: []string{"List links with 'clickloop link list'"}, Raw: err.Error()}
		},
	},
	{
		match: is(domain.ErrInvalidInput),
		produce: func(err error) FriendlyError {
			return FriendlyError{Title: "Invalid Input", Message: detailOf(err), Raw: err.Error()}
		},
	},
	{
		match: is(domain.ErrAuthInvalid),
		produce: constantError("Authentication Failed", "The API key or token was rejected.",
			[]string{"Check llm.provider.api_key or CLICKLOOP_LLM_API_KEY", "Verify the key hasn't expired"}),
	},
	{
		match:   is(domain.ErrRateLimit),
		produce: constantError("Rate Limited", "Too many requests sent to the provider.", []string{"Wait a moment before retrying"}),
	},
	{
		match:   is(domain.ErrTimeout),
		produce: constantError("Request Timed Out", "The request took too long to complete.", []string{"Check your network connection", "Increase the timeout in config"}),
	},

	// Network / connectivity patterns (string matching for external errors).
	{
		match: containsAny("connection refused", "dial tcp", "no such host"),
		produce: constantError("Connection Failed", "Could not reach the remote service.",
			[]string{"Check your internet connection", "Verify the service URL in config"}),
	},
	{
		match: containsAny("exec: \"google-chrome\"", "executable file not found", "chrome failed to start"),
		produce: constantError("Browser Not Found", "Chrome or Chromium could not be started.",
			[]string{"Install Chrome or Chromium", "Set display.remote_url to a running browser", "Use display.backend: frame or none"}),
	},
}

// Humanize converts a raw error into a FriendlyError with recovery hints.
func Humanize(err error) FriendlyError {
	if err == nil {
		return FriendlyError{Title: "Unknown Error", Raw: "nil"}
	}
	for _, p := range patterns {
		if p.match(err) {
			fe := p.produce(err)
			fe.Code = domain.ErrorCodeOf(err)
			return fe
		}
	}
	return FriendlyError{
		Title:   "Unexpected Error",
		Message: err.Error(),
		Hints:   []string{"Try again", "Run with logger.level: debug for more details"},
		Code:    domain.ErrorCodeOf(err),
		Raw:     err.Error(),
	}
}

func is(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

// containsAny matches if the error string contains any of substrs (case-insensitive).
func containsAny(substrs ...string) func(error) bool {
	return func(err error) bool {
		lower := strings.ToLower(err.Error())
		for _, s := range substrs {
			if strings.Contains(lower, s) {
				return true
			}
		}
		return false
	}
}

func constantError(title, message string, hints []string) func(error) FriendlyError {
	return func(err error) FriendlyError {
		return FriendlyError{Title: title, Message: message, Hints: hints, Raw: err.Error()}
	}
}

// detailOf returns the innermost DomainError detail, or the error text.
func detailOf(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) && de.Detail != "" {
		return de.Detail
	}
	return err.Error()
}
