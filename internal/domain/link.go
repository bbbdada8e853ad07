package domain

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Defaults applied to links created without explicit values.
const (
	DefaultIntervalSec = 5
	DefaultIterations  = 0
)

// Link is one URL in the cycle.
type Link struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	IntervalSec int    `json:"intervalSec"`
	Iterations  int    `json:"iterations"` // 0 = unlimited
	Enabled     bool   `json:"enabled"`
}

// Exhausted reports whether the link has reached its iteration cap for a run.
func (l Link) Exhausted(visits int) bool {
	return l.Iterations > 0 && visits >= l.Iterations
}

// Validate checks the link fields a user can edit.
func (l Link) Validate() error {
	if strings.TrimSpace(l.Title) == "" {
		return NewSubSystemError("link", "Link.Validate", ErrInvalidInput, "title is required")
	}
	if err := ValidateURL(l.URL); err != nil {
		return err
	}
	if l.IntervalSec < 1 {
		return NewSubSystemError("link", "Link.Validate", ErrInvalidInput,
			fmt.Sprintf("interval must be at least 1 second, got %d", l.IntervalSec))
	}
	if l.Iterations < 0 {
		return NewSubSystemError("link", "Link.Validate", ErrInvalidInput,
			fmt.Sprintf("iterations must be 0 or more, got %d", l.Iterations))
	}
	return nil
}

// ValidateURL accepts absolute http and https URLs only.
func ValidateURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return NewSubSystemError("link", "Link.Validate", ErrInvalidInput,
			fmt.Sprintf("invalid url %q", raw))
	}
	return nil
}

// IndexOfLink returns the position of id in links, or -1.
func IndexOfLink(links []Link, id string) int {
	for i, l := range links {
		if l.ID == id {
			return i
		}
	}
	return -1
}

// EnabledLinks returns the enabled links in list order.
func EnabledLinks(links []Link) []Link {
	out := make([]Link, 0, len(links))
	for _, l := range links {
		if l.Enabled {
			out = append(out, l)
		}
	}
	return out
}

// CycleMode selects how the scheduler picks the next link.
type CycleMode string

const (
	ModeSequential CycleMode = "SEQUENTIAL"
	ModeRandom     CycleMode = "RANDOM"
	ModeSingle     CycleMode = "SINGLE"
)

// ParseCycleMode accepts a mode name in any case.
func ParseCycleMode(s string) (CycleMode, error) {
	switch CycleMode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeSequential:
		return ModeSequential, nil
	case ModeRandom:
		return ModeRandom, nil
	case ModeSingle:
		return ModeSingle, nil
	}
	return "", NewSubSystemError("settings", "Settings.Mode", ErrInvalidInput, fmt.Sprintf("unknown mode %q", s))
}

// DefaultMaxTotalIterations is the safety cap for new installs.
const DefaultMaxTotalIterations = 1000

// Settings is the singleton cycle configuration edited by the user.
type Settings struct {
	Mode               CycleMode `json:"mode"`
	GlobalInterval     int       `json:"globalInterval"`     // seconds, 0 = per-link interval
	MaxTotalIterations int       `json:"maxTotalIterations"` // 0 = unlimited
	UserAgent          string    `json:"userAgent,omitempty"`
}

// DefaultSettings returns the settings used when none are stored.
func DefaultSettings() Settings {
	return Settings{
		Mode:               ModeSequential,
		MaxTotalIterations: DefaultMaxTotalIterations,
	}
}

// Validate checks settings before they are saved.
func (s Settings) Validate() error {
	if _, err := ParseCycleMode(string(s.Mode)); err != nil {
		return err
	}
	if s.GlobalInterval < 0 {
		return NewSubSystemError("settings", "Settings.Validate", ErrInvalidInput, "global interval must be 0 or more")
	}
	if s.MaxTotalIterations < 0 {
		return NewSubSystemError("settings", "Settings.Validate", ErrInvalidInput, "max total iterations must be 0 or more")
	}
	return nil
}

// LinkStore persists the ordered link list.
type LinkStore interface {
	LoadLinks(ctx context.Context) ([]Link, error)
	SaveLinks(ctx context.Context, links []Link) error
}

// SettingsStore persists the settings singleton.
type SettingsStore interface {
	LoadSettings(ctx context.Context) (Settings, error)
	SaveSettings(ctx context.Context, s Settings) error
}
