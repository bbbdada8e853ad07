package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinkValidate(t *testing.T) {
	ok := Link{Title: "Go", URL: "https://go.dev", IntervalSec: 1, Iterations: 0}
	assert.NoError(t, ok.Validate())

	tests := []struct {
		name string
		mut  func(*Link)
	}{
		{"empty title", func(l *Link) { l.Title = "  " }},
		{"relative url", func(l *Link) { l.URL = "/path" }},
		{"ftp url", func(l *Link) { l.URL = "ftp://example.com" }},
		{"zero interval", func(l *Link) { l.IntervalSec = 0 }},
		{"negative iterations", func(l *Link) { l.Iterations = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := ok
			tt.mut(&l)
			err := l.Validate()
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Equal(t, CodeLinkInvalid, ErrorCodeOf(err))
		})
	}
}

func TestLinkExhausted(t *testing.T) {
	assert.False(t, Link{Iterations: 0}.Exhausted(100))
	assert.False(t, Link{Iterations: 2}.Exhausted(1))
	assert.True(t, Link{Iterations: 2}.Exhausted(2))
}

func TestParseCycleMode(t *testing.T) {
	m, err := ParseCycleMode("random")
	assert.NoError(t, err)
	assert.Equal(t, ModeRandom, m)

	_, err = ParseCycleMode("shuffle")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSettingsValidate(t *testing.T) {
	assert.NoError(t, DefaultSettings().Validate())
	assert.Error(t, Settings{Mode: ModeSingle, GlobalInterval: -1}.Validate())
	assert.Error(t, Settings{Mode: ModeSingle, MaxTotalIterations: -1}.Validate())
	assert.Error(t, Settings{Mode: "X"}.Validate())
}

func TestIdleRunState(t *testing.T) {
	s := IdleRunState()
	assert.Equal(t, PhaseIdle, s.Phase())
	assert.Equal(t, -1, s.CurrentLinkIndex)
	assert.Empty(t, s.PerLinkVisitCount)

	s.IsRunning, s.IsPaused = true, true
	assert.Equal(t, PhasePaused, s.Phase())

	s.PerLinkVisitCount["a"] = 1
	c := s.Clone()
	c.PerLinkVisitCount["a"] = 5
	assert.Equal(t, 1, s.PerLinkVisitCount["a"])
}
