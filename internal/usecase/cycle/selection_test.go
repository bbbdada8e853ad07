package cycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clickloop/internal/domain"
)

func link(id string, iterations int, enabled bool) domain.Link {
	return domain.Link{ID: id, Title: id, URL: "https://" + id + ".example", IntervalSec: 5, Iterations: iterations, Enabled: enabled}
}

func TestSelectNext_SequentialWrapsAndSkips(t *testing.T) {
	links := []domain.Link{link("a", 0, true), link("b", 0, false), link("c", 0, true)}
	in := SelectInput{Links: links, Visits: map[string]int{}, Mode: domain.ModeSequential, CurrentIndex: -1}

	var got []string
	for i := 0; i < 5; i++ {
		sel, ok := SelectNext(in)
		require.True(t, ok)
		got = append(got, sel.Link.ID)
		in.CurrentIndex = sel.Index
	}
	assert.Equal(t, []string{"a", "c", "a", "c", "a"}, got)
}

func TestSelectNext_IndexIsFullListPosition(t *testing.T) {
	links := []domain.Link{link("a", 0, false), link("b", 0, false), link("c", 0, true)}
	sel, ok := SelectNext(SelectInput{Links: links, Visits: map[string]int{}, Mode: domain.ModeSequential, CurrentIndex: -1})
	require.True(t, ok)
	assert.Equal(t, 2, sel.Index)
}

func TestSelectNext_SkipsExhausted(t *testing.T) {
	links := []domain.Link{link("a", 2, true), link("b", 1, true)}
	in := SelectInput{Links: links, Visits: map[string]int{"a": 2}, Mode: domain.ModeSequential, CurrentIndex: 1}
	sel, ok := SelectNext(in)
	require.True(t, ok)
	assert.Equal(t, "b", sel.Link.ID)

	in.Visits["b"] = 1
	_, ok = SelectNext(in)
	assert.False(t, ok)
}

func TestSelectNext_CurrentIndexBeyondShrunkList(t *testing.T) {
	links := []domain.Link{link("a", 0, true), link("b", 0, true)}
	sel, ok := SelectNext(SelectInput{Links: links, Visits: map[string]int{}, Mode: domain.ModeSequential, CurrentIndex: 7})
	require.True(t, ok)
	assert.Equal(t, "a", sel.Link.ID)
}

func TestSelectNext_EmptyList(t *testing.T) {
	_, ok := SelectNext(SelectInput{Visits: map[string]int{}, Mode: domain.ModeSequential, CurrentIndex: -1})
	assert.False(t, ok)
	_, ok = SelectNext(SelectInput{Visits: map[string]int{}, Mode: domain.ModeRandom, CurrentIndex: -1, Intn: func(int) int { return 0 }})
	assert.False(t, ok)
}

func TestSelectNext_Pinned(t *testing.T) {
	links := []domain.Link{link("a", 0, true), link("b", 1, true), link("c", 0, false)}

	tests := []struct {
		name   string
		pin    string
		visits map[string]int
		want   string
		ok     bool
	}{
		{"pinned eligible", "b", map[string]int{}, "b", true},
		{"pinned exhausted", "b", map[string]int{"b": 1}, "", false},
		{"pinned disabled", "c", map[string]int{}, "", false},
		{"pinned missing", "zzz", map[string]int{}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Mode is ignored for pinned runs.
			sel, ok := SelectNext(SelectInput{Links: links, Visits: tt.visits, Mode: domain.ModeRandom, PinnedLinkID: tt.pin, CurrentIndex: -1})
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, sel.Link.ID)
				assert.Equal(t, domain.IndexOfLink(links, tt.want), sel.Index)
			}
		})
	}
}

func TestSelectNext_RandomOnlyEligible(t *testing.T) {
	links := []domain.Link{link("a", 0, false), link("b", 1, true), link("c", 0, true), link("d", 0, true)}
	visits := map[string]int{"b": 1}

	for pick := 0; pick < 2; pick++ {
		var gotN int
		sel, ok := SelectNext(SelectInput{
			Links: links, Visits: visits, Mode: domain.ModeRandom, CurrentIndex: -1,
			Intn: func(n int) int { gotN = n; return pick },
		})
		require.True(t, ok)
		assert.Equal(t, 2, gotN, "candidate set excludes disabled and exhausted links")
		assert.Contains(t, []string{"c", "d"}, sel.Link.ID)
		assert.Equal(t, domain.IndexOfLink(links, sel.Link.ID), sel.Index)
	}
}
