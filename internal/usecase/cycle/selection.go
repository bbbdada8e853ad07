package cycle

import "clickloop/internal/domain"

// Selection is the outcome of one successful pick.
type Selection struct {
	Link  domain.Link
	Index int // position in the full link list
}

// SelectInput is everything the policy looks at. It is never mutated.
type SelectInput struct {
	Links        []domain.Link
	Visits       map[string]int
	Mode         domain.CycleMode
	PinnedLinkID string
	CurrentIndex int
	// Intn returns a uniform int in [0, n). Only used in random mode.
	Intn func(n int) int
}

// SelectNext picks the next link to display. ok is false when no link is
// eligible, which ends the run.
func SelectNext(in SelectInput) (sel Selection, ok bool) {
	if in.PinnedLinkID != "" {
		idx := domain.IndexOfLink(in.Links, in.PinnedLinkID)
		if idx < 0 {
			return Selection{}, false
		}
		l := in.Links[idx]
		if !l.Enabled || l.Exhausted(in.Visits[l.ID]) {
			return Selection{}, false
		}
		return Selection{Link: l, Index: idx}, true
	}

	eligible := func(l domain.Link) bool {
		return l.Enabled && !l.Exhausted(in.Visits[l.ID])
	}

	if in.Mode == domain.ModeRandom {
		candidates := make([]int, 0, len(in.Links))
		for i, l := range in.Links {
			if eligible(l) {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			return Selection{}, false
		}
		idx := candidates[in.Intn(len(candidates))]
		return Selection{Link: in.Links[idx], Index: idx}, true
	}

	// Cyclic forward scan over the full list, starting after CurrentIndex.
	n := len(in.Links)
	for step := 1; step <= n; step++ {
		idx := ((in.CurrentIndex+step)%n + n) % n
		if eligible(in.Links[idx]) {
			return Selection{Link: in.Links[idx], Index: idx}, true
		}
	}
	return Selection{}, false
}
