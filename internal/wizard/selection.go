package wizard

import (
	"sort"

	"chandlery/internal"
)

// SelectionSet tracks which matched lines move on to supplier assignment.
// Eligibility is fixed at match time: only lines whose verdict is matched
// can ever be selected.
type SelectionSet struct {
	eligible map[internal.OriginalIndex]bool
	selected map[internal.OriginalIndex]bool
}

func NewSelectionSet(match *internal.MatchResult) *SelectionSet {
	s := &SelectionSet{
		eligible: map[internal.OriginalIndex]bool{},
		selected: map[internal.OriginalIndex]bool{},
	}
	if match == nil {
		return s
	}
	for i, r := range match.Results {
		if r.Status == internal.MatchMatched {
			s.eligible[internal.OriginalIndex(i)] = true
		}
	}
	return s
}

func (s *SelectionSet) Toggle(idx internal.OriginalIndex) error {
	if !s.eligible[idx] {
		return ErrNotSelectable
	}
	if s.selected[idx] {
		delete(s.selected, idx)
	} else {
		s.selected[idx] = true
	}
	return nil
}

func (s *SelectionSet) SelectAllMatched() {
	for idx := range s.eligible {
		s.selected[idx] = true
	}
}

func (s *SelectionSet) SelectNone() {
	s.selected = map[internal.OriginalIndex]bool{}
}

func (s *SelectionSet) Has(idx internal.OriginalIndex) bool {
	return s.selected[idx]
}

func (s *SelectionSet) Count() int {
	return len(s.selected)
}

// Indices returns the selected lines in ascending original order.
func (s *SelectionSet) Indices() []internal.OriginalIndex {
	out := make([]internal.OriginalIndex, 0, len(s.selected))
	for idx := range s.selected {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
