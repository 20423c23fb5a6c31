// Package result assembles overlap pairs into a duplicate-free, deterministically
// ordered result.
package result

import (
	"maps"
	"slices"

	"github.com/hupe1980/coarsesearch/core"
)

// Set is a set of overlap pairs. The zero value is ready to use.
// Set is not safe for concurrent use.
type Set struct {
	pairs map[core.Pair]struct{}
}

// NewSet returns a set with room for n pairs.
func NewSet(n int) *Set {
	return &Set{pairs: make(map[core.Pair]struct{}, n)}
}

// Add inserts p and reports whether it was new.
func (s *Set) Add(p core.Pair) bool {
	if s.pairs == nil {
		s.pairs = make(map[core.Pair]struct{})
	}
	if _, ok := s.pairs[p]; ok {
		return false
	}
	s.pairs[p] = struct{}{}
	return true
}

// AddAll inserts every pair of ps.
func (s *Set) AddAll(ps []core.Pair) {
	for _, p := range ps {
		s.Add(p)
	}
}

// Merge inserts every pair of o.
// Contains reports whether p is in the set.
func (s *Set) Contains(p core.Pair) bool {
	_, ok := s.pairs[p]
	return ok
}

// Len returns the number of pairs.
func (s *Set) Len() int { return len(s.pairs) }

// Sorted returns the pairs ordered by (A.ID, A.Proc, B.ID, B.Proc).
func (s *Set) Sorted() []core.Pair {
	out := slices.AppendSeq(make([]core.Pair, 0, len(s.pairs)), maps.Keys(s.pairs))
	slices.SortFunc(out, core.Pair.Compare)
	return out
}
