// Package searcher resolves overlap pairs between two local collections.
//
// The smaller collection is indexed and every item of the other collection
// queries the index with its enclosing box. Candidates are refined with the exact
// shape predicate before being reported.
package searcher

import (
	"sync"

	"github.com/hupe1980/coarsesearch/core"
	"github.com/hupe1980/coarsesearch/geom"
	"github.com/hupe1980/coarsesearch/index"
)

// Match is a resolved overlap, given as positions into the A and B slices.
type Match struct {
	A int
	B int
}

// Searcher is a reusable execution context for pair resolution.
// It owns the scratch memory required by a resolution pass, eliminating heap
// allocations in the steady state.
//
// Searcher is NOT thread-safe. It is intended to be owned by a single goroutine
// during a resolution pass.
type Searcher struct {
	// Candidates holds index positions returned for the current query.
	Candidates []int

	// Matches accumulates refined overlaps.
	Matches []Match

	// OpsPerformed counts exact predicate evaluations.
	OpsPerformed int
}

var searcherPool = sync.Pool{
	New: func() interface{} {
		return NewSearcher(64)
	},
}

// AcquireSearcher retrieves a Searcher from the pool.
func AcquireSearcher() *Searcher {
	s := searcherPool.Get().(*Searcher)
	s.Reset()
	return s
}

// ReleaseSearcher resets the Searcher and returns it to the pool.
func ReleaseSearcher(s *Searcher) {
	s.Reset()
	searcherPool.Put(s)
}

// NewSearcher creates a Searcher with room for capacity candidates.
func NewSearcher(capacity int) *Searcher {
	return &Searcher{
		Candidates: make([]int, 0, capacity),
		Matches:    make([]Match, 0, capacity),
	}
}

// Reset clears the searcher state for reuse without freeing memory.
func (s *Searcher) Reset() {
	s.Candidates = s.Candidates[:0]
	s.Matches = s.Matches[:0]
	s.OpsPerformed = 0
}

// Query resolves queries[lo:hi] against idx, which was built over the bounds of
// indexed. Matches are appended in caller orientation: when indexedIsA is true
// the indexed position goes to Match.A.
func (s *Searcher) Query(idx index.Index, indexed, queries []core.Item, lo, hi int, indexedIsA bool) {
	for qi := lo; qi < hi; qi++ {
		q := queries[qi].Volume

		s.Candidates = s.Candidates[:0]
		for p := range idx.Query(q.Bounds()) {
			s.Candidates = append(s.Candidates, p)
		}

		for _, p := range s.Candidates {
			s.OpsPerformed++
			if !geom.Intersects(indexed[p].Volume, q) {
				continue
			}
			if indexedIsA {
				s.Matches = append(s.Matches, Match{A: p, B: qi})
			} else {
				s.Matches = append(s.Matches, Match{A: qi, B: p})
			}
		}
	}
}
