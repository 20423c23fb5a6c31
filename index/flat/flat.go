// Package flat provides a linear-scan implementation of index.Index.
package flat

import (
	"iter"

	"github.com/hupe1980/coarsesearch/geom"
	"github.com/hupe1980/coarsesearch/index"
)

// Compile-time check to ensure Flat satisfies the index interface.
var _ index.Index = (*Flat)(nil)

// Flat tests every box against every query.
type Flat struct {
	boxes  []geom.Box
	bounds geom.Box
}

// New creates a flat index over boxes. The slice is retained, not copied.
func New(boxes []geom.Box) *Flat {
	return &Flat{
		boxes:  boxes,
		bounds: geom.Union(boxes...),
	}
}

func (*Flat) Name() string { return "Flat" }

// Len returns the number of indexed boxes.
func (f *Flat) Len() int { return len(f.boxes) }

// Bounds returns the union of all indexed boxes.
func (f *Flat) Bounds() geom.Box { return f.bounds }

// Query yields every position whose box overlaps q.
func (f *Flat) Query(q geom.Box) iter.Seq[int] {
	return func(yield func(int) bool) {
		if !geom.Overlaps(f.bounds, q) {
			return
		}
		for i, b := range f.boxes {
			if geom.Overlaps(b, q) && !yield(i) {
				return
			}
		}
	}
}
