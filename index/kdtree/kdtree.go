// Package kdtree implements a balanced k-d tree over axis-aligned boxes.
//
// The tree partitions boxes by the centres of their bounds. Each node keeps the
// union box of its subtree, so a query descends only into subtrees whose union
// overlaps the query box. Leaves hold at most Options.LeafSize boxes, which are
// tested directly.
//
// Construction sorts a permutation of positions; the input slice is never
// reordered. The tree is immutable after New returns and may be queried from
// multiple goroutines.
package kdtree

import (
	"cmp"
	"iter"
	"slices"

	"github.com/hupe1980/coarsesearch/geom"
	"github.com/hupe1980/coarsesearch/index"
)

// Compile-time check to ensure Tree satisfies the index interface.
var _ index.Index = (*Tree)(nil)

// Options contains configuration options for the k-d tree.
type Options struct {
	// LeafSize is the maximum number of boxes stored in a leaf.
	// Values below 1 are treated as 1.
	LeafSize int
}

// DefaultOptions contains the default configuration options for the k-d tree.
var DefaultOptions = Options{
	LeafSize: 8,
}

const noChild = -1

type node struct {
	bounds geom.Box

	// Internal nodes.
	axis        int
	split       float64
	left, right int32

	// Leaves: perm[start:end].
	start, end int32
}

func (n *node) leaf() bool { return n.left == noChild }

// Tree is a read-only k-d tree.
type Tree struct {
	boxes   []geom.Box
	centers [][geom.Dims]float64
	perm    []int
	nodes   []node
	depth   int
	opts    Options
}

// New builds a tree over boxes. The slice is retained, not copied.
func New(boxes []geom.Box, optFns ...func(o *Options)) *Tree {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.LeafSize < 1 {
		opts.LeafSize = 1
	}

	t := &Tree{
		boxes:   boxes,
		centers: make([][geom.Dims]float64, len(boxes)),
		perm:    make([]int, len(boxes)),
		opts:    opts,
	}
	for i, b := range boxes {
		t.centers[i] = b.Center()
		t.perm[i] = i
	}
	if len(boxes) > 0 {
		// A balanced tree has about 2n/LeafSize nodes.
		t.nodes = make([]node, 0, 2*len(boxes)/opts.LeafSize+1)
		t.build(0, len(boxes), 1)
	}
	return t
}

func (*Tree) Name() string { return "KDTree" }

// build creates the node for perm[lo:hi] and returns its index.
func (t *Tree) build(lo, hi, depth int) int32 {
	if depth > t.depth {
		t.depth = depth
	}

	idx := int32(len(t.nodes))
	t.nodes = append(t.nodes, node{left: noChild, right: noChild, start: int32(lo), end: int32(hi)})

	bounds := geom.EmptyBox()
	cmin := [geom.Dims]float64{}
	cmax := [geom.Dims]float64{}
	for i, p := range t.perm[lo:hi] {
		bounds = bounds.Extend(t.boxes[p])
		c := t.centers[p]
		if i == 0 {
			cmin, cmax = c, c
			continue
		}
		for d := 0; d < geom.Dims; d++ {
			cmin[d] = min(cmin[d], c[d])
			cmax[d] = max(cmax[d], c[d])
		}
	}
	t.nodes[idx].bounds = bounds

	if hi-lo <= t.opts.LeafSize {
		return idx
	}

	axis := widestAxis(cmin, cmax)
	if cmax[axis] <= cmin[axis] {
		// All centres coincide; split on the longest box extent instead.
		ext := bounds.Extent()
		axis = widestAxis([geom.Dims]float64{}, ext)
	}

	part := t.perm[lo:hi]
	slices.SortFunc(part, func(a, b int) int {
		if c := cmp.Compare(t.centers[a][axis], t.centers[b][axis]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	mid := lo + (hi-lo)/2

	left := t.build(lo, mid, depth+1)
	right := t.build(mid, hi, depth+1)

	n := &t.nodes[idx]
	n.axis = axis
	n.split = t.centers[t.perm[mid]][axis]
	n.left = left
	n.right = right
	return idx
}

func widestAxis(lo, hi [geom.Dims]float64) int {
	axis := 0
	for d := 1; d < geom.Dims; d++ {
		if hi[d]-lo[d] > hi[axis]-lo[axis] {
			axis = d
		}
	}
	return axis
}

// Len returns the number of indexed boxes.
func (t *Tree) Len() int { return len(t.boxes) }

// Bounds returns the union of all indexed boxes.
func (t *Tree) Bounds() geom.Box {
	if len(t.nodes) == 0 {
		return geom.EmptyBox()
	}
	return t.nodes[0].bounds
}

// Query yields the position of every indexed box overlapping q.
func (t *Tree) Query(q geom.Box) iter.Seq[int] {
	return func(yield func(int) bool) {
		if len(t.nodes) == 0 {
			return
		}
		stack := make([]int32, 1, 2*t.depth+1)
		stack[0] = 0
		for len(stack) > 0 {
			n := &t.nodes[stack[len(stack)-1]]
			stack = stack[:len(stack)-1]

			if !geom.Overlaps(n.bounds, q) {
				continue
			}
			if n.leaf() {
				for _, p := range t.perm[n.start:n.end] {
					if geom.Overlaps(t.boxes[p], q) && !yield(p) {
						return
					}
				}
				continue
			}
			stack = append(stack, n.right, n.left)
		}
	}
}
