package kdtree

// Stats describes the shape of a built tree.
type Stats struct {
	Boxes    int
	Nodes    int
	Leaves   int
	Depth    int
	MaxLeaf  int
	LeafSize int
}

// Stats returns structural statistics about the tree.
func (t *Tree) Stats() Stats {
	s := Stats{
		Boxes:    len(t.boxes),
		Nodes:    len(t.nodes),
		Depth:    t.depth,
		LeafSize: t.opts.LeafSize,
	}
	for i := range t.nodes {
		n := &t.nodes[i]
		if !n.leaf() {
			continue
		}
		s.Leaves++
		s.MaxLeaf = max(s.MaxLeaf, int(n.end-n.start))
	}
	return s
}
