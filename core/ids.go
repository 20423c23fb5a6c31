// Package core holds the value types shared by every layer of the search: the
// identifier of a volume, the tagged volume itself and the overlap pair.
package core

import (
	"cmp"
	"fmt"

	"github.com/hupe1980/coarsesearch/geom"
)

// Ident identifies a volume across the whole process group.
//
// ID is the caller's global id and Proc the rank that owns the volume. The pair is
// unique over the distributed collection and ordered by (ID, Proc).
type Ident struct {
	ID   uint64
	Proc int
}

// Compare orders identifiers by ID, then by Proc.
func (i Ident) Compare(o Ident) int {
	if c := cmp.Compare(i.ID, o.ID); c != 0 {
		return c
	}
	return cmp.Compare(i.Proc, o.Proc)
}

// Less reports whether i sorts before o.
func (i Ident) Less(o Ident) bool { return i.Compare(o) < 0 }

func (i Ident) String() string {
	return fmt.Sprintf("{id:%d proc:%d}", i.ID, i.Proc)
}

// Item is a bounding volume tagged with its identifier.
type Item struct {
	Volume geom.Volume
	Ident  Ident
}

// NewItem returns v tagged with (id, proc).
func NewItem(v geom.Volume, id uint64, proc int) Item {
	return Item{Volume: v, Ident: Ident{ID: id, Proc: proc}}
}

// Pair is an overlap between an item of collection A and an item of collection B.
type Pair struct {
	A Ident
	B Ident
}

// Swap returns the pair with its components exchanged.
func (p Pair) Swap() Pair { return Pair{A: p.B, B: p.A} }

// Compare orders pairs by A, then by B.
func (p Pair) Compare(o Pair) int {
	if c := p.A.Compare(o.A); c != 0 {
		return c
	}
	return p.B.Compare(o.B)
}

func (p Pair) String() string {
	return fmt.Sprintf("(%s, %s)", p.A, p.B)
}
