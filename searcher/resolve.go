package searcher

import (
	"context"
	"fmt"

	"github.com/hupe1980/coarsesearch/core"
	"github.com/hupe1980/coarsesearch/geom"
	"github.com/hupe1980/coarsesearch/index"
	"github.com/hupe1980/coarsesearch/index/flat"
	"github.com/hupe1980/coarsesearch/index/kdtree"
	"github.com/hupe1980/coarsesearch/resource"
	"golang.org/x/sync/errgroup"
)

// minChunk is the smallest number of queries handed to one worker.
const minChunk = 256

// Options configures a resolution pass.
type Options struct {
	// Method selects the index built over the smaller collection.
	Method index.Method

	// LeafSize is forwarded to the k-d tree (0 selects its default).
	LeafSize int

	// Workers bounds the number of goroutines querying the index.
	// Values <= 1 resolve on the calling goroutine.
	Workers int

	// Controller, if set, caps resolver goroutines across concurrent searches.
	Controller *resource.Controller
}

// Stats reports what a resolution pass did.
type Stats struct {
	// Index is the Name of the index built over the smaller collection.
	Index string
	// Depth and Leaves describe a k-d tree index; both are 0 for LINEAR.
	Depth      int
	Leaves     int
	Indexed    int
	Queried    int
	Candidates int
	Matches    int
}

// NewIndex builds an index of the given method over boxes.
func NewIndex(method index.Method, boxes []geom.Box, leafSize int) (index.Index, error) {
	switch method {
	case index.KDTree:
		return kdtree.New(boxes, func(o *kdtree.Options) {
			if leafSize > 0 {
				o.LeafSize = leafSize
			}
		}), nil
	case index.Linear:
		return flat.New(boxes), nil
	default:
		return nil, fmt.Errorf("%w: %d", index.ErrUnknownMethod, int(method))
	}
}

// Resolve reports every overlapping (a[i], b[j]) through emit. emit is always
// called from the calling goroutine, in ascending query order.
func Resolve(ctx context.Context, a, b []core.Item, opts Options, emit func(Match)) (Stats, error) {
	if len(a) == 0 || len(b) == 0 {
		return Stats{}, nil
	}

	indexed, queries, indexedIsA := b, a, false
	if len(a) < len(b) {
		indexed, queries, indexedIsA = a, b, true
	}

	boxes := make([]geom.Box, len(indexed))
	for i := range indexed {
		boxes[i] = indexed[i].Volume.Bounds()
	}
	idx, err := NewIndex(opts.Method, boxes, opts.LeafSize)
	if err != nil {
		return Stats{}, err
	}

	st := Stats{Index: idx.Name(), Indexed: len(indexed), Queried: len(queries)}
	if t, ok := idx.(*kdtree.Tree); ok {
		ts := t.Stats()
		st.Depth, st.Leaves = ts.Depth, ts.Leaves
	}

	workers := opts.Workers
	if workers <= 1 || len(queries) < 2*minChunk {
		s := AcquireSearcher()
		defer ReleaseSearcher(s)

		s.Query(idx, indexed, queries, 0, len(queries), indexedIsA)
		for _, m := range s.Matches {
			emit(m)
		}
		st.Candidates = s.OpsPerformed
		st.Matches = len(s.Matches)
		return st, nil
	}

	chunk := max(minChunk, (len(queries)+workers-1)/workers)
	parts := make([][]Match, (len(queries)+chunk-1)/chunk)
	ops := make([]int, len(parts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range parts {
		lo := i * chunk
		hi := min(lo+chunk, len(queries))
		g.Go(func() error {
			if err := opts.Controller.AcquireWorker(gctx); err != nil {
				return err
			}
			defer opts.Controller.ReleaseWorker()
			if err := gctx.Err(); err != nil {
				return err
			}

			s := AcquireSearcher()
			defer ReleaseSearcher(s)

			s.Query(idx, indexed, queries, lo, hi, indexedIsA)
			parts[i] = append([]Match(nil), s.Matches...)
			ops[i] = s.OpsPerformed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}

	for i, part := range parts {
		for _, m := range part {
			emit(m)
		}
		st.Candidates += ops[i]
		st.Matches += len(part)
	}
	return st, nil
}

// ResolvePairs is a convenience wrapper returning the overlapping identifier
// pairs of a and b.
func ResolvePairs(ctx context.Context, a, b []core.Item, opts Options) ([]core.Pair, error) {
	var out []core.Pair
	_, err := Resolve(ctx, a, b, opts, func(m Match) {
		out = append(out, core.Pair{A: a[m.A].Ident, B: b[m.B].Ident})
	})
	return out, err
}
