// Package coarsesearch finds every overlapping pair of bounding volumes between
// two collections that are spread across a group of cooperating processes.
//
// Each process (rank) holds an arbitrary share of collection A and collection B.
// Volumes are points, spheres or axis-aligned boxes in 2-D or 3-D, each tagged
// with an identifier. A collective call to Search returns, on every rank, the
// pairs (a, b) whose volumes overlap and where the rank owns a, b or both.
// Pairs whose members live on different ranks are found too.
//
// # Quick Start
//
// Single process:
//
//	a := []coarsesearch.Item{coarsesearch.NewItem(geom.Sphere2(0, 0, 1), 1, 0)}
//	b := []coarsesearch.Item{coarsesearch.NewItem(geom.Point2(0.5, 0), 2, 0)}
//	pairs, err := coarsesearch.Search(ctx, a, b, coarsesearch.KDTree, comm.Single())
//
// In-process group of four ranks, one goroutine each:
//
//	perRank, err := local.Gather(ctx, 4, func(ctx context.Context, c comm.Communicator) ([]coarsesearch.Pair, error) {
//	    return coarsesearch.Search(ctx, a[c.Rank()], b[c.Rank()], coarsesearch.KDTree, c)
//	})
//
// Any transport can be used by implementing comm.Communicator.
//
// # Overlap Semantics
//
// Touching counts as overlap. Sphere pairs compare squared centre distance with
// the squared radius sum. A sphere and a point overlap when the point lies within
// the radius. Any pair involving a box compares enclosing boxes, so box/point
// is containment and box/sphere is conservative.
//
// # Collective Contract
//
// Search must be called by every rank of the group, with the same method and
// wire options. Invalid input on any rank, a communication failure or an
// exhausted memory budget makes the call fail on every rank. Cancellation of the
// context aborts the call on the cancelling rank; its peers then fail with
// ErrCommunication once their transport notices.
//
// # Observability
//
// Search logs through a *Logger (silent by default) and reports to a
// MetricsCollector. The metrics/prom package provides a Prometheus collector.
//
//	pairs, err := coarsesearch.Search(ctx, a, b, coarsesearch.KDTree, c,
//	    coarsesearch.WithLogger(coarsesearch.NewJSONLogger(slog.LevelDebug)),
//	    coarsesearch.WithMetricsCollector(&coarsesearch.BasicMetricsCollector{}),
//	)
package coarsesearch
