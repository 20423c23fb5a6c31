package coarsesearch

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/coarsesearch/codec"
	"github.com/hupe1980/coarsesearch/comm"
	"github.com/hupe1980/coarsesearch/core"
	"github.com/hupe1980/coarsesearch/geom"
	"github.com/hupe1980/coarsesearch/index"
	"github.com/hupe1980/coarsesearch/internal/conv"
	"github.com/hupe1980/coarsesearch/internal/exchange"
)

type (
	// Item is a bounding volume tagged with its identifier.
	Item = core.Item
	// Ident identifies an item globally.
	Ident = core.Ident
	// Pair is an overlapping (A, B) pair of identifiers.
	Pair = core.Pair
	// Method selects the local index.
	Method = index.Method
)

const (
	// KDTree indexes the smaller local collection with a balanced k-d tree.
	KDTree = index.KDTree
	// Linear compares every query against every indexed volume.
	Linear = index.Linear
)

// NewItem tags v with id and the owning rank.
func NewItem(v geom.Volume, id uint64, proc int) Item { return core.NewItem(v, id, proc) }

// Search returns every overlapping (a, b) pair with a from collection A and b
// from collection B where the calling rank owns a, b or both.
//
// Search is collective: every rank of c must call it. a and b are the caller's
// shares of the two collections; either may be empty. A nil c is the
// single-process group. The result is sorted by (A, B) and holds no duplicates.
func Search(ctx context.Context, a, b []Item, method Method, c comm.Communicator, opts ...Option) ([]Pair, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if c == nil {
		c = comm.Single()
	}

	start := time.Now()
	log := o.logger.WithRank(c.Rank(), c.Size()).WithMethod(method)

	pairs, err := search(ctx, a, b, method, c, o, log)
	err = translateError(err)

	o.metricsCollector.RecordSearch(len(pairs), time.Since(start), err)
	log.LogSearch(ctx, len(a), len(b), len(pairs), err)
	if err != nil {
		return nil, err
	}
	return pairs, nil
}

func search(ctx context.Context, a, b []Item, method Method, c comm.Communicator, o options, log *Logger) ([]Pair, error) {
	localErr := validate(a, b, method, o.compression)

	pairs, report, err := exchange.Run(ctx, c, exchange.Request{A: a, B: b, Invalid: localErr != nil}, exchange.Config{
		Method:      method,
		LeafSize:    o.leafSize,
		Workers:     o.workers,
		Compression: o.compression,
		Controller:  o.controller,
		Logger:      log.Logger,
	})
	if localErr != nil {
		// The local cause is more precise than the gathered status.
		return nil, localErr
	}
	if err != nil {
		return nil, err
	}

	st := exchangeStats(report)
	o.metricsCollector.RecordExchange(st)
	log.LogExchange(ctx, st)
	return pairs, nil
}

// validate checks the local input. It reports the first problem found.
func validate(a, b []Item, method Method, compression codec.Compression) error {
	if method != index.KDTree && method != index.Linear {
		return fmt.Errorf("%w: %w: %d", ErrInvalidInput, index.ErrUnknownMethod, int(method))
	}
	if err := compression.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	for _, coll := range []struct {
		name  string
		items []Item
	}{{"A", a}, {"B", b}} {
		for i := range coll.items {
			it := &coll.items[i]
			if err := geom.Validate(it.Volume); err != nil {
				return &InvalidVolumeError{Collection: coll.name, Index: i, Ident: it.Ident, cause: err}
			}
			// Owner ranks travel as int32.
			if _, err := conv.IntToInt32(it.Ident.Proc); err != nil {
				return &InvalidVolumeError{Collection: coll.name, Index: i, Ident: it.Ident, cause: err}
			}
		}
	}
	return nil
}
