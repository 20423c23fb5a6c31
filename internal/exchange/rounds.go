package exchange

import (
	"context"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/coarsesearch/codec"
	"github.com/hupe1980/coarsesearch/comm"
	"github.com/hupe1980/coarsesearch/core"
	"github.com/hupe1980/coarsesearch/internal/conv"
	"github.com/hupe1980/coarsesearch/internal/result"
	"github.com/hupe1980/coarsesearch/searcher"
	"golang.org/x/sync/errgroup"
)

type outgoing struct {
	dest    int
	payload []byte
}

// send delivers msgs in order, throttled by the bandwidth limiter.
func (x *exchanger) send(ctx context.Context, tag int, msgs []outgoing) error {
	for _, m := range msgs {
		if err := x.cfg.Controller.AcquireIO(ctx, len(m.payload)); err != nil {
			return comm.Wrap(err, "send", x.rank, m.dest, tag)
		}
		if err := x.c.Send(ctx, m.dest, tag, m.payload); err != nil {
			return err
		}
	}
	return nil
}

// volumeRound ships items along the send lists and returns the items received
// from every source, indexed by source rank. Sends and receives run
// concurrently so the round cannot deadlock on a rendezvous transport.
func (x *exchanger) volumeRound(ctx context.Context, shipped []core.Item, lists []*roaring.Bitmap, matrix [][]uint64) ([][]core.Item, error) {
	var msgs []outgoing
	for q, bm := range lists {
		if bm == nil {
			continue
		}
		items := make([]core.Item, 0, bm.GetCardinality())
		it := bm.Iterator()
		for it.HasNext() {
			items = append(items, shipped[it.Next()])
		}
		payload, err := codec.EncodeItems(items, x.cfg.Compression)
		if err != nil {
			return nil, fmt.Errorf("encode items for rank %d: %w", q, err)
		}
		msgs = append(msgs, outgoing{dest: q, payload: payload})
		x.report.Peers++
		x.report.Sent += len(items)
		x.report.BytesSent += int64(len(payload))
	}

	received := make([][]core.Item, x.size)
	sizes := make([]int, x.size)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return x.send(gctx, TagVolumes, msgs) })
	for src := range x.size {
		want := matrix[src][x.rank]
		if src == x.rank || want == 0 {
			continue
		}
		g.Go(func() error {
			data, err := x.c.Recv(gctx, src, TagVolumes)
			if err != nil {
				return err
			}
			n, err := conv.Uint64ToInt(want)
			if err != nil {
				return comm.Wrap(fmt.Errorf("%w: %w", codec.ErrCorrupt, err), "decode", x.rank, src, TagVolumes)
			}
			items, err := codec.DecodeItems(make([]core.Item, 0, n), data)
			if err != nil {
				return comm.Wrap(err, "decode", x.rank, src, TagVolumes)
			}
			if len(items) != n {
				return comm.Wrap(fmt.Errorf("%w: got %d items, announced %d", codec.ErrCorrupt, len(items), want), "decode", x.rank, src, TagVolumes)
			}
			received[src] = items
			sizes[src] = len(data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for src, items := range received {
		x.report.Received += len(items)
		x.report.BytesReceived += int64(sizes[src])
	}
	return received, nil
}

// resolve matches the local shipped items and every received item against the
// local resident items. It returns the pairs this rank keeps and, per source
// rank, the pairs that must be returned to it.
func (x *exchanger) resolve(ctx context.Context, shipped, resident []core.Item, received [][]core.Item, shipA bool) (*result.Set, [][]core.Pair, error) {
	total := len(shipped)
	for _, items := range received {
		total += len(items)
	}

	all := make([]core.Item, 0, total)
	owner := make([]int32, 0, total)
	all = append(all, shipped...)
	for range shipped {
		owner = append(owner, int32(x.rank))
	}
	for src, items := range received {
		all = append(all, items...)
		for range items {
			owner = append(owner, int32(src))
		}
	}

	a, b := all, resident
	if !shipA {
		a, b = resident, all
	}

	set := result.NewSet(0)
	replies := make([][]core.Pair, x.size)
	st, err := searcher.Resolve(ctx, a, b, x.resolveOptions(), func(m searcher.Match) {
		p := core.Pair{A: a[m.A].Ident, B: b[m.B].Ident}
		pos := m.B
		if shipA {
			pos = m.A
		}
		set.Add(p)
		if src := int(owner[pos]); src != x.rank {
			replies[src] = append(replies[src], p)
		}
	})
	if err != nil {
		return nil, nil, err
	}
	x.report.Resolve = st
	return set, replies, nil
}

// pairRound answers every source that sent items, possibly with an empty
// batch, and collects the answers of every destination this rank sent to.
func (x *exchanger) pairRound(ctx context.Context, set *result.Set, replies [][]core.Pair, matrix [][]uint64) error {
	var msgs []outgoing
	for src := range x.size {
		if src == x.rank || matrix[src][x.rank] == 0 {
			continue
		}
		payload, err := codec.EncodePairs(replies[src], x.cfg.Compression)
		if err != nil {
			return fmt.Errorf("encode pairs for rank %d: %w", src, err)
		}
		msgs = append(msgs, outgoing{dest: src, payload: payload})
		x.report.Returned += len(replies[src])
	}

	answers := make([][]core.Pair, x.size)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return x.send(gctx, TagPairs, msgs) })
	for dest := range x.size {
		if dest == x.rank || matrix[x.rank][dest] == 0 {
			continue
		}
		g.Go(func() error {
			data, err := x.c.Recv(gctx, dest, TagPairs)
			if err != nil {
				return err
			}
			pairs, err := codec.DecodePairs(nil, data)
			if err != nil {
				return comm.Wrap(err, "decode", x.rank, dest, TagPairs)
			}
			answers[dest] = pairs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, pairs := range answers {
		set.AddAll(pairs)
	}
	return nil
}
