// Package exchange runs the distributed overlap search across a process group.
//
// Every call is a fixed sequence of rounds:
//
//  1. envelope: AllGather of each rank's envelopes, counts, status and budget.
//  2. counts: AllGather of per-destination item counts, giving every rank the
//     full send matrix.
//  3. volumes: items of the shipped collection go to every rank whose resident
//     envelope they overlap.
//  4. pairs: each receiver answers every source with the pairs found for its
//     items.
//
// The shipped collection is the one with the smaller global count (A on ties).
// All decisions that can make a rank stop early are taken from gathered data,
// so either every rank fails or none does.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/coarsesearch/codec"
	"github.com/hupe1980/coarsesearch/comm"
	"github.com/hupe1980/coarsesearch/core"
	"github.com/hupe1980/coarsesearch/geom"
	"github.com/hupe1980/coarsesearch/index"
	"github.com/hupe1980/coarsesearch/internal/result"
	"github.com/hupe1980/coarsesearch/resource"
	"github.com/hupe1980/coarsesearch/searcher"
)

// ErrInvalidInput is returned on every rank when at least one rank reported
// invalid local input.
var ErrInvalidInput = errors.New("invalid input")

// Protocol round tags.
const (
	TagEnvelope = 101
	TagCounts   = 102
	TagVolumes  = 103
	TagPairs    = 104
)

// Config controls one exchange.
type Config struct {
	Method      index.Method
	LeafSize    int
	Workers     int
	Compression codec.Compression
	Controller  *resource.Controller
	Logger      *slog.Logger
}

// Request is one rank's input.
type Request struct {
	A []core.Item
	B []core.Item

	// Invalid marks local input that failed validation. The rank still takes
	// part in the envelope round so that every rank fails together.
	Invalid bool
}

// Report describes what an exchange did on the calling rank.
type Report struct {
	Ranks int
	// ShipA is true when collection A was shipped.
	ShipA bool
	// Peers is the number of ranks this rank sent items to.
	Peers         int
	Sent          int
	Received      int
	BytesSent     int64
	BytesReceived int64
	// Returned is the number of pairs sent back to item owners.
	Returned int
	Resolve  searcher.Stats
	Duration time.Duration
}

// Run executes the exchange on the calling rank and returns every pair for
// which the rank owns at least one item, sorted.
func Run(ctx context.Context, c comm.Communicator, req Request, cfg Config) ([]core.Pair, Report, error) {
	start := time.Now()
	x := &exchanger{c: c, rank: c.Rank(), size: c.Size(), cfg: cfg, log: cfg.Logger}
	if x.log == nil {
		x.log = slog.New(slog.DiscardHandler)
	}
	x.report.Ranks = x.size

	pairs, err := x.run(ctx, req)
	x.report.Duration = time.Since(start)
	if err != nil {
		if isContextErr(err) && !errors.Is(err, comm.ErrCommunication) {
			err = comm.Wrap(err, "exchange", x.rank, -1, 0)
		}
		return nil, x.report, err
	}
	return pairs, x.report, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

type exchanger struct {
	c      comm.Communicator
	rank   int
	size   int
	cfg    Config
	log    *slog.Logger
	report Report
}

func (x *exchanger) resolveOptions() searcher.Options {
	return searcher.Options{
		Method:     x.cfg.Method,
		LeafSize:   x.cfg.LeafSize,
		Workers:    x.cfg.Workers,
		Controller: x.cfg.Controller,
	}
}

func (x *exchanger) run(ctx context.Context, req Request) ([]core.Pair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if x.size == 1 {
		return x.runSingle(ctx, req)
	}

	envs, err := x.envelopeRound(ctx, req)
	if err != nil {
		return nil, err
	}
	if bad := invalidRanks(envs); len(bad) > 0 {
		return nil, fmt.Errorf("%w: reported by rank(s) %v", ErrInvalidInput, bad)
	}

	var totalA, totalB uint64
	for _, e := range envs {
		totalA += e.CountA
		totalB += e.CountB
	}
	shipA := totalA <= totalB
	x.report.ShipA = shipA
	if totalA == 0 || totalB == 0 {
		x.log.Debug("exchange skipped", "rank", x.rank, "total_a", totalA, "total_b", totalB)
		return nil, nil
	}

	shipped, resident := req.A, req.B
	envShip := func(e codec.Envelope) geom.Box { return e.EnvA }
	envRes := func(e codec.Envelope) geom.Box { return e.EnvB }
	if !shipA {
		shipped, resident = req.B, req.A
		envShip, envRes = envRes, envShip
	}

	lists := sendLists(shipped, envShip(envs[x.rank]), envs, envRes, x.rank)
	counts := make([]uint64, x.size)
	for q, bm := range lists {
		if bm != nil {
			counts[q] = bm.GetCardinality()
		}
	}

	matrix, err := x.countsRound(ctx, counts)
	if err != nil {
		return nil, err
	}
	need, err := checkBudgets(matrix, envs, x.rank)
	if err != nil {
		return nil, err
	}
	if err := x.cfg.Controller.AcquireMemory(ctx, need); err != nil {
		return nil, err
	}
	defer x.cfg.Controller.ReleaseMemory(need)

	received, err := x.volumeRound(ctx, shipped, lists, matrix)
	if err != nil {
		return nil, err
	}

	set, replies, err := x.resolve(ctx, shipped, resident, received, shipA)
	if err != nil {
		return nil, err
	}

	if err := x.pairRound(ctx, set, replies, matrix); err != nil {
		return nil, err
	}

	x.log.Debug("exchange completed",
		"rank", x.rank,
		"ship_a", shipA,
		"peers", x.report.Peers,
		"sent", x.report.Sent,
		"received", x.report.Received,
		"pairs", set.Len(),
		"index", x.report.Resolve.Index,
		"index_depth", x.report.Resolve.Depth,
		"candidates", x.report.Resolve.Candidates,
	)
	return set.Sorted(), nil
}

func (x *exchanger) runSingle(ctx context.Context, req Request) ([]core.Pair, error) {
	if req.Invalid {
		return nil, fmt.Errorf("%w: reported by rank(s) [0]", ErrInvalidInput)
	}
	x.report.ShipA = len(req.A) <= len(req.B)

	var set result.Set
	st, err := searcher.Resolve(ctx, req.A, req.B, x.resolveOptions(), func(m searcher.Match) {
		set.Add(core.Pair{A: req.A[m.A].Ident, B: req.B[m.B].Ident})
	})
	if err != nil {
		return nil, err
	}
	x.report.Resolve = st
	return set.Sorted(), nil
}

// envelope computes the tightest box around the bounds of items.
func envelope(items []core.Item) geom.Box {
	env := geom.EmptyBox()
	for i := range items {
		env = env.Extend(items[i].Volume.Bounds())
	}
	return env
}

func (x *exchanger) envelopeRound(ctx context.Context, req Request) ([]codec.Envelope, error) {
	own := codec.Envelope{
		EnvA:   envelope(req.A),
		EnvB:   envelope(req.B),
		CountA: uint64(len(req.A)),
		CountB: uint64(len(req.B)),
		Status: codec.StatusOK,
		Budget: x.cfg.Controller.Available(),
	}
	if req.Invalid {
		own.Status = codec.StatusInvalidInput
	}

	payloads, err := x.c.AllGather(ctx, TagEnvelope, codec.EncodeEnvelope(own))
	if err != nil {
		return nil, err
	}
	if len(payloads) != x.size {
		return nil, comm.Wrap(fmt.Errorf("gathered %d envelopes from %d ranks", len(payloads), x.size), "allgather", x.rank, -1, TagEnvelope)
	}

	envs := make([]codec.Envelope, x.size)
	for q, p := range payloads {
		if envs[q], err = codec.DecodeEnvelope(p); err != nil {
			return nil, comm.Wrap(err, "decode", x.rank, q, TagEnvelope)
		}
	}
	return envs, nil
}

func invalidRanks(envs []codec.Envelope) []int {
	var bad []int
	for q, e := range envs {
		if e.Status != codec.StatusOK {
			bad = append(bad, q)
		}
	}
	return bad
}

// sendLists returns, per destination rank, the positions of shipped items whose
// bounds overlap that rank's resident envelope. Entries are nil for ranks that
// receive nothing, including the caller itself.
func sendLists(shipped []core.Item, own geom.Box, envs []codec.Envelope, envRes func(codec.Envelope) geom.Box, self int) []*roaring.Bitmap {
	lists := make([]*roaring.Bitmap, len(envs))
	if own.Empty() {
		return lists
	}

	bounds := make([]geom.Box, len(shipped))
	for i := range shipped {
		bounds[i] = shipped[i].Volume.Bounds()
	}

	for q, e := range envs {
		res := envRes(e)
		if q == self || res.Empty() || !geom.Overlaps(own, res) {
			continue
		}
		bm := roaring.New()
		for i := range bounds {
			if geom.Overlaps(bounds[i], res) {
				bm.Add(uint32(i))
			}
		}
		if !bm.IsEmpty() {
			lists[q] = bm
		}
	}
	return lists
}

func (x *exchanger) countsRound(ctx context.Context, counts []uint64) ([][]uint64, error) {
	payloads, err := x.c.AllGather(ctx, TagCounts, codec.EncodeCounts(counts))
	if err != nil {
		return nil, err
	}
	matrix := make([][]uint64, x.size)
	for q, p := range payloads {
		row, err := codec.DecodeCounts(p)
		if err != nil {
			return nil, comm.Wrap(err, "decode", x.rank, q, TagCounts)
		}
		if len(row) != x.size {
			return nil, comm.Wrap(fmt.Errorf("%w: %d counts for %d ranks", codec.ErrCorrupt, len(row), x.size), "decode", x.rank, q, TagCounts)
		}
		matrix[q] = row
	}
	return matrix, nil
}

// checkBudgets verifies the item buffers of every rank against the budget it
// published and returns the requirement of rank self. matrix[src][dst] is the
// number of items src sends to dst.
func checkBudgets(matrix [][]uint64, envs []codec.Envelope, self int) (int64, error) {
	needs := make([]int64, len(matrix))
	for src, row := range matrix {
		for dst, n := range row {
			b := int64(n) * codec.ItemSize
			needs[src] += b
			needs[dst] += b
		}
	}

	var over []int
	for r, e := range envs {
		if e.Budget != resource.Unlimited && needs[r] > e.Budget {
			over = append(over, r)
		}
	}
	if len(over) > 0 {
		return 0, fmt.Errorf("%w: exchange buffers exceed the budget of rank(s) %v", resource.ErrMemoryLimitExceeded, over)
	}
	return needs[self], nil
}
