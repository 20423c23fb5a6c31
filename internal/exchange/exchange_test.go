package exchange

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hupe1980/coarsesearch/codec"
	"github.com/hupe1980/coarsesearch/comm"
	"github.com/hupe1980/coarsesearch/comm/local"
	"github.com/hupe1980/coarsesearch/core"
	"github.com/hupe1980/coarsesearch/geom"
	"github.com/hupe1980/coarsesearch/index"
	"github.com/hupe1980/coarsesearch/resource"
	"github.com/hupe1980/coarsesearch/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcome struct {
	pairs  []core.Pair
	report Report
}

func runGroup(t *testing.T, g *local.Group, reqs []Request, cfgs func(rank int) Config) []outcome {
	t.Helper()
	out, err := local.GatherGroup(context.Background(), g, func(ctx context.Context, c comm.Communicator) (outcome, error) {
		pairs, rep, err := Run(ctx, c, reqs[c.Rank()], cfgs(c.Rank()))
		return outcome{pairs: pairs, report: rep}, err
	})
	require.NoError(t, err)
	return out
}

func defaultConfig(int) Config { return Config{Method: index.KDTree} }

// owned filters pairs to those with at least one member owned by rank.
func owned(pairs []core.Pair, rank int) []core.Pair {
	var out []core.Pair
	for _, p := range pairs {
		if p.A.Proc == rank || p.B.Proc == rank {
			out = append(out, p)
		}
	}
	return out
}

func TestRunGrid(t *testing.T) {
	a, b := testutil.EightAroundOne(geom.KindSphere, geom.KindSphere, 0.708, 0, 1)
	reqs := []Request{{A: a}, {B: b}}

	out := runGroup(t, local.NewGroup(2), reqs, defaultConfig)
	for rank, o := range out {
		assert.Len(t, o.pairs, 8, "rank %d", rank)
		assert.False(t, o.report.ShipA, "B is the smaller collection")
	}
	assert.Equal(t, out[0].pairs, out[1].pairs)

	assert.Equal(t, 1, out[1].report.Sent)
	assert.Equal(t, 1, out[1].report.Peers)
	assert.Equal(t, 1, out[0].report.Received)
	assert.Equal(t, 8, out[0].report.Returned)
}

func TestRunMatchesBruteForce(t *testing.T) {
	const ranks = 3
	rng := testutil.NewRNG(17)
	space := testutil.Space{Extent: 30, MaxSize: 2}

	var allA, allB []core.Item
	reqs := make([]Request, ranks)
	for r := range ranks {
		reqs[r].A = rng.Items(300, uint64(r*1000), r, space)
		reqs[r].B = rng.Items(200, uint64(r*1000+500), r, space)
		allA = append(allA, reqs[r].A...)
		allB = append(allB, reqs[r].B...)
	}
	want := testutil.BruteForce(allA, allB)
	require.NotEmpty(t, want)

	for _, c := range []codec.Compression{codec.CompressionNone, codec.CompressionLZ4, codec.CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			out := runGroup(t, local.NewGroup(ranks), reqs, func(int) Config {
				return Config{Method: index.KDTree, Compression: c, Workers: 2}
			})
			for r, o := range out {
				assert.Equal(t, owned(want, r), o.pairs, "rank %d", r)
				assert.False(t, o.report.ShipA)
			}
		})
	}
}

func TestRunSingle(t *testing.T) {
	a, b := testutil.EightAroundOne(geom.KindPoint, geom.KindSphere, 1.42, 0, 0)
	pairs, rep, err := Run(context.Background(), comm.Single(), Request{A: a, B: b}, defaultConfig(0))
	require.NoError(t, err)
	assert.Len(t, pairs, 8)
	assert.Equal(t, 1, rep.Ranks)
	assert.Zero(t, rep.Sent)

	_, _, err = Run(context.Background(), comm.Single(), Request{A: a, Invalid: true}, defaultConfig(0))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRunDisjointEnvelopes(t *testing.T) {
	g := local.NewGroup(2)
	reqs := []Request{
		{A: []core.Item{core.NewItem(geom.Sphere2(0, 0, 1), 1, 0)}},
		{B: []core.Item{core.NewItem(geom.Sphere2(10, 0, 1), 2, 1)}},
	}
	out := runGroup(t, g, reqs, defaultConfig)
	for _, o := range out {
		assert.Empty(t, o.pairs)
		assert.Zero(t, o.report.Peers)
	}
	// Two collective rounds, one message per peer each; no point-to-point traffic.
	assert.Equal(t, int64(4), g.Stats().Messages)
}

func TestRunEmptyCollection(t *testing.T) {
	g := local.NewGroup(3)
	a, _ := testutil.TwoSpheres(0, 1, 0)
	out := runGroup(t, g, []Request{{A: a}, {A: a}, {}}, defaultConfig)
	for _, o := range out {
		assert.Empty(t, o.pairs)
	}
	// Only the envelope round takes place.
	assert.Equal(t, int64(6), g.Stats().Messages)
}

func TestRunInvalidInputAbortsAll(t *testing.T) {
	g := local.NewGroup(3)
	a, b := testutil.TwoSpheres(1, 1, 0)
	reqs := []Request{{A: a}, {B: b, Invalid: true}, {}}

	errs := g.Errors(context.Background(), func(ctx context.Context, c comm.Communicator) error {
		_, _, err := Run(ctx, c, reqs[c.Rank()], defaultConfig(c.Rank()))
		return err
	})
	for r, err := range errs {
		assert.ErrorIs(t, err, ErrInvalidInput, "rank %d", r)
		assert.ErrorContains(t, err, "[1]")
	}
}

func TestRunBudgetAbortsAll(t *testing.T) {
	g := local.NewGroup(2)
	a, b := testutil.EightAroundOne(geom.KindSphere, geom.KindSphere, 0.708, 0, 1)
	reqs := []Request{{A: a}, {B: b}}

	// Rank 0 receives one item but may only buffer a few bytes.
	tiny := resource.NewController(resource.Config{MemoryLimitBytes: codec.ItemSize - 1})
	errs := g.Errors(context.Background(), func(ctx context.Context, c comm.Communicator) error {
		cfg := defaultConfig(c.Rank())
		if c.Rank() == 0 {
			cfg.Controller = tiny
		}
		_, _, err := Run(ctx, c, reqs[c.Rank()], cfg)
		return err
	})
	for r, err := range errs {
		assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded, "rank %d", r)
	}
	assert.Zero(t, tiny.MemoryUsage())
}

func TestRunBudgetReleased(t *testing.T) {
	a, b := testutil.EightAroundOne(geom.KindSphere, geom.KindSphere, 0.708, 0, 1)
	reqs := []Request{{A: a}, {B: b}}
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1 << 20})

	out := runGroup(t, local.NewGroup(2), reqs, func(int) Config {
		return Config{Method: index.Linear, Controller: rc}
	})
	assert.Len(t, out[0].pairs, 8)
	assert.Zero(t, rc.MemoryUsage())
}

func TestRunFaultAbortsAll(t *testing.T) {
	boom := errors.New("link down")
	for _, tag := range []int{TagEnvelope, TagCounts, TagVolumes, TagPairs} {
		t.Run(fmt.Sprint(tag), func(t *testing.T) {
			g := local.NewGroup(2, local.WithFault(func(op local.Op, rank, peer, gotTag int) error {
				if rank == 0 && gotTag == tag {
					return boom
				}
				return nil
			}))
			a, b := testutil.EightAroundOne(geom.KindSphere, geom.KindSphere, 0.708, 0, 1)
			reqs := []Request{{A: a}, {B: b}}

			errs := g.Errors(context.Background(), func(ctx context.Context, c comm.Communicator) error {
				_, _, err := Run(ctx, c, reqs[c.Rank()], defaultConfig(c.Rank()))
				return err
			})
			for r, err := range errs {
				assert.ErrorIs(t, err, comm.ErrCommunication, "rank %d", r)
			}
			assert.ErrorIs(t, errs[0], boom)
		})
	}
}

func TestCheckBudgets(t *testing.T) {
	matrix := [][]uint64{
		{0, 2, 0},
		{1, 0, 0},
		{0, 0, 0},
	}
	envs := []codec.Envelope{{Budget: resource.Unlimited}, {Budget: 3 * codec.ItemSize}, {Budget: 0}}

	need, err := checkBudgets(matrix, envs, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3*codec.ItemSize), need)

	envs[1].Budget--
	_, err = checkBudgets(matrix, envs, 0)
	assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
	assert.ErrorContains(t, err, "[1]")
}

func TestSendLists(t *testing.T) {
	shipped := []core.Item{
		core.NewItem(geom.Point2(0, 0), 1, 0),
		core.NewItem(geom.Point2(5, 5), 2, 0),
		core.NewItem(geom.Point2(9, 9), 3, 0),
	}
	own := envelope(shipped)
	envs := []codec.Envelope{
		{EnvB: geom.Box2(0, 0, 9, 9).Bounds()},     // self
		{EnvB: geom.Box2(4, 4, 6, 6).Bounds()},     // overlaps item 2
		{EnvB: geom.EmptyBox()},                    // nothing resident
		{EnvB: geom.Box2(20, 20, 30, 30).Bounds()}, // disjoint
		{EnvB: geom.Box2(-1, -1, 9, 9).Bounds()},   // all
	}
	lists := sendLists(shipped, own, envs, func(e codec.Envelope) geom.Box { return e.EnvB }, 0)

	assert.Nil(t, lists[0])
	assert.Equal(t, []uint32{1}, lists[1].ToArray())
	assert.Nil(t, lists[2])
	assert.Nil(t, lists[3])
	assert.Equal(t, []uint32{0, 1, 2}, lists[4].ToArray())
}
