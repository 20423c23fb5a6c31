package prom

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/hupe1980/coarsesearch"
	"github.com/hupe1980/coarsesearch/comm"
	"github.com/hupe1980/coarsesearch/comm/local"
	"github.com/hupe1980/coarsesearch/geom"
	"github.com/hupe1980/coarsesearch/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSearch(t *testing.T) {
	c := MustNewCollector(prometheus.NewRegistry(), nil)

	c.RecordSearch(4, 2*time.Millisecond, nil)
	c.RecordSearch(2, time.Millisecond, nil)
	c.RecordSearch(9, time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2.0, promtestutil.ToFloat64(c.SearchesTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(c.SearchesTotal.WithLabelValues("error")))
	assert.Equal(t, 6.0, promtestutil.ToFloat64(c.PairsTotal))
	assert.Equal(t, 2, promtestutil.CollectAndCount(c.SearchDurationSeconds))
}

func TestRecordExchange(t *testing.T) {
	c := MustNewCollector(prometheus.NewRegistry(), nil)

	c.RecordExchange(coarsesearch.ExchangeStats{Sent: 3, Received: 5, BytesSent: 200, BytesReceived: 300, Candidates: 11})

	assert.Equal(t, 3.0, promtestutil.ToFloat64(c.ItemsTotal.WithLabelValues("sent")))
	assert.Equal(t, 5.0, promtestutil.ToFloat64(c.ItemsTotal.WithLabelValues("received")))
	assert.Equal(t, 200.0, promtestutil.ToFloat64(c.BytesTotal.WithLabelValues("sent")))
	assert.Equal(t, 300.0, promtestutil.ToFloat64(c.BytesTotal.WithLabelValues("received")))
	assert.Equal(t, 11.0, promtestutil.ToFloat64(c.CandidatesTotal))
}

func TestDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewCollector(reg, nil)
	require.NoError(t, err)

	_, err = NewCollector(reg, nil)
	assert.Error(t, err)
	assert.Panics(t, func() { MustNewCollector(reg, nil) })

	_, err = NewCollector(prometheus.NewRegistry(), prometheus.Labels{"rank": "1"})
	assert.NoError(t, err)
}

func TestCollectorWithSearch(t *testing.T) {
	a, b := testutil.EightAroundOne(geom.KindBox, geom.KindSphere, 0.5, 0, 1)
	inA := [][]coarsesearch.Item{a, nil}
	inB := [][]coarsesearch.Item{nil, b}

	collectors := make([]*Collector, 2)
	for rank := range collectors {
		collectors[rank] = MustNewCollector(prometheus.NewRegistry(), prometheus.Labels{"rank": strconv.Itoa(rank)})
	}

	_, err := local.Gather(context.Background(), 2, func(ctx context.Context, c comm.Communicator) ([]coarsesearch.Pair, error) {
		return coarsesearch.Search(ctx, inA[c.Rank()], inB[c.Rank()], coarsesearch.KDTree, c,
			coarsesearch.WithMetricsCollector(collectors[c.Rank()]))
	})
	require.NoError(t, err)

	for rank, c := range collectors {
		assert.Equal(t, 1.0, promtestutil.ToFloat64(c.SearchesTotal.WithLabelValues("success")), "rank %d", rank)
		assert.Equal(t, 8.0, promtestutil.ToFloat64(c.PairsTotal), "rank %d", rank)
	}
	assert.Equal(t, 1.0, promtestutil.ToFloat64(collectors[1].ItemsTotal.WithLabelValues("sent")))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(collectors[0].ItemsTotal.WithLabelValues("received")))
}
