// Package prom exports search metrics to Prometheus.
//
// A Collector implements coarsesearch.MetricsCollector and registers its
// vectors on a caller-supplied prometheus.Registerer, so several groups in
// one process can use separate registries.
package prom

import (
	"time"

	"github.com/hupe1980/coarsesearch"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "coarsesearch"

	statusSuccess = "success"
	statusError   = "error"
)

// Collector records searches as Prometheus counters and histograms.
type Collector struct {
	// SearchesTotal counts searches by status (success, error).
	SearchesTotal *prometheus.CounterVec
	// SearchDurationSeconds measures end-to-end search latency by status.
	SearchDurationSeconds *prometheus.HistogramVec
	// PairsTotal counts pairs returned to the caller.
	PairsTotal prometheus.Counter
	// ItemsTotal counts shipped items by direction (sent, received).
	ItemsTotal *prometheus.CounterVec
	// BytesTotal counts encoded payload bytes by direction (sent, received).
	BytesTotal *prometheus.CounterVec
	// CandidatesTotal counts exact predicate evaluations.
	CandidatesTotal prometheus.Counter
	// ExchangeDurationSeconds measures the exchange phase alone.
	ExchangeDurationSeconds prometheus.Histogram
}

var _ coarsesearch.MetricsCollector = (*Collector)(nil)

// NewCollector creates the metric vectors and registers them on reg. constLabels
// are attached to every series, e.g. the rank of the caller.
func NewCollector(reg prometheus.Registerer, constLabels prometheus.Labels) (*Collector, error) {
	c := &Collector{
		SearchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "searches_total",
			Help:        "Total number of searches by status",
			ConstLabels: constLabels,
		}, []string{"status"}),
		SearchDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "search_duration_seconds",
			Help:        "Search latency by status",
			Buckets:     prometheus.ExponentialBuckets(0.0005, 2, 16),
			ConstLabels: constLabels,
		}, []string{"status"}),
		PairsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "pairs_total",
			Help:        "Total number of overlapping pairs returned",
			ConstLabels: constLabels,
		}),
		ItemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "exchange",
			Name:        "items_total",
			Help:        "Items shipped between ranks by direction",
			ConstLabels: constLabels,
		}, []string{"direction"}),
		BytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "exchange",
			Name:        "bytes_total",
			Help:        "Encoded item bytes shipped between ranks by direction",
			ConstLabels: constLabels,
		}, []string{"direction"}),
		CandidatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "resolve",
			Name:        "candidates_total",
			Help:        "Exact intersection tests evaluated during local resolution",
			ConstLabels: constLabels,
		}),
		ExchangeDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "exchange",
			Name:        "duration_seconds",
			Help:        "Duration of the exchange phase",
			Buckets:     prometheus.ExponentialBuckets(0.0005, 2, 16),
			ConstLabels: constLabels,
		}),
	}

	for _, m := range []prometheus.Collector{
		c.SearchesTotal,
		c.SearchDurationSeconds,
		c.PairsTotal,
		c.ItemsTotal,
		c.BytesTotal,
		c.CandidatesTotal,
		c.ExchangeDurationSeconds,
	} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNewCollector is like NewCollector but panics on registration errors.
func MustNewCollector(reg prometheus.Registerer, constLabels prometheus.Labels) *Collector {
	c, err := NewCollector(reg, constLabels)
	if err != nil {
		panic(err)
	}
	return c
}

// RecordSearch implements coarsesearch.MetricsCollector.
func (c *Collector) RecordSearch(pairs int, duration time.Duration, err error) {
	status := statusSuccess
	if err != nil {
		status = statusError
	}
	c.SearchesTotal.WithLabelValues(status).Inc()
	c.SearchDurationSeconds.WithLabelValues(status).Observe(duration.Seconds())
	if err == nil {
		c.PairsTotal.Add(float64(pairs))
	}
}

// RecordExchange implements coarsesearch.MetricsCollector.
func (c *Collector) RecordExchange(s coarsesearch.ExchangeStats) {
	c.ItemsTotal.WithLabelValues("sent").Add(float64(s.Sent))
	c.ItemsTotal.WithLabelValues("received").Add(float64(s.Received))
	c.BytesTotal.WithLabelValues("sent").Add(float64(s.BytesSent))
	c.BytesTotal.WithLabelValues("received").Add(float64(s.BytesReceived))
	c.CandidatesTotal.Add(float64(s.Candidates))
	c.ExchangeDurationSeconds.Observe(s.Duration.Seconds())
}
