package coarsesearch

import (
	"sync/atomic"
	"time"

	"github.com/hupe1980/coarsesearch/internal/exchange"
)

// ExchangeStats describes the traffic of one search on the calling rank.
type ExchangeStats struct {
	Ranks int
	// ShipA is true when collection A travelled to the peers.
	ShipA bool
	// Peers is the number of ranks items were sent to.
	Peers         int
	Sent          int
	Received      int
	BytesSent     int64
	BytesReceived int64
	// Returned is the number of pairs sent back to item owners.
	Returned int
	// Candidates counts exact predicate evaluations in local resolution.
	Candidates int
	Matches    int
	Duration   time.Duration
}

func exchangeStats(r exchange.Report) ExchangeStats {
	return ExchangeStats{
		Ranks:         r.Ranks,
		ShipA:         r.ShipA,
		Peers:         r.Peers,
		Sent:          r.Sent,
		Received:      r.Received,
		BytesSent:     r.BytesSent,
		BytesReceived: r.BytesReceived,
		Returned:      r.Returned,
		Candidates:    r.Resolve.Candidates,
		Matches:       r.Resolve.Matches,
		Duration:      r.Duration,
	}
}

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// metrics/prom package ships a Prometheus implementation.
type MetricsCollector interface {
	// RecordSearch is called after each search.
	// pairs is the number of pairs returned, duration is the total time taken,
	// err is nil if successful.
	RecordSearch(pairs int, duration time.Duration, err error)

	// RecordExchange is called after each search that reached the exchange.
	RecordExchange(stats ExchangeStats)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSearch(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordExchange(ExchangeStats)           {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SearchCount      atomic.Int64
	SearchErrors     atomic.Int64
	SearchTotalNanos atomic.Int64
	PairsReturned    atomic.Int64
	ItemsSent        atomic.Int64
	ItemsReceived    atomic.Int64
	BytesSent        atomic.Int64
	BytesReceived    atomic.Int64
	Candidates       atomic.Int64
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(pairs int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
		return
	}
	b.PairsReturned.Add(int64(pairs))
}

// RecordExchange implements MetricsCollector.
func (b *BasicMetricsCollector) RecordExchange(s ExchangeStats) {
	b.ItemsSent.Add(int64(s.Sent))
	b.ItemsReceived.Add(int64(s.Received))
	b.BytesSent.Add(s.BytesSent)
	b.BytesReceived.Add(s.BytesReceived)
	b.Candidates.Add(int64(s.Candidates))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SearchCount:    b.SearchCount.Load(),
		SearchErrors:   b.SearchErrors.Load(),
		SearchAvgNanos: b.getAvgSearchNanos(),
		PairsReturned:  b.PairsReturned.Load(),
		ItemsSent:      b.ItemsSent.Load(),
		ItemsReceived:  b.ItemsReceived.Load(),
		BytesSent:      b.BytesSent.Load(),
		BytesReceived:  b.BytesReceived.Load(),
		Candidates:     b.Candidates.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgSearchNanos() int64 {
	count := b.SearchCount.Load()
	if count == 0 {
		return 0
	}
	return b.SearchTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SearchCount    int64
	SearchErrors   int64
	SearchAvgNanos int64
	PairsReturned  int64
	ItemsSent      int64
	ItemsReceived  int64
	BytesSent      int64
	BytesReceived  int64
	Candidates     int64
}
