package coarsesearch

import (
	"github.com/hupe1980/coarsesearch/codec"
	"github.com/hupe1980/coarsesearch/resource"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	leafSize         int
	workers          int
	compression      codec.Compression
	controller       *resource.Controller
}

func defaultOptions() options {
	return options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
	}
}

// Option configures a Search call.
//
// Options that change what goes on the wire (WithCompression) must be the
// same on every rank. The others are local to the calling rank.
type Option func(*options)

// WithLogger sets the logger. If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector sets the metrics sink. If nil is passed, metrics are
// discarded.
func WithMetricsCollector(m MetricsCollector) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metricsCollector = m
	}
}

// WithLeafSize sets the maximum number of boxes per k-d tree leaf.
// Values <= 0 select the default. Ignored by the LINEAR method.
func WithLeafSize(n int) Option {
	return func(o *options) {
		o.leafSize = n
	}
}

// WithWorkers resolves local candidates on up to n goroutines.
// If n <= 1, resolution runs on the calling goroutine.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithCompression compresses item and pair batches exchanged between ranks.
//
// Example:
//
//	coarsesearch.Search(ctx, a, b, coarsesearch.KDTree, c,
//	    coarsesearch.WithCompression(codec.CompressionLZ4))
func WithCompression(c codec.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithResourceController bounds exchange buffer memory, resolver goroutines
// and outgoing bandwidth. A controller may be shared by concurrent searches.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}
