package pgmgo

import (
	"log/slog"

	"github.com/hupe1980/pgmgo/persistence"
)

type options struct {
	epsilon          int
	epsilonRecursive int
	baseCapacity     int
	minIndexedLevel  int
	compression      persistence.CompressionType
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Set and Map construction.
type Option func(*options)

// WithEpsilon sets the data-level error bound. It caps the width of the
// range a search returns at 2*epsilon+2; smaller values mean tighter
// ranges and more segments.
func WithEpsilon(epsilon int) Option {
	return func(o *options) {
		o.epsilon = epsilon
	}
}

// WithEpsilonRecursive sets the error bound for the internal levels that
// index the segments themselves. Zero disables recursion; the segments are
// then located by plain binary search.
func WithEpsilonRecursive(epsilon int) Option {
	return func(o *options) {
		o.epsilonRecursive = epsilon
	}
}

// WithBaseCapacity sets the record capacity of a Map's level 0. Level i
// holds baseCapacity*2^i records.
func WithBaseCapacity(capacity int) Option {
	return func(o *options) {
		o.baseCapacity = capacity
	}
}

// WithMinIndexedLevel sets the Map level at and above which levels carry an
// attached static index. Smaller levels are binary searched directly.
func WithMinIndexedLevel(level int) Option {
	return func(o *options) {
		o.minIndexedLevel = level
	}
}

// WithCompression selects the snapshot payload compression. Compressed
// snapshots cannot be memory-mapped zero-copy.
func WithCompression(ct persistence.CompressionType) Option {
	return func(o *options) {
		o.compression = ct
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		epsilon:          64,
		epsilonRecursive: 4,
		baseCapacity:     8,
		minIndexedLevel:  6,
		compression:      persistence.CompressionNone,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
