package docquery

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/hupe1980/docquery/ast"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	evaluator        *ast.Evaluator
	keyGenerator     func() string
}

// Option configures a Collection.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &docquery.BasicMetricsCollector{}
//	users := docquery.NewCollection("users", docquery.WithMetricsCollector(metrics))
//	// ... use users ...
//	stats := metrics.GetStats()
//	fmt.Printf("Queries: %d, Avg latency: %dns\n", stats.QueryCount, stats.QueryAvgNanos)
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
//
// Example with JSON logging:
//
//	logger := docquery.NewJSONLogger(slog.LevelInfo)
//	users := docquery.NewCollection("users", docquery.WithLogger(logger))
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

// WithEvaluator sets the evaluator Execute uses to re-check filters against
// candidate documents, e.g. one with extra functions or bind parameters.
func WithEvaluator(e *ast.Evaluator) Option {
	return func(o *options) {
		if e != nil {
			o.evaluator = e
		}
	}
}

// WithKeyGenerator sets the function producing _key values for documents
// inserted without one. The default generates random UUIDs.
func WithKeyGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.keyGenerator = fn
		}
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		evaluator:        ast.NewEvaluator(),
		keyGenerator:     uuid.NewString,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
