package shmarena

import (
	"log/slog"

	"github.com/hupe1980/shmarena/internal/arena"
	"github.com/hupe1980/shmarena/resource"
)

type options struct {
	metricsCollector MetricsCollector
	logger           *Logger
	controller       *resource.Controller
}

// Option configures arenas, registries and buffer allocators.
type Option func(*options)

// WithMetricsCollector enables metrics collection for provisioning,
// allocation and translation.
//
// Example with basic metrics:
//
//	metrics := &shmarena.BasicMetricsCollector{}
//	a, _ := shmarena.Create(cfg, shmarena.WithMetricsCollector(metrics))
//	// ... use a ...
//	stats := metrics.GetStats()
//	fmt.Printf("Allocations: %d, failed: %d\n", stats.AllocateCount, stats.AllocateErrors)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for lifecycle events.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
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

// WithResourceController charges every created region against rc's memory budget.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	return o
}

func (o options) arenaOptions() []arena.Option {
	return []arena.Option{
		arena.WithLogger(o.logger.Logger),
		arena.WithMetrics(o.metricsCollector),
		arena.WithResourceController(o.controller),
	}
}
