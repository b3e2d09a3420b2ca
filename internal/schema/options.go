package schema

import (
	"log/slog"

	"heritage-catalog/internal/engine"
	"heritage-catalog/internal/metrics"
)

type options struct {
	logger     *slog.Logger
	metrics    *metrics.Metrics
	engineOpts []engine.Option
}

// Option configures a Builder.
type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithEngineOptions passes extra options to every CRUD engine the builder
// creates. Logger and metrics are forwarded automatically.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(o *options) { o.engineOpts = append(o.engineOpts, opts...) }
}

func newOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
