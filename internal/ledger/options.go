package ledger

import "log/slog"

// Option configures a Writer or Resolver.
type Option func(*options)

type options struct {
	ids    IDGenerator
	clock  Clock
	logger *slog.Logger
}

func buildOptions(opts []Option) options {
	o := options{
		ids:    UUIDv7Generator{},
		clock:  SystemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithIDGenerator overrides the event id generator (UUIDv7 by default).
func WithIDGenerator(g IDGenerator) Option {
	return func(o *options) {
		if g != nil {
			o.ids = g
		}
	}
}

// WithClock overrides the clock used for recorded_at.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}
