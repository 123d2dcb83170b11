package bipe

import (
	"time"

	"go.uber.org/zap"
)

// Op names the side of a pipe an observation refers to.
type Op uint8

const (
	OpRead Op = iota
	OpWrite
)

func (o Op) String() string {
	if o == OpWrite {
		return "write"
	}
	return "read"
}

// Observer receives pipe activity. Implementations must be safe for
// concurrent use, since the reader and the writer report independently.
type Observer interface {
	// Transferred is called after n bytes were accepted (OpWrite) or
	// delivered (OpRead).
	Transferred(op Op, n int)
	// Waited is called after a blocked operation was woken.
	Waited(op Op, d time.Duration)
	// Closed is called once, by the side that closed the pipe first.
	Closed(op Op)
}

type nopObserver struct{}

func (nopObserver) Transferred(Op, int)      {}
func (nopObserver) Waited(Op, time.Duration) {}
func (nopObserver) Closed(Op)                {}

type options struct {
	strategy Strategy
	logger   *zap.Logger
	observer Observer
}

// Option configures a pipe.
type Option func(*options)

// WithStrategy selects the transport. The default is StrategyRing.
func WithStrategy(s Strategy) Option {
	return func(o *options) {
		o.strategy = s
	}
}

// WithLogger sets the logger used for lifecycle events, logged at debug
// level. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver reports pipe activity to obs.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{
		strategy: StrategyRing,
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
