package tally

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type options struct {
	logger      zerolog.Logger
	now         func() time.Time
	primitives  Primitives
	observer    func(Transition)
	concurrency int
}

func defaultOptions() *options {
	return &options{
		logger:      log.Logger,
		now:         time.Now,
		primitives:  ZKPrimitives{},
		concurrency: 4,
	}
}

// Option configures the Deriver, MixDecryptChain and Service
type Option interface {
	apply(*options)
}

type optionFunc func(*options)

func (f optionFunc) apply(o *options) {
	f(o)
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, f := range opts {
		f.apply(o)
	}
	return o
}

// WithLogger sets the logger, the default is the global zerolog logger
func WithLogger(l zerolog.Logger) Option {
	return optionFunc(func(o *options) {
		o.logger = l
	})
}

// WithClock replaces time.Now for the mixing timing gate
func WithClock(now func() time.Time) Option {
	return optionFunc(func(o *options) {
		o.now = now
	})
}

// WithPrimitives replaces the zero-knowledge primitives
func WithPrimitives(p Primitives) Option {
	return optionFunc(func(o *options) {
		o.primitives = p
	})
}

// WithObserver is called on every chain state transition
func WithObserver(fn func(Transition)) Option {
	return optionFunc(func(o *options) {
		o.observer = fn
	})
}

// WithConcurrency limits how many ballot boxes a batch processes at once
func WithConcurrency(n int) Option {
	return optionFunc(func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	})
}
