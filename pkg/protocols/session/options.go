package session

import (
	"time"

	"go.uber.org/zap"
)

const DefaultCacheTTL = 5 * time.Minute

// Options are the tunables every protocol ECU accepts.
type Options struct {
	Logger    *zap.Logger
	KeepAlive time.Duration
	Attempts  uint
	CacheTTL  time.Duration
}

type Option func(*Options)

func NewOptions(opts ...Option) Options {
	o := Options{
		Logger:    zap.NewNop(),
		KeepAlive: DefaultKeepAlive,
		Attempts:  DefaultAttempts,
		CacheTTL:  DefaultCacheTTL,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithKeepAlive sets the tester present interval, zero disables it.
func WithKeepAlive(d time.Duration) Option {
	return func(o *Options) {
		o.KeepAlive = d
	}
}

func WithAttempts(n uint) Option {
	return func(o *Options) {
		if n > 0 {
			o.Attempts = n
		}
	}
}

// WithCacheTTL sets how long identification reads are cached.
func WithCacheTTL(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.CacheTTL = d
		}
	}
}
