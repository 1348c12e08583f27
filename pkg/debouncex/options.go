package debouncex

import (
	"time"

	"github.com/Abraxas-365/debouncex/pkg/config"
	"github.com/Abraxas-365/debouncex/pkg/logx"
)

// Options configures a Debouncer.
type Options struct {
	// Wait is the fixed debounce window.
	Wait time.Duration
	// WaitFunc, when set, is evaluated on every call and overrides Wait.
	WaitFunc func() time.Duration
	// Leading invokes the function on the first call of a burst.
	Leading bool
	// Trailing invokes the function once the burst has been quiet for the window.
	Trailing bool
	Clock    Clock
	Logger   *logx.Logger
	// Name labels log lines of this debouncer.
	Name string
}

func defaultOptions(wait time.Duration) Options {
	return Options{
		Wait:     wait,
		Trailing: true,
		Clock:    RealClock(),
		Logger:   logx.GetDefaultLogger(),
		Name:     "debounce",
	}
}

// Option is a functional option for configuring a Debouncer.
type Option func(*Options)

// WithLeading enables or disables the leading edge invocation.
func WithLeading(leading bool) Option {
	return func(o *Options) {
		o.Leading = leading
	}
}

// WithTrailing enables or disables the trailing edge invocation.
func WithTrailing(trailing bool) Option {
	return func(o *Options) {
		o.Trailing = trailing
	}
}

// WithWaitFunc computes the window on every call instead of using a fixed one.
func WithWaitFunc(fn func() time.Duration) Option {
	return func(o *Options) {
		o.WaitFunc = fn
	}
}

// WithClock replaces the runtime clock, mostly for tests.
func WithClock(c Clock) Option {
	return func(o *Options) {
		if c != nil {
			o.Clock = c
		}
	}
}

// WithLogger sets the logger used for batch lifecycle messages.
func WithLogger(l *logx.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithName sets the label attached to log lines.
func WithName(name string) Option {
	return func(o *Options) {
		o.Name = name
	}
}

// WithConfig applies the window and edges of a loaded configuration.
func WithConfig(cfg config.DebounceConfig) Option {
	return func(o *Options) {
		o.Wait = cfg.Wait
		o.Leading = cfg.Leading
		o.Trailing = cfg.Trailing
	}
}
