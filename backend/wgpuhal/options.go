package wgpuhal

import "time"

// DefaultPollInterval is the slice of time a blocking wait spends inside one
// HAL Wait call.
const DefaultPollInterval = 100 * time.Millisecond

// Option configures a Device during creation.
type Option func(*options)

type options struct {
	label        string
	pollInterval time.Duration
	waitTimeout  time.Duration
}

func defaultOptions() options {
	return options{
		label:        "wgpuhal",
		pollInterval: DefaultPollInterval,
	}
}

// WithLabel sets the label prefix for HAL objects.
func WithLabel(label string) Option {
	return func(o *options) {
		if label != "" {
			o.label = label
		}
	}
}

// WithPollInterval sets how long each HAL Wait call may block.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithWaitTimeout bounds every blocking wait. Zero, the default, waits
// forever.
func WithWaitTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.waitTimeout = d
		}
	}
}
