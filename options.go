package rendergraph

import (
	"log/slog"
	"time"

	"github.com/gogpu/rendergraph/internal/cmdpool"
)

// DefaultPollInterval is how long the submission runner waits on an empty
// intake queue before checking for cancellation again.
const DefaultPollInterval = 10 * time.Millisecond

// Option configures a Device during creation.
//
// Example:
//
//	dev, err := rendergraph.New(nativeDevice,
//	    rendergraph.WithChunkSize(16),
//	    rendergraph.WithLogger(slog.Default()),
//	)
type Option func(*options)

type options struct {
	chunkSize    int
	pollInterval time.Duration
	logger       *slog.Logger
	label        string
}

func defaultOptions() options {
	return options{
		chunkSize:    cmdpool.DefaultChunkSize,
		pollInterval: DefaultPollInterval,
		label:        "rendergraph",
	}
}

// WithChunkSize sets how many command buffers are allocated at once when
// the pool is empty. Values <= 0 are ignored.
func WithChunkSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.chunkSize = n
		}
	}
}

// WithPollInterval sets the runner's intake poll timeout. It bounds how long
// Close waits for the runner to notice cancellation. Values <= 0 are ignored.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithLogger sets a logger for this device instead of the package default.
// The logger is also passed to the native device if it accepts one.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithLabel sets the debug label used in logs and native object labels.
func WithLabel(label string) Option {
	return func(o *options) {
		if label != "" {
			o.label = label
		}
	}
}
