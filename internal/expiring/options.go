package expiring

import "github.com/mindtouch/dreamqueue/internal/logging"

type options struct {
	clock  Clock
	logger logging.Logger
}

func defaultOptions() options {
	return options{clock: systemClock{}, logger: logging.Discard}
}

// Option configures a Set at construction time.
type Option func(*options)

// WithClock overrides the clock used for deadline computation. Intended
// for tests that need to control expiry without sleeping.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogger sets the logger the background sweep reports diagnostics to.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = logging.OrDefault(l) }
}
