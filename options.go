package dreamqueue

import (
	"time"

	"github.com/mindtouch/dreamqueue/internal/logging"
)

// defaultCommitTimeout is used when Dequeue is called with a zero or
// negative timeout and no WithCommitTimeout option was given.
const defaultCommitTimeout = 30 * time.Second

// defaultSweepInterval is how often the background goroutine checks for
// expired pending receipts. The lazy sweep at the start of every Dequeue
// is what guarantees eventual re-offering; this interval only controls how
// promptly an otherwise-idle queue notices an expiry on its own.
const defaultSweepInterval = time.Second

type config struct {
	codec         Codec
	clock         Clock
	commitTimeout time.Duration
	sweepInterval time.Duration
	logger        logging.Logger
}

func defaultOptions() config {
	return config{
		codec:         NewXMLCodec(),
		clock:         systemClock{},
		commitTimeout: defaultCommitTimeout,
		sweepInterval: defaultSweepInterval,
		logger:        logging.Discard,
	}
}

// Option configures a Queue at construction time.
type Option func(*config)

// WithCodec overrides the payload codec. The default is an XML document
// codec (NewXMLCodec).
func WithCodec(c Codec) Option {
	return func(cfg *config) {
		if c != nil {
			cfg.codec = c
		}
	}
}

// WithClock overrides the clock used to compute and check receipt
// deadlines. Intended for tests that need to control expiry without
// sleeping.
func WithClock(c Clock) Option {
	return func(cfg *config) {
		if c != nil {
			cfg.clock = c
		}
	}
}

// WithCommitTimeout sets the default timeout Dequeue uses when called with
// a zero or negative timeout.
func WithCommitTimeout(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.commitTimeout = d
		}
	}
}

// WithLogger sets the logger the queue reports diagnostics to (e.g.
// discarded poison messages).
func WithLogger(l logging.Logger) Option {
	return func(cfg *config) { cfg.logger = logging.OrDefault(l) }
}

// WithSweepInterval sets how often the background goroutine checks for
// expired pending receipts, independent of the lazy sweep every Dequeue
// already performs.
func WithSweepInterval(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.sweepInterval = d
		}
	}
}
