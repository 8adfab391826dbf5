package chunkedlog

import "github.com/mindtouch/dreamqueue/internal/logging"

type options struct {
	logger    logging.Logger
	threshold int64
}

func defaultOptions() options {
	return options{logger: logging.Discard, threshold: defaultThreshold}
}

// Option configures a Log at Open time.
type Option func(*options)

// WithLogger sets the logger the log and its chunks report diagnostics to.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = logging.OrDefault(l) }
}

// WithChunkThreshold sets the soft per-chunk size threshold in bytes. A
// single oversize record is still allowed to exceed it (the threshold only
// gates rolling to a new chunk on the next append to a non-empty tail).
func WithChunkThreshold(bytes int64) Option {
	return func(o *options) {
		if bytes > 0 {
			o.threshold = bytes
		}
	}
}
