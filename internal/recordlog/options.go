package recordlog

import "github.com/mindtouch/dreamqueue/internal/logging"

type options struct {
	logger logging.Logger
}

func defaultOptions() options {
	return options{logger: logging.Discard}
}

// Option configures a Log at Open time.
type Option func(*options)

// WithLogger sets the logger the log reports diagnostics to. A nil logger
// is treated as logging.Discard.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.logger = logging.OrDefault(l) }
}
