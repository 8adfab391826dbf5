package dreamqueue

import (
	"errors"

	"github.com/mindtouch/dreamqueue/internal/codec"
	"github.com/mindtouch/dreamqueue/internal/logcore"
)

// Sentinel errors returned by queue and log operations. commit/rollback of
// an unknown or expired receipt is reported as (false, nil), not an error —
// see Commit and Rollback.
var (
	// ErrLocked indicates another instance already owns this storage.
	ErrLocked = logcore.ErrLocked

	// ErrClosed indicates an operation was attempted on a disposed queue or log.
	ErrClosed = logcore.ErrClosed

	// ErrBadFormat indicates a record frame is unrecoverably malformed.
	// Reserved for invariants that should never fire; surfaces only as a
	// fatal open error.
	ErrBadFormat = logcore.ErrBadFormat

	// ErrInvalidHandle indicates a Handle does not belong to the log it was
	// presented to (e.g. it predates a Truncate).
	ErrInvalidHandle = logcore.ErrInvalidHandle

	// ErrBadPayload indicates the codec could not decode a record's bytes.
	ErrBadPayload = codec.ErrBadPayload
)

// IsNotFound reports whether err indicates a Handle that is not valid for
// the log it was presented to (ErrInvalidHandle). Unknown or expired
// receipts are never reported as errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrInvalidHandle)
}
