// Package logcore holds the types and sentinel errors shared between the
// single-file and chunked record log implementations, so that neither one
// has to import the other (and so the public dreamqueue package can alias
// them without an import cycle).
package logcore

import "errors"

// Handle is an opaque, log-scoped reference to a record's frame position.
//
// Chunk is 0 for the single-file log (which has no chunk concept); for the
// chunked log it is the data_<Chunk>.bin file number the record lives in.
// Offset is the absolute byte offset of the record's marker within that file.
//
// A Handle is only valid for the lifetime of the log instance that produced
// it; Truncate invalidates every previously issued Handle (spec I5).
type Handle struct {
	Chunk  int
	Offset int64
}

// Sentinel errors shared by both record log implementations.
var (
	// ErrLocked indicates another instance already owns this storage.
	ErrLocked = errors.New("recordlog: storage is locked by another instance")

	// ErrClosed indicates an operation was attempted on a disposed log.
	ErrClosed = errors.New("recordlog: log is closed")

	// ErrBadFormat indicates a record frame violated an invariant that
	// corruption-skip scanning cannot recover from. Reserved for conditions
	// that should never occur; surfaces only as a fatal open error.
	ErrBadFormat = errors.New("recordlog: record frame is unrecoverably malformed")

	// ErrInvalidHandle indicates a Handle presented to Delete does not
	// belong to this log instance (e.g. it predates a Truncate).
	ErrInvalidHandle = errors.New("recordlog: handle is invalid for this log")
)
