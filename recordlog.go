// Package dreamqueue implements a durable, single-process transactional
// on-disk FIFO queue: producers append opaque payloads, consumers dequeue
// one at a time and receive a receipt, and later either commit (permanent
// removal) or roll back (re-offer) before the receipt's deadline. An
// unacknowledged receipt expires and its record becomes redeliverable.
package dreamqueue

import "github.com/mindtouch/dreamqueue/internal/logcore"

// Handle is an opaque, log-scoped reference to a record's frame position.
// It is only valid for the lifetime of the RecordLog instance that
// produced it; Truncate invalidates every previously issued Handle.
type Handle = logcore.Handle

// RecordLog is the append/read/delete contract shared by the single-file
// and chunked multi-file log implementations. A record is either live or
// deleted; ReadNext never returns a deleted record.
type RecordLog interface {
	// Append writes data as a new live record at the end of the log.
	Append(data []byte) error

	// ReadNext returns the next unread live record. ok is false if the log
	// has no more unread records.
	ReadNext() (Handle, []byte, bool, error)

	// Delete marks h's record as deleted. Deletion is monotonic; deleting
	// an already-deleted or unknown handle returns ErrInvalidHandle.
	Delete(h Handle) error

	// Truncate discards every record and invalidates every Handle issued
	// so far.
	Truncate() error

	// UnreadCount returns the number of live records not yet returned by
	// ReadNext since the log was opened.
	UnreadCount() int

	// Close releases the log's file handle(s) and its exclusive lock.
	Close() error
}
