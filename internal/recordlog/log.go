// log.go implements Log, the single-file record log. Opening acquires an
// exclusive lock and recovers from any torn tail or interior corruption by
// skipping forward one byte at a time until a well-formed frame is found
// again. Deleting the last live record in the file truncates it to zero
// bytes instead of leaving a growing tombstone tail.
package recordlog

import (
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/mindtouch/dreamqueue/internal/logcore"
	"github.com/mindtouch/dreamqueue/internal/logging"
	"github.com/mindtouch/dreamqueue/internal/vfs"
)

// Log is a record-framed, append-only file with in-place logical deletion.
type Log struct {
	mu     sync.Mutex
	file   vfs.File
	lock   io.Closer
	path   string
	logger logging.Logger

	readCursor   int64
	appendCursor int64
	unreadCount  int
	closed       bool
}

// Open opens (or creates) the record log at path, acquiring an exclusive
// lock and scanning it to recover the unread count and write cursor.
func Open(fs vfs.FS, path string, opts ...Option) (*Log, error) {
	cfg := defaultOptions()
	for _, o := range opts {
		o(&cfg)
	}

	lock, err := fs.Lock(path + ".lock")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", logcore.ErrLocked, err)
	}

	var file vfs.File
	if fs.Exists(path) {
		file, err = fs.OpenReadWrite(path)
	} else {
		file, err = fs.Create(path)
	}
	if err != nil {
		_ = lock.Close()
		return nil, err
	}

	size, err := file.Size()
	if err != nil {
		_ = file.Close()
		_ = lock.Close()
		return nil, err
	}

	unread, err := scanCount(file, size)
	if err != nil {
		_ = file.Close()
		_ = lock.Close()
		return nil, err
	}

	l := &Log{
		file:         file,
		lock:         lock,
		path:         path,
		logger:       cfg.logger,
		appendCursor: size,
		unreadCount:  unread,
	}
	l.logger.Infof("%sopened %s: %d unread record(s), %d byte(s)", logging.NSRecordLog, path, unread, size)
	return l, nil
}

// Path returns the path the log was opened with.
func (l *Log) Path() string {
	return l.path
}

// Append writes data as a new live record at the end of the file.
func (l *Log) Append(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return logcore.ErrClosed
	}
	if len(data) > math.MaxInt32 {
		return fmt.Errorf("recordlog: payload of %d bytes exceeds the maximum record size", len(data))
	}

	var hdr [headerSize]byte
	copy(hdr[:markerSize], liveMarker[:])
	encodeLength(hdr[markerSize:], int32(len(data)))

	off := l.appendCursor
	if _, err := l.file.WriteAt(hdr[:], off); err != nil {
		return err
	}
	if len(data) > 0 {
		if _, err := l.file.WriteAt(data, off+headerSize); err != nil {
			return err
		}
	}
	if err := l.file.Sync(); err != nil {
		return err
	}

	l.appendCursor = off + headerSize + int64(len(data))
	l.unreadCount++
	l.logger.Debugf("%sappend at offset %d, %d byte(s)", logging.NSRecordLog, off, len(data))
	return nil
}

// ReadNext returns the next unread live record at or after the read cursor,
// advancing the cursor past it (and past any deleted records it skips).
// ok is false if there is nothing left to read.
func (l *Log) ReadNext() (logcore.Handle, []byte, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return logcore.Handle{}, nil, false, logcore.ErrClosed
	}

	for {
		fi, ok, err := scanNext(l.file, l.readCursor, l.appendCursor)
		if err != nil {
			return logcore.Handle{}, nil, false, err
		}
		if !ok {
			return logcore.Handle{}, nil, false, nil
		}
		if isDeleted(fi.marker) {
			l.readCursor = fi.nextOffset
			continue
		}

		payload := make([]byte, fi.length)
		if fi.length > 0 {
			if _, err := l.file.ReadAt(payload, fi.payloadOff); err != nil {
				return logcore.Handle{}, nil, false, err
			}
		}
		l.readCursor = fi.nextOffset
		l.unreadCount--
		return logcore.Handle{Offset: fi.offset}, payload, true, nil
	}
}

// Delete marks the record at h as logically deleted. If it was the last
// live record in the file, the whole file is truncated to zero bytes and
// both cursors reset, per the tail-truncation invariant.
func (l *Log) Delete(h logcore.Handle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return logcore.ErrClosed
	}
	if h.Offset < 0 || h.Offset+headerSize > l.appendCursor {
		return logcore.ErrInvalidHandle
	}

	var mbuf [markerSize]byte
	if _, err := l.file.ReadAt(mbuf[:], h.Offset); err != nil {
		return err
	}
	var marker [markerSize]byte
	copy(marker[:], mbuf[:])
	if !isLive(marker) {
		return logcore.ErrInvalidHandle
	}

	if _, err := l.file.WriteAt(deletedMarker[:], h.Offset); err != nil {
		return err
	}

	// Scan from the start of the file, not from h: a live record earlier in
	// the file (e.g. one still pending commit) keeps the file from truncating.
	tail, err := l.isTailDelete(0)
	if err != nil {
		return err
	}
	if tail {
		if err := l.file.Truncate(0); err != nil {
			return err
		}
		l.appendCursor = 0
		l.readCursor = 0
		l.logger.Debugf("%sdeleted trailing record, truncated to empty", logging.NSRecordLog)
		return nil
	}
	l.logger.Debugf("%sdeleted record at offset %d", logging.NSRecordLog, h.Offset)
	return nil
}

// isTailDelete reports whether every frame from cursor to the append cursor
// is a deleted record (i.e. the just-deleted record was the last live one).
func (l *Log) isTailDelete(cursor int64) (bool, error) {
	for cursor < l.appendCursor {
		fi, ok, err := scanNext(l.file, cursor, l.appendCursor)
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}
		if isLive(fi.marker) {
			return false, nil
		}
		cursor = fi.nextOffset
	}
	return true, nil
}

// Truncate discards the entire contents of the log and invalidates every
// previously issued handle.
func (l *Log) Truncate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return logcore.ErrClosed
	}
	if err := l.file.Truncate(0); err != nil {
		return err
	}
	l.appendCursor = 0
	l.readCursor = 0
	l.unreadCount = 0
	return nil
}

// Size returns the current on-disk size of the log file.
func (l *Log) Size() (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, logcore.ErrClosed
	}
	return l.appendCursor, nil
}

// UnreadCount returns the number of live records not yet returned by ReadNext.
func (l *Log) UnreadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unreadCount
}

// Close releases the file and the exclusive lock. Close is idempotent.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	fileErr := l.file.Close()
	lockErr := l.lock.Close()
	if fileErr != nil {
		return fileErr
	}
	return lockErr
}
