package dreamqueue

import (
	"context"
	"sync"
	"time"

	"github.com/mindtouch/dreamqueue/internal/expiring"
	"github.com/mindtouch/dreamqueue/internal/logging"
)

// Clock abstracts the current time, so deadlines can be controlled in tests
// without sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Receipt grants the right to Commit or Rollback a dequeued record before
// its deadline.
type Receipt struct {
	ID    uint64
	Value Value
}

// Stats summarizes a queue's current composition. It is a diagnostic
// snapshot, not a transactional read.
type Stats struct {
	Unread     int
	Pending    int
	Recyclable int
	Expired    int
}

// pendingRecord is what a pending receipt remembers about the record it
// grants access to.
type pendingRecord struct {
	handle Handle
	value  []byte
}

type recyclableEntry struct {
	handle Handle
	value  []byte
}

// Queue is the transactional, at-least-once FIFO built atop a RecordLog and
// a Codec. The log, the recyclable list, and the receipt counter serialize
// on a single internal mutex; pending receipts live in an expiring.Set,
// whose own background sweep feeds expired receipts into the recyclable
// list without needing to hold that mutex.
type Queue struct {
	mu             sync.Mutex
	log            RecordLog
	codec          Codec
	clock          Clock
	defaultTimeout time.Duration
	logger         logging.Logger

	nextReceiptID uint64
	pending       *expiring.Set[uint64, pendingRecord]
	recyclable    []recyclableEntry
	closed        bool
}

// New creates a Queue wrapping log. The log and codec are owned by the
// returned Queue and disposed on Close.
func New(log RecordLog, opts ...Option) *Queue {
	cfg := defaultOptions()
	for _, o := range opts {
		o(&cfg)
	}
	return newWithConfig(log, cfg)
}

func newWithConfig(log RecordLog, cfg config) *Queue {
	q := &Queue{
		log:            log,
		codec:          cfg.codec,
		clock:          cfg.clock,
		defaultTimeout: cfg.commitTimeout,
		logger:         cfg.logger,
		nextReceiptID:  1,
	}
	q.pending = expiring.New[uint64, pendingRecord](q.onReceiptExpired,
		expiring.WithClock(cfg.clock),
		expiring.WithLogger(cfg.logger))
	q.pending.Start(context.Background(), cfg.sweepInterval)
	return q
}

// onReceiptExpired is expiring.Set's OnExpired callback: it runs outside
// q.mu (the Set has already removed the entry from its own bookkeeping by
// the time this fires), so taking q.mu here cannot deadlock against a
// caller that is itself inside a Queue method.
func (q *Queue) onReceiptExpired(_ uint64, entry expiring.Entry[pendingRecord]) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.recyclable = append(q.recyclable, recyclableEntry{handle: entry.Value.handle, value: entry.Value.value})
}

// Enqueue encodes value and appends it to the log. No receipt is issued.
func (q *Queue) Enqueue(value Value) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	data, err := q.codec.ToBytes(value)
	if err != nil {
		return err
	}
	return q.log.Append(data)
}

// Dequeue sweeps expired pending receipts, draws a record from the
// recyclable list (rolled back or expired) before the log, and returns a
// Receipt with a deadline timeout from now. ok is false if there is
// nothing to deliver.
func (q *Queue) Dequeue(timeout time.Duration) (Receipt, bool, error) {
	// Sweep before taking q.mu: the resulting OnExpired callbacks each
	// acquire q.mu individually (see onReceiptExpired).
	q.pending.Sweep(q.clock.Now())

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return Receipt{}, false, ErrClosed
	}
	if timeout <= 0 {
		timeout = q.defaultTimeout
	}

	for {
		handle, data, ok, err := q.drawLocked()
		if err != nil {
			return Receipt{}, false, err
		}
		if !ok {
			return Receipt{}, false, nil
		}

		value, err := q.codec.FromBytes(data)
		if err != nil {
			// A poison message does not stall the queue: log it, delete
			// the record in place, and try the next one.
			q.logger.Warnf("%sdiscarding undecodable record: %v", logging.NSQueue, err)
			if delErr := q.log.Delete(handle); delErr != nil {
				return Receipt{}, false, delErr
			}
			continue
		}

		id := q.nextReceiptID
		q.nextReceiptID++
		q.pending.SetOrUpdate(id, pendingRecord{handle: handle, value: data}, timeout)
		return Receipt{ID: id, Value: value}, true, nil
	}
}

// drawLocked returns the next candidate record: from the recyclable list
// first, then the log. Caller holds q.mu.
func (q *Queue) drawLocked() (Handle, []byte, bool, error) {
	if len(q.recyclable) > 0 {
		e := q.recyclable[0]
		q.recyclable = q.recyclable[1:]
		return e.handle, e.value, true, nil
	}
	return q.log.ReadNext()
}

// Commit permanently removes the record behind receiptID if it is pending
// and its deadline has not passed. ok is false for an unknown, expired, or
// already-committed receipt id — not an error.
func (q *Queue) Commit(receiptID uint64) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false, ErrClosed
	}

	// Pop, not Get+Delete: a read-then-remove pair would leave a window in
	// which the background sweep's own pop (see expiring.Set.Sweep) could
	// independently claim the same receipt as expired and recycle it,
	// producing a second, stale delivery of an already-committed record.
	// Pop's single locked check-and-remove makes the two mutually exclusive.
	e, ok := q.pending.Pop(receiptID)
	if !ok {
		return false, nil
	}
	if !e.When.After(q.clock.Now()) {
		// Already past its deadline: we popped it before the sweep did, so
		// it is on us to recycle it instead of losing it.
		q.recyclable = append(q.recyclable, recyclableEntry{handle: e.Value.handle, value: e.Value.value})
		return false, nil
	}
	if err := q.log.Delete(e.Value.handle); err != nil {
		// Put it back: the record was not actually removed from the log.
		q.pending.SetOrUpdateDeadline(receiptID, e.Value, e.When, e.TTL)
		return false, err
	}
	return true, nil
}

// Rollback drops the in-memory receipt and pushes the record onto the
// recyclable list so it is redelivered ahead of fresh log records. ok is
// false for an unknown, expired, or already-resolved receipt id; an expired
// receipt's record is still pushed onto the recyclable list.
func (q *Queue) Rollback(receiptID uint64) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false, ErrClosed
	}

	// Pop for the same reason as Commit: avoids racing the background
	// sweep for the same receipt.
	e, ok := q.pending.Pop(receiptID)
	if !ok {
		return false, nil
	}
	q.recyclable = append(q.recyclable, recyclableEntry{handle: e.Value.handle, value: e.Value.value})
	if !e.When.After(q.clock.Now()) {
		// Already expired: recycled as the sweep would have, but not pending.
		return false, nil
	}
	return true, nil
}

// Clear truncates the log, drops all pending receipts (making them
// permanently uncommittable), and empties the recyclable list.
func (q *Queue) Clear() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	if err := q.log.Truncate(); err != nil {
		return err
	}
	q.pending.Clear()
	q.recyclable = nil
	return nil
}

// Count returns the number of records that will be observed (or
// re-observed) on the next Dequeue: unread log records, the recyclable
// list, and any pending receipt whose deadline has already passed.
// Pending receipts with future deadlines are not counted.
func (q *Queue) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.clock.Now()
	return q.log.UnreadCount() + len(q.recyclable) + q.pending.CountDue(now)
}

// Stats returns a diagnostic snapshot of the queue's current composition.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.clock.Now()
	return Stats{
		Unread:     q.log.UnreadCount(),
		Pending:    q.pending.Len(),
		Recyclable: len(q.recyclable),
		Expired:    q.pending.CountDue(now),
	}
}

// Close disposes the underlying log (flush and release its lock) and stops
// the pending-receipt background sweep. Pending and recyclable state is
// discarded.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.recyclable = nil
	q.mu.Unlock()

	// Stop outside q.mu: it waits for the sweep goroutine to exit, and that
	// goroutine's last OnExpired call may itself be blocked on q.mu.
	stopErr := q.pending.Stop()
	if err := q.log.Close(); err != nil {
		return err
	}
	return stopErr
}
