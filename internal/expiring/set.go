// Package expiring implements a keyed TTL map with a background sweep:
// entries carry a deadline and a remembered TTL (for refresh-on-update),
// and an OnExpired callback fires once a deadline has passed. Sweep timing
// is best-effort; callers that need a hard guarantee should also sweep
// lazily on their own read path (the transactional queue does this on
// every dequeue).
package expiring

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mindtouch/dreamqueue/internal/logging"
)

// Entry is a single TTL-tracked value.
type Entry[V any] struct {
	Value V
	When  time.Time
	TTL   time.Duration
}

// Clock abstracts the current time, so tests can control expiry without
// sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Set is a thread-safe, keyed TTL map with deadline-ordered expiry.
type Set[K comparable, V any] struct {
	mu        sync.Mutex
	entries   map[K]*setEntry[K, V]
	order     deadlineHeap[K, V]
	clock     Clock
	onExpired func(key K, entry Entry[V])
	logger    logging.Logger

	cancel context.CancelFunc
	group  *errgroup.Group
}

type setEntry[K comparable, V any] struct {
	key       K
	value     V
	when      time.Time
	ttl       time.Duration
	heapIndex int
}

// New creates a Set. onExpired is invoked from the background sweep
// goroutine once an entry's deadline has passed; it may observe that the
// entry has since been refreshed into the future and should no-op in that
// case (Get the latest state from the Set, not the Entry argument, if that
// matters to the caller).
func New[K comparable, V any](onExpired func(key K, entry Entry[V]), opts ...Option) *Set[K, V] {
	cfg := defaultOptions()
	for _, o := range opts {
		o(&cfg)
	}
	return &Set[K, V]{
		entries:   make(map[K]*setEntry[K, V]),
		clock:     cfg.clock,
		onExpired: onExpired,
		logger:    cfg.logger,
	}
}

// SetOrUpdate sets or refreshes key's deadline to now + ttl.
func (s *Set[K, V]) SetOrUpdate(key K, value V, ttl time.Duration) {
	s.SetOrUpdateDeadline(key, value, s.clock.Now().Add(ttl), ttl)
}

// SetOrUpdateDeadline sets or refreshes key with an explicit deadline; ttl
// is remembered for subsequent refreshes but not applied here.
func (s *Set[K, V]) SetOrUpdateDeadline(key K, value V, deadline time.Time, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		e.value = value
		e.when = deadline
		e.ttl = ttl
		heap.Fix(&s.order, e.heapIndex)
		return
	}
	e := &setEntry[K, V]{key: key, value: value, when: deadline, ttl: ttl}
	s.entries[key] = e
	heap.Push(&s.order, e)
}

// Get returns the entry for key, and whether it was present.
func (s *Set[K, V]) Get(key K) (Entry[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return Entry[V]{}, false
	}
	return Entry[V]{Value: e.value, When: e.when, TTL: e.ttl}, true
}

// Delete removes key immediately. No OnExpired event fires.
func (s *Set[K, V]) Delete(key K) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(key)
}

// Pop atomically returns and removes key's entry, if present. Unlike a
// Get followed by a Delete, Pop closes the window in which a concurrent
// Sweep could independently claim the same key: only one of Pop or Sweep's
// own internal pop can observe a given key still present, since both hold
// the Set's mutex for their entire check-and-remove. Callers that need to
// read-then-conditionally-remove an entry without racing the background
// sweep should use Pop instead of Get+Delete.
func (s *Set[K, V]) Pop(key K) (Entry[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	if !ok {
		return Entry[V]{}, false
	}
	entry := Entry[V]{Value: e.value, When: e.when, TTL: e.ttl}
	delete(s.entries, key)
	heap.Remove(&s.order, e.heapIndex)
	return entry, true
}

func (s *Set[K, V]) removeLocked(key K) {
	e, ok := s.entries[key]
	if !ok {
		return
	}
	delete(s.entries, key)
	heap.Remove(&s.order, e.heapIndex)
}

// Clear removes every entry immediately. No OnExpired event fires.
func (s *Set[K, V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[K]*setEntry[K, V])
	s.order = nil
}

// Len returns the number of entries currently tracked.
func (s *Set[K, V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// CountDue returns the number of entries whose deadline is at or before now,
// without removing them or firing OnExpired.
func (s *Set[K, V]) CountDue(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, e := range s.entries {
		if !e.when.After(now) {
			count++
		}
	}
	return count
}

// Sweep removes and fires OnExpired for every entry whose deadline is at or
// before now. It is safe to call directly (lazy sweep) and is also what
// the background goroutine calls on each tick.
func (s *Set[K, V]) Sweep(now time.Time) {
	for {
		s.mu.Lock()
		if len(s.order) == 0 || s.order[0].when.After(now) {
			s.mu.Unlock()
			return
		}
		e := heap.Pop(&s.order).(*setEntry[K, V])
		delete(s.entries, e.key)
		s.mu.Unlock()

		if s.onExpired != nil {
			s.onExpired(e.key, Entry[V]{Value: e.value, When: e.when, TTL: e.ttl})
		}
	}
}

// Start launches the background sweep goroutine, ticking at interval,
// supervised by an errgroup so Stop can wait for clean shutdown.
func (s *Set[K, V]) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)
	group, ctx := errgroup.WithContext(ctx)
	s.cancel = cancel
	s.group = group

	group.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				s.Sweep(s.clock.Now())
			}
		}
	})
}

// Stop cancels the background sweep goroutine and waits for it to exit.
func (s *Set[K, V]) Stop() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	err := s.group.Wait()
	s.logger.Debugf("%sbackground sweep stopped", logging.NSExpiring)
	return err
}

// deadlineHeap is a container/heap min-heap ordered by deadline.
type deadlineHeap[K comparable, V any] []*setEntry[K, V]

func (h deadlineHeap[K, V]) Len() int { return len(h) }
func (h deadlineHeap[K, V]) Less(i, j int) bool { return h[i].when.Before(h[j].when) }
func (h deadlineHeap[K, V]) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex = i
	h[j].heapIndex = j
}
func (h *deadlineHeap[K, V]) Push(x any) {
	e := x.(*setEntry[K, V])
	e.heapIndex = len(*h)
	*h = append(*h, e)
}
func (h *deadlineHeap[K, V]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}
