// Package chunkedlog implements the chunked multi-file record log: a
// directory of data_<N>.bin files, each an internal/recordlog.Log, with
// soft-threshold roll-to-new-chunk on append and head/tail/interior
// reclamation on delete.
package chunkedlog

import (
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mindtouch/dreamqueue/internal/logcore"
	"github.com/mindtouch/dreamqueue/internal/logging"
	"github.com/mindtouch/dreamqueue/internal/recordlog"
	"github.com/mindtouch/dreamqueue/internal/vfs"
)

const chunkPrefix = "data_"
const chunkSuffix = ".bin"

// defaultThreshold is the soft per-chunk size threshold used when no
// WithChunkThreshold option is given.
const defaultThreshold = 64 << 20 // 64 MiB

// chunkState tracks one data_<N>.bin file's log and live (non-deleted)
// record count. live is tracked independently of the underlying log's
// UnreadCount: a record that has been read but not yet deleted is still
// live, so live only changes on Append (+1) and Delete (-1).
type chunkState struct {
	n    int
	log  *recordlog.Log
	live int
}

// Log is the chunked, multi-file record log.
type Log struct {
	mu        sync.Mutex
	fs        vfs.FS
	dir       string
	lock      io.Closer
	threshold int64
	logger    logging.Logger

	chunks map[int]*chunkState
	order  []int // chunk numbers, ascending
	headN  int
	tailN  int

	unreadCount int
	closed      bool
}

// Open opens (or creates) the chunked log rooted at dir.
func Open(fs vfs.FS, dir string, opts ...Option) (*Log, error) {
	cfg := defaultOptions()
	for _, o := range opts {
		o(&cfg)
	}

	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	lock, err := fs.Lock(filepath.Join(dir, "LOCK"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", logcore.ErrLocked, err)
	}

	l := &Log{
		fs:        fs,
		dir:       dir,
		lock:      lock,
		threshold: cfg.threshold,
		logger:    cfg.logger,
		chunks:    make(map[int]*chunkState),
	}

	numbers, err := l.discoverChunks()
	if err != nil {
		_ = lock.Close()
		return nil, err
	}
	if len(numbers) == 0 {
		if err := l.createChunk(1); err != nil {
			_ = lock.Close()
			return nil, err
		}
		numbers = []int{1}
	} else {
		for _, n := range numbers {
			rl, err := recordlog.Open(fs, l.chunkPath(n), recordlog.WithLogger(cfg.logger))
			if err != nil {
				l.closeChunks()
				_ = lock.Close()
				return nil, err
			}
			cs := &chunkState{n: n, log: rl, live: rl.UnreadCount()}
			l.chunks[n] = cs
			l.unreadCount += cs.live
		}
	}
	l.order = numbers
	l.headN = numbers[0]
	l.tailN = numbers[len(numbers)-1]
	l.logger.Infof("%sopened %s: chunks %d..%d, %d unread record(s)", logging.NSChunkedLog, dir, l.headN, l.tailN, l.unreadCount)
	return l, nil
}

func (l *Log) chunkPath(n int) string {
	return filepath.Join(l.dir, chunkPrefix+strconv.Itoa(n)+chunkSuffix)
}

func (l *Log) discoverChunks() ([]int, error) {
	names, err := l.fs.ListDir(l.dir)
	if err != nil {
		return nil, err
	}
	var numbers []int
	for _, name := range names {
		if !strings.HasPrefix(name, chunkPrefix) || !strings.HasSuffix(name, chunkSuffix) {
			continue
		}
		mid := strings.TrimSuffix(strings.TrimPrefix(name, chunkPrefix), chunkSuffix)
		n, err := strconv.Atoi(mid)
		if err != nil {
			continue
		}
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)
	return numbers, nil
}

func (l *Log) createChunk(n int) error {
	rl, err := recordlog.Open(l.fs, l.chunkPath(n), recordlog.WithLogger(l.logger))
	if err != nil {
		return err
	}
	l.chunks[n] = &chunkState{n: n, log: rl}
	return nil
}

func (l *Log) closeChunks() {
	for _, cs := range l.chunks {
		_ = cs.log.Close()
	}
}

// Append writes data to the tail chunk, rolling to a new chunk first if the
// tail is non-empty and would exceed the soft size threshold.
func (l *Log) Append(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return logcore.ErrClosed
	}

	tail := l.chunks[l.tailN]
	size, err := tail.log.Size()
	if err != nil {
		return err
	}
	// A frame is an 8-byte header (marker + length) followed by the payload.
	frameSize := int64(8 + len(data))
	if size > 0 && size+frameSize > l.threshold {
		newN := l.tailN + 1
		if err := l.createChunk(newN); err != nil {
			return err
		}
		l.order = append(l.order, newN)
		l.tailN = newN
		tail = l.chunks[newN]
		l.logger.Infof("%srolled to chunk %d", logging.NSChunkedLog, newN)
	}

	if err := tail.log.Append(data); err != nil {
		return err
	}
	tail.live++
	l.unreadCount++
	return nil
}

// ReadNext returns the next unread live record starting from the head
// chunk, skipping forward through chunks as each one is drained.
func (l *Log) ReadNext() (logcore.Handle, []byte, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return logcore.Handle{}, nil, false, logcore.ErrClosed
	}

	for _, n := range l.order {
		cs, ok := l.chunks[n]
		if !ok {
			continue
		}
		h, data, ok, err := cs.log.ReadNext()
		if err != nil {
			return logcore.Handle{}, nil, false, err
		}
		if !ok {
			continue
		}
		l.unreadCount--
		return logcore.Handle{Chunk: n, Offset: h.Offset}, data, true, nil
	}
	return logcore.Handle{}, nil, false, nil
}

// Delete marks h's record as deleted and runs head/tail/interior
// reclamation.
func (l *Log) Delete(h logcore.Handle) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return logcore.ErrClosed
	}
	cs, ok := l.chunks[h.Chunk]
	if !ok {
		return logcore.ErrInvalidHandle
	}
	if err := cs.log.Delete(logcore.Handle{Offset: h.Offset}); err != nil {
		return err
	}
	cs.live--

	return l.reclaim()
}

// reclaim implements spec §4.3's delete-time reclamation: tail-truncation
// to a fresh data_1.bin when every chunk is empty, otherwise head and
// interior reclamation of fully-drained chunks.
func (l *Log) reclaim() error {
	if l.allEmpty() {
		return l.resetToEmpty()
	}

	kept := l.order[:0:0]
	for _, n := range l.order {
		cs := l.chunks[n]
		drained := cs.live == 0
		if drained && n != l.tailN {
			if err := l.deleteChunkFile(n); err != nil {
				return err
			}
			continue
		}
		kept = append(kept, n)
	}
	l.order = kept
	if len(l.order) > 0 {
		l.headN = l.order[0]
	}
	return nil
}

func (l *Log) allEmpty() bool {
	for _, n := range l.order {
		if l.chunks[n].live != 0 {
			return false
		}
	}
	return true
}

// resetToEmpty deletes every chunk file and recreates a fresh data_1.bin,
// per §4.3 step 4 ("reset to empty state").
func (l *Log) resetToEmpty() error {
	for _, n := range l.order {
		if err := l.deleteChunkFile(n); err != nil {
			return err
		}
	}
	l.chunks = make(map[int]*chunkState)
	if err := l.createChunk(1); err != nil {
		return err
	}
	l.order = []int{1}
	l.headN = 1
	l.tailN = 1
	l.logger.Infof("%sall chunks empty, reset to data_1.bin", logging.NSChunkedLog)
	return nil
}

func (l *Log) deleteChunkFile(n int) error {
	cs, ok := l.chunks[n]
	if !ok {
		return nil
	}
	if err := cs.log.Close(); err != nil {
		return err
	}
	delete(l.chunks, n)
	if err := l.fs.Remove(l.chunkPath(n)); err != nil {
		return err
	}
	if err := l.fs.Remove(l.chunkPath(n) + ".lock"); err != nil {
		// Lock file removal best-effort: it was already released by Close.
		_ = err
	}
	return nil
}

// Truncate closes and deletes every chunk file and creates a fresh
// data_1.bin, invalidating all previously issued handles.
func (l *Log) Truncate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return logcore.ErrClosed
	}
	for _, n := range l.order {
		if err := l.deleteChunkFile(n); err != nil {
			return err
		}
	}
	l.chunks = make(map[int]*chunkState)
	if err := l.createChunk(1); err != nil {
		return err
	}
	l.order = []int{1}
	l.headN = 1
	l.tailN = 1
	l.unreadCount = 0
	return nil
}

// UnreadCount returns the number of live records not yet returned by ReadNext.
func (l *Log) UnreadCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unreadCount
}

// ChunkManifest returns a read-only snapshot of the chunk range and
// per-chunk live counts, for diagnostics.
func (l *Log) ChunkManifest() ChunkManifest {
	l.mu.Lock()
	defer l.mu.Unlock()
	m := ChunkManifest{Head: l.headN, Tail: l.tailN}
	for _, n := range l.order {
		cs := l.chunks[n]
		m.Chunks = append(m.Chunks, ChunkInfo{Number: n, LiveCount: cs.live})
	}
	return m
}

// ChunkManifest describes the current chunk layout of a chunked log.
type ChunkManifest struct {
	Head   int
	Tail   int
	Chunks []ChunkInfo
}

// ChunkInfo describes a single chunk file.
type ChunkInfo struct {
	Number    int
	LiveCount int
}

// Close releases every chunk's file handle and the directory lock.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	var firstErr error
	for _, cs := range l.chunks {
		if err := cs.log.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if err := l.lock.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
