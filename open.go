package dreamqueue

import (
	"github.com/mindtouch/dreamqueue/internal/chunkedlog"
	"github.com/mindtouch/dreamqueue/internal/recordlog"
	"github.com/mindtouch/dreamqueue/internal/vfs"
)

// Open opens (or creates) a queue backed by a single-file record log at
// path. Only one Queue may have a given path open at a time; a second
// Open on the same path fails with ErrLocked.
func Open(path string, opts ...Option) (*Queue, error) {
	cfg := defaultOptions()
	for _, o := range opts {
		o(&cfg)
	}
	log, err := recordlog.Open(vfs.Default(), path, recordlog.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}
	return newWithConfig(log, cfg), nil
}

// OpenChunked opens (or creates) a queue backed by a chunked multi-file
// record log rooted at dir, rolling to a new data_<N>.bin file once the
// tail file's size would exceed chunkThreshold bytes.
func OpenChunked(dir string, chunkThreshold int64, opts ...Option) (*Queue, error) {
	cfg := defaultOptions()
	for _, o := range opts {
		o(&cfg)
	}
	log, err := chunkedlog.Open(vfs.Default(), dir,
		chunkedlog.WithChunkThreshold(chunkThreshold),
		chunkedlog.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}
	return newWithConfig(log, cfg), nil
}
