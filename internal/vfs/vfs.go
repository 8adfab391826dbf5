// Package vfs provides the filesystem abstraction the record logs are built
// on: file creation, random-access read/write (for in-place marker
// overwrite), truncation, directory listing, and exclusive locking.
package vfs

import (
	"io"
	"os"
)

// FS is the filesystem interface used by the record logs.
type FS interface {
	// Create creates a new file for read/write, truncating it if it exists.
	Create(name string) (File, error)

	// OpenReadWrite opens an existing file for read/write access.
	OpenReadWrite(name string) (File, error)

	// Remove deletes a file.
	Remove(name string) error

	// RemoveAll removes a directory and all its contents.
	RemoveAll(path string) error

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(path string, perm os.FileMode) error

	// Stat returns file info.
	Stat(name string) (os.FileInfo, error)

	// Exists returns true if the file exists.
	Exists(name string) bool

	// ListDir lists entry names in a directory. Returns an empty slice (not
	// an error) if the directory does not exist.
	ListDir(path string) ([]string, error)

	// Lock acquires an exclusive lock on name, creating it if necessary.
	// The returned io.Closer releases the lock.
	Lock(name string) (io.Closer, error)
}

// File is a random-access, appendable, truncatable file.
type File interface {
	io.Closer

	// ReadAt reads len(p) bytes starting at offset off.
	ReadAt(p []byte, off int64) (int, error)

	// WriteAt writes len(p) bytes starting at offset off (in-place overwrite
	// or append, depending on off).
	WriteAt(p []byte, off int64) (int, error)

	// Truncate changes the size of the file.
	Truncate(size int64) error

	// Sync flushes the file contents to stable storage.
	Sync() error

	// Size returns the current file size.
	Size() (int64, error)
}

// osFS implements FS using the OS filesystem.
type osFS struct{}

// Default returns the default OS filesystem.
func Default() FS {
	return &osFS{}
}

func (fs *osFS) Create(name string) (File, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, err
	}
	return &osFile{f: f}, nil
}

func (fs *osFS) OpenReadWrite(name string) (File, error) {
	f, err := os.OpenFile(name, os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	return &osFile{f: f}, nil
}

func (fs *osFS) Remove(name string) error {
	return os.Remove(name)
}

func (fs *osFS) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (fs *osFS) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (fs *osFS) Stat(name string) (os.FileInfo, error) {
	return os.Stat(name)
}

func (fs *osFS) Exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

func (fs *osFS) ListDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

func (fs *osFS) Lock(name string) (io.Closer, error) {
	return lockFile(name)
}

// osFile wraps os.File for the File interface.
type osFile struct {
	f *os.File
}

func (of *osFile) ReadAt(p []byte, off int64) (int, error) {
	return of.f.ReadAt(p, off)
}

func (of *osFile) WriteAt(p []byte, off int64) (int, error) {
	return of.f.WriteAt(p, off)
}

func (of *osFile) Truncate(size int64) error {
	return of.f.Truncate(size)
}

func (of *osFile) Sync() error {
	return of.f.Sync()
}

func (of *osFile) Size() (int64, error) {
	info, err := of.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (of *osFile) Close() error {
	return of.f.Close()
}
