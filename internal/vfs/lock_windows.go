//go:build windows

// lock_windows.go implements file locking on Windows systems.
package vfs

import (
	"io"
	"os"
)

// fileLock implements file locking on Windows systems.
type fileLock struct {
	f *os.File
}

// lockFile acquires an exclusive lock on the named file.
// This is a simplified implementation relying on exclusive file opening
// rather than LockFileEx.
func lockFile(name string) (io.Closer, error) {
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	return &fileLock{f: f}, nil
}

func (l *fileLock) Close() error {
	return l.f.Close()
}
