package recordlog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mindtouch/dreamqueue/internal/logcore"
	"github.com/mindtouch/dreamqueue/internal/vfs"
)

func openTemp(t *testing.T) (*Log, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "queue.bin")
	l, err := Open(vfs.Default(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l, path
}

func TestAppendReadNext_FIFOOrder(t *testing.T) {
	l, _ := openTemp(t)

	for _, v := range []string{"a", "b", "c"} {
		if err := l.Append([]byte(v)); err != nil {
			t.Fatalf("Append(%q): %v", v, err)
		}
	}
	if got := l.UnreadCount(); got != 3 {
		t.Fatalf("UnreadCount() = %d, want 3", got)
	}

	for _, want := range []string{"a", "b", "c"} {
		_, data, ok, err := l.ReadNext()
		if err != nil || !ok {
			t.Fatalf("ReadNext() = _, %v, %v, want ok", ok, err)
		}
		if string(data) != want {
			t.Fatalf("ReadNext() = %q, want %q", data, want)
		}
	}

	if _, _, ok, err := l.ReadNext(); err != nil || ok {
		t.Fatalf("ReadNext() on empty log = %v, %v, want false, nil", ok, err)
	}
}

func TestDelete_LastLiveRecordTruncatesFile(t *testing.T) {
	l, path := openTemp(t)

	if err := l.Append([]byte("a")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Append([]byte("b")); err != nil {
		t.Fatalf("Append: %v", err)
	}

	ha, _, ok, err := l.ReadNext()
	if err != nil || !ok {
		t.Fatalf("ReadNext: %v, %v", ok, err)
	}
	hb, _, ok, err := l.ReadNext()
	_ = hb
	if err != nil || !ok {
		t.Fatalf("ReadNext: %v, %v", ok, err)
	}

	// Delete b (the tail record) first; this should NOT truncate since a
	// (earlier in the file) is still live.
	if err := l.Delete(hb); err != nil {
		t.Fatalf("Delete(b): %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() == 0 {
		t.Fatalf("file truncated after deleting non-trailing-live record")
	}

	// Delete a: now every byte after it is deleted, so the file truncates.
	if err := l.Delete(ha); err != nil {
		t.Fatalf("Delete(a): %v", err)
	}
	info, err = os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Size() != 0 {
		t.Fatalf("file size after deleting last live record = %d, want 0", info.Size())
	}
	if got := l.UnreadCount(); got != 0 {
		t.Fatalf("UnreadCount() = %d, want 0", got)
	}
}

func TestTruncate_ClearsLogAndInvalidatesHandles(t *testing.T) {
	l, _ := openTemp(t)
	if err := l.Append([]byte("a")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	h, _, ok, err := l.ReadNext()
	if err != nil || !ok {
		t.Fatalf("ReadNext: %v, %v", ok, err)
	}

	if err := l.Truncate(); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	if got := l.UnreadCount(); got != 0 {
		t.Fatalf("UnreadCount() after Truncate = %d, want 0", got)
	}
	if err := l.Delete(h); err != logcore.ErrInvalidHandle {
		t.Fatalf("Delete(stale handle) = %v, want ErrInvalidHandle", err)
	}
}

func TestOpen_RecoversFromCorruptedFirstRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queue.bin")

	l, err := Open(vfs.Default(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l.Append([]byte("first")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Append([]byte("second")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Corrupt the interior: flip a byte inside the first record's marker so
	// that it no longer matches the live marker.
	f, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	if _, err := f.WriteAt([]byte{0xAB}, 1); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	l2, err := Open(vfs.Default(), path)
	if err != nil {
		t.Fatalf("reopen after corruption: %v", err)
	}
	defer l2.Close()

	if got := l2.UnreadCount(); got != 1 {
		t.Fatalf("UnreadCount() after corruption = %d, want 1 (second record survives)", got)
	}
	_, data, ok, err := l2.ReadNext()
	if err != nil || !ok {
		t.Fatalf("ReadNext: %v, %v", ok, err)
	}
	if string(data) != "second" {
		t.Fatalf("ReadNext() = %q, want %q", data, "second")
	}
}

func TestOpen_ReopensExistingLogWithUnreadRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queue.bin")

	l, err := Open(vfs.Default(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := l.Append([]byte("x")); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	l2, err := Open(vfs.Default(), path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer l2.Close()
	if got := l2.UnreadCount(); got != 1 {
		t.Fatalf("UnreadCount() = %d, want 1", got)
	}
}

func TestOpen_SecondInstanceIsLocked(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "queue.bin")

	l, err := Open(vfs.Default(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	if _, err := Open(vfs.Default(), path); err == nil {
		t.Fatalf("second Open on the same path should fail")
	}
}

func TestAppend_AfterCloseReturnsErrClosed(t *testing.T) {
	l, _ := openTemp(t)
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := l.Append([]byte("x")); err != logcore.ErrClosed {
		t.Fatalf("Append after Close = %v, want ErrClosed", err)
	}
}
