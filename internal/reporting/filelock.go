package reporting

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// lockSuffix names the sidecar lock file guarding a report path.
const lockSuffix = ".lock"

// AtomicWrite writes data to path through a temporary file in the same
// directory followed by a rename, so readers never observe a partial report.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}
	tmp = nil
	return nil
}

// LockAndWrite holds an exclusive lock on path+".lock" for the duration of an
// atomic write. Concurrent validator runs sharing an artifact directory
// serialize here.
func LockAndWrite(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	lock := flock.New(path + lockSuffix)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", lock.Path(), err)
	}
	defer func() { _ = lock.Unlock() }()

	return AtomicWrite(path, data)
}

// lockedFile buffers everything written to it and publishes the buffer with
// LockAndWrite on Close. Nothing is written if Write was never called.
type lockedFile struct {
	path    string
	buf     bytes.Buffer
	written bool
	closed  bool
}

func newLockedFile(path string) *lockedFile {
	return &lockedFile{path: path}
}

func (f *lockedFile) Write(p []byte) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	f.written = true
	return f.buf.Write(p)
}

func (f *lockedFile) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	if !f.written {
		return nil
	}
	return LockAndWrite(f.path, f.buf.Bytes())
}
