//go:build unix

package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rotisserie/eris"
	"golang.org/x/sys/unix"
)

// FileLock is an advisory flock(2) on <dir>/.registry.lock. Each Lock call
// opens its own descriptor, so two FileLocks on the same directory exclude
// each other even inside one process.
type FileLock struct {
	path string
}

// NewFileLock returns a lock for the registry rooted at dir.
func NewFileLock(dir string) *FileLock {
	return &FileLock{path: filepath.Join(dir, LockFileName)}
}

// Path returns the lock file location.
func (l *FileLock) Path() string { return l.path }

// Lock implements Locker.
func (l *FileLock) Lock(ctx context.Context) (func() error, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return nil, eris.Wrapf(err, "create lock dir for %s", l.path)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, eris.Wrapf(err, "open lock file %s", l.path)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		_ = f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, eris.Wrapf(ErrLocked, "%s", l.path)
		}
		return nil, eris.Wrapf(err, "flock %s", l.path)
	}
	// holder pid, for humans inspecting a stuck registry
	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}
	released := false
	return func() error {
		if released {
			return nil
		}
		released = true
		unlockErr := unix.Flock(int(f.Fd()), unix.LOCK_UN)
		closeErr := f.Close()
		if unlockErr != nil {
			return eris.Wrapf(unlockErr, "unlock %s", l.path)
		}
		return eris.Wrapf(closeErr, "close lock file %s", l.path)
	}, nil
}
