//go:build !unix

package registry

import (
	"context"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// FileLock is unavailable on this platform; Lock always fails.
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
func (l *FileLock) Lock(context.Context) (func() error, error) {
	return nil, eris.New("file locking is not supported on this platform; disable registry.lock")
}
