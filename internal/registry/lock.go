package registry

import "context"

// LockFileName is created in the registry root by FileLock.
const LockFileName = ".registry.lock"

// Locker serialises writers across processes. Lock does not block: a held
// lock fails with ErrLocked. The returned release func must be called once.
type Locker interface {
	Lock(ctx context.Context) (release func() error, err error)
}

// NopLocker never blocks. Used for stores without a shared filesystem.
type NopLocker struct{}

// Lock implements Locker.
func (NopLocker) Lock(context.Context) (func() error, error) {
	return func() error { return nil }, nil
}
