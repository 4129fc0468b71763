package registry

import (
	"errors"
	"fmt"

	"modelregistry/internal/blob"
)

var (
	// ErrNotFound reports an absent role. It matches blob.ErrNotFound too.
	ErrNotFound = fmt.Errorf("registry: role not found: %w", blob.ErrNotFound)
	// ErrInvalidMetric rejects NaN and infinite metrics.
	ErrInvalidMetric = errors.New("registry: metric must be a finite number")
	// ErrEmptyWeights rejects a candidate with no parameters.
	ErrEmptyWeights = errors.New("registry: weight set is empty")
	// ErrConcurrentUpdate means the champion changed between read and promotion.
	ErrConcurrentUpdate = errors.New("registry: champion changed during submission")
	// ErrLocked means another process holds the registry lock.
	ErrLocked = errors.New("registry: locked by another process")
	// ErrNoChampion is returned by read operations on an empty registry.
	ErrNoChampion = errors.New("registry: no champion")
)

// CorruptionError reports a persisted record that exists but cannot be decoded.
// It is never treated as absence.
type CorruptionError struct {
	Role Role
	Err  error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("registry: %s is corrupt: %v", e.Role, e.Err)
}

func (e *CorruptionError) Unwrap() error { return e.Err }

// IOError wraps a storage failure for a role.
type IOError struct {
	Op   string
	Role Role
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("registry: %s %s: %v", e.Op, e.Role, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
