package incremental

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrCacheLocked is returned when another build holds the cache lock.
var ErrCacheLocked = errors.New("build cache is locked by another build")

// Lock is an exclusive advisory lock on the build cache.
type Lock struct {
	fl *flock.Flock
}

// LockPath returns the lock file used for a cache path.
func LockPath(cachePath string) string { return cachePath + ".lock" }

// AcquireLock takes the cache lock without blocking.
func AcquireLock(cachePath string) (*Lock, error) {
	fl := flock.New(LockPath(cachePath))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock build cache: %w", err)
	}
	if !ok {
		return nil, ErrCacheLocked
	}
	return &Lock{fl: fl}, nil
}

// Release drops the lock. It is safe to call on a nil lock.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
