// Package lock serializes read-modify-write sequences per key.
package lock

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrLockTimeout means the lock could not be acquired before the context ended.
	ErrLockTimeout = errors.New("timed out waiting for lock")
	// ErrLockLost is the cancellation cause of a held context whose lock expired
	// or was taken over before unlock.
	ErrLockLost = errors.New("lock lost")
)

// Locker hands out exclusive access to a key.
//
// The returned context is derived from ctx and stays live only while the lock
// is held. Store calls made under the lock should use it, so that work cannot
// outlive the lock. The unlock func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (held context.Context, unlock func(), err error)
}

// Held reports nil while the lock behind a held context is still owned, and
// ErrLockLost (or the parent's error) otherwise.
func Held(held context.Context) error {
	if held.Err() == nil {
		return nil
	}
	if cause := context.Cause(held); cause != nil {
		return cause
	}
	return held.Err()
}

// Key joins parts into a lock key, e.g. Key("booking", tourID, userID).
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}
