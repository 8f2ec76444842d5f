package port

import (
	"context"
	"errors"
)

var ErrLockNotObtained = errors.New("lock not obtained")

type KeyLocker interface {
	// Lock blocks until key is held or ctx/wait budget runs out. The returned
	// func releases the lock and is safe to call once.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
