package lock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/production-schedule/internal/port"
)

func TestMemoryLocker_SerializesSameKey(t *testing.T) {
	l := NewMemoryLocker(0)

	var (
		mu      sync.Mutex
		inside  int
		maxSeen int
		wg      sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "k")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, l.Len())
}

func TestMemoryLocker_DifferentKeysIndependent(t *testing.T) {
	l := NewMemoryLocker(0)

	unlockA, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlockB, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()

	assert.Equal(t, 1, l.Len())
}

func TestMemoryLocker_ContextCancelled(t *testing.T) {
	l := NewMemoryLocker(0)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	assert.ErrorIs(t, err, port.ErrLockNotObtained)

	unlock()
	assert.Equal(t, 0, l.Len())
}

func TestMemoryLocker_UnlockIsIdempotent(t *testing.T) {
	l := NewMemoryLocker(0)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
	unlock()

	unlock, err = l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
	assert.Equal(t, 0, l.Len())
}

func TestMemoryLocker_WaitBudgetElapses(t *testing.T) {
	l := NewMemoryLocker(30 * time.Millisecond)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	done := make(chan error, 1)
	go func() {
		_, err := l.Lock(context.Background(), "k")
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, port.ErrLockNotObtained)
	case <-time.After(2 * time.Second):
		t.Fatal("Lock did not give up after its wait budget")
	}
	assert.Equal(t, 1, l.Len())
}

func TestMemoryLocker_WaitBudgetAllowsHandoff(t *testing.T) {
	l := NewMemoryLocker(time.Second)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	time.AfterFunc(10*time.Millisecond, unlock)

	unlock, err = l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
	assert.Equal(t, 0, l.Len())
}
