package lease

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockerSuite runs the behavior every Locker must share.
func lockerSuite(t *testing.T, newLocker func(t *testing.T) Locker) {
	t.Run("acquire and contend", func(t *testing.T) {
		l := newLocker(t)
		ctx := context.Background()

		first, ok, err := l.TryAcquire(ctx, "trash-purge", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "trash-purge", first.Name)
		assert.NotEmpty(t, first.Token)

		_, ok, err = l.TryAcquire(ctx, "trash-purge", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		// Other names are independent.
		_, ok, err = l.TryAcquire(ctx, "share-sweep", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("release frees the name", func(t *testing.T) {
		l := newLocker(t)
		ctx := context.Background()

		held, ok, err := l.TryAcquire(ctx, "job", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, l.Release(ctx, held))

		_, ok, err = l.TryAcquire(ctx, "job", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("stale token does not release", func(t *testing.T) {
		l := newLocker(t)
		ctx := context.Background()

		_, ok, err := l.TryAcquire(ctx, "job", time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		require.NoError(t, l.Release(ctx, &Lease{Name: "job", Token: "someone-else"}))
		_, ok, err = l.TryAcquire(ctx, "job", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("one winner under contention", func(t *testing.T) {
		l := newLocker(t)
		ctx := context.Background()

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, ok, err := l.TryAcquire(ctx, "race", time.Minute)
				if err == nil && ok {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})
}

func TestMemoryLocker(t *testing.T) {
	lockerSuite(t, func(*testing.T) Locker { return NewMemoryLocker() })
}

func TestBadgerLocker(t *testing.T) {
	lockerSuite(t, func(t *testing.T) Locker {
		b, err := OpenBadger(BadgerConfig{InMemory: true})
		require.NoError(t, err)
		t.Cleanup(func() { _ = b.Close() })
		return b
	})
}

func TestMemoryLocker_Expiry(t *testing.T) {
	m := NewMemoryLocker()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	old, ok, err := m.TryAcquire(ctx, "job", 5*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	now = now.Add(6 * time.Minute)
	fresh, ok, err := m.TryAcquire(ctx, "job", 5*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	// The first holder finishing late must not drop the new lease.
	require.NoError(t, m.Release(ctx, old))
	_, ok, err = m.TryAcquire(ctx, "job", 5*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, m.Release(ctx, fresh))
}

func TestRun(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewMemoryLocker()
	ctx := context.Background()

	var calls int
	ran, err := Run(ctx, m, "job", time.Minute, logger, func(ctx context.Context) error {
		calls++
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)

		// Nested attempt loses while the outer run holds the lease.
		inner, err := Run(ctx, m, "job", time.Minute, logger, func(context.Context) error {
			calls++
			return nil
		})
		assert.NoError(t, err)
		assert.False(t, inner)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, calls)

	// Released after the run, even on error.
	boom := errors.New("boom")
	ran, err = Run(ctx, m, "job", time.Minute, logger, func(context.Context) error { return boom })
	assert.True(t, ran)
	assert.ErrorIs(t, err, boom)

	_, ok, err := m.TryAcquire(ctx, "job", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
