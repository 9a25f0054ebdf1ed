// Package lease provides named, expiring mutual-exclusion locks for
// background jobs that may run on more than one instance.
package lease

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// KeyPrefix namespaces job leases in the backing store.
const KeyPrefix = "cron:lock:"

// Lease is a held lock. Token identifies the holder so a late Release cannot
// drop a lease somebody else acquired after expiry.
type Lease struct {
	Name      string
	Token     string
	ExpiresAt time.Time
}

// Locker hands out leases.
type Locker interface {
	// TryAcquire takes the lease name for ttl. ok is false when another holder
	// has an unexpired lease.
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (l *Lease, ok bool, err error)

	// Release gives the lease back. Releasing an expired or foreign lease is a no-op.
	Release(ctx context.Context, l *Lease) error
}

// Key returns the storage key of the lease name.
func Key(name string) string {
	return KeyPrefix + name
}

func newToken() string {
	return uuid.NewString()
}

// Run executes fn while holding the lease name. It returns ran=false without
// error when the lease is held elsewhere.
func Run(ctx context.Context, locker Locker, name string, ttl time.Duration, logger *slog.Logger, fn func(context.Context) error) (ran bool, err error) {
	l, ok, err := locker.TryAcquire(ctx, name, ttl)
	if err != nil {
		return false, fmt.Errorf("acquire lease %s: %w", name, err)
	}
	if !ok {
		logger.Debug("lease held elsewhere, skipping", "lease", name)
		return false, nil
	}

	defer func() {
		// The run context may already be cancelled; release on a fresh one.
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if relErr := locker.Release(releaseCtx, l); relErr != nil {
			logger.Warn("failed to release lease", "lease", name, "error", relErr)
		}
	}()

	runCtx, cancel := context.WithDeadline(ctx, l.ExpiresAt)
	defer cancel()
	return true, fn(runCtx)
}
