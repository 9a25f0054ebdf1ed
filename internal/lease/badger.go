package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// BadgerLocker stores leases as TTL entries in a local Badger database.
// Expired entries are invisible to reads, so an expired lease is free.
// Suitable when all instances share one host.
type BadgerLocker struct {
	db *badger.DB
}

var _ Locker = (*BadgerLocker)(nil)

// BadgerConfig configures the Badger lease store.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path     string
	InMemory bool
}

// OpenBadger opens (or creates) the lease database.
func OpenBadger(cfg BadgerConfig) (*BadgerLocker, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open lease store at %s: %w", cfg.Path, err)
	}
	return &BadgerLocker{db: db}, nil
}

// Close closes the underlying database.
func (b *BadgerLocker) Close() error {
	return b.db.Close()
}

func (b *BadgerLocker) TryAcquire(ctx context.Context, name string, ttl time.Duration) (*Lease, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	key := []byte(Key(name))
	l := &Lease{Name: name, Token: newToken(), ExpiresAt: time.Now().Add(ttl)}

	err := b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return errLeaseHeld
		}
		if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.SetEntry(badger.NewEntry(key, []byte(l.Token)).WithTTL(ttl))
	})
	switch {
	case err == nil:
		return l, true, nil
	case errors.Is(err, errLeaseHeld), errors.Is(err, badger.ErrConflict):
		return nil, false, nil
	default:
		return nil, false, fmt.Errorf("acquire lease: %w", err)
	}
}

func (b *BadgerLocker) Release(ctx context.Context, l *Lease) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := []byte(Key(l.Name))
	err := b.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		token, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if string(token) != l.Token {
			return nil
		}
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}

var errLeaseHeld = errors.New("lease held")
