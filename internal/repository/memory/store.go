// Package memory implements the repositories on in-process maps. It backs
// tests and single-node development runs.
package memory

import (
	"context"
	"sync"
	"time"

	"fileflow/internal/domain/models"
	fsModels "fileflow/internal/domain/models/filesystem"
	uploadModels "fileflow/internal/domain/models/upload"
	"fileflow/internal/domain/repositories"
)

// Store holds all tables. Repositories built on the same Store see each
// other's writes and share its transactions.
type Store struct {
	mu sync.RWMutex

	// txMu serializes ExecTx so a transaction never interleaves with another.
	txMu sync.Mutex

	nodes         map[string]*fsModels.Node
	shares        map[string]*fsModels.Share
	uploads       map[string]*uploadModels.Session
	authSessions  map[string]time.Time
	refreshTokens map[string]time.Time
	notifications map[string]*models.Notification
	quotas        map[string]int64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		nodes:         make(map[string]*fsModels.Node),
		shares:        make(map[string]*fsModels.Share),
		uploads:       make(map[string]*uploadModels.Session),
		authSessions:  make(map[string]time.Time),
		refreshTokens: make(map[string]time.Time),
		notifications: make(map[string]*models.Notification),
		quotas:        make(map[string]int64),
	}
}

type journalKey struct{}

// journal collects undo steps of one transaction.
type journal struct {
	undo []func()
}

// TransactionManager runs functions atomically against a Store.
type TransactionManager struct {
	store *Store
}

// NewTransactionManager creates a transaction manager for store
func NewTransactionManager(store *Store) repositories.TransactionManager {
	return &TransactionManager{store: store}
}

// ExecTx runs fn; if it fails every write made through ctx is undone.
// Nested calls join the outer transaction.
func (tm *TransactionManager) ExecTx(ctx context.Context, fn repositories.TxFn) error {
	if repositories.InTx(ctx) {
		return fn(ctx)
	}

	tm.store.txMu.Lock()
	defer tm.store.txMu.Unlock()

	j := &journal{}
	txCtx := context.WithValue(repositories.MarkInTx(ctx), journalKey{}, j)
	if err := fn(txCtx); err != nil {
		tm.store.mu.Lock()
		for i := len(j.undo) - 1; i >= 0; i-- {
			j.undo[i]()
		}
		tm.store.mu.Unlock()
		return err
	}
	return nil
}

// record registers an undo step. Must be called with s.mu held; the step
// itself runs with s.mu held.
func record(ctx context.Context, undo func()) {
	if j, ok := ctx.Value(journalKey{}).(*journal); ok {
		j.undo = append(j.undo, undo)
	}
}

// SetQuota sets the storage quota of a user. Zero or negative removes it.
func (s *Store) SetQuota(userID string, bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bytes <= 0 {
		delete(s.quotas, userID)
		return
	}
	s.quotas[userID] = bytes
}

// QuotaFor implements repositories.QuotaProvider.
func (s *Store) QuotaFor(_ context.Context, userID string) (*int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotas[userID]
	if !ok {
		return nil, nil
	}
	return &q, nil
}
