package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fileflow/internal/domain"
	"fileflow/internal/domain/models"
	"fileflow/internal/repository/repotest"
)

// TestMemoryRepositories runs the repository contract suite against the
// in-memory store.
func TestMemoryRepositories(t *testing.T) {
	suite := &repotest.Suite{
		NewRepos: func(t *testing.T) *repotest.Repos {
			store := NewStore()
			return &repotest.Repos{
				Nodes:    NewNodeRepository(store),
				Shares:   NewShareRepository(store),
				Sessions: NewSessionRepository(store),
				Tx:       NewTransactionManager(store),
			}
		},
	}
	suite.Run(t)
}

func TestCreate_ConcurrentDuplicates(t *testing.T) {
	store := NewStore()
	repo := NewNodeRepository(store)
	tx := NewTransactionManager(store)
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- tx.ExecTx(ctx, func(txCtx context.Context) error {
				return repo.Create(txCtx, repotest.Folder("alice", nil, "Docs"))
			})
		}()
	}
	wg.Wait()
	close(errs)

	ok, conflicts := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case domain.Kind(err) == domain.KindDuplicateName:
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, conflicts)
}

func TestQuotaFor(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	q, err := store.QuotaFor(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, q)

	store.SetQuota("alice", 1024)
	q, err = store.QuotaFor(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, q)
	assert.Equal(t, int64(1024), *q)
}

func TestAuthSessionSweep(t *testing.T) {
	store := NewStore()
	repo := NewAuthSessionRepository(store)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	repo.AddSession("s1", now.Add(-time.Hour))
	repo.AddSession("s2", now.Add(time.Hour))
	repo.AddRefreshToken("t1", now.Add(-time.Minute))

	n, err := repo.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.DeleteExpiredRefreshTokens(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sessions, tokens := repo.Counts()
	assert.Equal(t, 1, sessions)
	assert.Equal(t, 0, tokens)
}

func TestNotificationSweep(t *testing.T) {
	store := NewStore()
	repo := NewNotificationRepository(store)
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	old := &models.Notification{UserID: "alice", Type: "file_shared", Title: "x", CreatedAt: now.Add(-40 * 24 * time.Hour)}
	unread := &models.Notification{UserID: "alice", Type: "file_shared", Title: "y", CreatedAt: now.Add(-40 * 24 * time.Hour)}
	fresh := &models.Notification{UserID: "alice", Type: "file_shared", Title: "z", CreatedAt: now}
	for _, n := range []*models.Notification{old, unread, fresh} {
		require.NoError(t, repo.Create(ctx, n))
	}
	repo.MarkRead(old.ID, now.Add(-39*24*time.Hour))
	repo.MarkRead(fresh.ID, now)

	n, err := repo.DeleteReadBefore(ctx, now.Add(-30*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, repo.ListByUser("alice"), 2)
}
