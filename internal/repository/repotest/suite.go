// Package repotest is a contract test suite for repository implementations.
// It exercises the interfaces, not implementation details, so the memory and
// Postgres stores run the same cases.
package repotest

import (
	"testing"

	"fileflow/internal/domain/repositories"
	fsRepo "fileflow/internal/domain/repositories/filesystem"
	uploadRepo "fileflow/internal/domain/repositories/upload"
)

// Repos is one fresh set of repositories sharing a backing store.
type Repos struct {
	Nodes    fsRepo.NodeRepository
	Shares   fsRepo.ShareRepository
	Sessions uploadRepo.SessionRepository
	Tx       repositories.TransactionManager
}

// Suite runs the contract tests.
type Suite struct {
	// NewRepos creates an isolated set of repositories for each test.
	NewRepos func(t *testing.T) *Repos
}

// Run executes all tests in the suite.
func (suite *Suite) Run(t *testing.T) {
	t.Run("Node", suite.RunNodeTests)
	t.Run("Share", suite.RunShareTests)
	t.Run("UploadSession", suite.RunSessionTests)
	t.Run("Transaction", suite.RunTransactionTests)
}
