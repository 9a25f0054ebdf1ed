package repositories

import "context"

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions.
// Nested ExecTx calls join the outer transaction.
type TransactionManager interface {
	ExecTx(ctx context.Context, fn TxFn) error
}
