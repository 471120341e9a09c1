// Package repokit provides common types and helpers for repository implementations
package repokit

import (
	"context"

	perr "catalogsync/internal/platform/errors"
	"catalogsync/internal/platform/store"
)

// Queryer is the minimal read and write surface for SQL repos
type Queryer = store.RowQuerier

// TxRunner can execute a function inside a transaction
type TxRunner = store.TxRunner

type (
	// Rows are the result set of a query
	Rows = store.Rows

	// Row is a single row result from a query
	Row = store.Row

	// CommandTag is the result of a command that modifies data
	CommandTag = store.CommandTag
)

// WithTx runs fn in one transaction on tx; fn's error rolls back
func WithTx(ctx context.Context, tx TxRunner, fn func(q Queryer) error) error {
	if tx == nil {
		return perr.New(perr.ErrorCodeInvalidArgument, "repokit: nil TxRunner")
	}
	return tx.Tx(ctx, fn)
}
