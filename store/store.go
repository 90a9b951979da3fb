package store

import (
	"context"
	"io"
)

// Tx is a database transaction. Statements take effect only after Commit, and are
// discarded by Rollback or any failure.
type Tx interface {
	// Exec executes the statement and returns the number of affected rows.
	Exec(ctx context.Context, query string) (int64, error)
	Commit() error
	Rollback() error
}

// Writable is the relational store that blocks and transactions are mirrored into.
type Writable interface {
	// LastStoredBlock returns the highest block number stored, or false if no block stored yet.
	LastStoredBlock(ctx context.Context) (uint64, bool, error)

	// Begin starts a new transaction.
	Begin(ctx context.Context) (Tx, error)
}

// Database is a Writable that holds connections until closed.
type Database interface {
	io.Closer
	Writable
}
