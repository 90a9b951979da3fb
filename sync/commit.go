package sync

import (
	"context"
	"io"
	"time"

	"github.com/Conflux-Chain/confura-pg-pipe/encode"
	"github.com/Conflux-Chain/confura-pg-pipe/store"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Committer persists batches, one database transaction per batch.
//
// In INSERT mode, blocks and transactions are upserted in the same database transaction, so a
// transaction seen again under another block after reorg overwrites the stale linkage.
//
// In COPY mode, only blocks are inserted into database, and transactions are written to sink as
// COPY lines after the database transaction committed. This is append only and not reorg tolerant.
type Committer struct {
	db       store.Writable
	mode     encode.Mode
	sink     io.Writer
	observer Observer
}

func NewCommitter(db store.Writable, mode encode.Mode, sink io.Writer, observer Observer) *Committer {
	if observer == nil {
		observer = nopObserver{}
	}

	return &Committer{
		db:       db,
		mode:     mode,
		sink:     sink,
		observer: observer,
	}
}

// Commit persists the batch and returns the number of committed blocks. Nothing is committed
// if any statement failed.
//
// Once begun, the database transaction runs to commit or failure regardless of ctx.
func (c *Committer) Commit(ctx context.Context, batch *Batch) (int, error) {
	if batch.Empty() {
		return 0, nil
	}

	start := time.Now()
	err := c.commit(context.WithoutCancel(ctx), batch)
	c.observer.OnCommit(batch, time.Since(start), err)

	if err != nil {
		return 0, err
	}

	return batch.NumBlocks, nil
}

func (c *Committer) commit(ctx context.Context, batch *Batch) error {
	tx, err := c.db.Begin(ctx)
	if err != nil {
		return NewStoreError(errors.WithMessage(err, "Failed to begin transaction"))
	}

	done := false
	defer func() {
		if done {
			return
		}

		if err := tx.Rollback(); err != nil {
			logrus.WithError(err).WithField("from", batch.From).Warn("Failed to rollback transaction")
		}
	}()

	if _, err = tx.Exec(ctx, batch.BlocksStatement(c.mode == encode.Insert)); err != nil {
		return NewStoreError(errors.WithMessagef(err, "Failed to insert blocks [%v, %v]", batch.From, batch.To))
	}

	if batch.NumTxs > 0 && c.mode == encode.Insert {
		if _, err = tx.Exec(ctx, batch.TransactionsStatement()); err != nil {
			return NewStoreError(errors.WithMessagef(err, "Failed to upsert %v transactions", batch.NumTxs))
		}
	}

	// transaction is finished whether commit succeeded or not
	done = true
	if err = tx.Commit(); err != nil {
		return NewStoreError(errors.WithMessage(err, "Failed to commit transaction"))
	}

	if batch.NumTxs > 0 && c.mode == encode.Copy {
		if _, err = io.WriteString(c.sink, batch.CopyData()); err != nil {
			return NewEncodingError(errors.WithMessagef(err, "Failed to write %v transactions to sink", batch.NumTxs))
		}
	}

	return nil
}
