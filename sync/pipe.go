package sync

import (
	"context"
	"io"

	"github.com/Conflux-Chain/confura-pg-pipe/encode"
	"github.com/Conflux-Chain/confura-pg-pipe/node"
	"github.com/Conflux-Chain/confura-pg-pipe/store"
	"github.com/Conflux-Chain/go-conflux-util/ctxutil"
	"github.com/Conflux-Chain/go-conflux-util/health"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var _ Node = node.Client(nil)

// Node is the blockchain node to mirror.
type Node interface {
	BlockFetcher
	StatusReader
}

// Pipe mirrors blocks and transactions of a blockchain node into database in batches. It runs
// in a single goroutine, which refreshes the node state, drains the blocks between the stored
// watermark and node tip, then sleeps for a while before the next refresh.
type Pipe struct {
	config Config
	mode   encode.Mode

	tracker   *Tracker
	assembler *Assembler
	committer *Committer
	observer  Observer
	health    *health.TimedCounter

	// the highest block number committed into database
	lastStoredBlock uint64
}

// NewPipe creates a pipe to sync from the stored watermark, or from config.StartBlock if larger.
// Transactions are written to sink in COPY mode.
func NewPipe(ctx context.Context, config Config, client Node, db store.Writable, sink io.Writer) (*Pipe, error) {
	mode, err := encode.ParseMode(config.Mode)
	if err != nil {
		return nil, err
	}

	if config.BatchSize == 0 || config.BatchSize > MaxBatchSize {
		return nil, errors.Errorf("batch size should be in range [1, %v]", MaxBatchSize)
	}

	if mode == encode.Copy && sink == nil {
		return nil, errors.New("sink required in copy mode")
	}

	stored, ok, err := db.LastStoredBlock(ctx)
	if err != nil {
		return nil, NewStoreError(errors.WithMessage(err, "Failed to get last stored block"))
	}

	var observer Observer = nopObserver{}
	if config.Metrics {
		observer = metricsObserver{}
	}

	lastStoredBlock := max(stored, config.StartBlock)

	logrus.WithFields(logrus.Fields{
		"mode":            mode,
		"stored":          stored,
		"empty":           !ok,
		"startBlock":      config.StartBlock,
		"lastStoredBlock": lastStoredBlock,
	}).Info("Pipe created")

	return &Pipe{
		config:          config,
		mode:            mode,
		tracker:         NewTracker(client),
		assembler:       NewAssembler(client, mode, config.BatchSize, observer),
		committer:       NewCommitter(db, mode, sink, observer),
		observer:        observer,
		health:          health.NewTimedCounter(config.Health),
		lastStoredBlock: lastStoredBlock,
	}, nil
}

// LastStoredBlock returns the highest block number committed into database.
func (p *Pipe) LastStoredBlock() uint64 {
	return p.lastStoredBlock
}

// Run syncs until ctx is done, and returns nil if stopped by ctx. Otherwise, returns the
// error that failed the pipe, e.g. node unavailable to refresh, or database failure.
//
// Node failures during drain are retried after the idle interval.
func (p *Pipe) Run(ctx context.Context) error {
	logrus.WithField("lastStoredBlock", p.lastStoredBlock).Info("Pipe started")

	for ctx.Err() == nil {
		if err := p.runOnce(ctx); err != nil {
			logrus.WithError(err).WithField("lastStoredBlock", p.lastStoredBlock).Error("Pipe terminated")
			return err
		}
	}

	logrus.WithField("lastStoredBlock", p.lastStoredBlock).Info("Pipe stopped")

	return nil
}

func (p *Pipe) runOnce(ctx context.Context) error {
	state, err := p.tracker.Refresh(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// interrupted by shutdown
			return nil
		}

		return errors.WithMessage(err, "Failed to refresh node state")
	}

	p.observer.OnRefresh(state)

	if state.Syncing {
		logrus.WithField("tip", state.Tip).Info("Node is syncing, sleeping for a while")
		p.sleep(ctx)
		return nil
	}

	var queueSize uint64
	if state.Tip > p.lastStoredBlock {
		queueSize = state.Tip - p.lastStoredBlock
	}

	logrus.WithFields(logrus.Fields{
		"queueSize":       queueSize,
		"lastStoredBlock": p.lastStoredBlock,
		"tip":             state.Tip,
	}).Info("Node state refreshed")

	err = p.drain(ctx, state.Tip)
	if err != nil && !IsTransient(err) {
		return err
	}

	p.health.LogOnError(err, "Drain blocks")

	if ctx.Err() == nil {
		logrus.WithField("lastStoredBlock", p.lastStoredBlock).Debug("Drain done, sleeping for a while")
		p.sleep(ctx)
	}

	return nil
}

// drain commits batches until tip reached or ctx done.
func (p *Pipe) drain(ctx context.Context, tip uint64) error {
	if p.mode == encode.Copy && p.lastStoredBlock < tip {
		logrus.Info(encode.TransactionTable.CopyHeader())
	}

	for p.lastStoredBlock < tip && ctx.Err() == nil {
		batch, err := p.assembler.Assemble(ctx, p.lastStoredBlock+1, tip)
		if err != nil {
			return err
		}

		if batch.Empty() {
			return nil
		}

		committed, err := p.committer.Commit(ctx, batch)
		if err != nil {
			return err
		}

		p.lastStoredBlock += uint64(committed)
		p.observer.OnAdvance(p.lastStoredBlock)

		logrus.WithFields(logrus.Fields{
			"blocks": committed,
			"txs":    batch.NumTxs,
		}).Infof("Processed blocks, at %v/%v", p.lastStoredBlock, tip)
	}

	return nil
}

func (p *Pipe) sleep(ctx context.Context) {
	if err := ctxutil.Sleep(ctx, p.config.IdleInterval); err != nil {
		logrus.Debug("Sleep interrupted")
	}
}
