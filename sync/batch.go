package sync

import (
	"context"
	"strings"
	"time"

	"github.com/Conflux-Chain/confura-pg-pipe/encode"
	"github.com/Conflux-Chain/confura-pg-pipe/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Estimated encoded sizes to pre-size batch buffers.
const (
	blockRowSize = 128
	txRowSize    = 512
	txsPerBlock  = 200
)

// Upper bounds of pre-sized buffers, regardless of batch size.
const (
	maxBlocksPresize = 10 << 20
	maxTxsPresize    = 40 << 20
)

// MaxBatchSize is the max number of blocks in a batch.
const MaxBatchSize = 10_000

const (
	rowSeparator   = ",\n"
	copyTerminator = "\n"
)

// BlockFetcher fetches blocks with full transactions from a blockchain node.
type BlockFetcher interface {
	BlockWithTransactions(ctx context.Context, height uint64) (*types.Block, error)
}

// Batch is a group of contiguous blocks encoded as SQL text, in ascending order.
type Batch struct {
	mode encode.Mode

	From      uint64 // first block number
	To        uint64 // last block number, valid only if not empty
	NumBlocks int
	NumTxs    int

	blocks strings.Builder // INSERT statement for blocks
	txs    strings.Builder // INSERT statement or COPY lines for transactions

	txHashes map[common.Hash]uint64 // transaction hash => block number
}

func newBatch(mode encode.Mode, from uint64, capacity uint64) *Batch {
	batch := Batch{
		mode:     mode,
		From:     from,
		txHashes: make(map[common.Hash]uint64),
	}

	if capacity > 0 {
		capacity = min(capacity, MaxBatchSize)
		batch.blocks.Grow(int(min(capacity*blockRowSize, maxBlocksPresize)))
		batch.txs.Grow(int(min(capacity*txsPerBlock*txRowSize, maxTxsPresize)))
	}

	return &batch
}

// Empty returns true if no block added, which indicates nothing to commit.
func (b *Batch) Empty() bool {
	return b.NumBlocks == 0
}

// Size returns the number of encoded bytes.
func (b *Batch) Size() int {
	return b.blocks.Len() + b.txs.Len()
}

// add appends the block and its transactions. It fails without any change if a transaction
// already added, which happens when chain reorganized between fetches, because one statement
// could not upsert the same row twice.
func (b *Batch) add(block *types.Block) error {
	for _, tx := range block.Transactions {
		if bn, ok := b.txHashes[tx.Hash]; ok {
			return errors.Errorf("transaction %v already added in block %v", tx.Hash, bn)
		}
	}

	for _, tx := range block.Transactions {
		b.txHashes[tx.Hash] = block.Number
	}

	appendInsertRow(&b.blocks, encode.BlockRecord{Block: block}, b.NumBlocks == 0)
	b.To = block.Number
	b.NumBlocks++

	for i := range block.Transactions {
		record := encode.TransactionRecord{Transaction: &block.Transactions[i]}

		if b.mode == encode.Copy {
			b.txs.WriteString(encode.Encode(record, encode.Copy))
			b.txs.WriteString(copyTerminator)
		} else {
			appendInsertRow(&b.txs, record, b.NumTxs == 0)
		}

		b.NumTxs++
	}

	return nil
}

func appendInsertRow(sb *strings.Builder, record encode.Record, first bool) {
	if first {
		sb.WriteString(record.Table().InsertHeader())
		sb.WriteString("\n")
	} else {
		sb.WriteString(rowSeparator)
	}

	sb.WriteString(encode.Encode(record, encode.Insert))
}

// BlocksStatement returns the INSERT statement of blocks, which overwrites existing blocks
// of the same number if upsert specified.
func (b *Batch) BlocksStatement(upsert bool) string {
	if !upsert {
		return b.blocks.String()
	}

	return b.blocks.String() + "\n" + encode.BlockTable.UpsertClause()
}

// TransactionsStatement returns the INSERT statement of transactions, which overwrites existing
// transactions of the same hash. Valid only in INSERT mode with transactions.
func (b *Batch) TransactionsStatement() string {
	return b.txs.String() + "\n" + encode.TransactionTable.UpsertClause()
}

// CopyData returns the newline terminated COPY lines of transactions. Valid only in COPY mode.
func (b *Batch) CopyData() string {
	return b.txs.String()
}

// Assembler fetches blocks in ascending order and encodes them into a batch.
type Assembler struct {
	fetcher   BlockFetcher
	mode      encode.Mode
	batchSize uint64
	observer  Observer
}

func NewAssembler(fetcher BlockFetcher, mode encode.Mode, batchSize uint64, observer Observer) *Assembler {
	if observer == nil {
		observer = nopObserver{}
	}

	return &Assembler{
		fetcher:   fetcher,
		mode:      mode,
		batchSize: batchSize,
		observer:  observer,
	}
}

// Assemble fetches at most batch size blocks from start to tip inclusive. It stops early once
// ctx is done, so the returned batch may be empty, e.g. canceled before the first fetch or
// tip < start.
//
// A block fetch in progress is never interrupted by ctx.
func (a *Assembler) Assemble(ctx context.Context, start, tip uint64) (*Batch, error) {
	if tip < start {
		return newBatch(a.mode, start, 0), nil
	}

	batch := newBatch(a.mode, start, min(a.batchSize, tip-start+1))

	for bn := start; bn <= tip && uint64(batch.NumBlocks) < a.batchSize; bn++ {
		if ctx.Err() != nil {
			break
		}

		block, err := a.fetch(ctx, bn)
		if err != nil {
			return nil, err
		}

		if err = batch.add(block); err != nil {
			return nil, NewAbsentBlockError(bn, err)
		}

		logrus.WithFields(logrus.Fields{
			"block": bn,
			"txs":   block.NumTransactions(),
		}).Debug("Block fetched")
	}

	return batch, nil
}

func (a *Assembler) fetch(ctx context.Context, height uint64) (*types.Block, error) {
	start := time.Now()
	block, err := a.fetcher.BlockWithTransactions(context.WithoutCancel(ctx), height)
	a.observer.OnFetch(height, block, time.Since(start), err)

	if err != nil {
		return nil, NewTransportError(errors.WithMessagef(err, "Failed to fetch block %v", height))
	}

	if block == nil {
		return nil, NewAbsentBlockError(height, nil)
	}

	if block.Number != height {
		return nil, NewAbsentBlockError(height, errors.Errorf("node returned block %v", block.Number))
	}

	if err = block.Verify(); err != nil {
		return nil, NewAbsentBlockError(height, err)
	}

	return block, nil
}
