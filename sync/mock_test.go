package sync

import (
	"context"
	"math/big"
	"sync"

	"github.com/Conflux-Chain/confura-pg-pipe/node"
	"github.com/Conflux-Chain/confura-pg-pipe/store"
	"github.com/Conflux-Chain/confura-pg-pipe/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
)

func newTestBlock(number uint64, numTxs int) *types.Block {
	block := types.Block{
		Number:    number,
		Hash:      common.BigToHash(new(big.Int).SetUint64(number + 1_000_000)),
		Timestamp: 1_700_000_000 + number,
	}

	for i := 0; i < numTxs; i++ {
		from := common.BigToAddress(big.NewInt(int64(i + 1)))

		block.Transactions = append(block.Transactions, types.Transaction{
			Hash:             common.BigToHash(new(big.Int).SetUint64(number*1000 + uint64(i))),
			Nonce:            uint64(i),
			BlockHash:        block.Hash,
			BlockNumber:      number,
			TransactionIndex: uint64(i),
			From:             &from,
			To:               &from,
			Value:            big.NewInt(1_000_000),
			Gas:              21000,
			GasPrice:         big.NewInt(1_000_000_000),
		})
	}

	return &block
}

type MockDatabase struct {
	mock.Mock
}

func (m *MockDatabase) LastStoredBlock(ctx context.Context) (uint64, bool, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Bool(1), args.Error(2)
}

func (m *MockDatabase) Begin(ctx context.Context) (store.Tx, error) {
	args := m.Called(ctx)
	tx, _ := args.Get(0).(store.Tx)
	return tx, args.Error(1)
}

type MockTx struct {
	mock.Mock
}

func (m *MockTx) Exec(ctx context.Context, query string) (int64, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTx) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockTx) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

type MockStatusReader struct {
	mock.Mock
}

func (m *MockStatusReader) TipHeight(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockStatusReader) SyncStatus(ctx context.Context) (node.SyncStatus, error) {
	args := m.Called(ctx)
	return args.Get(0).(node.SyncStatus), args.Error(1)
}

// fakeChain is an in-memory node that serves blocks up to tip.
type fakeChain struct {
	mu sync.Mutex

	tip         uint64
	syncing     bool
	tipErr      error
	txsPerBlock int

	absent  map[uint64]bool
	failAt  map[uint64]error
	onFetch func(height uint64)

	refreshes int
	fetched   []uint64
}

func newFakeChain(tip uint64, txsPerBlock int) *fakeChain {
	return &fakeChain{
		tip:         tip,
		txsPerBlock: txsPerBlock,
		absent:      make(map[uint64]bool),
		failAt:      make(map[uint64]error),
	}
}

func (c *fakeChain) TipHeight(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.refreshes++

	return c.tip, c.tipErr
}

func (c *fakeChain) SyncStatus(ctx context.Context) (node.SyncStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.syncing {
		return node.Syncing, nil
	}

	return node.Synced, nil
}

func (c *fakeChain) BlockWithTransactions(ctx context.Context, height uint64) (*types.Block, error) {
	c.mu.Lock()
	c.fetched = append(c.fetched, height)
	onFetch := c.onFetch
	err := c.failAt[height]
	absent := c.absent[height] || height > c.tip
	c.mu.Unlock()

	if onFetch != nil {
		onFetch(height)
	}

	if err != nil {
		return nil, err
	}

	if absent {
		return nil, nil
	}

	return newTestBlock(height, c.txsPerBlock), nil
}

func (c *fakeChain) numRefreshes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refreshes
}

func (c *fakeChain) numFetched() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.fetched)
}

// memDatabase keeps statements of committed transactions in memory.
type memDatabase struct {
	mu sync.Mutex

	stored   uint64
	hasBlock bool
	execErr  error

	committed [][]string
}

func (db *memDatabase) LastStoredBlock(ctx context.Context) (uint64, bool, error) {
	return db.stored, db.hasBlock, nil
}

func (db *memDatabase) Begin(ctx context.Context) (store.Tx, error) {
	return &memTx{db: db}, nil
}

func (db *memDatabase) numCommits() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.committed)
}

type memTx struct {
	db      *memDatabase
	pending []string
}

func (tx *memTx) Exec(ctx context.Context, query string) (int64, error) {
	if tx.db.execErr != nil {
		return 0, tx.db.execErr
	}

	tx.pending = append(tx.pending, query)

	return 1, nil
}

func (tx *memTx) Commit() error {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()

	tx.db.committed = append(tx.db.committed, tx.pending)

	return nil
}

func (tx *memTx) Rollback() error {
	tx.pending = nil
	return nil
}

// advanceRecorder records the watermark advances.
type advanceRecorder struct {
	nopObserver

	mu       sync.Mutex
	advances []uint64
}

func (r *advanceRecorder) OnAdvance(lastStoredBlock uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advances = append(r.advances, lastStoredBlock)
}
