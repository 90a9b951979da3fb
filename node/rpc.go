package node

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/Conflux-Chain/confura-pg-pipe/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
)

var _ Client = (*RPCClient)(nil)

// RPCClient implements Client with go-ethereum rpc, which dials an IPC socket
// for plain paths and HTTP or websocket for URLs.
type RPCClient struct {
	client         *rpc.Client
	requestTimeout time.Duration
	metrics        Metrics
}

func NewRPCClient(ctx context.Context, url string, requestTimeout time.Duration) (*RPCClient, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.WithMessagef(err, "Failed to dial %v", url)
	}

	return &RPCClient{
		client:         client,
		requestTimeout: requestTimeout,
		metrics:        Metrics{transport: TransportRPC},
	}, nil
}

// Close releases any held resources, such as network connections.
func (c *RPCClient) Close() error {
	c.client.Close()
	return nil
}

func (c *RPCClient) call(ctx context.Context, result any, method string, args ...any) error {
	if c.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.requestTimeout)
		defer cancel()
	}

	start := time.Now()
	err := c.client.CallContext(ctx, result, method, args...)
	c.metrics.UpdateLatency(method, start, err)

	return err
}

// TipHeight implements the Client interface.
func (c *RPCClient) TipHeight(ctx context.Context) (uint64, error) {
	var result hexutil.Uint64
	if err := c.call(ctx, &result, "eth_blockNumber"); err != nil {
		return 0, errors.WithMessage(err, "Failed to get block number")
	}

	return uint64(result), nil
}

// SyncStatus implements the Client interface.
func (c *RPCClient) SyncStatus(ctx context.Context) (SyncStatus, error) {
	var raw json.RawMessage
	if err := c.call(ctx, &raw, "eth_syncing"); err != nil {
		return Syncing, errors.WithMessage(err, "Failed to get sync status")
	}

	// false if fully synced, otherwise the sync progress object
	if bytes.Equal(bytes.TrimSpace(raw), []byte("false")) {
		return Synced, nil
	}

	return Syncing, nil
}

// BlockWithTransactions implements the Client interface.
func (c *RPCClient) BlockWithTransactions(ctx context.Context, height uint64) (*types.Block, error) {
	var block *rpcBlock
	if err := c.call(ctx, &block, "eth_getBlockByNumber", hexutil.EncodeUint64(height), true); err != nil {
		return nil, errors.WithMessagef(err, "Failed to get block by number %v", height)
	}

	if block == nil {
		return nil, nil
	}

	result := block.toBlock()
	c.metrics.NumTxs(len(result.Transactions))

	return result, nil
}

type rpcBlock struct {
	Number       hexutil.Uint64   `json:"number"`
	Hash         common.Hash      `json:"hash"`
	Timestamp    hexutil.Uint64   `json:"timestamp"`
	Transactions []rpcTransaction `json:"transactions"`
}

type rpcTransaction struct {
	Hash             common.Hash     `json:"hash"`
	Nonce            hexutil.Uint64  `json:"nonce"`
	BlockHash        *common.Hash    `json:"blockHash"`
	BlockNumber      *hexutil.Uint64 `json:"blockNumber"`
	TransactionIndex *hexutil.Uint64 `json:"transactionIndex"`
	From             *common.Address `json:"from"`
	To               *common.Address `json:"to"`
	Value            *hexutil.Big    `json:"value"`
	Gas              hexutil.Uint64  `json:"gas"`
	GasPrice         *hexutil.Big    `json:"gasPrice"`
}

func (b *rpcBlock) toBlock() *types.Block {
	result := types.Block{
		Number:       uint64(b.Number),
		Hash:         b.Hash,
		Timestamp:    uint64(b.Timestamp),
		Transactions: make([]types.Transaction, 0, len(b.Transactions)),
	}

	for _, tx := range b.Transactions {
		converted := types.Transaction{
			Hash:  tx.Hash,
			Nonce: uint64(tx.Nonce),
			From:  tx.From,
			To:    tx.To,
			Value: tx.Value.ToInt(),
			Gas:   uint64(tx.Gas),
		}

		if tx.GasPrice != nil {
			converted.GasPrice = tx.GasPrice.ToInt()
		}

		if tx.BlockHash != nil {
			converted.BlockHash = *tx.BlockHash
		}

		if tx.BlockNumber != nil {
			converted.BlockNumber = uint64(*tx.BlockNumber)
		}

		if tx.TransactionIndex != nil {
			converted.TransactionIndex = uint64(*tx.TransactionIndex)
		}

		result.Transactions = append(result.Transactions, converted)
	}

	return &result
}
