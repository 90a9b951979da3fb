package node

import (
	"context"
	"time"

	"github.com/Conflux-Chain/confura-pg-pipe/types"
	providers "github.com/openweb3/go-rpc-provider/provider_wrapper"
	"github.com/openweb3/web3go"
	ethTypes "github.com/openweb3/web3go/types"
	"github.com/pkg/errors"
)

var _ Client = (*Web3Client)(nil)

// Web3Client implements Client with web3go over HTTP.
type Web3Client struct {
	client  *web3go.Client
	metrics Metrics
}

func NewWeb3Client(url string, requestTimeout time.Duration) (*Web3Client, error) {
	client, err := web3go.NewClientWithOption(url, web3go.ClientOption{
		Option: providers.Option{
			RequestTimeout: requestTimeout,
		},
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "Failed to create web3 client for %v", url)
	}

	return &Web3Client{
		client:  client,
		metrics: Metrics{transport: TransportWeb3},
	}, nil
}

// Close releases any held resources, such as network connections.
func (c *Web3Client) Close() error {
	c.client.Close()
	return nil
}

// TipHeight implements the Client interface.
func (c *Web3Client) TipHeight(ctx context.Context) (uint64, error) {
	start := time.Now()
	block, err := c.client.WithContext(ctx).Eth.BlockByNumber(ethTypes.LatestBlockNumber, false)
	c.metrics.UpdateLatency("tip", start, err)

	if err != nil {
		return 0, errors.WithMessage(err, "Failed to get latest block")
	}

	if block == nil || block.Number == nil {
		return 0, errors.New("invalid latest block")
	}

	return block.Number.Uint64(), nil
}

// SyncStatus implements the Client interface.
func (c *Web3Client) SyncStatus(ctx context.Context) (SyncStatus, error) {
	start := time.Now()
	status, err := c.client.WithContext(ctx).Eth.Syncing()
	c.metrics.UpdateLatency("syncing", start, err)

	if err != nil {
		return Syncing, errors.WithMessage(err, "Failed to get sync status")
	}

	if status.IsSyncing {
		return Syncing, nil
	}

	return Synced, nil
}

// BlockWithTransactions implements the Client interface.
func (c *Web3Client) BlockWithTransactions(ctx context.Context, height uint64) (*types.Block, error) {
	start := time.Now()
	block, err := c.client.WithContext(ctx).Eth.BlockByNumber(ethTypes.BlockNumber(height), true)
	c.metrics.UpdateLatency("block", start, err)

	if err != nil {
		return nil, errors.WithMessagef(err, "Failed to get block by number %v", height)
	}

	if block == nil {
		return nil, nil
	}

	result := newBlockFromWeb3(block)
	c.metrics.NumTxs(len(result.Transactions))

	return result, nil
}

func newBlockFromWeb3(block *ethTypes.Block) *types.Block {
	txs := block.Transactions.Transactions()

	result := types.Block{
		Hash:         block.Hash,
		Timestamp:    block.Timestamp,
		Transactions: make([]types.Transaction, 0, len(txs)),
	}

	if block.Number != nil {
		result.Number = block.Number.Uint64()
	}

	for _, tx := range txs {
		from := tx.From

		converted := types.Transaction{
			Hash:     tx.Hash,
			Nonce:    tx.Nonce,
			From:     &from,
			To:       tx.To,
			Value:    tx.Value,
			Gas:      tx.Gas,
			GasPrice: tx.GasPrice,
		}

		if tx.BlockHash != nil {
			converted.BlockHash = *tx.BlockHash
		}

		if tx.BlockNumber != nil {
			converted.BlockNumber = tx.BlockNumber.Uint64()
		}

		if tx.TransactionIndex != nil {
			converted.TransactionIndex = *tx.TransactionIndex
		}

		result.Transactions = append(result.Transactions, converted)
	}

	return &result
}
