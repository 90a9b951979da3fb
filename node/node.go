package node

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/Conflux-Chain/confura-pg-pipe/types"
	"github.com/Conflux-Chain/go-conflux-util/ctxutil"
	"github.com/mcuadros/go-defaults"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	TransportWeb3 = "web3" // web3go over HTTP
	TransportRPC  = "rpc"  // go-ethereum rpc over IPC socket or URL
)

// SyncStatus is the node synchronization state.
type SyncStatus int

const (
	Synced SyncStatus = iota
	Syncing
)

func (s SyncStatus) String() string {
	if s == Synced {
		return "synced"
	}

	return "syncing"
}

// Client is the blockchain node used to mirror the canonical chain.
type Client interface {
	io.Closer

	// TipHeight returns the latest block number of the canonical chain.
	TipHeight(ctx context.Context) (uint64, error)

	// SyncStatus returns Syncing unless the node is fully synced.
	SyncStatus(ctx context.Context) (SyncStatus, error)

	// BlockWithTransactions returns the block with full transactions for the given height.
	// If not available yet, returns nil.
	BlockWithTransactions(ctx context.Context, height uint64) (*types.Block, error)
}

// Config holds the configurations to connect to a blockchain node.
type Config struct {
	// Transport is either "web3" or "rpc".
	Transport string `default:"web3"`

	// URL of HTTP endpoint, or IPC socket path for "rpc" transport.
	URL string `default:"http://localhost:8545"`

	RequestTimeout time.Duration `default:"30s"`

	// Max number of attempts to connect, 0 means retry until canceled.
	DialRetries       int
	DialRetryInterval time.Duration `default:"5s"`
}

func DefaultConfig() (config Config) {
	defaults.SetDefaults(&config)
	return
}

// Dial connects to the node and checks it is reachable. Failed attempts are retried
// with fixed interval until succeeded, retries exhausted or ctx done.
func Dial(ctx context.Context, config Config) (Client, error) {
	for attempt := 1; ; attempt++ {
		client, err := dialOnce(ctx, config)
		if err == nil {
			logrus.WithFields(logrus.Fields{
				"transport": config.Transport,
				"url":       config.URL,
				"attempt":   attempt,
			}).Info("Connected to node")
			return client, nil
		}

		if config.DialRetries > 0 && attempt >= config.DialRetries {
			return nil, errors.WithMessagef(err, "Failed to connect to node after %v attempts", attempt)
		}

		logrus.WithError(err).WithFields(logrus.Fields{
			"transport": config.Transport,
			"url":       config.URL,
			"attempt":   attempt,
		}).Warn("Failed to connect to node, retry later")

		if err := ctxutil.Sleep(ctx, config.DialRetryInterval); err != nil {
			return nil, err
		}
	}
}

func dialOnce(ctx context.Context, config Config) (Client, error) {
	var (
		client Client
		err    error
	)

	switch strings.ToLower(config.Transport) {
	case TransportWeb3:
		client, err = NewWeb3Client(config.URL, config.RequestTimeout)
	case TransportRPC:
		client, err = NewRPCClient(ctx, config.URL, config.RequestTimeout)
	default:
		return nil, errors.Errorf("invalid node transport %q", config.Transport)
	}

	if err != nil {
		return nil, err
	}

	// probe, since some transports connect lazily
	if _, err = client.TipHeight(ctx); err != nil {
		client.Close()
		return nil, errors.WithMessage(err, "Failed to probe node")
	}

	return client, nil
}
