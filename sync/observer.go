package sync

import (
	"time"

	"github.com/Conflux-Chain/confura-pg-pipe/types"
	metricsUtil "github.com/Conflux-Chain/go-conflux-util/metrics"
)

var (
	_ Observer = nopObserver{}
	_ Observer = metricsObserver{}
)

// Observer is notified of pipe progress. Implementations must not block.
type Observer interface {
	// OnRefresh is called after node state refreshed.
	OnRefresh(state State)

	// OnFetch is called after a block is fetched, where block is nil if absent or failed.
	OnFetch(height uint64, block *types.Block, elapsed time.Duration, err error)

	// OnCommit is called after a batch is committed or failed to commit.
	OnCommit(batch *Batch, elapsed time.Duration, err error)

	// OnAdvance is called after the watermark advanced.
	OnAdvance(lastStoredBlock uint64)
}

type nopObserver struct{}

func (nopObserver) OnRefresh(State) {}
func (nopObserver) OnFetch(uint64, *types.Block, time.Duration, error) {}
func (nopObserver) OnCommit(*Batch, time.Duration, error) {}
func (nopObserver) OnAdvance(uint64) {}

// metricsObserver records pipe progress in the default metrics registry.
type metricsObserver struct{}

func (metricsObserver) OnRefresh(state State) {
	metricsUtil.GetOrRegisterGauge("pipe/tip").Update(int64(state.Tip))
}

func (metricsObserver) OnFetch(height uint64, block *types.Block, elapsed time.Duration, err error) {
	if err != nil || block == nil {
		metricsUtil.GetOrRegisterTimer("pipe/fetch/failure").Update(elapsed)
		return
	}

	metricsUtil.GetOrRegisterTimer("pipe/fetch/success").Update(elapsed)
	metricsUtil.GetOrRegisterHistogram("pipe/fetch/size").Update(int64(types.SizeOf(block)))
}

func (metricsObserver) OnCommit(batch *Batch, elapsed time.Duration, err error) {
	if err != nil {
		metricsUtil.GetOrRegisterTimer("pipe/commit/failure").Update(elapsed)
		return
	}

	metricsUtil.GetOrRegisterTimer("pipe/commit/success").Update(elapsed)
	metricsUtil.GetOrRegisterHistogram("pipe/batch/blocks").Update(int64(batch.NumBlocks))
	metricsUtil.GetOrRegisterHistogram("pipe/batch/txs").Update(int64(batch.NumTxs))
	metricsUtil.GetOrRegisterHistogram("pipe/batch/bytes").Update(int64(batch.Size()))
}

func (metricsObserver) OnAdvance(lastStoredBlock uint64) {
	metricsUtil.GetOrRegisterGauge("pipe/watermark").Update(int64(lastStoredBlock))
}
