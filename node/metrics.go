package node

import (
	"time"

	metricsUtil "github.com/Conflux-Chain/go-conflux-util/metrics"
)

type Metrics struct {
	transport string
}

// UpdateLatency records the latency of a node RPC call, grouped by outcome.
func (m *Metrics) UpdateLatency(method string, start time.Time, err error) {
	elapsed := time.Since(start).Nanoseconds()

	if err == nil {
		metricsUtil.GetOrRegisterHistogram("node/%v/%v/latency/success", m.transport, method).Update(elapsed)
	} else {
		metricsUtil.GetOrRegisterHistogram("node/%v/%v/latency/failure", m.transport, method).Update(elapsed)
	}
}

// NumTxs records the number of transactions of a fetched block.
func (m *Metrics) NumTxs(n int) {
	metricsUtil.GetOrRegisterHistogram("node/%v/num/txs", m.transport).Update(int64(n))
}
