package sync

import (
	"time"

	"github.com/Conflux-Chain/go-conflux-util/health"
	"github.com/mcuadros/go-defaults"
)

// Config holds the configurations of pipe.
type Config struct {
	// Mode is either "insert" or "copy".
	Mode string `default:"insert"`

	// Max number of blocks for each batch, at most MaxBatchSize.
	BatchSize uint64 `default:"100"`

	// StartBlock is the lowest block to sync from, which overrides the stored watermark
	// if larger. Blocks up to and including StartBlock are never synced.
	StartBlock uint64

	// Interval to sleep when node is syncing or the tip has been reached.
	IdleInterval time.Duration `default:"1m"`

	// Metrics enables the metrics observer.
	Metrics bool

	Health health.TimedCounterConfig
}

func DefaultConfig() (config Config) {
	defaults.SetDefaults(&config)
	return
}
