package sync

import (
	"context"

	"github.com/Conflux-Chain/confura-pg-pipe/node"
	"github.com/pkg/errors"
)

// StatusReader reads the chain status of a blockchain node.
type StatusReader interface {
	TipHeight(ctx context.Context) (uint64, error)
	SyncStatus(ctx context.Context) (node.SyncStatus, error)
}

// State is the node state of the latest refresh.
type State struct {
	Tip     uint64
	Syncing bool
}

// Tracker tracks the node tip and sync status.
type Tracker struct {
	reader StatusReader
}

func NewTracker(reader StatusReader) *Tracker {
	return &Tracker{reader: reader}
}

// Refresh queries the node for a new state. Any state other than fully synced is reported
// as syncing.
func (t *Tracker) Refresh(ctx context.Context) (State, error) {
	tip, err := t.reader.TipHeight(ctx)
	if err != nil {
		return State{}, NewTransportError(errors.WithMessage(err, "Failed to get tip height"))
	}

	status, err := t.reader.SyncStatus(ctx)
	if err != nil {
		return State{}, NewTransportError(errors.WithMessage(err, "Failed to get sync status"))
	}

	return State{
		Tip:     tip,
		Syncing: status != node.Synced,
	}, nil
}
