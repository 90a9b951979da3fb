package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/Conflux-Chain/confura-pg-pipe/node"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestTrackerRefresh(t *testing.T) {
	reader := new(MockStatusReader)
	reader.On("TipHeight", mock.Anything).Return(uint64(100), nil).Once()
	reader.On("SyncStatus", mock.Anything).Return(node.Synced, nil).Once()
	reader.On("TipHeight", mock.Anything).Return(uint64(120), nil).Once()
	reader.On("SyncStatus", mock.Anything).Return(node.Syncing, nil).Once()

	tracker := NewTracker(reader)

	state, err := tracker.Refresh(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, State{Tip: 100, Syncing: false}, state)

	// replaced by next refresh
	state, err = tracker.Refresh(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, State{Tip: 120, Syncing: true}, state)

	reader.AssertExpectations(t)
}

func TestTrackerRefreshFailure(t *testing.T) {
	reader := new(MockStatusReader)
	reader.On("TipHeight", mock.Anything).Return(uint64(100), nil).Once()
	reader.On("SyncStatus", mock.Anything).Return(node.Synced, nil).Once()
	reader.On("TipHeight", mock.Anything).Return(uint64(0), errors.New("timeout")).Once()

	tracker := NewTracker(reader)

	_, err := tracker.Refresh(context.Background())
	assert.NoError(t, err)

	state, err := tracker.Refresh(context.Background())
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, State{}, state)
}
