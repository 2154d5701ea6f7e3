package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNetworkError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "network timeout",
			err:      NewNetworkTimeoutError("request to peer-1 timed out"),
			expected: true,
		},
		{
			name:     "wrapped in a sync error",
			err:      New(ERR_SYNC_APPLY_PENALTY_AND_RESTART, "peer did not provide its last block", NewNetworkError("peer not connected")),
			expected: false,
		},
		{
			name:     "plain dial error",
			err:      fmt.Errorf("dial tcp 10.0.0.1:7667: connect: connection refused"),
			expected: true,
		},
		{
			name:     "storage error",
			err:      NewStorageError("failed to read block"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNetworkError(tt.err))
		})
	}
}

func TestIsMaliciousResponseError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "invalid response",
			err:      NewNetworkInvalidResponseError("response is not a list of blocks"),
			expected: true,
		},
		{
			name:     "invalid response wrapping a decode error",
			err:      NewNetworkInvalidResponseError("could not decode block", NewBlockInvalidError("short header")),
			expected: true,
		},
		{
			name:     "malicious peer wrapped by a network error",
			err:      NewNetworkError("request failed", NewNetworkPeerMaliciousError("peer sent garbage")),
			expected: true,
		},
		{
			name:     "timeout",
			err:      NewNetworkTimeoutError("timeout"),
			expected: false,
		},
		{
			name:     "plain error",
			err:      fmt.Errorf("malformed"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsMaliciousResponseError(tt.err))
		})
	}
}

func TestIsContextError(t *testing.T) {
	deadline := fmt.Errorf("getBlocksFromId: %w", context.DeadlineExceeded)

	assert.False(t, IsContextError(nil))
	assert.True(t, IsContextError(context.Canceled))
	assert.True(t, IsContextError(deadline))
	assert.True(t, IsContextError(NewContextCanceledError("synchronizer stopped")))
	assert.True(t, IsContextError(NewStorageError("failed to store block", context.Canceled)))
	assert.False(t, IsContextError(NewNetworkTimeoutError("peer-1 timed out")))
}

func TestGetErrorCategory(t *testing.T) {
	for expected, err := range map[string]error{
		"none":      nil,
		"context":   NewProcessingError("apply interrupted", context.Canceled),
		"malicious": NewNetworkInvalidResponseError("peer returned a header for getLastBlock"),
		"network":   NewNetworkTimeoutError("peer-1 timed out"),
		"block":     NewBlockNotFoundError("block %d not found", 12),
		"storage":   NewStorageError("failed to read temp blocks"),
		"service":   NewServiceError("event bus has no handlers"),
		"sync":      NewSyncApplyPenaltyAndAbortError("peer-1", "block validation failed"),
		"unknown":   fmt.Errorf("some random error"),
	} {
		t.Run(expected, func(t *testing.T) {
			assert.Equal(t, expected, GetErrorCategory(err))
		})
	}

	// a plain dial error has no code but still reads as a network failure
	assert.Equal(t, "network", GetErrorCategory(fmt.Errorf("read tcp: i/o timeout")))
}

func TestIsSyncOutcome(t *testing.T) {
	assert.True(t, IsSyncOutcome(NewSyncAbortError("stop")))
	assert.True(t, IsSyncOutcome(NewSyncRestartError("again")))
	assert.True(t, IsSyncOutcome(NewSyncApplyPenaltyAndRestartError("p", "bad tip")))
	assert.True(t, IsSyncOutcome(NewSyncApplyPenaltyAndAbortError("p", "bad block")))
	assert.False(t, IsSyncOutcome(New(ERR_SYNC_BLOCK_PROCESSING, "apply failed")))
	assert.False(t, IsSyncOutcome(fmt.Errorf("connected peers list is empty")))
	assert.False(t, IsSyncOutcome(nil))
}
