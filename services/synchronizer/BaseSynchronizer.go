package synchronizer

import (
	"context"
	"sync/atomic"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/ulogger"
)

// BaseSynchronizer carries what both mechanisms share: the active flag and
// the effects of the sync outcomes.
type BaseSynchronizer struct {
	name    string
	logger  ulogger.Logger
	network Network
	events  EventPublisher
	config  *Config
	active  atomic.Bool
}

func newBaseSynchronizer(name string, logger ulogger.Logger, network Network, events EventPublisher, config *Config) BaseSynchronizer {
	return BaseSynchronizer{
		name:    name,
		logger:  logger,
		network: network,
		events:  events,
		config:  config,
	}
}

func (b *BaseSynchronizer) Name() string {
	return b.name
}

// IsActive reports whether Run is executing.
func (b *BaseSynchronizer) IsActive() bool {
	return b.active.Load()
}

// start marks the mechanism active, the returned func clears the flag.
func (b *BaseSynchronizer) start() func() {
	b.active.Store(true)
	prometheusSynchronizerActive.Inc()

	return func() {
		prometheusSynchronizerActive.Dec()
		b.active.Store(false)
	}
}

// applyPenaltyAndRestart penalizes peerID and asks for block to be synchronized
// again on behalf of fromPeerID, the peer block was received from.
func (b *BaseSynchronizer) applyPenaltyAndRestart(ctx context.Context, peerID string, block *model.Block, fromPeerID string, reason string) {
	b.logger.Warnf("[%s][%s] applying penalty on peer %s and restarting synchronization: %s", b.name, block.Hash(), peerID, reason)

	b.applyPenalty(ctx, peerID, block)
	b.restart(ctx, block, fromPeerID, reason)
}

func (b *BaseSynchronizer) applyPenaltyAndAbort(ctx context.Context, peerID string, block *model.Block, reason string) {
	b.logger.Warnf("[%s][%s] applying penalty on peer %s and aborting synchronization: %s", b.name, block.Hash(), peerID, reason)

	b.applyPenalty(ctx, peerID, block)
}

func (b *BaseSynchronizer) restart(ctx context.Context, block *model.Block, peerID string, reason string) {
	b.logger.Infof("[%s][%s] restarting synchronization: %s", b.name, block.Hash(), reason)

	prometheusSynchronizerRestarts.WithLabelValues(b.name).Inc()

	if err := b.events.PublishSync(ctx, block, peerID); err != nil {
		b.logger.Errorf("[%s][%s] failed to publish sync event: %v", b.name, block.Hash(), err)
	}
}

func (b *BaseSynchronizer) applyPenalty(ctx context.Context, peerID string, block *model.Block) {
	if peerID == "" {
		b.logger.Warnf("[%s][%s] no peer to penalize", b.name, block.Hash())
		return
	}

	prometheusSynchronizerPenalties.WithLabelValues(b.name).Inc()

	if err := b.network.ApplyPenaltyOnPeer(ctx, peerID, b.config.PenaltyScore); err != nil {
		b.logger.Errorf("[%s][%s] failed to apply penalty on peer %s: %v", b.name, block.Hash(), peerID, err)
	}
}

// handleSyncError turns a sync outcome into its effect. Restarts publish block
// again with fromPeerID, the peer it was received from. Errors that are not
// sync outcomes are returned unchanged.
func (b *BaseSynchronizer) handleSyncError(ctx context.Context, block *model.Block, fromPeerID string, err error) error {
	if err == nil {
		return nil
	}

	code := errors.CodeOf(err)

	switch code {
	case errors.ERR_SYNC_ABORT:
		b.logger.Infof("[%s][%s] synchronization aborted: %v", b.name, block.Hash(), err)
	case errors.ERR_SYNC_RESTART:
		b.restart(ctx, block, fromPeerID, err.Error())
	case errors.ERR_SYNC_APPLY_PENALTY_AND_RESTART:
		b.applyPenaltyAndRestart(ctx, PeerIDFromError(err), block, fromPeerID, err.Error())
	case errors.ERR_SYNC_APPLY_PENALTY_AND_ABORT:
		b.applyPenaltyAndAbort(ctx, PeerIDFromError(err), block, err.Error())
	default:
		return err
	}

	prometheusSynchronizerOutcomes.WithLabelValues(b.name, code.Enum()).Inc()

	return nil
}
