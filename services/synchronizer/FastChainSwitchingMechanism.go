package synchronizer

import (
	"context"
	"time"

	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/ulogger"
)

const fastChainSwitchingName = "FastChainSwitchingMechanism"

// FastChainSwitchingMechanism switches to a peer's chain that forked from the
// local chain within the last two rounds. Every block of the new chain is
// validated before the local chain is touched, and the mechanism never
// restarts: a misbehaving peer is penalized and the attempt dropped.
type FastChainSwitchingMechanism struct {
	BaseSynchronizer
	chain     Chain
	processor Processor
	consensus Consensus
}

func NewFastChainSwitchingMechanism(logger ulogger.Logger, config *Config, chain Chain, processor Processor, network Network,
	consensus Consensus, events EventPublisher) *FastChainSwitchingMechanism {
	initPrometheusMetrics()

	return &FastChainSwitchingMechanism{
		BaseSynchronizer: newBaseSynchronizer(fastChainSwitchingName, logger, network, events, config),
		chain:            chain,
		processor:        processor,
		consensus:        consensus,
	}
}

// IsValidFor reports whether block came from a peer, is within two rounds of
// the local tip and was forged by an active delegate.
func (m *FastChainSwitchingMechanism) IsValidFor(ctx context.Context, block *model.Block, peerID string) (bool, error) {
	if peerID == "" {
		return false, nil
	}

	lastBlock := m.chain.LastBlock()
	twoRounds := 2 * int64(m.consensus.DelegatesPerRound())

	heightDifference := int64(block.Height()) - int64(lastBlock.Height())
	if heightDifference < 0 {
		heightDifference = -heightDifference
	}

	if heightDifference > twoRounds {
		return false, nil
	}

	return m.consensus.IsActiveDelegate(ctx, block.Header.GeneratorAddress, block.Height())
}

func (m *FastChainSwitchingMechanism) Run(ctx context.Context, block *model.Block, peerID string) error {
	defer m.start()()

	start := time.Now()
	defer func() {
		prometheusSynchronizerRun.WithLabelValues(m.name).Observe(time.Since(start).Seconds())
	}()

	err := m.run(ctx, block, peerID)

	if clearErr := clearBlocksTempTable(ctx, m.chain); clearErr != nil {
		m.logger.Errorf("[%s][%s] %v", m.name, block.Hash(), clearErr)
	}

	return m.handleSyncError(ctx, block, peerID, err)
}

func (m *FastChainSwitchingMechanism) run(ctx context.Context, receivedBlock *model.Block, peerID string) error {
	commonBlock, err := m.requestLastCommonBlock(ctx, peerID)
	if err != nil {
		return err
	}

	if commonBlock == nil {
		return NewApplyPenaltyAndAbortError(peerID, "[%s] peer did not return a common block", m.name)
	}

	if finalizedHeight := m.consensus.FinalizedHeight(); commonBlock.Height < finalizedHeight {
		return NewApplyPenaltyAndAbortError(peerID, "[%s] common block height %d is lower than the finalized height of the chain %d", m.name, commonBlock.Height, finalizedHeight)
	}

	twoRounds := 2 * int64(m.consensus.DelegatesPerRound())
	lastBlock := m.chain.LastBlock()

	if int64(lastBlock.Height())-int64(commonBlock.Height) > twoRounds || int64(receivedBlock.Height())-int64(commonBlock.Height) > twoRounds {
		return NewAbortError("[%s] height difference between both chains is higher than %d", m.name, twoRounds)
	}

	m.logger.Infof("[%s][%s] switching chain from common block %s at height %d", m.name, receivedBlock.Hash(), commonBlock.Hash(), commonBlock.Height)

	blocks, err := m.queryBlocks(ctx, receivedBlock, commonBlock, peerID)
	if err != nil {
		return err
	}

	if err = m.validateBlocks(ctx, blocks, commonBlock, peerID); err != nil {
		return err
	}

	return m.switchChain(ctx, commonBlock, blocks, peerID)
}

// requestLastCommonBlock sends the ids of the last two rounds of local blocks
// to the peer and retries on failed or empty answers.
func (m *FastChainSwitchingMechanism) requestLastCommonBlock(ctx context.Context, peerID string) (*model.BlockHeader, error) {
	headers, err := m.chain.GetBlockHeadersWithHeights(ctx, m.computeLastTwoRoundsHeights())
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= m.config.FastChainRequestLimit; attempt++ {
		commonBlock, err := requestHighestCommonBlock(ctx, m.network, peerID, headers)
		if err == nil && commonBlock != nil {
			return commonBlock, nil
		}

		observePeerError(ProcedureGetHighestCommonBlock, err)

		if err != nil {
			m.logger.Warnf("[%s] getHighestCommonBlock to peer %s failed (attempt %d): %v", m.name, peerID, attempt, err)
		}
	}

	return nil, nil
}

// computeLastTwoRoundsHeights returns the local heights of the last two
// rounds, from the tip down.
func (m *FastChainSwitchingMechanism) computeLastTwoRoundsHeights() []uint32 {
	tipHeight := m.chain.LastBlock().Height()

	count := 2 * m.consensus.DelegatesPerRound()
	if count > tipHeight {
		count = tipHeight
	}

	heights := make([]uint32, 0, count)
	for i := uint32(0); i < count; i++ {
		heights = append(heights, tipHeight-i)
	}

	return heights
}

func (m *FastChainSwitchingMechanism) queryBlocks(ctx context.Context, receivedBlock *model.Block, commonBlock *model.BlockHeader, peerID string) ([]*model.Block, error) {
	blocks, finished, err := getBlocksWithinIDs(ctx, m.logger, m.network, m.processor, peerID, commonBlock.Hash(), receivedBlock.Hash(), m.config.MaxFailedAttempts)
	if err != nil {
		return nil, err
	}

	if len(blocks) == 0 {
		return nil, NewApplyPenaltyAndAbortError(peerID, "[%s] peer did not return any block within ids %s and %s", m.name, commonBlock.Hash(), receivedBlock.Hash())
	}

	if !finished {
		return nil, NewApplyPenaltyAndAbortError(peerID, "[%s] peer did not return blocks up to %s", m.name, receivedBlock.Hash())
	}

	return blocks, nil
}

// validateBlocks checks the whole fetched chain, each block against its
// predecessor starting from the common block, without touching the local chain.
func (m *FastChainSwitchingMechanism) validateBlocks(ctx context.Context, blocks []*model.Block, commonBlock *model.BlockHeader, peerID string) error {
	previous := commonBlock

	for _, block := range blocks {
		if err := m.processor.ValidateDetached(ctx, block); err != nil {
			m.logger.Warnf("[%s][%s] block validation failed: %v", m.name, block.Hash(), err)
			return NewApplyPenaltyAndAbortError(peerID, "[%s] block validation failed", m.name, err)
		}

		if err := m.processor.Validate(ctx, block, previous); err != nil {
			m.logger.Warnf("[%s][%s] block validation failed: %v", m.name, block.Hash(), err)
			return NewApplyPenaltyAndAbortError(peerID, "[%s] block validation failed", m.name, err)
		}

		previous = block.Header
	}

	return nil
}

func (m *FastChainSwitchingMechanism) switchChain(ctx context.Context, commonBlock *model.BlockHeader, blocks []*model.Block, peerID string) error {
	if err := deleteBlocksAfterHeight(ctx, m.logger, m.processor, m.chain, commonBlock.Height, true); err != nil {
		return err
	}

	for _, block := range blocks {
		if err := m.processor.ProcessValidated(ctx, block); err != nil {
			m.logger.Errorf("[%s][%s] error while processing blocks: %v", m.name, block.Hash(), newBlockProcessingError(block, err))

			if err = deleteBlocksAfterHeight(ctx, m.logger, m.processor, m.chain, commonBlock.Height, false); err != nil {
				return err
			}

			if _, err = restoreBlocks(ctx, m.logger, m.processor, m.chain); err != nil {
				return err
			}

			return NewApplyPenaltyAndAbortError(peerID, "[%s] detected invalid block while switching chain", m.name)
		}

		prometheusSynchronizerApplied.Inc()
	}

	m.logger.Infof("[%s] switched chain, tip is now %s", m.name, m.chain.LastBlock())

	return nil
}
