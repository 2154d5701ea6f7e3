package synchronizer

import (
	"context"
	"sort"
	"time"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/ulogger"
)

const blockSynchronizationName = "BlockSynchronizationMechanism"

// BlockSynchronizationMechanism moves a node whose chain went stale onto the
// best chain among its connected peers. The local chain is rolled back to the
// last block shared with the chosen peer, the removed blocks are kept in the
// temp area, and the peer's blocks are applied on top. If applying fails and
// the previous tip is still preferred, the previous chain is restored.
type BlockSynchronizationMechanism struct {
	BaseSynchronizer
	chain     Chain
	processor Processor
	consensus Consensus
	random    RandomSource
}

func NewBlockSynchronizationMechanism(logger ulogger.Logger, config *Config, chain Chain, processor Processor, network Network,
	consensus Consensus, events EventPublisher, random RandomSource) *BlockSynchronizationMechanism {
	initPrometheusMetrics()

	return &BlockSynchronizationMechanism{
		BaseSynchronizer: newBaseSynchronizer(blockSynchronizationName, logger, network, events, config),
		chain:            chain,
		processor:        processor,
		consensus:        consensus,
		random:           random,
	}
}

// IsValidFor reports whether the chain is more than three rounds of slots
// behind the current slot, measured from the finalized block.
func (m *BlockSynchronizationMechanism) IsValidFor(ctx context.Context, _ *model.Block, _ string) (bool, error) {
	finalizedHeight := m.consensus.FinalizedHeight()
	if finalizedHeight < 1 {
		finalizedHeight = 1
	}

	finalizedHeader, err := m.chain.GetBlockHeaderByHeight(ctx, finalizedHeight)
	if err != nil {
		return false, errors.NewStorageError("[%s] could not get finalized block at height %d", m.name, finalizedHeight, err)
	}

	slots := m.chain.Slots()
	threeRounds := 3 * int64(m.consensus.DelegatesPerRound())

	return slots.CurrentSlot()-slots.SlotNumber(finalizedHeader.Timestamp) > threeRounds, nil
}

func (m *BlockSynchronizationMechanism) Run(ctx context.Context, block *model.Block, peerID string) error {
	defer m.start()()

	start := time.Now()
	defer func() {
		prometheusSynchronizerRun.WithLabelValues(m.name).Observe(time.Since(start).Seconds())
	}()

	return m.handleSyncError(ctx, block, peerID, m.run(ctx, block))
}

func (m *BlockSynchronizationMechanism) run(ctx context.Context, receivedBlock *model.Block) error {
	bestPeer, err := m.computeBestPeer(ctx)
	if err != nil {
		return err
	}

	peerID := bestPeer.PeerID

	m.logger.Infof("[%s][%s] synchronizing from peer %s at height %d", m.name, receivedBlock.Hash(), peerID, *bestPeer.Height)

	if err = m.requestAndValidateLastBlock(ctx, peerID); err != nil {
		return err
	}

	commonBlock, err := m.revertToLastCommonBlock(ctx, peerID)
	if err != nil {
		return err
	}

	return m.requestAndApplyBlocksToCurrentChain(ctx, receivedBlock, commonBlock, peerID)
}

// computeBestPeer picks a peer from the largest group of peers sharing the
// highest max height prevoted, the highest height and the same last block.
func (m *BlockSynchronizationMechanism) computeBestPeer(ctx context.Context) (*model.PeerInfo, error) {
	peers, err := m.network.GetConnectedPeers(ctx)
	if err != nil {
		return nil, errors.NewNetworkError("[computeBestPeer] failed to get connected peers", err)
	}

	if len(peers) == 0 {
		return nil, errors.NewNetworkError("[computeBestPeer] list of connected peers is empty")
	}

	compatiblePeers := make([]*model.PeerInfo, 0, len(peers))

	for _, peer := range peers {
		if peer.IsCompatible() {
			compatiblePeers = append(compatiblePeers, peer)
		}
	}

	if len(compatiblePeers) == 0 {
		return nil, errors.NewNetworkError("[computeBestPeer] connected compatible peers list is empty")
	}

	largestSubsetByMaxHeightPrevoted := ComputeLargestSubsetMaxBy(compatiblePeers, func(p *model.PeerInfo) uint32 {
		return *p.MaxHeightPrevoted
	})

	largestSubsetByHeight := ComputeLargestSubsetMaxBy(largestSubsetByMaxHeightPrevoted, func(p *model.PeerInfo) uint32 {
		return *p.Height
	})

	peersByBlockID := make(map[string][]*model.PeerInfo)
	for _, peer := range largestSubsetByHeight {
		id := peer.LastBlockID.String()
		peersByBlockID[id] = append(peersByBlockID[id], peer)
	}

	blockIDs := make([]string, 0, len(peersByBlockID))
	for id := range peersByBlockID {
		blockIDs = append(blockIDs, id)
	}

	// ascending, so that on equal group sizes the smallest id wins
	sort.Strings(blockIDs)

	var selectedPeers []*model.PeerInfo

	for _, id := range blockIDs {
		if len(peersByBlockID[id]) > len(selectedPeers) {
			selectedPeers = peersByBlockID[id]
		}
	}

	peersTip := selectedPeers[m.random.Intn(len(selectedPeers))].Tip()

	forkStatus, err := m.processor.ForkStatus(ctx, peersTip, nil)
	if err != nil {
		return nil, err
	}

	if !forkStatus.HasPreference() {
		return nil, NewAbortError("[computeBestPeer] peer tip has no preference over the local tip, fork status %s", forkStatus)
	}

	return selectedPeers[m.random.Intn(len(selectedPeers))], nil
}

func (m *BlockSynchronizationMechanism) requestAndValidateLastBlock(ctx context.Context, peerID string) error {
	response, err := m.network.RequestFromPeer(ctx, peerID, ProcedureGetLastBlock, nil)
	if err != nil {
		observePeerError(ProcedureGetLastBlock, err)
		return NewApplyPenaltyAndRestartError(peerID, "[requestAndValidateLastBlock] peer did not provide its last block", err)
	}

	if response == nil || isEmptyData(response.Data) {
		observePeerError(ProcedureGetLastBlock, err)
		return NewApplyPenaltyAndRestartError(peerID, "[requestAndValidateLastBlock] peer did not provide its last block")
	}

	networkLastBlock, err := decodeBlock(ctx, m.processor, response.Data)
	if err != nil {
		return NewApplyPenaltyAndRestartError(peerID, "[requestAndValidateLastBlock] could not decode the last block of the peer", err)
	}

	isValidBlock := true
	if err = m.processor.ValidateDetached(ctx, networkLastBlock); err != nil {
		m.logger.Warnf("[%s][%s] last block of peer %s is invalid: %v", m.name, networkLastBlock.Hash(), peerID, err)
		isValidBlock = false
	}

	forkStatus, err := m.processor.ForkStatus(ctx, networkLastBlock.Header, nil)
	if err != nil {
		return err
	}

	inDifferentChain := forkStatus.HasPreference() || networkLastBlock.Hash().IsEqual(m.chain.LastBlock().Hash())

	if !isValidBlock || !inDifferentChain {
		return NewApplyPenaltyAndRestartError(peerID, "[requestAndValidateLastBlock] the tip of the chain of the peer is not valid or is not in a different chain")
	}

	return nil
}

// requestLastCommonBlock searches backwards, one window of rounds per request,
// for the highest local block the peer also has.
func (m *BlockSynchronizationMechanism) requestLastCommonBlock(ctx context.Context, peerID string) (*model.BlockHeader, error) {
	finalizedHeight := m.consensus.FinalizedHeight()
	delegatesPerRound := m.consensus.DelegatesPerRound()
	blocksPerRequestLimit := uint32(m.config.BlocksPerRequestLimit) //nolint:gosec // positive config value
	currentRound := m.consensus.CalcRound(m.chain.LastBlock().Height())

	for attempt := 1; attempt <= m.config.BlockSyncRequestLimit; attempt++ {
		heights := ComputeBlockHeightsList(finalizedHeight, delegatesPerRound, blocksPerRequestLimit, currentRound)

		headers, err := m.chain.GetBlockHeadersWithHeights(ctx, heights)
		if err != nil {
			return nil, err
		}

		if len(headers) > 0 {
			commonBlock, err := requestHighestCommonBlock(ctx, m.network, peerID, headers)

			switch {
			case err != nil:
				observePeerError(ProcedureGetHighestCommonBlock, err)
				m.logger.Warnf("[%s] getHighestCommonBlock to peer %s failed (attempt %d): %v", m.name, peerID, attempt, err)
			case commonBlock != nil:
				return commonBlock, nil
			default:
				observePeerError(ProcedureGetHighestCommonBlock, err)
				m.logger.Debugf("[%s] peer %s has none of the blocks at heights %v", m.name, peerID, heights)
			}
		}

		if currentRound > blocksPerRequestLimit {
			currentRound -= blocksPerRequestLimit
		} else {
			currentRound = 1
		}
	}

	return nil, nil
}

// revertToLastCommonBlock rolls the chain back to the last block shared with
// peerID, keeping the removed blocks in the temp area.
func (m *BlockSynchronizationMechanism) revertToLastCommonBlock(ctx context.Context, peerID string) (*model.BlockHeader, error) {
	commonBlock, err := m.requestLastCommonBlock(ctx, peerID)
	if err != nil {
		return nil, err
	}

	if commonBlock == nil {
		return nil, NewApplyPenaltyAndRestartError(peerID, "[revertToLastCommonBlock] no common block found")
	}

	if finalizedHeight := m.consensus.FinalizedHeight(); commonBlock.Height < finalizedHeight {
		return nil, NewApplyPenaltyAndRestartError(peerID, "[revertToLastCommonBlock] common block height %d is lower than the finalized height of the chain %d", commonBlock.Height, finalizedHeight)
	}

	localHeader, err := m.chain.GetBlockHeaderByHeight(ctx, commonBlock.Height)
	if err != nil && !errors.Is(err, errors.ErrBlockNotFound) {
		return nil, err
	}

	if localHeader == nil || !localHeader.Hash().IsEqual(commonBlock.Hash()) {
		return nil, NewApplyPenaltyAndRestartError(peerID, "[revertToLastCommonBlock] common block %s is not on the local chain", commonBlock.Hash())
	}

	m.logger.Infof("[%s][%s] reverting to common block at height %d", m.name, commonBlock.Hash(), commonBlock.Height)

	if err = deleteBlocksAfterHeight(ctx, m.logger, m.processor, m.chain, commonBlock.Height, true); err != nil {
		return nil, err
	}

	return commonBlock, nil
}

func (m *BlockSynchronizationMechanism) requestAndApplyBlocksToCurrentChain(ctx context.Context, receivedBlock *model.Block, commonBlock *model.BlockHeader, peerID string) error {
	finished, err := requestBlocksWithinIDs(ctx, m.logger, m.network, m.processor, peerID, commonBlock.Hash(), receivedBlock.Hash(), m.config.MaxFailedAttempts,
		func(blocks []*model.Block) error {
			return m.applyBlocks(ctx, blocks)
		})

	switch {
	case err != nil && !isBlockProcessingError(err):
		return err
	case err != nil:
		m.logger.Warnf("[%s][%s] failed to apply blocks from peer %s: %v", m.name, receivedBlock.Hash(), peerID, err)
		return m.handleBlockProcessingError(ctx, commonBlock, peerID, "failed to apply blocks from peer")
	case !finished:
		m.logger.Warnf("[%s][%s] peer %s did not return blocks up to the received block", m.name, receivedBlock.Hash(), peerID)
		return m.handleBlockProcessingError(ctx, commonBlock, peerID, "peer did not return blocks up to the received block")
	}

	m.logger.Infof("[%s][%s] synchronized to height %d", m.name, receivedBlock.Hash(), m.chain.LastBlock().Height())

	return clearBlocksTempTable(ctx, m.chain)
}

func (m *BlockSynchronizationMechanism) applyBlocks(ctx context.Context, blocks []*model.Block) error {
	for _, block := range blocks {
		if err := m.processor.ValidateDetached(ctx, block); err != nil {
			return newBlockProcessingError(block, err)
		}

		if err := m.processor.Validate(ctx, block, m.chain.LastBlock().Header); err != nil {
			return newBlockProcessingError(block, err)
		}

		if err := m.processor.ProcessValidated(ctx, block); err != nil {
			return newBlockProcessingError(block, err)
		}

		prometheusSynchronizerApplied.Inc()
	}

	return nil
}

// handleBlockProcessingError keeps the partially applied chain unless the tip
// held in the temp area is preferred over it, in which case the previous
// chain is restored. Both ways the peer is penalized.
func (m *BlockSynchronizationMechanism) handleBlockProcessingError(ctx context.Context, commonBlock *model.BlockHeader, peerID string, reason string) error {
	tempBlocks, err := m.chain.GetTempBlocks(ctx)
	if err != nil {
		return err
	}

	if len(tempBlocks) == 0 {
		m.logger.Warnf("[%s] temp block area is empty, keeping tip %s", m.name, m.chain.LastBlock())

		if err = clearBlocksTempTable(ctx, m.chain); err != nil {
			return err
		}

		return NewApplyPenaltyAndRestartError(peerID, "[handleBlockProcessingError] %s", reason)
	}

	tipBeforeApplying := tempBlocks[len(tempBlocks)-1]

	forkStatus, err := m.processor.ForkStatus(ctx, tipBeforeApplying.Header, m.chain.LastBlock().Header)
	if err != nil {
		return err
	}

	if forkStatus.HasPreference() {
		m.logger.Infof("[%s][%s] previous tip has preference over %s, restoring the previous chain", m.name, tipBeforeApplying.Hash(), m.chain.LastBlock())

		if err = deleteBlocksAfterHeight(ctx, m.logger, m.processor, m.chain, commonBlock.Height, false); err != nil {
			return err
		}

		if _, err = restoreBlocks(ctx, m.logger, m.processor, m.chain); err != nil {
			return err
		}

		if err = clearBlocksTempTable(ctx, m.chain); err != nil {
			return err
		}

		return NewApplyPenaltyAndRestartError(peerID, "[handleBlockProcessingError] new tip has no preference over previous tip")
	}

	if err = clearBlocksTempTable(ctx, m.chain); err != nil {
		return err
	}

	return NewApplyPenaltyAndRestartError(peerID, "[handleBlockProcessingError] %s", reason)
}
