package synchronizer

import (
	"context"
	"sort"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/stores/blockchain/options"
	"github.com/bsv-blockchain/chainsync/ulogger"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"golang.org/x/exp/constraints"
)

// ComputeBlockHeightsList returns up to listSizeLimit heights, one per round,
// walking backwards from the first height of the round before currentRound.
// Heights at or below finalizedHeight are dropped and finalizedHeight itself
// is appended in their place.
func ComputeBlockHeightsList(finalizedHeight, delegatesPerRound, listSizeLimit, currentRound uint32) []uint32 {
	start := (int64(currentRound) - 1) * int64(delegatesPerRound)
	if start < 1 {
		start = 1
	}

	heights := make([]uint32, 0, listSizeLimit)
	dropped := false

	for i := int64(0); i < int64(listSizeLimit); i++ {
		height := start - i*int64(delegatesPerRound)
		if height <= 0 {
			continue
		}

		if height <= int64(finalizedHeight) {
			dropped = true
			continue
		}

		heights = append(heights, uint32(height)) //nolint:gosec // bounded by start
	}

	if dropped {
		heights = append(heights, finalizedHeight)
	}

	return heights
}

// ComputeLargestSubsetMaxBy returns the items whose key is the maximum key,
// in their original order.
func ComputeLargestSubsetMaxBy[T any, K constraints.Ordered](items []T, key func(T) K) []T {
	if len(items) == 0 {
		return nil
	}

	maxKey := key(items[0])
	for _, item := range items[1:] {
		if k := key(item); k > maxKey {
			maxKey = k
		}
	}

	subset := make([]T, 0, len(items))

	for _, item := range items {
		if key(item) == maxKey {
			subset = append(subset, item)
		}
	}

	return subset
}

// deleteBlocksAfterHeight deletes tips until the chain is at desiredHeight,
// moving the deleted blocks to the temp area when backup is set.
func deleteBlocksAfterHeight(ctx context.Context, logger ulogger.Logger, processor Processor, chain Chain, desiredHeight uint32, backup bool) error {
	initPrometheusMetrics()

	currentHeight := chain.LastBlock().Height()

	logger.Debugf("[deleteBlocksAfterHeight] deleting blocks from height %d down to %d, backup: %t", currentHeight, desiredHeight, backup)

	for desiredHeight < currentHeight {
		tip, err := processor.DeleteLastBlock(ctx, options.WithSaveTempBlock(backup))
		if err != nil {
			return errors.NewProcessingError("[deleteBlocksAfterHeight] failed to delete block at height %d", currentHeight, err)
		}

		if tip == nil {
			return errors.NewProcessingError("[deleteBlocksAfterHeight] no tip after deleting block at height %d", currentHeight)
		}

		prometheusSynchronizerReverted.Inc()

		currentHeight = tip.Height()
	}

	return nil
}

// restoreBlocks applies the temp area back onto the chain in ascending height.
// It returns false when the temp area was empty.
func restoreBlocks(ctx context.Context, logger ulogger.Logger, processor Processor, chain Chain) (bool, error) {
	initPrometheusMetrics()

	tempBlocks, err := chain.GetTempBlocks(ctx)
	if err != nil {
		return false, err
	}

	if len(tempBlocks) == 0 {
		return false, nil
	}

	for _, block := range tempBlocks {
		if err = processor.ProcessValidated(ctx, block, options.WithRemoveFromTempTable(true)); err != nil {
			return false, errors.NewProcessingError("[restoreBlocks][%s] failed to restore block", block.Hash(), err)
		}

		prometheusSynchronizerRestored.Inc()
	}

	logger.Infof("[restoreBlocks] restored %d blocks from the temp area, tip is now %s", len(tempBlocks), chain.LastBlock())

	return true, nil
}

// restoreBlocksUponStartup brings back a chain switch interrupted by a
// shutdown. The temp area is replayed when its highest block is still
// preferred over the current tip, and is always cleared.
func restoreBlocksUponStartup(ctx context.Context, logger ulogger.Logger, processor Processor, chain Chain) error {
	tempBlocks, err := chain.GetTempBlocks(ctx)
	if err != nil {
		return err
	}

	if len(tempBlocks) > 0 {
		lowest := tempBlocks[0]
		highest := tempBlocks[len(tempBlocks)-1]

		forkStatus, err := processor.ForkStatus(ctx, highest.Header, nil)
		if err != nil {
			return err
		}

		if forkStatus == model.ForkStatusDifferentChain || forkStatus == model.ForkStatusValidBlock {
			logger.Infof("[restoreBlocksUponStartup] restoring %d blocks from the temp area, fork status %s", len(tempBlocks), forkStatus)

			if err = deleteBlocksAfterHeight(ctx, logger, processor, chain, lowest.Height()-1, false); err != nil {
				return err
			}

			if _, err = restoreBlocks(ctx, logger, processor, chain); err != nil {
				return err
			}
		} else {
			logger.Infof("[restoreBlocksUponStartup] discarding %d temp blocks, fork status %s", len(tempBlocks), forkStatus)
		}
	}

	return clearBlocksTempTable(ctx, chain)
}

func clearBlocksTempTable(ctx context.Context, chain Chain) error {
	if err := chain.ClearTempBlocks(ctx); err != nil {
		return errors.NewStorageError("[clearBlocksTempTable] failed to clear temp blocks", err)
	}

	return nil
}

// getBlocksFromNetwork fetches one page of blocks following fromID from peerID,
// in ascending height.
func getBlocksFromNetwork(ctx context.Context, network Network, processor Processor, peerID string, fromID *chainhash.Hash) ([]*model.Block, error) {
	response, err := network.RequestFromPeer(ctx, peerID, ProcedureGetBlocksFromID, &GetBlocksFromIDRequest{BlockID: fromID.String()})
	if err != nil {
		return nil, err
	}

	if response == nil || isEmptyData(response.Data) {
		return nil, nil
	}

	blocks, err := decodeBlocks(ctx, processor, response.Data)
	if err != nil {
		return nil, err
	}

	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].Height() < blocks[j].Height()
	})

	return blocks, nil
}

// requestBlocksWithinIDs pages through getBlocksFromId from fromID until toID
// is seen, handing every page to onPage. Blocks after toID are dropped. Failed
// or empty pages count towards maxFailedAttempts. finished is false when the
// attempts ran out before reaching toID.
func requestBlocksWithinIDs(ctx context.Context, logger ulogger.Logger, network Network, processor Processor, peerID string,
	fromID, toID *chainhash.Hash, maxFailedAttempts int, onPage func([]*model.Block) error) (bool, error) {
	initPrometheusMetrics()

	finished := false
	failedAttempts := 0
	lastFetchedID := fromID

	for !finished && failedAttempts < maxFailedAttempts {
		blocks, err := getBlocksFromNetwork(ctx, network, processor, peerID, lastFetchedID)
		if err != nil || len(blocks) == 0 {
			failedAttempts++

			observePeerError(ProcedureGetBlocksFromID, err)

			if err != nil {
				logger.Warnf("[requestBlocksWithinIDs] getBlocksFromId %s from peer %s failed (attempt %d): %v", lastFetchedID, peerID, failedAttempts, err)
			} else {
				logger.Warnf("[requestBlocksWithinIDs] peer %s returned no blocks after %s (attempt %d)", peerID, lastFetchedID, failedAttempts)
			}

			continue
		}

		lastFetchedID = blocks[len(blocks)-1].Hash()

		for i, block := range blocks {
			if block.Hash().IsEqual(toID) {
				blocks = blocks[:i+1]
				finished = true

				break
			}
		}

		if err = onPage(blocks); err != nil {
			return finished, err
		}
	}

	return finished, nil
}

// getBlocksWithinIDs collects the blocks after fromID up to and including toID.
func getBlocksWithinIDs(ctx context.Context, logger ulogger.Logger, network Network, processor Processor, peerID string,
	fromID, toID *chainhash.Hash, maxFailedAttempts int) ([]*model.Block, bool, error) {
	var blocks []*model.Block

	finished, err := requestBlocksWithinIDs(ctx, logger, network, processor, peerID, fromID, toID, maxFailedAttempts, func(page []*model.Block) error {
		blocks = append(blocks, page...)
		return nil
	})

	return blocks, finished, err
}

// requestHighestCommonBlock asks peerID which of the given local headers is
// the highest one on its chain. A nil header means the peer knows none.
func requestHighestCommonBlock(ctx context.Context, network Network, peerID string, headers []*model.BlockHeader) (*model.BlockHeader, error) {
	response, err := network.RequestFromPeer(ctx, peerID, ProcedureGetHighestCommonBlock, &GetHighestCommonBlockRequest{IDs: encodeIDs(headers)})
	if err != nil {
		return nil, err
	}

	if response == nil || isEmptyData(response.Data) {
		return nil, nil
	}

	return decodeHeader(response.Data)
}
