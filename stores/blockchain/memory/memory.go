// Package memory is a blockchain store kept entirely in process memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/stores/blockchain/options"
	"github.com/bsv-blockchain/chainsync/ulogger"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/dolthub/swiss"
)

type Memory struct {
	mu     sync.RWMutex
	logger ulogger.Logger

	// blocks holds the main chain, blocks[i] has height blocks[0].Height+i
	blocks []*model.Block
	ids    *swiss.Map[chainhash.Hash, uint32]
	temp   *swiss.Map[uint32, *model.Block]
}

func New(logger ulogger.Logger) *Memory {
	return &Memory{
		logger: logger,
		ids:    swiss.NewMap[chainhash.Hash, uint32](1024),
		temp:   swiss.NewMap[uint32, *model.Block](128),
	}
}

func (m *Memory) tip() *model.Block {
	if len(m.blocks) == 0 {
		return nil
	}

	return m.blocks[len(m.blocks)-1]
}

func (m *Memory) blockAt(height uint32) *model.Block {
	if len(m.blocks) == 0 || height < m.blocks[0].Height() {
		return nil
	}

	idx := int(height - m.blocks[0].Height())
	if idx >= len(m.blocks) {
		return nil
	}

	return m.blocks[idx]
}

func (m *Memory) GetLastBlock(_ context.Context) (*model.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tip := m.tip()
	if tip == nil {
		return nil, errors.NewBlockNotFoundError("[memory] chain is empty")
	}

	return tip, nil
}

func (m *Memory) GetBlock(_ context.Context, blockID *chainhash.Hash) (*model.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	height, ok := m.ids.Get(*blockID)
	if !ok {
		return nil, errors.NewBlockNotFoundError("[memory] block %s not found", blockID)
	}

	return m.blockAt(height), nil
}

func (m *Memory) GetBlockByHeight(_ context.Context, height uint32) (*model.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	block := m.blockAt(height)
	if block == nil {
		return nil, errors.NewBlockNotFoundError("[memory] no block at height %d", height)
	}

	return block, nil
}

func (m *Memory) GetBlockHeaderByHeight(ctx context.Context, height uint32) (*model.BlockHeader, error) {
	block, err := m.GetBlockByHeight(ctx, height)
	if err != nil {
		return nil, err
	}

	return block.Header, nil
}

func (m *Memory) GetBlockHeadersWithHeights(_ context.Context, heights []uint32) ([]*model.BlockHeader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	headers := make([]*model.BlockHeader, 0, len(heights))

	for _, height := range heights {
		if block := m.blockAt(height); block != nil {
			headers = append(headers, block.Header)
		}
	}

	return headers, nil
}

func (m *Memory) GetBlocksFromID(_ context.Context, blockID *chainhash.Hash, limit uint32) ([]*model.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	height, ok := m.ids.Get(*blockID)
	if !ok {
		return nil, errors.NewBlockNotFoundError("[memory] block %s not found", blockID)
	}

	blocks := make([]*model.Block, 0, limit)

	for h := height + 1; uint32(len(blocks)) < limit; h++ { //nolint:gosec // bounded by limit
		block := m.blockAt(h)
		if block == nil {
			break
		}

		blocks = append(blocks, block)
	}

	return blocks, nil
}

func (m *Memory) GetHighestCommonBlockHeader(_ context.Context, ids []*chainhash.Hash) (*model.BlockHeader, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var highest *model.BlockHeader

	for _, id := range ids {
		height, ok := m.ids.Get(*id)
		if !ok {
			continue
		}

		if highest == nil || height > highest.Height {
			highest = m.blockAt(height).Header
		}
	}

	return highest, nil
}

func (m *Memory) StoreBlock(_ context.Context, block *model.Block, opts ...options.StoreBlockOption) error {
	storeOpts := options.ProcessStoreBlockOptions(opts...)

	m.mu.Lock()
	defer m.mu.Unlock()

	if tip := m.tip(); tip != nil && !block.Header.HasPrevious(tip.Header) {
		return errors.NewBlockInvalidError("[memory] block %s does not extend tip %s", block, tip)
	}

	m.blocks = append(m.blocks, block)
	m.ids.Put(*block.Hash(), block.Height())

	if storeOpts.RemoveFromTempTable {
		m.removeTempBlock(block.Hash())
	}

	return nil
}

func (m *Memory) DeleteLastBlock(_ context.Context, opts ...options.DeleteBlockOption) (*model.Block, error) {
	deleteOpts := options.ProcessDeleteBlockOptions(opts...)

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.blocks) < 2 {
		return nil, errors.NewInvalidArgumentError("[memory] cannot delete the first block of the chain")
	}

	tip := m.tip()

	m.blocks = m.blocks[:len(m.blocks)-1]
	m.ids.Delete(*tip.Hash())

	if deleteOpts.SaveTempBlock {
		m.temp.Put(tip.Height(), tip)
	}

	m.logger.Debugf("[memory] deleted block %s, saved to temp area: %t", tip, deleteOpts.SaveTempBlock)

	return m.tip(), nil
}

func (m *Memory) StoreTempBlock(_ context.Context, block *model.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.temp.Put(block.Height(), block)

	return nil
}

func (m *Memory) GetTempBlocks(_ context.Context) ([]*model.Block, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	blocks := make([]*model.Block, 0, m.temp.Count())

	m.temp.Iter(func(_ uint32, block *model.Block) bool {
		blocks = append(blocks, block)
		return false
	})

	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].Height() < blocks[j].Height()
	})

	return blocks, nil
}

func (m *Memory) RemoveTempBlock(_ context.Context, blockID *chainhash.Hash) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeTempBlock(blockID)

	return nil
}

func (m *Memory) removeTempBlock(blockID *chainhash.Hash) {
	var found []uint32

	m.temp.Iter(func(height uint32, block *model.Block) bool {
		if block.Hash().IsEqual(blockID) {
			found = append(found, height)
		}

		return false
	})

	for _, height := range found {
		m.temp.Delete(height)
	}
}

func (m *Memory) ClearTempBlocks(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.temp.Clear()

	return nil
}

func (m *Memory) IsTempBlockEmpty(_ context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.temp.Count() == 0, nil
}

func (m *Memory) Close() error {
	return nil
}
