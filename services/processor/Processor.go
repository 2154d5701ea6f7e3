// Package processor applies blocks to the local chain. It implements the
// block processing collaborator the synchronizer drives: decoding, detached
// and chained validation, the fork choice rule and tip mutations.
package processor

import (
	"context"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/stores/blockchain"
	"github.com/bsv-blockchain/chainsync/stores/blockchain/options"
	"github.com/bsv-blockchain/chainsync/ulogger"
)

// maxPayloadItems bounds the number of payload entries a block may carry.
const maxPayloadItems = 1 << 16

type Processor struct {
	logger ulogger.Logger
	chain  *blockchain.Chain
}

func New(logger ulogger.Logger, chain *blockchain.Chain) *Processor {
	return &Processor{
		logger: logger,
		chain:  chain,
	}
}

func (p *Processor) Deserialize(_ context.Context, raw []byte) (*model.Block, error) {
	block, err := model.NewBlockFromBytes(raw)
	if err != nil {
		return nil, errors.NewBlockInvalidError("[Deserialize] could not decode block", err)
	}

	return block, nil
}

// ValidateDetached checks everything that can be checked without knowing the
// chain the block extends.
func (p *Processor) ValidateDetached(_ context.Context, block *model.Block) error {
	if block == nil || block.Header == nil {
		return errors.NewBlockInvalidError("[ValidateDetached] block has no header")
	}

	header := block.Header

	if header.Height < 1 {
		return errors.NewBlockInvalidError("[ValidateDetached][%s] height must be at least 1", block.Hash())
	}

	if header.PreviousBlockID == nil {
		return errors.NewBlockInvalidError("[ValidateDetached][%s] missing previous block id", block.Hash())
	}

	if header.Height > 1 && len(header.GeneratorAddress) == 0 {
		return errors.NewBlockInvalidError("[ValidateDetached][%s] missing generator address", block.Hash())
	}

	if header.MaxHeightPrevoted >= header.Height && header.Height > 1 {
		return errors.NewBlockInvalidError("[ValidateDetached][%s] max height prevoted %d is not below height %d", block.Hash(), header.MaxHeightPrevoted, header.Height)
	}

	if header.MaxHeightGenerated >= header.Height && header.Height > 1 {
		return errors.NewBlockInvalidError("[ValidateDetached][%s] max height generated %d is not below height %d", block.Hash(), header.MaxHeightGenerated, header.Height)
	}

	if len(block.Payload) > maxPayloadItems {
		return errors.NewBlockInvalidError("[ValidateDetached][%s] payload has %d items", block.Hash(), len(block.Payload))
	}

	slots := p.chain.Slots()
	if slots.SlotNumber(header.Timestamp) > slots.CurrentSlot() {
		return errors.NewBlockInvalidError("[ValidateDetached][%s] block slot is in the future", block.Hash())
	}

	return nil
}

// Validate checks that block extends lastBlock, the current tip when nil.
func (p *Processor) Validate(_ context.Context, block *model.Block, lastBlock *model.BlockHeader) error {
	if lastBlock == nil {
		lastBlock = p.chain.LastBlock().Header
	}

	if !block.Header.HasPrevious(lastBlock) {
		return errors.NewBlockInvalidError("[Validate][%s] block does not extend %s (height %d)", block.Hash(), lastBlock.Hash(), lastBlock.Height)
	}

	if block.Header.Timestamp <= lastBlock.Timestamp {
		return errors.NewBlockInvalidError("[Validate][%s] timestamp %d is not after previous block timestamp %d", block.Hash(), block.Header.Timestamp, lastBlock.Timestamp)
	}

	return nil
}

// ForkStatus compares header with lastBlock, the current tip when nil.
func (p *Processor) ForkStatus(_ context.Context, header *model.BlockHeader, lastBlock *model.BlockHeader) (model.ForkStatus, error) {
	if header == nil {
		return 0, errors.NewInvalidArgumentError("[ForkStatus] header is nil")
	}

	if lastBlock == nil {
		lastBlock = p.chain.LastBlock().Header
	}

	return model.ForkChoice(header, lastBlock), nil
}

func (p *Processor) ProcessValidated(ctx context.Context, block *model.Block, opts ...options.StoreBlockOption) error {
	if err := p.chain.StoreBlock(ctx, block, opts...); err != nil {
		return errors.NewProcessingError("[ProcessValidated][%s] could not store block", block.Hash(), err)
	}

	p.logger.Debugf("[ProcessValidated][%s] applied block at height %d", block.Hash(), block.Height())

	return nil
}

// DeleteLastBlock removes the tip and returns the new one.
func (p *Processor) DeleteLastBlock(ctx context.Context, opts ...options.DeleteBlockOption) (*model.Block, error) {
	tip := p.chain.LastBlock()

	newTip, err := p.chain.DeleteLastBlock(ctx, opts...)
	if err != nil {
		return nil, errors.NewProcessingError("[DeleteLastBlock][%s] could not delete block", tip.Hash(), err)
	}

	p.logger.Debugf("[DeleteLastBlock][%s] deleted block at height %d", tip.Hash(), tip.Height())

	return newTip, nil
}
