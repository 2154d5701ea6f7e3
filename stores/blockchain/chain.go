package blockchain

import (
	"context"
	"sync/atomic"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/stores/blockchain/options"
)

// Chain is a Store that keeps the tip in memory. All main chain mutations
// must go through the Chain so that LastBlock stays current.
type Chain struct {
	Store
	slots     *model.Slots
	lastBlock atomic.Pointer[model.Block]
}

// NewChain loads the tip of store, storing genesis first when the store is empty.
func NewChain(ctx context.Context, store Store, slots *model.Slots, genesis *model.Block) (*Chain, error) {
	c := &Chain{
		Store: store,
		slots: slots,
	}

	tip, err := store.GetLastBlock(ctx)
	if err != nil {
		if !errors.Is(err, errors.ErrBlockNotFound) || genesis == nil {
			return nil, err
		}

		if err = store.StoreBlock(ctx, genesis); err != nil {
			return nil, errors.NewStorageError("could not store genesis block", err)
		}

		tip = genesis
	}

	c.lastBlock.Store(tip)

	return c, nil
}

func (c *Chain) LastBlock() *model.Block {
	return c.lastBlock.Load()
}

func (c *Chain) Slots() *model.Slots {
	return c.slots
}

func (c *Chain) StoreBlock(ctx context.Context, block *model.Block, opts ...options.StoreBlockOption) error {
	if err := c.Store.StoreBlock(ctx, block, opts...); err != nil {
		return err
	}

	c.lastBlock.Store(block)

	return nil
}

func (c *Chain) DeleteLastBlock(ctx context.Context, opts ...options.DeleteBlockOption) (*model.Block, error) {
	newTip, err := c.Store.DeleteLastBlock(ctx, opts...)
	if err != nil {
		return nil, err
	}

	c.lastBlock.Store(newTip)

	return newTip, nil
}
