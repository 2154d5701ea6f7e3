// Package blockchain defines the block store used by the synchronizer: the
// main chain indexed by height plus the temp block area that holds blocks
// removed during a chain switch.
package blockchain

import (
	"context"

	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/stores/blockchain/options"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

type Store interface {
	// GetLastBlock returns the tip, or a BLOCK_NOT_FOUND error on an empty store.
	GetLastBlock(ctx context.Context) (*model.Block, error)
	GetBlock(ctx context.Context, blockID *chainhash.Hash) (*model.Block, error)
	GetBlockByHeight(ctx context.Context, height uint32) (*model.Block, error)
	GetBlockHeaderByHeight(ctx context.Context, height uint32) (*model.BlockHeader, error)

	// GetBlockHeadersWithHeights returns the headers of the requested heights
	// that are on the main chain, in the order the heights were given.
	GetBlockHeadersWithHeights(ctx context.Context, heights []uint32) ([]*model.BlockHeader, error)

	// GetBlocksFromID returns up to limit main chain blocks following blockID in ascending height.
	GetBlocksFromID(ctx context.Context, blockID *chainhash.Hash, limit uint32) ([]*model.Block, error)

	// GetHighestCommonBlockHeader returns the highest main chain header whose id is in ids, nil if none is.
	GetHighestCommonBlockHeader(ctx context.Context, ids []*chainhash.Hash) (*model.BlockHeader, error)

	// StoreBlock appends block to the main chain, it must extend the current tip.
	StoreBlock(ctx context.Context, block *model.Block, opts ...options.StoreBlockOption) error

	// DeleteLastBlock removes the tip and returns the new tip.
	DeleteLastBlock(ctx context.Context, opts ...options.DeleteBlockOption) (*model.Block, error)

	StoreTempBlock(ctx context.Context, block *model.Block) error

	// GetTempBlocks returns the temp area in ascending height.
	GetTempBlocks(ctx context.Context) ([]*model.Block, error)
	RemoveTempBlock(ctx context.Context, blockID *chainhash.Hash) error
	ClearTempBlocks(ctx context.Context) error
	IsTempBlockEmpty(ctx context.Context) (bool, error)

	Close() error
}
