package sql

import (
	"context"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

func (s *SQL) GetLastBlock(ctx context.Context) (*model.Block, error) {
	block, err := scanBlock(s.db.QueryRowContext(ctx, `SELECT block_data FROM blocks ORDER BY height DESC LIMIT 1`))
	if err != nil {
		return nil, err
	}

	if block == nil {
		return nil, errors.NewBlockNotFoundError("[GetLastBlock] chain is empty")
	}

	return block, nil
}

func (s *SQL) GetBlock(ctx context.Context, blockID *chainhash.Hash) (*model.Block, error) {
	block, err := scanBlock(s.db.QueryRowContext(ctx, `SELECT block_data FROM blocks WHERE hash = $1`, blockID.CloneBytes()))
	if err != nil {
		return nil, err
	}

	if block == nil {
		return nil, errors.NewBlockNotFoundError("[GetBlock][%s] block not found", blockID)
	}

	return block, nil
}

func (s *SQL) GetBlockByHeight(ctx context.Context, height uint32) (*model.Block, error) {
	block, err := s.blockAt(ctx, height)
	if err != nil {
		return nil, err
	}

	if block == nil {
		return nil, errors.NewBlockNotFoundError("[GetBlockByHeight][%d] block not found", height)
	}

	return block, nil
}
