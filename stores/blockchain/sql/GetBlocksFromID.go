package sql

import (
	"context"
	"database/sql"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

func (s *SQL) GetBlocksFromID(ctx context.Context, blockID *chainhash.Hash, limit uint32) ([]*model.Block, error) {
	var height uint32

	err := s.db.QueryRowContext(ctx, `SELECT height FROM blocks WHERE hash = $1`, blockID.CloneBytes()).Scan(&height)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewBlockNotFoundError("[GetBlocksFromID][%s] block not found", blockID)
		}

		return nil, errors.NewStorageError("[GetBlocksFromID][%s] failed to read height", blockID, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT block_data
		FROM blocks
		WHERE height > $1
		ORDER BY height ASC
		LIMIT $2
	`, height, limit)
	if err != nil {
		return nil, errors.NewStorageError("[GetBlocksFromID][%s] failed to query blocks", blockID, err)
	}

	defer rows.Close()

	blocks := make([]*model.Block, 0, limit)

	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}

		blocks = append(blocks, block)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.NewStorageError("[GetBlocksFromID][%s] failed to iterate blocks", blockID, err)
	}

	return blocks, nil
}
