package sql

import (
	"context"
	"database/sql"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func upsertTempBlock(ctx context.Context, db execer, block *model.Block) error {
	if _, err := db.ExecContext(ctx, `
		INSERT INTO temp_blocks (height, hash, block_data) VALUES ($1, $2, $3)
		ON CONFLICT (height) DO UPDATE SET hash = EXCLUDED.hash, block_data = EXCLUDED.block_data
	`, block.Height(), block.Hash().CloneBytes(), block.Bytes()); err != nil {
		return errors.NewStorageError("[StoreTempBlock][%s] failed to store temp block", block, err)
	}

	return nil
}

func (s *SQL) StoreTempBlock(ctx context.Context, block *model.Block) error {
	return upsertTempBlock(ctx, s.db, block)
}

func (s *SQL) GetTempBlocks(ctx context.Context) ([]*model.Block, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT block_data FROM temp_blocks ORDER BY height ASC`)
	if err != nil {
		return nil, errors.NewStorageError("[GetTempBlocks] failed to query temp blocks", err)
	}

	defer rows.Close()

	var blocks []*model.Block

	for rows.Next() {
		block, err := scanBlock(rows)
		if err != nil {
			return nil, err
		}

		blocks = append(blocks, block)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.NewStorageError("[GetTempBlocks] failed to iterate temp blocks", err)
	}

	return blocks, nil
}

func (s *SQL) RemoveTempBlock(ctx context.Context, blockID *chainhash.Hash) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM temp_blocks WHERE hash = $1`, blockID.CloneBytes()); err != nil {
		return errors.NewStorageError("[RemoveTempBlock][%s] failed to remove temp block", blockID, err)
	}

	return nil
}

func (s *SQL) ClearTempBlocks(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM temp_blocks`); err != nil {
		return errors.NewStorageError("[ClearTempBlocks] failed to clear temp blocks", err)
	}

	return nil
}

func (s *SQL) IsTempBlockEmpty(ctx context.Context) (bool, error) {
	var count int

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM temp_blocks`).Scan(&count); err != nil {
		return false, errors.NewStorageError("[IsTempBlockEmpty] failed to count temp blocks", err)
	}

	return count == 0, nil
}
