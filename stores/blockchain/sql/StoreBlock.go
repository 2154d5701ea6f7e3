package sql

import (
	"context"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/stores/blockchain/options"
)

// StoreBlock appends block to the main chain. The tip check and the insert
// run in one transaction so that two writers cannot both extend the same tip.
func (s *SQL) StoreBlock(ctx context.Context, block *model.Block, opts ...options.StoreBlockOption) error {
	storeOpts := options.ProcessStoreBlockOptions(opts...)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewStorageError("[StoreBlock][%s] failed to begin transaction", block, err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	tip, err := scanBlock(tx.QueryRowContext(ctx, `SELECT block_data FROM blocks ORDER BY height DESC LIMIT 1`))
	if err != nil {
		return err
	}

	if tip != nil && !block.Header.HasPrevious(tip.Header) {
		return errors.NewBlockInvalidError("[StoreBlock][%s] block does not extend tip %s", block, tip)
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO blocks (height, hash, block_data) VALUES ($1, $2, $3)`,
		block.Height(), block.Hash().CloneBytes(), block.Bytes()); err != nil {
		return errors.NewStorageError("[StoreBlock][%s] failed to insert block", block, err)
	}

	if storeOpts.RemoveFromTempTable {
		if _, err = tx.ExecContext(ctx, `DELETE FROM temp_blocks WHERE hash = $1`, block.Hash().CloneBytes()); err != nil {
			return errors.NewStorageError("[StoreBlock][%s] failed to remove temp block", block, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.NewStorageError("[StoreBlock][%s] failed to commit", block, err)
	}

	s.headers.DeleteAll()

	return nil
}
