package sql

import (
	"context"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/stores/blockchain/options"
)

func (s *SQL) DeleteLastBlock(ctx context.Context, opts ...options.DeleteBlockOption) (*model.Block, error) {
	deleteOpts := options.ProcessDeleteBlockOptions(opts...)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewStorageError("[DeleteLastBlock] failed to begin transaction", err)
	}

	defer func() {
		_ = tx.Rollback()
	}()

	tip, err := scanBlock(tx.QueryRowContext(ctx, `SELECT block_data FROM blocks ORDER BY height DESC LIMIT 1`))
	if err != nil {
		return nil, err
	}

	if tip == nil {
		return nil, errors.NewInvalidArgumentError("[DeleteLastBlock] chain is empty")
	}

	newTip, err := scanBlock(tx.QueryRowContext(ctx, `SELECT block_data FROM blocks WHERE height = $1`, tip.Height()-1))
	if err != nil {
		return nil, err
	}

	if newTip == nil {
		return nil, errors.NewInvalidArgumentError("[DeleteLastBlock] cannot delete the first block of the chain")
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM blocks WHERE height = $1`, tip.Height()); err != nil {
		return nil, errors.NewStorageError("[DeleteLastBlock][%s] failed to delete block", tip, err)
	}

	if deleteOpts.SaveTempBlock {
		if err = upsertTempBlock(ctx, tx, tip); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.NewStorageError("[DeleteLastBlock][%s] failed to commit", tip, err)
	}

	s.headers.DeleteAll()

	s.logger.Debugf("[DeleteLastBlock] deleted block %s, saved to temp area: %t", tip, deleteOpts.SaveTempBlock)

	return newTip, nil
}
