package sql

import (
	"context"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
)

func (s *SQL) GetBlockHeaderByHeight(ctx context.Context, height uint32) (*model.BlockHeader, error) {
	header, err := s.headerAt(ctx, height)
	if err != nil {
		return nil, err
	}

	if header == nil {
		return nil, errors.NewBlockNotFoundError("[GetBlockHeaderByHeight][%d] block not found", height)
	}

	return header, nil
}

func (s *SQL) GetBlockHeadersWithHeights(ctx context.Context, heights []uint32) ([]*model.BlockHeader, error) {
	headers := make([]*model.BlockHeader, 0, len(heights))

	for _, height := range heights {
		header, err := s.headerAt(ctx, height)
		if err != nil {
			return nil, err
		}

		if header != nil {
			headers = append(headers, header)
		}
	}

	return headers, nil
}

func (s *SQL) headerAt(ctx context.Context, height uint32) (*model.BlockHeader, error) {
	op := s.headers.Begin(height)
	if header := op.Get(); header != nil {
		return header, nil
	}

	block, err := s.blockAt(ctx, height)
	if err != nil || block == nil {
		return nil, err
	}

	op.Set(block.Header)

	return block.Header, nil
}
