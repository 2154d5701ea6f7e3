package sql

import (
	"context"
	"fmt"
	"strings"

	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

func (s *SQL) GetHighestCommonBlockHeader(ctx context.Context, ids []*chainhash.Hash) (*model.BlockHeader, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))

	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id.CloneBytes()
	}

	q := `SELECT block_data FROM blocks WHERE hash IN (` + strings.Join(placeholders, ",") + `) ORDER BY height DESC LIMIT 1`

	block, err := scanBlock(s.db.QueryRowContext(ctx, q, args...))
	if err != nil || block == nil {
		return nil, err
	}

	return block.Header, nil
}
