package synchronizer

import (
	"context"
	"testing"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTransactions [][]byte

func (s staticTransactions) GetTransactions(_ context.Context) ([][]byte, error) {
	return s, nil
}

func TestEndpoint_Handle(t *testing.T) {
	ctx := context.Background()
	blocks := localChain(20)
	chain := newTestChain(t, blocks, nil)

	tSettings := testSettings()
	tSettings.Synchronizer.BlocksFromIDLimit = 5

	endpoint := NewEndpoint(ulogger.TestLogger{}, tSettings, chain, staticTransactions{{0xde, 0xad}, {0xbe, 0xef}})
	proc := newTestProcessor(chain)

	t.Run("getLastBlock", func(t *testing.T) {
		data, err := endpoint.Handle(ctx, ProcedureGetLastBlock, nil)
		require.NoError(t, err)

		block, err := decodeBlock(ctx, proc, data)
		require.NoError(t, err)
		assert.True(t, blocks[19].Hash().IsEqual(block.Hash()))
	})

	t.Run("getBlocksFromId", func(t *testing.T) {
		data, err := endpoint.Handle(ctx, ProcedureGetBlocksFromID, []byte(`{"blockId":"`+blocks[9].Hash().String()+`"}`))
		require.NoError(t, err)

		page, err := decodeBlocks(ctx, proc, data)
		require.NoError(t, err)
		require.Len(t, page, 5)
		assert.Equal(t, uint32(11), page[0].Height())
		assert.Equal(t, uint32(15), page[4].Height())
	})

	t.Run("getBlocksFromId of the tip", func(t *testing.T) {
		data, err := endpoint.Handle(ctx, ProcedureGetBlocksFromID, []byte(`{"blockId":"`+blocks[19].Hash().String()+`"}`))
		require.NoError(t, err)
		assert.JSONEq(t, `[]`, string(data))
	})

	t.Run("getBlocksFromId with an invalid id", func(t *testing.T) {
		_, err := endpoint.Handle(ctx, ProcedureGetBlocksFromID, []byte(`{"blockId":"zz"}`))
		require.Error(t, err)
		assert.Equal(t, errors.ERR_INVALID_ARGUMENT, errors.CodeOf(err))
	})

	t.Run("getHighestCommonBlock", func(t *testing.T) {
		unknown := generateChain(blocks[5], 1, peerFork, nil)[0]
		request := `{"ids":["` + unknown.Hash().String() + `","` + blocks[7].Hash().String() + `","` + blocks[3].Hash().String() + `"]}`

		data, err := endpoint.Handle(ctx, ProcedureGetHighestCommonBlock, []byte(request))
		require.NoError(t, err)

		header, err := decodeHeader(data)
		require.NoError(t, err)
		assert.True(t, blocks[7].Hash().IsEqual(header.Hash()))
	})

	t.Run("getHighestCommonBlock without match", func(t *testing.T) {
		unknown := generateChain(blocks[5], 1, peerFork, nil)[0]

		data, err := endpoint.Handle(ctx, ProcedureGetHighestCommonBlock, []byte(`{"ids":["`+unknown.Hash().String()+`"]}`))
		require.NoError(t, err)
		assert.True(t, isEmptyData(data))
	})

	t.Run("getHighestCommonBlock without ids", func(t *testing.T) {
		_, err := endpoint.Handle(ctx, ProcedureGetHighestCommonBlock, []byte(`{"ids":[]}`))
		require.Error(t, err)
		assert.Equal(t, errors.ERR_INVALID_ARGUMENT, errors.CodeOf(err))
	})

	t.Run("getTransactions", func(t *testing.T) {
		data, err := endpoint.Handle(ctx, ProcedureGetTransactions, nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"transactions":["dead","beef"]}`, string(data))
	})

	t.Run("getTransactions without source", func(t *testing.T) {
		data, err := NewEndpoint(ulogger.TestLogger{}, nil, chain, nil).Handle(ctx, ProcedureGetTransactions, nil)
		require.NoError(t, err)
		assert.JSONEq(t, `{"transactions":[]}`, string(data))
	})

	t.Run("unknown procedure", func(t *testing.T) {
		_, err := endpoint.Handle(ctx, "getBlocks", nil)
		require.Error(t, err)
		assert.Equal(t, errors.ERR_INVALID_ARGUMENT, errors.CodeOf(err))
	})
}

func TestRPCDecoding(t *testing.T) {
	ctx := context.Background()
	chain := newTestChain(t, localChain(2), nil)
	proc := newTestProcessor(chain)

	t.Run("empty data", func(t *testing.T) {
		assert.True(t, isEmptyData(nil))
		assert.True(t, isEmptyData([]byte(" null ")))
		assert.False(t, isEmptyData([]byte(`[]`)))
	})

	t.Run("block is not hex", func(t *testing.T) {
		_, err := decodeBlock(ctx, proc, []byte(`"xyz"`))
		require.Error(t, err)
		assert.Equal(t, errors.ERR_NETWORK_INVALID_RESPONSE, errors.CodeOf(err))
	})

	t.Run("block does not decode", func(t *testing.T) {
		_, err := decodeBlock(ctx, proc, []byte(`"0102"`))
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrBlockInvalid))
	})

	t.Run("ids", func(t *testing.T) {
		headers := []*model.BlockHeader{chain.LastBlock().Header}

		ids, err := decodeIDs(encodeIDs(headers))
		require.NoError(t, err)
		require.Len(t, ids, 1)
		assert.True(t, chain.LastBlock().Hash().IsEqual(ids[0]))
	})
}
