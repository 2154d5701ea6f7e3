package processor

import (
	"context"
	"net/url"
	"testing"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/settings"
	"github.com/bsv-blockchain/chainsync/stores/blockchain"
	"github.com/bsv-blockchain/chainsync/stores/blockchain/options"
	"github.com/bsv-blockchain/chainsync/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Processor, *blockchain.Chain, []*model.Block) {
	t.Helper()

	ctx := context.Background()
	logger := ulogger.TestLogger{}
	tSettings := settings.NewSettings()

	storeURL, err := url.Parse("memory://")
	require.NoError(t, err)

	store, err := blockchain.NewStore(logger, storeURL, tSettings)
	require.NoError(t, err)

	genesis := model.GenesisTestBlock()
	slots := model.NewSlots(tSettings.Chain.Epoch, tSettings.Chain.BlockTime)

	chain, err := blockchain.NewChain(ctx, store, slots, genesis)
	require.NoError(t, err)

	blocks := model.GenerateTestBlocks(genesis, 5, 0x01)

	return New(logger, chain), chain, blocks
}

func TestProcessor_Deserialize(t *testing.T) {
	p, _, blocks := setup(t)

	block, err := p.Deserialize(context.Background(), blocks[0].Bytes())
	require.NoError(t, err)
	assert.Equal(t, blocks[0].Hash(), block.Hash())

	_, err = p.Deserialize(context.Background(), []byte{0x01, 0x02})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBlockInvalid))
}

func TestProcessor_ValidateDetached(t *testing.T) {
	p, chain, blocks := setup(t)
	ctx := context.Background()

	require.NoError(t, p.ValidateDetached(ctx, blocks[0]))

	noGenerator := *blocks[1].Header
	noGenerator.GeneratorAddress = nil
	require.Error(t, p.ValidateDetached(ctx, model.NewBlock(&noGenerator, nil)))

	prevoted := *blocks[1].Header
	prevoted.MaxHeightPrevoted = prevoted.Height
	require.Error(t, p.ValidateDetached(ctx, model.NewBlock(&prevoted, nil)))

	future := *blocks[1].Header
	future.Timestamp = chain.Slots().SlotTime(chain.Slots().CurrentSlot() + 10)
	require.Error(t, p.ValidateDetached(ctx, model.NewBlock(&future, nil)))

	require.Error(t, p.ValidateDetached(ctx, nil))
}

func TestProcessor_Validate(t *testing.T) {
	p, chain, blocks := setup(t)
	ctx := context.Background()

	require.NoError(t, p.Validate(ctx, blocks[0], nil))
	require.Error(t, p.Validate(ctx, blocks[1], nil))
	require.NoError(t, p.Validate(ctx, blocks[1], blocks[0].Header))

	sameTime := *blocks[0].Header
	sameTime.Timestamp = chain.LastBlock().Header.Timestamp
	require.Error(t, p.Validate(ctx, model.NewBlock(&sameTime, nil), nil))
}

func TestProcessor_ForkStatus(t *testing.T) {
	p, _, blocks := setup(t)
	ctx := context.Background()

	status, err := p.ForkStatus(ctx, blocks[0].Header, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ForkStatusValidBlock, status)

	status, err = p.ForkStatus(ctx, blocks[4].Header, nil)
	require.NoError(t, err)
	assert.Equal(t, model.ForkStatusDifferentChain, status)

	_, err = p.ForkStatus(ctx, nil, nil)
	require.Error(t, err)
}

func TestProcessor_ProcessAndDelete(t *testing.T) {
	p, chain, blocks := setup(t)
	ctx := context.Background()

	for _, block := range blocks[:3] {
		require.NoError(t, p.ProcessValidated(ctx, block))
	}

	assert.Equal(t, uint32(4), chain.LastBlock().Height())

	err := p.ProcessValidated(ctx, blocks[4])
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrProcessing))

	newTip, err := p.DeleteLastBlock(ctx, options.WithSaveTempBlock(true))
	require.NoError(t, err)
	assert.Equal(t, blocks[1].Hash(), newTip.Hash())
	assert.Equal(t, blocks[1].Hash(), chain.LastBlock().Hash())

	temp, err := chain.GetTempBlocks(ctx)
	require.NoError(t, err)
	require.Len(t, temp, 1)
	assert.Equal(t, blocks[2].Hash(), temp[0].Hash())

	require.NoError(t, p.ProcessValidated(ctx, temp[0], options.WithRemoveFromTempTable(true)))

	empty, err := chain.IsTempBlockEmpty(ctx)
	require.NoError(t, err)
	assert.True(t, empty)
}
