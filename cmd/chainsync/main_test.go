package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"testing"

	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/settings"
	"github.com/bsv-blockchain/chainsync/stores/blockchain"
	"github.com/bsv-blockchain/chainsync/stores/blockchain/options"
	"github.com/bsv-blockchain/chainsync/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedStore writes genesis plus count blocks to a leveldb store, moves the
// last backup blocks to the temp area and returns the store url and blocks.
func seedStore(t *testing.T, count, backup int) (string, []*model.Block) {
	t.Helper()

	ctx := context.Background()
	rawURL := fmt.Sprintf("leveldb://%s", t.TempDir())

	storeURL, err := url.Parse(rawURL)
	require.NoError(t, err)

	store, err := blockchain.NewStore(ulogger.TestLogger{}, storeURL, settings.NewSettings())
	require.NoError(t, err)

	genesis := model.GenesisTestBlock()
	blocks := append([]*model.Block{genesis}, model.GenerateTestBlocks(genesis, count, 'A')...)

	for _, block := range blocks {
		require.NoError(t, store.StoreBlock(ctx, block))
	}

	for i := 0; i < backup; i++ {
		_, err = store.DeleteLastBlock(ctx, options.WithSaveTempBlock(true))
		require.NoError(t, err)
	}

	require.NoError(t, store.Close())

	return rawURL, blocks
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard

	err := app.Run(append([]string{"chainsync"}, args...))

	return out.String(), err
}

func decodeHeader(t *testing.T, out string) *headerJSON {
	t.Helper()

	var h headerJSON
	require.NoError(t, json.Unmarshal([]byte(out), &h))

	return &h
}

func TestTip(t *testing.T) {
	storeURL, blocks := seedStore(t, 5, 0)

	out, err := run(t, "--store", storeURL, "tip")
	require.NoError(t, err)

	h := decodeHeader(t, out)
	assert.Equal(t, blocks[5].Hash().String(), h.ID)
	assert.Equal(t, uint32(6), h.Height)
	assert.Equal(t, blocks[4].Hash().String(), h.PreviousBlockID)
	assert.Equal(t, "41010203", h.GeneratorAddress)
}

func TestHeader(t *testing.T) {
	storeURL, blocks := seedStore(t, 5, 0)

	out, err := run(t, "--store", storeURL, "header", "--height", "3")
	require.NoError(t, err)
	assert.Equal(t, blocks[2].Hash().String(), decodeHeader(t, out).ID)

	_, err = run(t, "--store", storeURL, "header", "--height", "30")
	require.Error(t, err)
}

func TestTempAndRecover(t *testing.T) {
	storeURL, blocks := seedStore(t, 5, 2)

	out, err := run(t, "--store", storeURL, "temp")
	require.NoError(t, err)

	var temp []headerJSON
	require.NoError(t, json.Unmarshal([]byte(out), &temp))
	require.Len(t, temp, 2)
	assert.Equal(t, uint32(5), temp[0].Height)
	assert.Equal(t, uint32(6), temp[1].Height)

	out, err = run(t, "--store", storeURL, "recover")
	require.NoError(t, err)
	assert.Equal(t, blocks[5].Hash().String(), decodeHeader(t, out).ID)

	out, err = run(t, "--store", storeURL, "temp")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)
}

func TestClearTemp(t *testing.T) {
	storeURL, blocks := seedStore(t, 5, 2)

	_, err := run(t, "--store", storeURL, "clear-temp")
	require.NoError(t, err)

	out, err := run(t, "--store", storeURL, "temp")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)

	out, err = run(t, "--store", storeURL, "tip")
	require.NoError(t, err)
	assert.Equal(t, blocks[3].Hash().String(), decodeHeader(t, out).ID)
}

func TestHeights(t *testing.T) {
	storeURL, _ := seedStore(t, 5, 0)

	out, err := run(t, "--store", storeURL, "heights")
	require.NoError(t, err)
	assert.JSONEq(t, `[1]`, out)
}

func TestEmptyStore(t *testing.T) {
	_, err := run(t, "--store", "memory://", "tip")
	require.Error(t, err)
}
