package model

import (
	"testing"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeerInfo_IsCompatible(t *testing.T) {
	height := uint32(10)

	assert.True(t, NewPeerInfo("p1", 10, 8, 2, &chainhash.Hash{}).IsCompatible())
	assert.False(t, (&PeerInfo{PeerID: "p2", Height: &height}).IsCompatible())
	assert.False(t, NewPeerInfo("", 10, 8, 2, &chainhash.Hash{}).IsCompatible())
	assert.False(t, NewPeerInfo("p3", 10, 8, 2, nil).IsCompatible())

	var nilPeer *PeerInfo
	assert.False(t, nilPeer.IsCompatible())
}

func TestPeerInfo_Tip(t *testing.T) {
	tip := NewPeerInfo("p1", 130, 120, 2, &chainhash.Hash{0x01}).Tip()
	require.NotNil(t, tip)

	assert.Equal(t, uint32(130), tip.Height)
	assert.Equal(t, uint32(120), tip.MaxHeightPrevoted)
	assert.Equal(t, uint32(2), tip.Version)

	assert.Nil(t, (&PeerInfo{PeerID: "p2"}).Tip())
}

func TestForkStatus(t *testing.T) {
	assert.True(t, ForkStatusDifferentChain.HasPreference())
	assert.False(t, ForkStatusValidBlock.HasPreference())
	assert.Equal(t, "DIFFERENT_CHAIN", ForkStatusDifferentChain.String())
	assert.Equal(t, 5, int(ForkStatusDifferentChain))
	assert.Equal(t, 2, int(ForkStatusValidBlock))
	assert.Equal(t, "UNKNOWN", ForkStatus(0).String())
}

func TestForkChoice(t *testing.T) {
	genesis := GenesisTestBlock()
	chain := GenerateTestBlocks(genesis, 3, 0x01)
	tip := chain[1].Header

	withChanges := func(h *BlockHeader, change func(*BlockHeader)) *BlockHeader {
		c := *h
		change(&c)

		return &c
	}

	t.Run("identical", func(t *testing.T) {
		assert.Equal(t, ForkStatusIdenticalBlock, ForkChoice(tip, tip))
	})

	t.Run("valid block", func(t *testing.T) {
		assert.Equal(t, ForkStatusValidBlock, ForkChoice(chain[2].Header, tip))
	})

	t.Run("double forging", func(t *testing.T) {
		other := withChanges(tip, func(h *BlockHeader) { h.Timestamp++ })
		assert.Equal(t, ForkStatusDoubleForging, ForkChoice(other, tip))
	})

	t.Run("tie break", func(t *testing.T) {
		other := withChanges(tip, func(h *BlockHeader) {
			h.Timestamp--
			h.GeneratorAddress = []byte{0x09}
		})
		assert.Equal(t, ForkStatusTieBreak, ForkChoice(other, tip))
	})

	t.Run("different chain", func(t *testing.T) {
		fork := GenerateTestBlocks(genesis, 4, 0x02)
		assert.Equal(t, ForkStatusDifferentChain, ForkChoice(fork[3].Header, tip))

		prevoted := withChanges(fork[0].Header, func(h *BlockHeader) { h.MaxHeightPrevoted = tip.MaxHeightPrevoted + 1 })
		assert.Equal(t, ForkStatusDifferentChain, ForkChoice(prevoted, tip))
	})

	t.Run("discard", func(t *testing.T) {
		fork := GenerateTestBlocks(genesis, 1, 0x02)
		assert.Equal(t, ForkStatusDiscard, ForkChoice(fork[0].Header, tip))
	})
}
