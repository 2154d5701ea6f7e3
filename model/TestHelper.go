package model

import (
	"encoding/binary"

	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// GenesisTestBlock returns a deterministic height 1 block.
func GenesisTestBlock() *Block {
	return NewBlock(&BlockHeader{
		Version:         2,
		Height:          1,
		PreviousBlockID: &chainhash.Hash{},
		Timestamp:       1464109200,
	}, nil)
}

// GenerateTestBlocks builds count blocks extending parent. The fork byte ends
// up in the payload and the generator address so that two calls with
// different forks produce different block ids at every height.
func GenerateTestBlocks(parent *Block, count int, fork byte) []*Block {
	blocks := make([]*Block, 0, count)
	previous := parent

	for i := 0; i < count; i++ {
		height := previous.Header.Height + 1

		marker := make([]byte, 5)
		marker[0] = fork
		binary.LittleEndian.PutUint32(marker[1:], height)

		block := NewBlock(&BlockHeader{
			Version:            2,
			Height:             height,
			PreviousBlockID:    previous.Hash(),
			Timestamp:          previous.Header.Timestamp + 10,
			MaxHeightPrevoted:  previous.Header.Height,
			MaxHeightGenerated: previous.Header.Height,
			GeneratorAddress:   []byte{fork, 0x01, 0x02, 0x03},
		}, [][]byte{marker})

		blocks = append(blocks, block)
		previous = block
	}

	return blocks
}
