package model

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlock_Bytes(t *testing.T) {
	genesis := GenesisTestBlock()
	block := GenerateTestBlocks(genesis, 1, 7)[0]
	block.Payload = append(block.Payload, []byte{}, []byte("tx"))

	decoded, err := NewBlockFromBytes(block.Bytes())
	require.NoError(t, err)

	assert.Equal(t, block.Hash(), decoded.Hash())
	assert.Equal(t, uint32(2), decoded.Height())
	require.Len(t, decoded.Payload, 3)
	assert.Equal(t, []byte("tx"), decoded.Payload[2])

	fromHex, err := NewBlockFromString(hex.EncodeToString(block.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, block.Hash(), fromHex.Hash())
}

func TestBlock_EmptyPayload(t *testing.T) {
	genesis := GenesisTestBlock()

	decoded, err := NewBlockFromBytes(genesis.Bytes())
	require.NoError(t, err)

	assert.Empty(t, decoded.Payload)
	assert.Equal(t, genesis.Hash(), decoded.Hash())
}

func TestBlock_Corrupted(t *testing.T) {
	b := GenerateTestBlocks(GenesisTestBlock(), 1, 1)[0].Bytes()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"header only", b[:blockHeaderFixedSize]},
		{"truncated payload", b[:len(b)-1]},
		{"trailing", append(append([]byte{}, b...), 0x00)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBlockFromBytes(tt.data)
			require.Error(t, err)
		})
	}
}

func TestGenerateTestBlocks_Forks(t *testing.T) {
	genesis := GenesisTestBlock()
	a := GenerateTestBlocks(genesis, 3, 'A')
	b := GenerateTestBlocks(genesis, 3, 'B')

	for i := range a {
		assert.Equal(t, a[i].Height(), b[i].Height())
		assert.False(t, a[i].Hash().IsEqual(b[i].Hash()))
	}
}
