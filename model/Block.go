package model

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// maxPayloadItemSize guards against allocating huge buffers for corrupted input.
const maxPayloadItemSize = 32 * 1024 * 1024

// Block is a header plus an ordered payload which is opaque to the synchronizer.
type Block struct {
	Header  *BlockHeader
	Payload [][]byte
}

func NewBlock(header *BlockHeader, payload [][]byte) *Block {
	return &Block{
		Header:  header,
		Payload: payload,
	}
}

func NewBlockFromBytes(blockBytes []byte) (*Block, error) {
	r := bytes.NewReader(blockBytes)

	header, err := readBlockHeader(r)
	if err != nil {
		return nil, err
	}

	block := &Block{Header: header}

	var count uint32
	if err = binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, errors.NewInvalidArgumentError("error reading payload count", err)
	}

	if uint64(count) > uint64(r.Len()) {
		return nil, errors.NewInvalidArgumentError("payload count %d exceeds remaining %d bytes", count, r.Len())
	}

	block.Payload = make([][]byte, 0, count)

	for i := uint32(0); i < count; i++ {
		var size uint32
		if err = binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, errors.NewInvalidArgumentError("error reading size of payload item %d", i, err)
		}

		if size > maxPayloadItemSize {
			return nil, errors.NewInvalidArgumentError("payload item %d too large: %d bytes", i, size)
		}

		item := make([]byte, size)
		if _, err = io.ReadFull(r, item); err != nil {
			return nil, errors.NewInvalidArgumentError("error reading payload item %d", i, err)
		}

		block.Payload = append(block.Payload, item)
	}

	if r.Len() != 0 {
		return nil, errors.NewInvalidArgumentError("block has %d trailing bytes", r.Len())
	}

	return block, nil
}

func NewBlockFromString(blockHex string) (*Block, error) {
	blockBytes, err := hex.DecodeString(blockHex)
	if err != nil {
		return nil, errors.NewInvalidArgumentError("error decoding hex string to bytes", err)
	}

	return NewBlockFromBytes(blockBytes)
}

func (b *Block) Hash() *chainhash.Hash {
	return b.Header.Hash()
}

func (b *Block) Height() uint32 {
	return b.Header.Height
}

func (b *Block) String() string {
	return fmt.Sprintf("%s (height %d)", b.Header.Hash(), b.Header.Height)
}

func (b *Block) Bytes() []byte {
	var buf bytes.Buffer

	buf.Write(b.Header.Bytes())

	var scratch [4]byte

	binary.LittleEndian.PutUint32(scratch[:], uint32(len(b.Payload))) //nolint:gosec // bounded by the decoder
	buf.Write(scratch[:])

	for _, item := range b.Payload {
		binary.LittleEndian.PutUint32(scratch[:], uint32(len(item))) //nolint:gosec // bounded by maxPayloadItemSize
		buf.Write(scratch[:])
		buf.Write(item)
	}

	return buf.Bytes()
}
