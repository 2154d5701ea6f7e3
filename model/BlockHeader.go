package model

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"io"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// BlockHeader is the part of a block the synchronizer reasons about. A header
// is never modified after construction, its ID is the double sha256 of Bytes().
type BlockHeader struct {
	// Version of the block format.
	Version uint32

	// Height of the block, the genesis block has height 1.
	Height uint32

	// ID of the previous block header in the chain.
	PreviousBlockID *chainhash.Hash

	// Time the block was forged in unix time.
	Timestamp uint32

	// Highest height prevoted by the generator when forging this block.
	MaxHeightPrevoted uint32

	// Highest height previously forged by the same generator.
	MaxHeightGenerated uint32

	// Address of the delegate that forged the block.
	GeneratorAddress []byte
}

// 4 version + 4 height + 32 previous id + 4 timestamp + 4 prevoted + 4 generated + 2 address length
const blockHeaderFixedSize = 54

func NewBlockHeaderFromBytes(headerBytes []byte) (*BlockHeader, error) {
	r := bytes.NewReader(headerBytes)

	header, err := readBlockHeader(r)
	if err != nil {
		return nil, err
	}

	if r.Len() != 0 {
		return nil, errors.NewInvalidArgumentError("block header has %d trailing bytes", r.Len())
	}

	return header, nil
}

func NewBlockHeaderFromString(headerHex string) (*BlockHeader, error) {
	headerBytes, err := hex.DecodeString(headerHex)
	if err != nil {
		return nil, errors.NewInvalidArgumentError("error decoding hex string to bytes", err)
	}

	return NewBlockHeaderFromBytes(headerBytes)
}

func readBlockHeader(r io.Reader) (*BlockHeader, error) {
	fixed := make([]byte, blockHeaderFixedSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, errors.NewInvalidArgumentError("block header should be at least %d bytes long", blockHeaderFixedSize, err)
	}

	previousBlockID, err := chainhash.NewHash(fixed[8:40])
	if err != nil {
		return nil, errors.NewProcessingError("error creating previous block id from bytes", err)
	}

	header := &BlockHeader{
		Version:            binary.LittleEndian.Uint32(fixed[0:4]),
		Height:             binary.LittleEndian.Uint32(fixed[4:8]),
		PreviousBlockID:    previousBlockID,
		Timestamp:          binary.LittleEndian.Uint32(fixed[40:44]),
		MaxHeightPrevoted:  binary.LittleEndian.Uint32(fixed[44:48]),
		MaxHeightGenerated: binary.LittleEndian.Uint32(fixed[48:52]),
	}

	addressLength := binary.LittleEndian.Uint16(fixed[52:54])
	if addressLength > 0 {
		header.GeneratorAddress = make([]byte, addressLength)
		if _, err = io.ReadFull(r, header.GeneratorAddress); err != nil {
			return nil, errors.NewInvalidArgumentError("error reading generator address of %d bytes", addressLength, err)
		}
	}

	return header, nil
}

func (bh *BlockHeader) Hash() *chainhash.Hash {
	hash := chainhash.DoubleHashH(bh.Bytes())
	return &hash
}

func (bh *BlockHeader) String() string {
	return bh.Hash().String()
}

// HasPrevious reports whether bh directly extends previous.
func (bh *BlockHeader) HasPrevious(previous *BlockHeader) bool {
	if previous == nil || bh.PreviousBlockID == nil {
		return false
	}

	return bh.Height == previous.Height+1 && bh.PreviousBlockID.IsEqual(previous.Hash())
}

func (bh *BlockHeader) Bytes() []byte {
	b := make([]byte, blockHeaderFixedSize, blockHeaderFixedSize+len(bh.GeneratorAddress))

	binary.LittleEndian.PutUint32(b[0:4], bh.Version)
	binary.LittleEndian.PutUint32(b[4:8], bh.Height)

	if bh.PreviousBlockID != nil {
		copy(b[8:40], bh.PreviousBlockID.CloneBytes())
	}

	binary.LittleEndian.PutUint32(b[40:44], bh.Timestamp)
	binary.LittleEndian.PutUint32(b[44:48], bh.MaxHeightPrevoted)
	binary.LittleEndian.PutUint32(b[48:52], bh.MaxHeightGenerated)
	binary.LittleEndian.PutUint16(b[52:54], uint16(len(bh.GeneratorAddress))) //nolint:gosec // addresses are short

	return append(b, bh.GeneratorAddress...)
}
