package model

import "bytes"

// ForkStatus is the outcome of the fork choice rule when comparing a header
// with the current tip.
type ForkStatus int

const (
	ForkStatusIdenticalBlock ForkStatus = iota + 1
	ForkStatusValidBlock
	ForkStatusDoubleForging
	ForkStatusTieBreak
	ForkStatusDifferentChain
	ForkStatusDiscard
)

func (f ForkStatus) String() string {
	switch f {
	case ForkStatusIdenticalBlock:
		return "IDENTICAL_BLOCK"
	case ForkStatusValidBlock:
		return "VALID_BLOCK"
	case ForkStatusDoubleForging:
		return "DOUBLE_FORGING"
	case ForkStatusTieBreak:
		return "TIE_BREAK"
	case ForkStatusDifferentChain:
		return "DIFFERENT_CHAIN"
	case ForkStatusDiscard:
		return "DISCARD"
	default:
		return "UNKNOWN"
	}
}

// HasPreference reports whether the compared tip should replace the current one.
func (f ForkStatus) HasPreference() bool {
	return f == ForkStatusDifferentChain
}

// ForkChoice applies the DPoS fork choice rule to header against lastBlock,
// the current tip.
func ForkChoice(header, lastBlock *BlockHeader) ForkStatus {
	switch {
	case header.Hash().IsEqual(lastBlock.Hash()):
		return ForkStatusIdenticalBlock
	case header.HasPrevious(lastBlock):
		return ForkStatusValidBlock
	case isDuplicateBlock(header, lastBlock) && bytes.Equal(header.GeneratorAddress, lastBlock.GeneratorAddress):
		return ForkStatusDoubleForging
	case isDuplicateBlock(header, lastBlock) && header.Timestamp < lastBlock.Timestamp:
		return ForkStatusTieBreak
	case isDifferentChain(header, lastBlock):
		return ForkStatusDifferentChain
	default:
		return ForkStatusDiscard
	}
}

// two headers competing for the same slot in the chain
func isDuplicateBlock(a, b *BlockHeader) bool {
	return a.Height == b.Height &&
		a.MaxHeightPrevoted == b.MaxHeightPrevoted &&
		a.PreviousBlockID.IsEqual(b.PreviousBlockID)
}

func isDifferentChain(header, lastBlock *BlockHeader) bool {
	return lastBlock.MaxHeightPrevoted < header.MaxHeightPrevoted ||
		(lastBlock.Height < header.Height && lastBlock.MaxHeightPrevoted == header.MaxHeightPrevoted)
}
