package model

import (
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
)

// PeerInfo is a snapshot of what a connected peer announced about its chain.
// Fields the peer did not announce are nil.
type PeerInfo struct {
	PeerID            string
	Height            *uint32
	MaxHeightPrevoted *uint32
	BlockVersion      *uint32
	LastBlockID       *chainhash.Hash
}

func NewPeerInfo(peerID string, height, maxHeightPrevoted, blockVersion uint32, lastBlockID *chainhash.Hash) *PeerInfo {
	return &PeerInfo{
		PeerID:            peerID,
		Height:            &height,
		MaxHeightPrevoted: &maxHeightPrevoted,
		BlockVersion:      &blockVersion,
		LastBlockID:       lastBlockID,
	}
}

// IsCompatible reports whether the peer announced everything needed to take
// part in best peer selection.
func (p *PeerInfo) IsCompatible() bool {
	return p != nil &&
		p.PeerID != "" &&
		p.Height != nil &&
		p.MaxHeightPrevoted != nil &&
		p.BlockVersion != nil &&
		p.LastBlockID != nil
}

// Tip returns the header a compatible peer is known to be at. Only the fields
// used by the fork choice rule are set.
func (p *PeerInfo) Tip() *BlockHeader {
	if !p.IsCompatible() {
		return nil
	}

	return &BlockHeader{
		Version:           *p.BlockVersion,
		Height:            *p.Height,
		MaxHeightPrevoted: *p.MaxHeightPrevoted,
		PreviousBlockID:   &chainhash.Hash{},
	}
}
