package synchronizer

import (
	"context"

	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/stores/blockchain/options"
	jsoniter "github.com/json-iterator/go"
)

// Procedures served by every peer.
const (
	ProcedureGetLastBlock          = "getLastBlock"
	ProcedureGetBlocksFromID       = "getBlocksFromId"
	ProcedureGetHighestCommonBlock = "getHighestCommonBlock"
	ProcedureGetTransactions       = "getTransactions"
)

// PeerResponse is the answer of a peer to a procedure call. Data is the JSON
// encoded result and is empty or "null" when the peer had nothing to return.
type PeerResponse struct {
	PeerID string
	Data   jsoniter.RawMessage
}

// Network is the p2p transport used to talk to peers. Timeouts are owned by
// the implementation and surface as ordinary errors.
type Network interface {
	RequestFromPeer(ctx context.Context, peerID string, procedure string, data interface{}) (*PeerResponse, error)
	RequestFromNetwork(ctx context.Context, procedure string, data interface{}) (*PeerResponse, error)
	ApplyPenaltyOnPeer(ctx context.Context, peerID string, penalty int) error
	GetConnectedPeers(ctx context.Context) ([]*model.PeerInfo, error)
}

type Processor interface {
	Deserialize(ctx context.Context, raw []byte) (*model.Block, error)
	ValidateDetached(ctx context.Context, block *model.Block) error

	// Validate checks block against lastBlock, the current tip when nil.
	Validate(ctx context.Context, block *model.Block, lastBlock *model.BlockHeader) error

	// ForkStatus compares header with lastBlock, the current tip when nil.
	ForkStatus(ctx context.Context, header *model.BlockHeader, lastBlock *model.BlockHeader) (model.ForkStatus, error)
	ProcessValidated(ctx context.Context, block *model.Block, opts ...options.StoreBlockOption) error

	// DeleteLastBlock removes the tip and returns the new tip.
	DeleteLastBlock(ctx context.Context, opts ...options.DeleteBlockOption) (*model.Block, error)
}

// Chain is the read side of the local chain plus the temp block area.
type Chain interface {
	LastBlock() *model.Block
	Slots() *model.Slots
	GetBlockHeaderByHeight(ctx context.Context, height uint32) (*model.BlockHeader, error)
	GetBlockHeadersWithHeights(ctx context.Context, heights []uint32) ([]*model.BlockHeader, error)
	GetTempBlocks(ctx context.Context) ([]*model.Block, error)
	ClearTempBlocks(ctx context.Context) error
	IsTempBlockEmpty(ctx context.Context) (bool, error)
}

type Consensus interface {
	FinalizedHeight() uint32
	DelegatesPerRound() uint32
	IsActiveDelegate(ctx context.Context, address []byte, height uint32) (bool, error)
	CalcRound(height uint32) uint32
}

type TransactionPool interface {
	ProcessUnconfirmedTransaction(ctx context.Context, tx []byte) error
}

// EventPublisher asks the node to run the synchronizer again for block.
type EventPublisher interface {
	PublishSync(ctx context.Context, block *model.Block, peerID string) error
}

// RandomSource picks peers. Intn returns a number in [0, n).
type RandomSource interface {
	Intn(n int) int
}

// Mechanism is one way of moving the local chain onto a peer's chain.
type Mechanism interface {
	Name() string

	// IsValidFor reports whether the mechanism applies to block. It must not
	// mutate any state.
	IsValidFor(ctx context.Context, block *model.Block, peerID string) (bool, error)

	// Run executes the mechanism. Sync outcomes are handled internally, any
	// error returned is an environment failure.
	Run(ctx context.Context, block *model.Block, peerID string) error
	IsActive() bool
}

type GetBlocksFromIDRequest struct {
	BlockID string `json:"blockId"`
}

type GetHighestCommonBlockRequest struct {
	IDs []string `json:"ids"`
}

type GetTransactionsResponse struct {
	Transactions []string `json:"transactions"`
}
