package synchronizer

import (
	"context"

	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/stores/blockchain/options"
	"github.com/stretchr/testify/mock"
)

// MockNetwork implements Network for testing purposes
type MockNetwork struct {
	mock.Mock
}

func (m *MockNetwork) RequestFromPeer(ctx context.Context, peerID string, procedure string, data interface{}) (*PeerResponse, error) {
	args := m.Called(ctx, peerID, procedure, data)

	if args.Error(1) != nil {
		return nil, args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, nil
	}

	return args.Get(0).(*PeerResponse), nil
}

func (m *MockNetwork) RequestFromNetwork(ctx context.Context, procedure string, data interface{}) (*PeerResponse, error) {
	args := m.Called(ctx, procedure, data)

	if args.Error(1) != nil {
		return nil, args.Error(1)
	}

	if args.Get(0) == nil {
		return nil, nil
	}

	return args.Get(0).(*PeerResponse), nil
}

func (m *MockNetwork) ApplyPenaltyOnPeer(ctx context.Context, peerID string, penalty int) error {
	args := m.Called(ctx, peerID, penalty)
	return args.Error(0)
}

func (m *MockNetwork) GetConnectedPeers(ctx context.Context) ([]*model.PeerInfo, error) {
	args := m.Called(ctx)

	if args.Error(1) != nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*model.PeerInfo), nil
}

// MockProcessor implements Processor for testing purposes
type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) Deserialize(ctx context.Context, raw []byte) (*model.Block, error) {
	args := m.Called(ctx, raw)

	if args.Error(1) != nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*model.Block), nil
}

func (m *MockProcessor) ValidateDetached(ctx context.Context, block *model.Block) error {
	args := m.Called(ctx, block)
	return args.Error(0)
}

func (m *MockProcessor) Validate(ctx context.Context, block *model.Block, lastBlock *model.BlockHeader) error {
	args := m.Called(ctx, block, lastBlock)
	return args.Error(0)
}

func (m *MockProcessor) ForkStatus(ctx context.Context, header *model.BlockHeader, lastBlock *model.BlockHeader) (model.ForkStatus, error) {
	args := m.Called(ctx, header, lastBlock)
	return args.Get(0).(model.ForkStatus), args.Error(1)
}

func (m *MockProcessor) ProcessValidated(ctx context.Context, block *model.Block, opts ...options.StoreBlockOption) error {
	args := m.Called(ctx, block, opts)
	return args.Error(0)
}

func (m *MockProcessor) DeleteLastBlock(ctx context.Context, opts ...options.DeleteBlockOption) (*model.Block, error) {
	args := m.Called(ctx, opts)

	if args.Error(1) != nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*model.Block), nil
}

// MockConsensus implements Consensus for testing purposes
type MockConsensus struct {
	mock.Mock
}

func (m *MockConsensus) FinalizedHeight() uint32 {
	args := m.Called()
	return args.Get(0).(uint32)
}

func (m *MockConsensus) DelegatesPerRound() uint32 {
	args := m.Called()
	return args.Get(0).(uint32)
}

func (m *MockConsensus) IsActiveDelegate(ctx context.Context, address []byte, height uint32) (bool, error) {
	args := m.Called(ctx, address, height)
	return args.Bool(0), args.Error(1)
}

func (m *MockConsensus) CalcRound(height uint32) uint32 {
	args := m.Called(height)
	return args.Get(0).(uint32)
}

// MockTransactionPool implements TransactionPool for testing purposes
type MockTransactionPool struct {
	mock.Mock
}

func (m *MockTransactionPool) ProcessUnconfirmedTransaction(ctx context.Context, tx []byte) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

// MockEventPublisher implements EventPublisher for testing purposes
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishSync(ctx context.Context, block *model.Block, peerID string) error {
	args := m.Called(ctx, block, peerID)
	return args.Error(0)
}

// MockMechanism implements Mechanism for testing purposes
type MockMechanism struct {
	mock.Mock
}

func (m *MockMechanism) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockMechanism) IsValidFor(ctx context.Context, block *model.Block, peerID string) (bool, error) {
	args := m.Called(ctx, block, peerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMechanism) Run(ctx context.Context, block *model.Block, peerID string) error {
	args := m.Called(ctx, block, peerID)
	return args.Error(0)
}

func (m *MockMechanism) IsActive() bool {
	args := m.Called()
	return args.Bool(0)
}
