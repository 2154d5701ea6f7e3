package synchronizer

import (
	"context"
	"testing"
	"time"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/ulogger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestSynchronizer(t *testing.T, chain Chain, processor Processor, network Network, finalizedHeight uint32, txPool TransactionPool, events EventPublisher) *Synchronizer {
	t.Helper()

	return New(ulogger.TestLogger{}, testSettings(), chain, processor, network, newTestConsensus(t, finalizedHeight), txPool, events,
		WithRandomSource(fixedRandom(0)))
}

func TestSynchronizer_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("nil block", func(t *testing.T) {
		s := newTestSynchronizer(t, nil, &MockProcessor{}, newTestNetwork(), 0, nil, newPublisher())

		err := s.Run(ctx, nil, "p1")
		require.Error(t, err)
		assert.Equal(t, errors.ERR_INVALID_ARGUMENT, errors.CodeOf(err))
	})

	t.Run("already running", func(t *testing.T) {
		s := newTestSynchronizer(t, nil, &MockProcessor{}, newTestNetwork(), 0, nil, newPublisher())
		s.running.Store(true)

		assert.True(t, s.IsActive())

		err := s.Run(ctx, model.GenesisTestBlock(), "p1")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrSyncInProgress))
	})

	t.Run("invalid block", func(t *testing.T) {
		block := model.GenesisTestBlock()

		processor := &MockProcessor{}
		processor.On("ValidateDetached", mock.Anything, block).Return(errors.NewBlockInvalidError("bad block"))

		s := newTestSynchronizer(t, nil, processor, newTestNetwork(), 0, nil, newPublisher())

		err := s.Run(ctx, block, "p1")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrBlockInvalid))
		assert.False(t, s.IsActive())
	})

	t.Run("no mechanism applies", func(t *testing.T) {
		local := localChain(100)
		chain := newTestChain(t, local, clockAtSlot(100))
		proc := newTestProcessor(chain)

		s := newTestSynchronizer(t, chain, proc, newTestNetwork(), 90, nil, newPublisher())

		// forged by a delegate that is not active
		block := generateChain(local[98], 1, 0x07, nil)[0]

		require.NoError(t, s.Run(ctx, block, "p1"))
		assert.Equal(t, 0, proc.mutationCount())
		assert.False(t, s.IsActive())
	})

	t.Run("block synchronization", func(t *testing.T) {
		f := newBlockSyncFixture(t, nil)
		s := newTestSynchronizer(t, f.chain, f.processor, f.network, 90, nil, f.publisher)

		require.NoError(t, s.Run(ctx, f.receivedBlock(), "p4"))

		assert.True(t, f.receivedBlock().Hash().IsEqual(f.chain.LastBlock().Hash()))
		assert.Empty(t, tempBlocks(t, f.chain))
		assert.False(t, s.IsActive())
		assert.Equal(t, StateRunning, s.State())
	})

	t.Run("fast chain switching", func(t *testing.T) {
		f := newFastSwitchFixture(t, nil)
		s := newTestSynchronizer(t, f.chain, f.processor, f.network, 90, nil, f.publisher)

		require.NoError(t, s.Run(ctx, f.receivedBlock(), "p1"))

		assert.True(t, f.receivedBlock().Hash().IsEqual(f.chain.LastBlock().Hash()))
		assert.Empty(t, tempBlocks(t, f.chain))
	})

	t.Run("outcomes left by a mechanism are handled", func(t *testing.T) {
		block := model.GenesisTestBlock()

		processor := &MockProcessor{}
		processor.On("ValidateDetached", mock.Anything, block).Return(nil)

		network := &MockNetwork{}
		network.On("ApplyPenaltyOnPeer", mock.Anything, "p1", 100).Return(nil)

		publisher := newPublisher()

		mechanism := &MockMechanism{}
		mechanism.On("Name").Return("stub")
		mechanism.On("IsValidFor", mock.Anything, block, "p4").Return(true, nil)
		mechanism.On("Run", mock.Anything, block, "p4").Return(NewApplyPenaltyAndRestartError("p1", "bad tip"))
		mechanism.On("IsActive").Return(false).Maybe()

		s := newTestSynchronizer(t, nil, processor, network, 0, nil, publisher)
		s.mechanisms = []Mechanism{mechanism}

		require.NoError(t, s.Run(ctx, block, "p4"))

		network.AssertCalled(t, "ApplyPenaltyOnPeer", mock.Anything, "p1", 100)
		publisher.AssertCalled(t, "PublishSync", mock.Anything, block, "p4")
		assert.False(t, s.IsActive())
	})

	t.Run("other mechanism errors are returned", func(t *testing.T) {
		block := model.GenesisTestBlock()

		processor := &MockProcessor{}
		processor.On("ValidateDetached", mock.Anything, block).Return(nil)

		publisher := newPublisher()

		mechanism := &MockMechanism{}
		mechanism.On("Name").Return("stub")
		mechanism.On("IsValidFor", mock.Anything, block, "p4").Return(true, nil)
		mechanism.On("Run", mock.Anything, block, "p4").Return(errors.NewStorageError("disk full"))

		s := newTestSynchronizer(t, nil, processor, &MockNetwork{}, 0, nil, publisher)
		s.mechanisms = []Mechanism{mechanism}

		err := s.Run(ctx, block, "p4")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrStorageError))
		publisher.AssertNotCalled(t, "PublishSync", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("mechanism selection fails", func(t *testing.T) {
		chain := &failingChain{Chain: newTestChain(t, localChain(10), nil)}

		processor := &MockProcessor{}
		processor.On("ValidateDetached", mock.Anything, mock.Anything).Return(nil)

		s := newTestSynchronizer(t, chain, processor, newTestNetwork(), 5, nil, newPublisher())

		err := s.Run(ctx, model.GenesisTestBlock(), "p1")
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrStorageError))
	})
}

// failingChain fails header lookups by height.
type failingChain struct {
	Chain
}

func (c *failingChain) GetBlockHeaderByHeight(_ context.Context, height uint32) (*model.BlockHeader, error) {
	return nil, errors.NewStorageError("could not read header at height %d", height)
}

func TestSynchronizer_Init(t *testing.T) {
	ctx := context.Background()

	t.Run("restores an interrupted switch", func(t *testing.T) {
		blocks := localChain(10)
		chain := newTestChain(t, blocks, nil)
		proc := newTestProcessor(chain)

		require.NoError(t, deleteBlocksAfterHeight(ctx, ulogger.TestLogger{}, proc, chain, 5, true))

		s := newTestSynchronizer(t, chain, proc, newTestNetwork(), 0, nil, newPublisher())
		s.Init(ctx)

		assert.True(t, blocks[9].Hash().IsEqual(chain.LastBlock().Hash()))
		assert.Empty(t, tempBlocks(t, chain))
	})

	t.Run("empty temp area", func(t *testing.T) {
		chain := newTestChain(t, localChain(10), nil)
		proc := newTestProcessor(chain)

		s := newTestSynchronizer(t, chain, proc, newTestNetwork(), 0, nil, newPublisher())
		s.Init(ctx)

		assert.Equal(t, 0, proc.mutationCount())
	})
}

func TestSynchronizer_Start(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := newBlockSyncFixture(t, nil)
	bus := NewEventBus(ulogger.TestLogger{})

	s := newTestSynchronizer(t, f.chain, f.processor, f.network, 90, nil, bus)
	require.NoError(t, s.Start(ctx, bus))

	require.NoError(t, bus.PublishSync(ctx, f.receivedBlock(), "p4"))

	require.Eventually(t, func() bool {
		return f.receivedBlock().Hash().IsEqual(f.chain.LastBlock().Hash())
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return !s.IsActive()
	}, 5*time.Second, 10*time.Millisecond)
}

func TestSynchronizer_LoadUnconfirmedTransactions(t *testing.T) {
	ctx := context.Background()

	response := &PeerResponse{PeerID: "p1", Data: []byte(`{"transactions":["0102","0304","0506"]}`)}

	t.Run("retries until the network answers", func(t *testing.T) {
		network := &MockNetwork{}
		network.On("RequestFromNetwork", mock.Anything, ProcedureGetTransactions, nil).Return(nil, errors.NewNetworkTimeoutError("timeout")).Twice()
		network.On("RequestFromNetwork", mock.Anything, ProcedureGetTransactions, nil).Return(response, nil).Once()

		txPool := &MockTransactionPool{}
		txPool.On("ProcessUnconfirmedTransaction", mock.Anything, []byte{0x03, 0x04}).Return(errors.NewInvalidArgumentError("already known"))
		txPool.On("ProcessUnconfirmedTransaction", mock.Anything, mock.Anything).Return(nil)

		s := newTestSynchronizer(t, nil, &MockProcessor{}, network, 0, txPool, newPublisher())

		require.NoError(t, s.LoadUnconfirmedTransactions(ctx))

		network.AssertNumberOfCalls(t, "RequestFromNetwork", 3)
		txPool.AssertNumberOfCalls(t, "ProcessUnconfirmedTransaction", 3)
	})

	t.Run("gives up after the retries", func(t *testing.T) {
		network := &MockNetwork{}
		network.On("RequestFromNetwork", mock.Anything, ProcedureGetTransactions, nil).Return(nil, errors.NewNetworkTimeoutError("timeout"))

		s := newTestSynchronizer(t, nil, &MockProcessor{}, network, 0, &MockTransactionPool{}, newPublisher())

		err := s.LoadUnconfirmedTransactions(ctx)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrNetworkTimeout))

		network.AssertNumberOfCalls(t, "RequestFromNetwork", 5)
	})

	t.Run("invalid response", func(t *testing.T) {
		network := &MockNetwork{}
		network.On("RequestFromNetwork", mock.Anything, ProcedureGetTransactions, nil).Return(&PeerResponse{PeerID: "p1", Data: []byte(`{"transactions":["xyz"]}`)}, nil)

		txPool := &MockTransactionPool{}

		s := newTestSynchronizer(t, nil, &MockProcessor{}, network, 0, txPool, newPublisher())

		err := s.LoadUnconfirmedTransactions(ctx)
		require.Error(t, err)
		assert.Equal(t, errors.ERR_NETWORK_INVALID_RESPONSE, errors.CodeOf(err))

		txPool.AssertNotCalled(t, "ProcessUnconfirmedTransaction", mock.Anything, mock.Anything)
	})
}
