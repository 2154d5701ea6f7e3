package synchronizer

import (
	"context"
	"net/url"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/services/consensus"
	"github.com/bsv-blockchain/chainsync/services/processor"
	"github.com/bsv-blockchain/chainsync/settings"
	"github.com/bsv-blockchain/chainsync/stores/blockchain"
	"github.com/bsv-blockchain/chainsync/stores/blockchain/options"
	"github.com/bsv-blockchain/chainsync/ulogger"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.Unix(1464109200, 0).UTC()

// fork markers, fork blocks carry {fork, 1, 2, 3} as generator address
const (
	localFork byte = 0x01
	peerFork  byte = 0x02
)

type fixedRandom int

func (f fixedRandom) Intn(n int) int {
	return int(f) % n
}

func testSettings() *settings.Settings {
	tSettings := settings.NewSettings()
	tSettings.Chain.DelegatesPerRound = 10
	tSettings.Chain.Delegates = []string{"02010203"}
	tSettings.Chain.Epoch = testEpoch
	tSettings.Chain.BlockTime = 10 * time.Second
	tSettings.Synchronizer.LoadTransactionsDelay = time.Millisecond

	return tSettings
}

// clockAtSlot returns a clock standing in the given slot of the test chains.
func clockAtSlot(slot int64) func() time.Time {
	return func() time.Time {
		return testEpoch.Add(time.Duration(slot) * 10 * time.Second)
	}
}

// generateChain builds count blocks on top of parent, mutate may change the
// header of block i before it is linked into the chain.
func generateChain(parent *model.Block, count int, fork byte, mutate func(i int, header *model.BlockHeader)) []*model.Block {
	blocks := make([]*model.Block, 0, count)
	previous := parent

	for i := 0; i < count; i++ {
		block := model.GenerateTestBlocks(previous, 1, fork)[0]

		if mutate != nil {
			header := *block.Header
			mutate(i, &header)
			block = model.NewBlock(&header, block.Payload)
		}

		blocks = append(blocks, block)
		previous = block
	}

	return blocks
}

// localChain returns blocks 1 to height of the local fork, genesis first.
func localChain(height int) []*model.Block {
	genesis := model.GenesisTestBlock()
	return append([]*model.Block{genesis}, generateChain(genesis, height-1, localFork, nil)...)
}

// forkChain returns base up to forkHeight followed by peer fork blocks up to height.
func forkChain(base []*model.Block, forkHeight, height int, mutate func(i int, header *model.BlockHeader)) []*model.Block {
	blocks := append([]*model.Block{}, base[:forkHeight]...)
	return append(blocks, generateChain(base[forkHeight-1], height-forkHeight, peerFork, mutate)...)
}

func newTestChain(t *testing.T, blocks []*model.Block, clock func() time.Time) *blockchain.Chain {
	t.Helper()

	ctx := context.Background()

	storeURL, err := url.Parse("memory://")
	require.NoError(t, err)

	store, err := blockchain.NewStore(ulogger.TestLogger{}, storeURL, testSettings())
	require.NoError(t, err)

	slots := model.NewSlots(testEpoch, 10*time.Second)
	if clock != nil {
		slots = slots.WithClock(clock)
	}

	chain, err := blockchain.NewChain(ctx, store, slots, blocks[0])
	require.NoError(t, err)

	for _, block := range blocks[1:] {
		require.NoError(t, chain.StoreBlock(ctx, block))
	}

	return chain
}

func newTestConsensus(t *testing.T, finalizedHeight uint32) *consensus.DPoS {
	t.Helper()

	dpos, err := consensus.New(testSettings())
	require.NoError(t, err)

	dpos.SetFinalizedHeight(finalizedHeight)

	return dpos
}

func newTestEndpoint(t *testing.T, blocks []*model.Block) *Endpoint {
	t.Helper()

	return NewEndpoint(ulogger.TestLogger{}, testSettings(), newTestChain(t, blocks, nil), nil)
}

func tempBlocks(t *testing.T, chain Chain) []*model.Block {
	t.Helper()

	blocks, err := chain.GetTempBlocks(context.Background())
	require.NoError(t, err)

	return blocks
}

// testNetwork routes requests to endpoints, encoding requests the way a
// transport would.
type testNetwork struct {
	mu        sync.Mutex
	endpoints map[string]*Endpoint
	peers     []*model.PeerInfo
	penalties map[string]int
}

func newTestNetwork() *testNetwork {
	return &testNetwork{
		endpoints: make(map[string]*Endpoint),
		penalties: make(map[string]int),
	}
}

// addPeer connects a peer serving blocks and announcing its tip.
func (n *testNetwork) addPeer(t *testing.T, peerID string, blocks []*model.Block) {
	tip := blocks[len(blocks)-1]
	n.addPeerWithInfo(t, model.NewPeerInfo(peerID, tip.Height(), tip.Header.MaxHeightPrevoted, tip.Header.Version, tip.Hash()), blocks)
}

func (n *testNetwork) addPeerWithInfo(t *testing.T, info *model.PeerInfo, blocks []*model.Block) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.peers = append(n.peers, info)

	if blocks != nil {
		n.endpoints[info.PeerID] = newTestEndpoint(t, blocks)
	}
}

func (n *testNetwork) RequestFromPeer(ctx context.Context, peerID string, procedure string, data interface{}) (*PeerResponse, error) {
	n.mu.Lock()
	endpoint, ok := n.endpoints[peerID]
	n.mu.Unlock()

	if !ok {
		return nil, errors.NewNetworkError("peer %s is not connected", peerID)
	}

	request, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	result, err := endpoint.Handle(ctx, procedure, request)
	if err != nil {
		return nil, err
	}

	return &PeerResponse{PeerID: peerID, Data: result}, nil
}

func (n *testNetwork) RequestFromNetwork(ctx context.Context, procedure string, data interface{}) (*PeerResponse, error) {
	n.mu.Lock()
	peerIDs := make([]string, 0, len(n.endpoints))

	for peerID := range n.endpoints {
		peerIDs = append(peerIDs, peerID)
	}
	n.mu.Unlock()

	if len(peerIDs) == 0 {
		return nil, errors.NewNetworkError("no peers")
	}

	sort.Strings(peerIDs)

	return n.RequestFromPeer(ctx, peerIDs[0], procedure, data)
}

func (n *testNetwork) ApplyPenaltyOnPeer(_ context.Context, peerID string, penalty int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.penalties[peerID] += penalty

	return nil
}

func (n *testNetwork) GetConnectedPeers(_ context.Context) ([]*model.PeerInfo, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	return append([]*model.PeerInfo{}, n.peers...), nil
}

func (n *testNetwork) penalty(peerID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	return n.penalties[peerID]
}

// testProcessor wraps the block processor, recording chain mutations and
// allowing failures and fork statuses to be forced.
type testProcessor struct {
	*processor.Processor

	mu              sync.Mutex
	failProcessOn   *chainhash.Hash
	preferredHeader *chainhash.Hash
	mutations       []string
}

func newTestProcessor(chain *blockchain.Chain) *testProcessor {
	return &testProcessor{
		Processor: processor.New(ulogger.TestLogger{}, chain),
	}
}

func (p *testProcessor) ForkStatus(ctx context.Context, header *model.BlockHeader, lastBlock *model.BlockHeader) (model.ForkStatus, error) {
	p.mu.Lock()
	preferred := p.preferredHeader
	p.mu.Unlock()

	if preferred != nil && header.Hash().IsEqual(preferred) {
		return model.ForkStatusDifferentChain, nil
	}

	return p.Processor.ForkStatus(ctx, header, lastBlock)
}

func (p *testProcessor) ProcessValidated(ctx context.Context, block *model.Block, opts ...options.StoreBlockOption) error {
	p.mu.Lock()
	p.mutations = append(p.mutations, "process")
	failOn := p.failProcessOn
	p.mu.Unlock()

	if failOn != nil && block.Hash().IsEqual(failOn) {
		return errors.NewProcessingError("forced failure for block %s", block)
	}

	return p.Processor.ProcessValidated(ctx, block, opts...)
}

func (p *testProcessor) DeleteLastBlock(ctx context.Context, opts ...options.DeleteBlockOption) (*model.Block, error) {
	p.mu.Lock()
	p.mutations = append(p.mutations, "delete")
	p.mu.Unlock()

	return p.Processor.DeleteLastBlock(ctx, opts...)
}

func (p *testProcessor) mutationCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.mutations)
}

func newPublisher() *MockEventPublisher {
	publisher := &MockEventPublisher{}
	publisher.On("PublishSync", mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	return publisher
}
