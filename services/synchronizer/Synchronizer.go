// Package synchronizer decides, when a block is received that does not
// extend the local tip, whether and how the local chain is moved onto the
// chain of a peer.
//
// The Synchronizer holds an ordered list of mechanisms and runs the first one
// that applies to the received block:
//
//   - BlockSynchronizationMechanism for a chain that is more than three rounds
//     of slots behind, which finds the best peer, searches round by round for
//     the last common block and replays the peer's chain on top of it.
//   - FastChainSwitchingMechanism for a fork within the last two rounds, which
//     validates the complete fork before switching to it.
//
// Mechanisms report their outcome with the sync error codes of the errors
// package (abort, restart, penalize and restart, penalize and abort). Blocks
// removed from the chain are kept in the temp block area of the store until
// the switch is known to be good, so that the previous chain can be restored,
// also after a restart of the node.
package synchronizer

import (
	"context"
	"encoding/hex"
	"sync/atomic"
	"time"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/settings"
	"github.com/bsv-blockchain/chainsync/ulogger"
	"github.com/bsv-blockchain/chainsync/util/retry"
	"github.com/looplab/fsm"
	"golang.org/x/exp/rand"
)

const syncChannelSize = 100

type Synchronizer struct {
	BaseSynchronizer
	chain      Chain
	processor  Processor
	txPool     TransactionPool
	mechanisms []Mechanism
	running    atomic.Bool
	fsm        *fsm.FSM
}

type Option func(*synchronizerOptions)

type synchronizerOptions struct {
	random RandomSource
}

// WithRandomSource sets the source used to pick peers.
func WithRandomSource(random RandomSource) Option {
	return func(o *synchronizerOptions) {
		o.random = random
	}
}

func New(logger ulogger.Logger, tSettings *settings.Settings, chain Chain, processor Processor, network Network,
	consensus Consensus, txPool TransactionPool, events EventPublisher, opts ...Option) *Synchronizer {
	initPrometheusMetrics()

	o := &synchronizerOptions{}
	for _, opt := range opts {
		opt(o)
	}

	if o.random == nil {
		o.random = rand.New(rand.NewSource(uint64(time.Now().UnixNano()))) //nolint:gosec // peer selection only
	}

	config := NewConfig(tSettings)

	return &Synchronizer{
		BaseSynchronizer: newBaseSynchronizer("Synchronizer", logger, network, events, config),
		chain:            chain,
		processor:        processor,
		txPool:           txPool,
		mechanisms: []Mechanism{
			NewBlockSynchronizationMechanism(logger, config, chain, processor, network, consensus, events, o.random),
			NewFastChainSwitchingMechanism(logger, config, chain, processor, network, consensus, events),
		},
		fsm: newFiniteStateMachine(logger),
	}
}

// Init restores blocks left in the temp area by an interrupted chain switch.
// Failures are logged, the node keeps the chain it has.
func (s *Synchronizer) Init(ctx context.Context) {
	isEmpty, err := s.chain.IsTempBlockEmpty(ctx)
	if err != nil {
		s.logger.Errorf("[Init] failed to read the temp block area: %v", err)
		return
	}

	if isEmpty {
		return
	}

	if err = restoreBlocksUponStartup(ctx, s.logger, s.processor, s.chain); err != nil {
		s.logger.Errorf("[Init] failed to restore blocks from the temp block area upon startup: %v", err)
		return
	}

	s.logger.Infof("[Init] temp block area handled, tip is %s", s.chain.LastBlock())
}

// Run synchronizes the local chain with the chain block belongs to, using the
// first mechanism that applies. It returns nil when no mechanism applies.
func (s *Synchronizer) Run(ctx context.Context, block *model.Block, peerID string) error {
	if block == nil {
		return errors.NewInvalidArgumentError("[Run] a block must be provided to the synchronizer in order to run")
	}

	if !s.running.CompareAndSwap(false, true) {
		return errors.NewSyncInProgressError("[Run][%s] synchronizer is already running", block.Hash())
	}

	defer s.running.Store(false)

	s.logger.Infof("[Run][%s] starting synchronizer for block at height %d from peer %q", block.Hash(), block.Height(), peerID)

	if err := s.processor.ValidateDetached(ctx, block); err != nil {
		return err
	}

	mechanism, err := s.determineSyncMechanism(ctx, block, peerID)
	if err != nil {
		return err
	}

	if mechanism == nil {
		s.logger.Infof("[Run][%s] syncing mechanism could not be determined for the given block", block.Hash())
		return nil
	}

	s.logger.Infof("[Run][%s] triggering %s", block.Hash(), mechanism.Name())

	s.sendEvent(ctx, mechanismEvent(mechanism.Name()))
	defer s.sendEvent(ctx, EventRun)

	if err = mechanism.Run(ctx, block, peerID); err != nil {
		if errors.IsSyncOutcome(err) {
			return s.handleSyncError(ctx, block, peerID, err)
		}

		return err
	}

	s.logger.Infof("[Run][%s] synchronization finished, tip is %s", block.Hash(), s.chain.LastBlock())

	return nil
}

func (s *Synchronizer) determineSyncMechanism(ctx context.Context, block *model.Block, peerID string) (Mechanism, error) {
	for _, mechanism := range s.mechanisms {
		isValid, err := mechanism.IsValidFor(ctx, block, peerID)
		if err != nil {
			return nil, err
		}

		if isValid {
			return mechanism, nil
		}
	}

	return nil, nil
}

func (s *Synchronizer) sendEvent(ctx context.Context, event string) {
	if err := s.fsm.Event(ctx, event); err != nil {
		s.logger.Warnf("[Run] failed to send FSM event %s in state %s: %v", event, s.fsm.Current(), err)
	}
}

// State returns the current sync state of the node.
func (s *Synchronizer) State() string {
	return s.fsm.Current()
}

// IsActive reports whether a synchronization is running.
func (s *Synchronizer) IsActive() bool {
	if s.running.Load() {
		return true
	}

	for _, mechanism := range s.mechanisms {
		if mechanism.IsActive() {
			return true
		}
	}

	return false
}

// Start handles the temp block area and then runs the synchronizer for every
// sync event published on bus, one at a time, until ctx is done.
func (s *Synchronizer) Start(ctx context.Context, bus *EventBus) error {
	s.Init(ctx)

	syncCh := make(chan *SyncEvent, syncChannelSize)

	handler := func(event *SyncEvent) {
		select {
		case syncCh <- event:
		default:
			s.logger.Warnf("[Start][%s] sync channel is full, dropping sync event", event.Block.Hash())
		}
	}

	sub, err := bus.SubscribeSync(handler)
	if err != nil {
		return err
	}

	go func() {
		defer func() {
			if err := bus.UnsubscribeSync(sub); err != nil {
				s.logger.Warnf("[Start] %v", err)
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-syncCh:
				if err := s.Run(ctx, event.Block, event.PeerID); err != nil {
					s.logger.Errorf("[Start][%s] synchronization failed: %v", event.Block.Hash(), err)
				}
			}
		}
	}()

	return nil
}

// LoadUnconfirmedTransactions feeds the transaction pool of a peer into the
// local transaction pool. The last failure is logged and returned.
func (s *Synchronizer) LoadUnconfirmedTransactions(ctx context.Context) error {
	count, err := retry.Retry(ctx, s.logger, func() (int, error) {
		return s.getUnconfirmedTransactionsFromNetwork(ctx)
	},
		retry.WithRetryCount(s.config.LoadTransactionsRetries),
		retry.WithBackoffMultiplier(1),
		retry.WithBackoffDurationType(s.config.LoadTransactionsDelay),
		retry.WithMessage("[LoadUnconfirmedTransactions] failed to get transactions from network, retrying"),
	)
	if err != nil {
		s.logger.Errorf("[LoadUnconfirmedTransactions] failed to get transactions from network: %v", err)
		return err
	}

	s.logger.Infof("[LoadUnconfirmedTransactions] processed %d transactions from network", count)

	return nil
}

func (s *Synchronizer) getUnconfirmedTransactionsFromNetwork(ctx context.Context) (int, error) {
	response, err := s.network.RequestFromNetwork(ctx, ProcedureGetTransactions, nil)
	if err != nil {
		return 0, err
	}

	if response == nil || isEmptyData(response.Data) {
		return 0, errors.NewNetworkInvalidResponseError("[getUnconfirmedTransactionsFromNetwork] empty response")
	}

	var result GetTransactionsResponse
	if err = json.Unmarshal(response.Data, &result); err != nil {
		return 0, errors.NewNetworkInvalidResponseError("[getUnconfirmedTransactionsFromNetwork] invalid response from peer %s", response.PeerID, err)
	}

	transactions := make([][]byte, 0, len(result.Transactions))

	for _, txHex := range result.Transactions {
		tx, err := hex.DecodeString(txHex)
		if err != nil {
			return 0, errors.NewNetworkInvalidResponseError("[getUnconfirmedTransactionsFromNetwork] transaction is not a hex string", err)
		}

		transactions = append(transactions, tx)
	}

	processed := 0

	for _, tx := range transactions {
		if err = s.txPool.ProcessUnconfirmedTransaction(ctx, tx); err != nil {
			s.logger.Debugf("[getUnconfirmedTransactionsFromNetwork] transaction rejected by the pool: %v", err)
			continue
		}

		processed++
	}

	return processed, nil
}
