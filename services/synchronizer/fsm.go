package synchronizer

import (
	"context"

	"github.com/bsv-blockchain/chainsync/ulogger"
	"github.com/looplab/fsm"
)

// Sync states of the node.
const (
	StateRunning        = "RUNNING"
	StateCatchingBlocks = "CATCHINGBLOCKS"
	StateSwitchingChain = "SWITCHINGCHAIN"
)

const (
	EventRun           = "RUN"
	EventCatchupBlocks = "CATCHUPBLOCKS"
	EventSwitchChain   = "SWITCHCHAIN"
)

// newFiniteStateMachine creates the state machine tracking what the
// synchronizer is doing. It starts in RUNNING, every mechanism moves it to
// its own state for the duration of its run.
func newFiniteStateMachine(logger ulogger.Logger) *fsm.FSM {
	return fsm.NewFSM(
		StateRunning,
		fsm.Events{
			{
				Name: EventCatchupBlocks,
				Src:  []string{StateRunning},
				Dst:  StateCatchingBlocks,
			},
			{
				Name: EventSwitchChain,
				Src:  []string{StateRunning},
				Dst:  StateSwitchingChain,
			},
			{
				Name: EventRun,
				Src:  []string{StateCatchingBlocks, StateSwitchingChain},
				Dst:  StateRunning,
			},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				logger.Infof("[FSM] %s: %s -> %s", e.Event, e.Src, e.Dst)
			},
		},
	)
}

// mechanismEvent returns the event entering the state of the named mechanism.
func mechanismEvent(name string) string {
	if name == fastChainSwitchingName {
		return EventSwitchChain
	}

	return EventCatchupBlocks
}
