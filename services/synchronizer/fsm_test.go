package synchronizer

import (
	"context"
	"testing"

	"github.com/bsv-blockchain/chainsync/ulogger"
	"github.com/stretchr/testify/require"
)

func Test_NewFiniteStateMachine(t *testing.T) {
	ctx := context.Background()

	fsm := newFiniteStateMachine(ulogger.TestLogger{})
	require.Equal(t, StateRunning, fsm.Current())
	require.False(t, fsm.Can(EventRun))

	t.Run("catching blocks and back", func(t *testing.T) {
		require.NoError(t, fsm.Event(ctx, EventCatchupBlocks))
		require.Equal(t, StateCatchingBlocks, fsm.Current())

		// a second mechanism cannot start while one is running
		require.Error(t, fsm.Event(ctx, EventSwitchChain))

		require.NoError(t, fsm.Event(ctx, EventRun))
		require.Equal(t, StateRunning, fsm.Current())
	})

	t.Run("switching chain and back", func(t *testing.T) {
		require.NoError(t, fsm.Event(ctx, EventSwitchChain))
		require.Equal(t, StateSwitchingChain, fsm.Current())

		require.NoError(t, fsm.Event(ctx, EventRun))
		require.Equal(t, StateRunning, fsm.Current())
	})
}

func TestMechanismEvent(t *testing.T) {
	require.Equal(t, EventCatchupBlocks, mechanismEvent(blockSynchronizationName))
	require.Equal(t, EventSwitchChain, mechanismEvent(fastChainSwitchingName))
}
