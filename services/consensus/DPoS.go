// Package consensus provides the DPoS round parameters the synchronizer
// depends on: round length, round calculation, the active delegate set and
// the finalized height.
package consensus

import (
	"context"
	"encoding/hex"
	"strings"
	"sync/atomic"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/settings"
)

type DPoS struct {
	delegatesPerRound uint32
	delegates         map[string]struct{}
	finalizedHeight   atomic.Uint32
}

// New creates a DPoS with a fixed delegate set taken from the settings.
func New(tSettings *settings.Settings) (*DPoS, error) {
	if tSettings.Chain.DelegatesPerRound == 0 {
		return nil, errors.NewConfigurationError("[consensus] delegates per round must be positive")
	}

	d := &DPoS{
		delegatesPerRound: tSettings.Chain.DelegatesPerRound,
		delegates:         make(map[string]struct{}, len(tSettings.Chain.Delegates)),
	}

	for _, delegate := range tSettings.Chain.Delegates {
		delegate = strings.ToLower(strings.TrimSpace(delegate))
		if delegate == "" {
			continue
		}

		if _, err := hex.DecodeString(delegate); err != nil {
			return nil, errors.NewConfigurationError("[consensus] invalid delegate address %q", delegate, err)
		}

		d.delegates[delegate] = struct{}{}
	}

	return d, nil
}

func (d *DPoS) DelegatesPerRound() uint32 {
	return d.delegatesPerRound
}

// CalcRound returns the round height belongs to, rounds start at 1.
func (d *DPoS) CalcRound(height uint32) uint32 {
	round := height / d.delegatesPerRound
	if height%d.delegatesPerRound > 0 {
		round++
	}

	return round
}

func (d *DPoS) FinalizedHeight() uint32 {
	return d.finalizedHeight.Load()
}

// SetFinalizedHeight moves the finalized height forward. Lower heights are ignored.
func (d *DPoS) SetFinalizedHeight(height uint32) {
	for {
		current := d.finalizedHeight.Load()
		if height <= current || d.finalizedHeight.CompareAndSwap(current, height) {
			return
		}
	}
}

func (d *DPoS) IsActiveDelegate(_ context.Context, address []byte, _ uint32) (bool, error) {
	if len(address) == 0 {
		return false, nil
	}

	_, ok := d.delegates[hex.EncodeToString(address)]

	return ok, nil
}
