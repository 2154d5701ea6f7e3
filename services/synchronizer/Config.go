package synchronizer

import (
	"time"

	"github.com/bsv-blockchain/chainsync/settings"
)

// Config holds the request and retry limits of the synchronization mechanisms.
type Config struct {
	// BlockSyncRequestLimit is the number of getHighestCommonBlock requests
	// made while searching backwards round by round.
	BlockSyncRequestLimit int

	// BlocksPerRequestLimit is the number of heights sent per
	// getHighestCommonBlock request, and the number of rounds stepped back
	// after a request without result.
	BlocksPerRequestLimit int

	// MaxFailedAttempts is the number of empty or failed getBlocksFromId
	// pages tolerated before giving up on a peer.
	MaxFailedAttempts int

	// FastChainRequestLimit is the number of getHighestCommonBlock requests
	// made by fast chain switching.
	FastChainRequestLimit int

	LoadTransactionsRetries int
	LoadTransactionsDelay   time.Duration
	PenaltyScore            int
	BlocksFromIDLimit       int
}

func DefaultConfig() *Config {
	return &Config{
		BlockSyncRequestLimit:   3,
		BlocksPerRequestLimit:   10,
		MaxFailedAttempts:       10,
		FastChainRequestLimit:   10,
		LoadTransactionsRetries: 5,
		LoadTransactionsDelay:   500 * time.Millisecond,
		PenaltyScore:            100,
		BlocksFromIDLimit:       103,
	}
}

// NewConfig builds a Config from the synchronizer settings, keeping the
// defaults for values that are not positive.
func NewConfig(tSettings *settings.Settings) *Config {
	c := DefaultConfig()
	if tSettings == nil {
		return c
	}

	s := tSettings.Synchronizer

	setPositive(&c.BlockSyncRequestLimit, s.BlockSyncRequestLimit)
	setPositive(&c.BlocksPerRequestLimit, s.BlocksPerRequestLimit)
	setPositive(&c.MaxFailedAttempts, s.MaxFailedAttempts)
	setPositive(&c.FastChainRequestLimit, s.FastChainRequestLimit)
	setPositive(&c.LoadTransactionsRetries, s.LoadTransactionsRetries)
	setPositive(&c.PenaltyScore, s.PenaltyScore)
	setPositive(&c.BlocksFromIDLimit, s.BlocksFromIDLimit)

	if s.LoadTransactionsDelay > 0 {
		c.LoadTransactionsDelay = s.LoadTransactionsDelay
	}

	return c
}

func setPositive(target *int, value int) {
	if value > 0 {
		*target = value
	}
}
