package settings

import (
	"net/url"
	"time"
)

type Settings struct {
	ClientName   string
	DataFolder   string
	LogLevel     string
	PrettyLogs   bool
	Chain        ChainSettings
	Synchronizer SynchronizerSettings
}

type ChainSettings struct {
	// DelegatesPerRound is the round length used by the DPoS consensus.
	DelegatesPerRound uint32
	// Delegates are the hex encoded generator addresses of the active delegates.
	Delegates         []string
	BlockTime         time.Duration
	Epoch             time.Time
	StoreURL          *url.URL
	HeaderCacheTTL    time.Duration

	PostgresMaxIdleConns int
	PostgresMaxOpenConns int
}

type SynchronizerSettings struct {
	BlockSyncRequestLimit   int
	BlocksPerRequestLimit   int
	MaxFailedAttempts       int
	FastChainRequestLimit   int
	LoadTransactionsRetries int
	LoadTransactionsDelay   time.Duration
	PenaltyScore            int

	// BlocksFromIDLimit caps the page size served for getBlocksFromId.
	BlocksFromIDLimit int
}
