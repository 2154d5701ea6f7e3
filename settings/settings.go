package settings

import (
	"time"
)

const defaultEpoch = "2016-05-24T17:00:00Z"

func NewSettings() *Settings {
	epoch, err := time.Parse(time.RFC3339, getString("chain_epoch", defaultEpoch))
	if err != nil {
		panic(err)
	}

	return &Settings{
		ClientName: getString("clientName", "chainsync"),
		DataFolder: getString("dataFolder", "data"),
		LogLevel:   getString("logLevel", "INFO"),
		PrettyLogs: getBool("PRETTY_LOGS", true),
		Chain: ChainSettings{
			DelegatesPerRound: getUint32("chain_delegatesPerRound", 103),
			Delegates:         getMultiString("chain_delegates", "|"),
			BlockTime:         time.Duration(getInt("chain_blockTimeSeconds", 10)) * time.Second,
			Epoch:             epoch,
			StoreURL:          getURL("blockchain_store", "memory://"),
			HeaderCacheTTL:    time.Duration(getInt("blockchain_headerCacheTTLSeconds", 60)) * time.Second,

			PostgresMaxIdleConns: getInt("blockchain_postgresMaxIdleConns", 10),
			PostgresMaxOpenConns: getInt("blockchain_postgresMaxOpenConns", 80),
		},
		Synchronizer: SynchronizerSettings{
			BlockSyncRequestLimit:   getInt("synchronizer_blockSyncRequestLimit", 3),
			BlocksPerRequestLimit:   getInt("synchronizer_blocksPerRequestLimit", 10),
			MaxFailedAttempts:       getInt("synchronizer_maxFailedAttempts", 10),
			FastChainRequestLimit:   getInt("synchronizer_fastChainRequestLimit", 10),
			LoadTransactionsRetries: getInt("synchronizer_loadTransactionsRetries", 5),
			PenaltyScore:            getInt("synchronizer_penalty", 100),
			BlocksFromIDLimit:       getInt("synchronizer_blocksFromIdLimit", 103),
			LoadTransactionsDelay:   time.Duration(getInt("synchronizer_loadTransactionsDelayMillis", 500)) * time.Millisecond,
		},
	}
}
