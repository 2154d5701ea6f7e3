package blockchain

import (
	"net/url"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/settings"
	"github.com/bsv-blockchain/chainsync/stores/blockchain/leveldb"
	"github.com/bsv-blockchain/chainsync/stores/blockchain/memory"
	"github.com/bsv-blockchain/chainsync/stores/blockchain/sql"
	"github.com/bsv-blockchain/chainsync/ulogger"
)

func NewStore(logger ulogger.Logger, storeURL *url.URL, tSettings *settings.Settings) (Store, error) {
	if storeURL == nil {
		return nil, errors.NewConfigurationError("blockchain store url is not set")
	}

	switch storeURL.Scheme {
	case "memory":
		return memory.New(logger), nil
	case "leveldb":
		return leveldb.New(logger, storeURL, tSettings)
	case "postgres":
		fallthrough
	case "sqlitememory":
		fallthrough
	case "sqlite":
		return sql.New(logger, storeURL, tSettings)
	}

	return nil, errors.NewStorageError("unknown scheme: %s", storeURL.Scheme)
}
