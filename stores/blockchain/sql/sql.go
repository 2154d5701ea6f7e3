// Package sql implements the blockchain store on top of postgres or sqlite.
package sql

import (
	"context"
	"database/sql"
	"net/url"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/settings"
	"github.com/bsv-blockchain/chainsync/stores/blockchain/headercache"
	"github.com/bsv-blockchain/chainsync/ulogger"
	"github.com/bsv-blockchain/chainsync/util"
	"github.com/bsv-blockchain/chainsync/util/usql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type SQL struct {
	db      *usql.DB
	engine  util.SQLEngine
	logger  ulogger.Logger
	headers *headercache.Cache
}

func New(logger ulogger.Logger, storeURL *url.URL, tSettings *settings.Settings) (*SQL, error) {
	logger = logger.New("bcsql")

	db, err := util.InitSQLDB(logger, storeURL, tSettings)
	if err != nil {
		return nil, errors.NewStorageUnavailableError("failed to init sql db", err)
	}

	engine := util.SQLEngine(storeURL.Scheme)

	switch engine {
	case util.Postgres:
		err = createSchema(db, "BYTEA")
	case util.Sqlite, util.SqliteMemory:
		err = createSchema(db, "BLOB")
	default:
		err = errors.NewConfigurationError("unknown database engine: %s", storeURL.Scheme)
	}

	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQL{
		db:      db,
		engine:  engine,
		logger:  logger,
		headers: headercache.New(tSettings.Chain.HeaderCacheTTL),
	}, nil
}

func (s *SQL) GetDBEngine() util.SQLEngine {
	return s.engine
}

func (s *SQL) Close() error {
	s.headers.Stop()
	return s.db.Close()
}

func createSchema(db *usql.DB, blobType string) error {
	if _, err := db.Exec(`
      CREATE TABLE IF NOT EXISTS blocks (
	     height       BIGINT PRIMARY KEY
	    ,hash         ` + blobType + ` NOT NULL UNIQUE
	    ,block_data   ` + blobType + ` NOT NULL
	  );
	`); err != nil {
		return errors.NewStorageError("could not create blocks table", err)
	}

	if _, err := db.Exec(`
      CREATE TABLE IF NOT EXISTS temp_blocks (
	     height       BIGINT PRIMARY KEY
	    ,hash         ` + blobType + ` NOT NULL
	    ,block_data   ` + blobType + ` NOT NULL
	  );
	`); err != nil {
		return errors.NewStorageError("could not create temp_blocks table", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_temp_blocks_hash ON temp_blocks (hash);`); err != nil {
		return errors.NewStorageError("could not create temp_blocks hash index", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanBlock returns nil, nil when the row does not exist.
func scanBlock(row rowScanner) (*model.Block, error) {
	var data []byte

	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		return nil, errors.NewStorageError("failed to read block", err)
	}

	block, err := model.NewBlockFromBytes(data)
	if err != nil {
		return nil, errors.NewStorageError("failed to decode stored block", err)
	}

	return block, nil
}

func (s *SQL) blockAt(ctx context.Context, height uint32) (*model.Block, error) {
	return scanBlock(s.db.QueryRowContext(ctx, `SELECT block_data FROM blocks WHERE height = $1`, height))
}
