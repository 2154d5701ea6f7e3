// Package leveldb persists the main chain and the temp block area in a
// goleveldb database.
//
// Key layout:
//
//	b<height>  main chain block bytes
//	i<id>      height of a main chain block
//	t<height>  temp area block bytes
//	m:chain    json encoded chain metadata
package leveldb

import (
	"context"
	"encoding/binary"
	"net/url"
	"path/filepath"
	"sync"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/settings"
	"github.com/bsv-blockchain/chainsync/stores/blockchain/headercache"
	"github.com/bsv-blockchain/chainsync/ulogger"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/btcsuite/goleveldb/leveldb"
	"github.com/btcsuite/goleveldb/leveldb/opt"
	"github.com/btcsuite/goleveldb/leveldb/storage"
	"github.com/btcsuite/goleveldb/leveldb/util"
	jsoniter "github.com/json-iterator/go"
)

const (
	prefixBlock = 'b'
	prefixID    = 'i'
	prefixTemp  = 't'
)

var (
	keyChainMeta = []byte("m:chain")
	json         = jsoniter.ConfigCompatibleWithStandardLibrary
)

type chainMeta struct {
	BaseHeight uint32 `json:"baseHeight"`
	Height     uint32 `json:"height"`
	ID         string `json:"id"`
}

type LevelDB struct {
	mu      sync.RWMutex
	logger  ulogger.Logger
	db      *leveldb.DB
	headers *headercache.Cache
	meta    *chainMeta
}

// New opens the store described by storeURL. leveldb://memory keeps the
// database in memory, otherwise the url path is used as the database folder,
// falling back to <dataFolder>/blockchain.
func New(logger ulogger.Logger, storeURL *url.URL, tSettings *settings.Settings) (*LevelDB, error) {
	var (
		db  *leveldb.DB
		err error
	)

	opts := &opt.Options{
		Compression: opt.SnappyCompression,
	}

	if storeURL.Host == "memory" {
		db, err = leveldb.Open(storage.NewMemStorage(), opts)
	} else {
		folder := storeURL.Path
		if folder == "" || folder == "/" {
			folder = filepath.Join(tSettings.DataFolder, "blockchain")
		}

		logger.Infof("[leveldb] opening blockchain store at %s", folder)

		db, err = leveldb.OpenFile(folder, opts)
	}

	if err != nil {
		return nil, errors.NewStorageUnavailableError("[leveldb] could not open database", err)
	}

	s := &LevelDB{
		logger:  logger,
		db:      db,
		headers: headercache.New(tSettings.Chain.HeaderCacheTTL),
	}

	if err = s.loadMeta(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func heightKey(prefix byte, height uint32) []byte {
	key := make([]byte, 5)
	key[0] = prefix
	binary.BigEndian.PutUint32(key[1:], height)

	return key
}

func idKey(id *chainhash.Hash) []byte {
	return append([]byte{prefixID}, id.CloneBytes()...)
}

func (s *LevelDB) loadMeta() error {
	data, err := s.db.Get(keyChainMeta, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil
	}

	if err != nil {
		return errors.NewStorageError("[leveldb] could not read chain metadata", err)
	}

	meta := &chainMeta{}
	if err = json.Unmarshal(data, meta); err != nil {
		return errors.NewStorageError("[leveldb] could not decode chain metadata", err)
	}

	s.meta = meta

	return nil
}

func (s *LevelDB) putMeta(batch *leveldb.Batch, meta *chainMeta) error {
	if meta == nil {
		batch.Delete(keyChainMeta)
		return nil
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return errors.NewStorageError("[leveldb] could not encode chain metadata", err)
	}

	batch.Put(keyChainMeta, data)

	return nil
}

func (s *LevelDB) readBlock(key []byte) (*model.Block, error) {
	data, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, errors.NewStorageError("[leveldb] could not read key %x", key, err)
	}

	block, err := model.NewBlockFromBytes(data)
	if err != nil {
		return nil, errors.NewStorageError("[leveldb] corrupted block at key %x", key, err)
	}

	return block, nil
}

func (s *LevelDB) GetLastBlock(_ context.Context) (*model.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.meta == nil {
		return nil, errors.NewBlockNotFoundError("[leveldb] chain is empty")
	}

	return s.blockAt(s.meta.Height)
}

func (s *LevelDB) blockAt(height uint32) (*model.Block, error) {
	block, err := s.readBlock(heightKey(prefixBlock, height))
	if err != nil {
		return nil, err
	}

	if block == nil {
		return nil, errors.NewBlockNotFoundError("[leveldb] no block at height %d", height)
	}

	return block, nil
}

func (s *LevelDB) heightOf(id *chainhash.Hash) (uint32, bool, error) {
	data, err := s.db.Get(idKey(id), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, false, nil
	}

	if err != nil {
		return 0, false, errors.NewStorageError("[leveldb] could not read height of %s", id, err)
	}

	return binary.BigEndian.Uint32(data), true, nil
}

func (s *LevelDB) GetBlock(_ context.Context, blockID *chainhash.Hash) (*model.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	height, ok, err := s.heightOf(blockID)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, errors.NewBlockNotFoundError("[leveldb] block %s not found", blockID)
	}

	return s.blockAt(height)
}

func (s *LevelDB) GetBlockByHeight(_ context.Context, height uint32) (*model.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.blockAt(height)
}

func (s *LevelDB) GetBlockHeaderByHeight(_ context.Context, height uint32) (*model.BlockHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	header, err := s.headerAt(height)
	if err != nil {
		return nil, err
	}

	if header == nil {
		return nil, errors.NewBlockNotFoundError("[leveldb] no block at height %d", height)
	}

	return header, nil
}

// headerAt returns nil when the height is not on the main chain.
func (s *LevelDB) headerAt(height uint32) (*model.BlockHeader, error) {
	op := s.headers.Begin(height)
	if header := op.Get(); header != nil {
		return header, nil
	}

	block, err := s.readBlock(heightKey(prefixBlock, height))
	if err != nil || block == nil {
		return nil, err
	}

	op.Set(block.Header)

	return block.Header, nil
}

func (s *LevelDB) GetBlockHeadersWithHeights(_ context.Context, heights []uint32) ([]*model.BlockHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	headers := make([]*model.BlockHeader, 0, len(heights))

	for _, height := range heights {
		header, err := s.headerAt(height)
		if err != nil {
			return nil, err
		}

		if header != nil {
			headers = append(headers, header)
		}
	}

	return headers, nil
}

func (s *LevelDB) GetBlocksFromID(_ context.Context, blockID *chainhash.Hash, limit uint32) ([]*model.Block, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	height, ok, err := s.heightOf(blockID)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, errors.NewBlockNotFoundError("[leveldb] block %s not found", blockID)
	}

	blocks := make([]*model.Block, 0, limit)

	iter := s.db.NewIterator(&util.Range{
		Start: heightKey(prefixBlock, height+1),
		Limit: heightKey(prefixBlock+1, 0),
	}, nil)
	defer iter.Release()

	for iter.Next() && uint32(len(blocks)) < limit { //nolint:gosec // bounded by limit
		block, err := model.NewBlockFromBytes(iter.Value())
		if err != nil {
			return nil, errors.NewStorageError("[leveldb] corrupted block at key %x", iter.Key(), err)
		}

		blocks = append(blocks, block)
	}

	if err = iter.Error(); err != nil {
		return nil, errors.NewStorageError("[leveldb] error iterating blocks from %s", blockID, err)
	}

	return blocks, nil
}

func (s *LevelDB) GetHighestCommonBlockHeader(_ context.Context, ids []*chainhash.Hash) (*model.BlockHeader, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		highest uint32
		found   bool
	)

	for _, id := range ids {
		height, ok, err := s.heightOf(id)
		if err != nil {
			return nil, err
		}

		if ok && (!found || height > highest) {
			highest = height
			found = true
		}
	}

	if !found {
		return nil, nil
	}

	return s.headerAt(highest)
}
