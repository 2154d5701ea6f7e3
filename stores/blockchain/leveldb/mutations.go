package leveldb

import (
	"context"
	"encoding/binary"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/stores/blockchain/options"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	"github.com/btcsuite/goleveldb/leveldb"
	"github.com/btcsuite/goleveldb/leveldb/util"
)

func (s *LevelDB) StoreBlock(_ context.Context, block *model.Block, opts ...options.StoreBlockOption) error {
	storeOpts := options.ProcessStoreBlockOptions(opts...)

	s.mu.Lock()
	defer s.mu.Unlock()

	meta := &chainMeta{
		BaseHeight: block.Height(),
		Height:     block.Height(),
		ID:         block.Hash().String(),
	}

	if s.meta != nil {
		tip, err := s.blockAt(s.meta.Height)
		if err != nil {
			return err
		}

		if !block.Header.HasPrevious(tip.Header) {
			return errors.NewBlockInvalidError("[leveldb] block %s does not extend tip %s", block, tip)
		}

		meta.BaseHeight = s.meta.BaseHeight
	}

	batch := new(leveldb.Batch)

	heightBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(heightBytes, block.Height())

	batch.Put(heightKey(prefixBlock, block.Height()), block.Bytes())
	batch.Put(idKey(block.Hash()), heightBytes)

	if storeOpts.RemoveFromTempTable {
		if err := s.removeTempBlock(batch, block.Hash()); err != nil {
			return err
		}
	}

	if err := s.putMeta(batch, meta); err != nil {
		return err
	}

	if err := s.db.Write(batch, nil); err != nil {
		return errors.NewStorageError("[leveldb] could not store block %s", block, err)
	}

	s.meta = meta
	s.headers.DeleteAll()

	return nil
}

func (s *LevelDB) DeleteLastBlock(_ context.Context, opts ...options.DeleteBlockOption) (*model.Block, error) {
	deleteOpts := options.ProcessDeleteBlockOptions(opts...)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.meta == nil || s.meta.Height <= s.meta.BaseHeight {
		return nil, errors.NewInvalidArgumentError("[leveldb] cannot delete the first block of the chain")
	}

	tip, err := s.blockAt(s.meta.Height)
	if err != nil {
		return nil, err
	}

	newTip, err := s.blockAt(s.meta.Height - 1)
	if err != nil {
		return nil, err
	}

	batch := new(leveldb.Batch)

	batch.Delete(heightKey(prefixBlock, tip.Height()))
	batch.Delete(idKey(tip.Hash()))

	if deleteOpts.SaveTempBlock {
		batch.Put(heightKey(prefixTemp, tip.Height()), tip.Bytes())
	}

	meta := &chainMeta{
		BaseHeight: s.meta.BaseHeight,
		Height:     newTip.Height(),
		ID:         newTip.Hash().String(),
	}

	if err = s.putMeta(batch, meta); err != nil {
		return nil, err
	}

	if err = s.db.Write(batch, nil); err != nil {
		return nil, errors.NewStorageError("[leveldb] could not delete block %s", tip, err)
	}

	s.meta = meta
	s.headers.DeleteAll()

	s.logger.Debugf("[leveldb] deleted block %s, saved to temp area: %t", tip, deleteOpts.SaveTempBlock)

	return newTip, nil
}

func (s *LevelDB) StoreTempBlock(_ context.Context, block *model.Block) error {
	if err := s.db.Put(heightKey(prefixTemp, block.Height()), block.Bytes(), nil); err != nil {
		return errors.NewStorageError("[leveldb] could not store temp block %s", block, err)
	}

	return nil
}

func (s *LevelDB) tempRange() *util.Range {
	return util.BytesPrefix([]byte{prefixTemp})
}

func (s *LevelDB) GetTempBlocks(_ context.Context) ([]*model.Block, error) {
	iter := s.db.NewIterator(s.tempRange(), nil)
	defer iter.Release()

	var blocks []*model.Block

	for iter.Next() {
		block, err := model.NewBlockFromBytes(iter.Value())
		if err != nil {
			return nil, errors.NewStorageError("[leveldb] corrupted temp block at key %x", iter.Key(), err)
		}

		blocks = append(blocks, block)
	}

	if err := iter.Error(); err != nil {
		return nil, errors.NewStorageError("[leveldb] error iterating temp blocks", err)
	}

	// big endian height keys iterate in ascending height order
	return blocks, nil
}

func (s *LevelDB) RemoveTempBlock(_ context.Context, blockID *chainhash.Hash) error {
	batch := new(leveldb.Batch)

	if err := s.removeTempBlock(batch, blockID); err != nil {
		return err
	}

	if err := s.db.Write(batch, nil); err != nil {
		return errors.NewStorageError("[leveldb] could not remove temp block %s", blockID, err)
	}

	return nil
}

func (s *LevelDB) removeTempBlock(batch *leveldb.Batch, blockID *chainhash.Hash) error {
	iter := s.db.NewIterator(s.tempRange(), nil)
	defer iter.Release()

	for iter.Next() {
		block, err := model.NewBlockFromBytes(iter.Value())
		if err != nil {
			return errors.NewStorageError("[leveldb] corrupted temp block at key %x", iter.Key(), err)
		}

		if block.Hash().IsEqual(blockID) {
			batch.Delete(append([]byte{}, iter.Key()...))
		}
	}

	return iter.Error()
}

func (s *LevelDB) ClearTempBlocks(_ context.Context) error {
	iter := s.db.NewIterator(s.tempRange(), nil)
	defer iter.Release()

	batch := new(leveldb.Batch)

	for iter.Next() {
		batch.Delete(append([]byte{}, iter.Key()...))
	}

	if err := iter.Error(); err != nil {
		return errors.NewStorageError("[leveldb] error iterating temp blocks", err)
	}

	if err := s.db.Write(batch, nil); err != nil {
		return errors.NewStorageError("[leveldb] could not clear temp blocks", err)
	}

	return nil
}

func (s *LevelDB) IsTempBlockEmpty(_ context.Context) (bool, error) {
	iter := s.db.NewIterator(s.tempRange(), nil)
	defer iter.Release()

	empty := !iter.Next()

	if err := iter.Error(); err != nil {
		return false, errors.NewStorageError("[leveldb] error iterating temp blocks", err)
	}

	return empty, nil
}

func (s *LevelDB) Close() error {
	s.headers.Stop()

	if err := s.db.Close(); err != nil {
		return errors.NewStorageError("[leveldb] could not close database", err)
	}

	return nil
}
