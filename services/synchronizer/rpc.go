package synchronizer

import (
	"bytes"
	"context"
	"encoding/hex"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func isEmptyData(data jsoniter.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func encodeBlock(block *model.Block) string {
	return hex.EncodeToString(block.Bytes())
}

func encodeHeader(header *model.BlockHeader) string {
	return hex.EncodeToString(header.Bytes())
}

func encodeIDs(headers []*model.BlockHeader) []string {
	ids := make([]string, 0, len(headers))
	for _, header := range headers {
		ids = append(ids, header.Hash().String())
	}

	return ids
}

func decodeIDs(ids []string) ([]*chainhash.Hash, error) {
	hashes := make([]*chainhash.Hash, 0, len(ids))

	for _, id := range ids {
		hash, err := chainhash.NewHashFromStr(id)
		if err != nil {
			return nil, errors.NewInvalidArgumentError("invalid block id %q", id, err)
		}

		hashes = append(hashes, hash)
	}

	return hashes, nil
}

func decodeBlock(ctx context.Context, processor Processor, data jsoniter.RawMessage) (*model.Block, error) {
	var blockHex string
	if err := json.Unmarshal(data, &blockHex); err != nil {
		return nil, errors.NewNetworkInvalidResponseError("block is not a hex string", err)
	}

	raw, err := hex.DecodeString(blockHex)
	if err != nil {
		return nil, errors.NewNetworkInvalidResponseError("block is not a hex string", err)
	}

	return processor.Deserialize(ctx, raw)
}

func decodeBlocks(ctx context.Context, processor Processor, data jsoniter.RawMessage) ([]*model.Block, error) {
	var blocksHex []string
	if err := json.Unmarshal(data, &blocksHex); err != nil {
		return nil, errors.NewNetworkInvalidResponseError("blocks are not a list of hex strings", err)
	}

	blocks := make([]*model.Block, 0, len(blocksHex))

	for _, blockHex := range blocksHex {
		raw, err := hex.DecodeString(blockHex)
		if err != nil {
			return nil, errors.NewNetworkInvalidResponseError("block is not a hex string", err)
		}

		block, err := processor.Deserialize(ctx, raw)
		if err != nil {
			return nil, err
		}

		blocks = append(blocks, block)
	}

	return blocks, nil
}

func decodeHeader(data jsoniter.RawMessage) (*model.BlockHeader, error) {
	var headerHex string
	if err := json.Unmarshal(data, &headerHex); err != nil {
		return nil, errors.NewNetworkInvalidResponseError("block header is not a hex string", err)
	}

	header, err := model.NewBlockHeaderFromString(headerHex)
	if err != nil {
		return nil, errors.NewNetworkInvalidResponseError("invalid block header", err)
	}

	return header, nil
}
