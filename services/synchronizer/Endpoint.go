package synchronizer

import (
	"context"
	"encoding/hex"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/settings"
	"github.com/bsv-blockchain/chainsync/ulogger"
	"github.com/bsv-blockchain/go-bt/v2/chainhash"
	jsoniter "github.com/json-iterator/go"
)

// EndpointStore is the part of the block store needed to serve peers.
type EndpointStore interface {
	GetLastBlock(ctx context.Context) (*model.Block, error)
	GetBlocksFromID(ctx context.Context, blockID *chainhash.Hash, limit uint32) ([]*model.Block, error)
	GetHighestCommonBlockHeader(ctx context.Context, ids []*chainhash.Hash) (*model.BlockHeader, error)
}

// TransactionSource lists the unconfirmed transactions served by getTransactions.
type TransactionSource interface {
	GetTransactions(ctx context.Context) ([][]byte, error)
}

// Endpoint answers the procedures the synchronizer calls on other peers.
type Endpoint struct {
	logger            ulogger.Logger
	store             EndpointStore
	txSource          TransactionSource
	blocksFromIDLimit uint32
}

// NewEndpoint creates an Endpoint serving store. txSource may be nil, in
// which case no transactions are served.
func NewEndpoint(logger ulogger.Logger, tSettings *settings.Settings, store EndpointStore, txSource TransactionSource) *Endpoint {
	return &Endpoint{
		logger:            logger,
		store:             store,
		txSource:          txSource,
		blocksFromIDLimit: uint32(NewConfig(tSettings).BlocksFromIDLimit), //nolint:gosec // positive config value
	}
}

// Handle runs procedure with the JSON encoded data and returns the JSON
// encoded result.
func (e *Endpoint) Handle(ctx context.Context, procedure string, data jsoniter.RawMessage) (jsoniter.RawMessage, error) {
	var (
		result interface{}
		err    error
	)

	switch procedure {
	case ProcedureGetLastBlock:
		result, err = e.getLastBlock(ctx)
	case ProcedureGetBlocksFromID:
		result, err = e.getBlocksFromID(ctx, data)
	case ProcedureGetHighestCommonBlock:
		result, err = e.getHighestCommonBlock(ctx, data)
	case ProcedureGetTransactions:
		result, err = e.getTransactions(ctx)
	default:
		return nil, errors.NewInvalidArgumentError("[Handle] unknown procedure %q", procedure)
	}

	if err != nil {
		e.logger.Debugf("[Handle][%s] %v", procedure, err)
		return nil, err
	}

	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, errors.NewProcessingError("[Handle][%s] could not encode result", procedure, err)
	}

	return encoded, nil
}

func (e *Endpoint) getLastBlock(ctx context.Context) (interface{}, error) {
	block, err := e.store.GetLastBlock(ctx)
	if err != nil {
		return nil, err
	}

	return encodeBlock(block), nil
}

func (e *Endpoint) getBlocksFromID(ctx context.Context, data jsoniter.RawMessage) (interface{}, error) {
	var request GetBlocksFromIDRequest
	if err := json.Unmarshal(data, &request); err != nil {
		return nil, errors.NewInvalidArgumentError("[getBlocksFromID] invalid request", err)
	}

	blockID, err := chainhash.NewHashFromStr(request.BlockID)
	if err != nil {
		return nil, errors.NewInvalidArgumentError("[getBlocksFromID] invalid block id %q", request.BlockID, err)
	}

	blocks, err := e.store.GetBlocksFromID(ctx, blockID, e.blocksFromIDLimit)
	if err != nil {
		return nil, err
	}

	encoded := make([]string, 0, len(blocks))
	for _, block := range blocks {
		encoded = append(encoded, encodeBlock(block))
	}

	return encoded, nil
}

func (e *Endpoint) getHighestCommonBlock(ctx context.Context, data jsoniter.RawMessage) (interface{}, error) {
	var request GetHighestCommonBlockRequest
	if err := json.Unmarshal(data, &request); err != nil {
		return nil, errors.NewInvalidArgumentError("[getHighestCommonBlock] invalid request", err)
	}

	if len(request.IDs) == 0 {
		return nil, errors.NewInvalidArgumentError("[getHighestCommonBlock] no block ids given")
	}

	ids, err := decodeIDs(request.IDs)
	if err != nil {
		return nil, err
	}

	header, err := e.store.GetHighestCommonBlockHeader(ctx, ids)
	if err != nil {
		return nil, err
	}

	if header == nil {
		return nil, nil
	}

	return encodeHeader(header), nil
}

func (e *Endpoint) getTransactions(ctx context.Context) (interface{}, error) {
	response := &GetTransactionsResponse{Transactions: []string{}}

	if e.txSource == nil {
		return response, nil
	}

	transactions, err := e.txSource.GetTransactions(ctx)
	if err != nil {
		return nil, err
	}

	for _, tx := range transactions {
		response.Transactions = append(response.Transactions, hex.EncodeToString(tx))
	}

	return response, nil
}
