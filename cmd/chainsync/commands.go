package main

import (
	"encoding/hex"
	"net/url"

	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
	"github.com/bsv-blockchain/chainsync/services/consensus"
	"github.com/bsv-blockchain/chainsync/services/processor"
	"github.com/bsv-blockchain/chainsync/services/synchronizer"
	"github.com/bsv-blockchain/chainsync/settings"
	"github.com/bsv-blockchain/chainsync/stores/blockchain"
	"github.com/bsv-blockchain/chainsync/ulogger"
	jsoniter "github.com/json-iterator/go"
	"github.com/urfave/cli/v2"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type headerJSON struct {
	ID                 string `json:"id"`
	Version            uint32 `json:"version"`
	Height             uint32 `json:"height"`
	PreviousBlockID    string `json:"previousBlockId"`
	Timestamp          uint32 `json:"timestamp"`
	MaxHeightPrevoted  uint32 `json:"maxHeightPrevoted"`
	MaxHeightGenerated uint32 `json:"maxHeightGenerated"`
	GeneratorAddress   string `json:"generatorAddress"`
}

func newHeaderJSON(header *model.BlockHeader) *headerJSON {
	h := &headerJSON{
		ID:                 header.Hash().String(),
		Version:            header.Version,
		Height:             header.Height,
		Timestamp:          header.Timestamp,
		MaxHeightPrevoted:  header.MaxHeightPrevoted,
		MaxHeightGenerated: header.MaxHeightGenerated,
		GeneratorAddress:   hex.EncodeToString(header.GeneratorAddress),
	}

	if header.PreviousBlockID != nil {
		h.PreviousBlockID = header.PreviousBlockID.String()
	}

	return h
}

// node is what every command works on, opened from the global flags.
type node struct {
	logger    ulogger.Logger
	tSettings *settings.Settings
	chain     *blockchain.Chain
}

func openNode(c *cli.Context) (*node, error) {
	tSettings := settings.NewSettings()

	if rawURL := c.String("store"); rawURL != "" {
		storeURL, err := url.Parse(rawURL)
		if err != nil {
			return nil, errors.NewConfigurationError("invalid store url %q", rawURL, err)
		}

		tSettings.Chain.StoreURL = storeURL
	}

	logger := ulogger.New("chainsync", ulogger.WithLevel(c.String("loglevel")), ulogger.WithWriter(c.App.ErrWriter), ulogger.WithPrettyLogs(true))

	store, err := blockchain.NewStore(logger, tSettings.Chain.StoreURL, tSettings)
	if err != nil {
		return nil, err
	}

	slots := model.NewSlots(tSettings.Chain.Epoch, tSettings.Chain.BlockTime)

	// an empty store has no tip, no genesis is stored by the tool
	chain, err := blockchain.NewChain(c.Context, store, slots, nil)
	if err != nil {
		_ = store.Close()
		return nil, errors.NewStorageError("could not load the chain from %s", tSettings.Chain.StoreURL, err)
	}

	return &node{
		logger:    logger,
		tSettings: tSettings,
		chain:     chain,
	}, nil
}

func (n *node) close() {
	if err := n.chain.Close(); err != nil {
		n.logger.Errorf("failed to close the block store: %v", err)
	}
}

func writeJSON(c *cli.Context, v interface{}) error {
	return json.NewEncoder(c.App.Writer).Encode(v)
}

func tip(c *cli.Context) error {
	n, err := openNode(c)
	if err != nil {
		return err
	}
	defer n.close()

	return writeJSON(c, newHeaderJSON(n.chain.LastBlock().Header))
}

func header(c *cli.Context) error {
	n, err := openNode(c)
	if err != nil {
		return err
	}
	defer n.close()

	h, err := n.chain.GetBlockHeaderByHeight(c.Context, uint32(c.Uint("height"))) //nolint:gosec // heights fit in uint32
	if err != nil {
		return err
	}

	return writeJSON(c, newHeaderJSON(h))
}

func listTemp(c *cli.Context) error {
	n, err := openNode(c)
	if err != nil {
		return err
	}
	defer n.close()

	blocks, err := n.chain.GetTempBlocks(c.Context)
	if err != nil {
		return err
	}

	headers := make([]*headerJSON, 0, len(blocks))
	for _, block := range blocks {
		headers = append(headers, newHeaderJSON(block.Header))
	}

	return writeJSON(c, headers)
}

func heights(c *cli.Context) error {
	n, err := openNode(c)
	if err != nil {
		return err
	}
	defer n.close()

	dpos, err := consensus.New(n.tSettings)
	if err != nil {
		return err
	}

	config := synchronizer.NewConfig(n.tSettings)
	currentRound := dpos.CalcRound(n.chain.LastBlock().Height())

	return writeJSON(c, synchronizer.ComputeBlockHeightsList(uint32(c.Uint("finalized")), dpos.DelegatesPerRound(), //nolint:gosec // heights fit in uint32
		uint32(config.BlocksPerRequestLimit), currentRound)) //nolint:gosec // positive config value
}

func recoverTemp(c *cli.Context) error {
	n, err := openNode(c)
	if err != nil {
		return err
	}
	defer n.close()

	dpos, err := consensus.New(n.tSettings)
	if err != nil {
		return err
	}

	// Init only touches the chain and the temp block area
	s := synchronizer.New(n.logger, n.tSettings, n.chain, processor.New(n.logger, n.chain), nil, dpos, nil, nil)
	s.Init(c.Context)

	isEmpty, err := n.chain.IsTempBlockEmpty(c.Context)
	if err != nil {
		return err
	}

	if !isEmpty {
		return errors.NewProcessingError("temp block area could not be handled, see the log for details")
	}

	return writeJSON(c, newHeaderJSON(n.chain.LastBlock().Header))
}

func clearTemp(c *cli.Context) error {
	n, err := openNode(c)
	if err != nil {
		return err
	}
	defer n.close()

	return n.chain.ClearTempBlocks(c.Context)
}
