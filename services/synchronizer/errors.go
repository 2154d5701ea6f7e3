package synchronizer

import (
	"github.com/bsv-blockchain/chainsync/errors"
	"github.com/bsv-blockchain/chainsync/model"
)

// errBlockProcessing marks a candidate block that failed to apply. It is
// always turned into one of the sync outcomes by the mechanism that raised it.
var errBlockProcessing = errors.New(errors.ERR_SYNC_BLOCK_PROCESSING, "block processing failed")

func NewAbortError(reason string, params ...interface{}) error {
	return errors.NewSyncAbortError(reason, params...)
}

func NewRestartError(reason string, params ...interface{}) error {
	return errors.NewSyncRestartError(reason, params...)
}

func NewApplyPenaltyAndRestartError(peerID string, reason string, params ...interface{}) error {
	return errors.NewSyncApplyPenaltyAndRestartError(peerID, reason, params...)
}

func NewApplyPenaltyAndAbortError(peerID string, reason string, params ...interface{}) error {
	return errors.NewSyncApplyPenaltyAndAbortError(peerID, reason, params...)
}

// PeerIDFromError returns the peer a sync outcome blames, "" if none.
func PeerIDFromError(err error) string {
	return errors.PeerIDFromError(err)
}

func newBlockProcessingError(block *model.Block, err error) error {
	return errors.New(errors.ERR_SYNC_BLOCK_PROCESSING, "failed to apply block %s", block, err)
}

func isBlockProcessingError(err error) bool {
	return errors.Is(err, errBlockProcessing)
}
