package errors

// PeerIDKey is the ErrData key holding the id of the peer a sync error blames.
const PeerIDKey = "peer_id"

// NewSyncAbortError signals that the current synchronization attempt must stop
// without penalizing anyone and without restarting.
func NewSyncAbortError(reason string, params ...interface{}) error {
	return New(ERR_SYNC_ABORT, reason, params...)
}

// NewSyncRestartError signals that synchronization must be triggered again with
// the originally received block.
func NewSyncRestartError(reason string, params ...interface{}) error {
	return New(ERR_SYNC_RESTART, reason, params...)
}

// NewSyncApplyPenaltyAndRestartError blames peerID and asks for a new
// synchronization attempt with the originally received block.
func NewSyncApplyPenaltyAndRestartError(peerID string, reason string, params ...interface{}) error {
	err := New(ERR_SYNC_APPLY_PENALTY_AND_RESTART, reason, params...)
	err.SetData(PeerIDKey, peerID)

	return err
}

// NewSyncApplyPenaltyAndAbortError blames peerID and stops the attempt.
func NewSyncApplyPenaltyAndAbortError(peerID string, reason string, params ...interface{}) error {
	err := New(ERR_SYNC_APPLY_PENALTY_AND_ABORT, reason, params...)
	err.SetData(PeerIDKey, peerID)

	return err
}

// PeerIDFromError returns the peer blamed by a sync error, or "" when err
// carries none.
func PeerIDFromError(err error) string {
	var tErr *Error
	if !As(err, &tErr) {
		return ""
	}

	for tErr != nil {
		if peerID, ok := tErr.GetData(PeerIDKey).(string); ok {
			return peerID
		}

		next, ok := tErr.wrappedErr.(*Error)
		if !ok {
			return ""
		}

		tErr = next
	}

	return ""
}
