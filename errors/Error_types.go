package errors

// Sentinels for errors.Is checks, only the code is compared.
var (
	ErrProcessing         = New(ERR_PROCESSING, "error processing")
	ErrBlockNotFound      = New(ERR_BLOCK_NOT_FOUND, "block not found")
	ErrBlockInvalid       = New(ERR_BLOCK_INVALID, "block invalid")
	ErrStorageError       = New(ERR_STORAGE_ERROR, "storage error")
	ErrNetworkTimeout     = New(ERR_NETWORK_TIMEOUT, "network timeout")
	ErrSyncAbort          = New(ERR_SYNC_ABORT, "synchronization aborted")
	ErrSyncRestart        = New(ERR_SYNC_RESTART, "synchronization restart")
	ErrSyncPenaltyRestart = New(ERR_SYNC_APPLY_PENALTY_AND_RESTART, "apply penalty and restart synchronization")
	ErrSyncPenaltyAbort   = New(ERR_SYNC_APPLY_PENALTY_AND_ABORT, "apply penalty and abort synchronization")
	ErrSyncInProgress     = New(ERR_SYNC_IN_PROGRESS, "synchronization in progress")
)

func NewInvalidArgumentError(message string, params ...interface{}) error {
	return New(ERR_INVALID_ARGUMENT, message, params...)
}

func NewProcessingError(message string, params ...interface{}) error {
	return New(ERR_PROCESSING, message, params...)
}

func NewConfigurationError(message string, params ...interface{}) error {
	return New(ERR_CONFIGURATION, message, params...)
}

func NewContextCanceledError(message string, params ...interface{}) error {
	return New(ERR_CONTEXT_CANCELED, message, params...)
}

func NewBlockNotFoundError(message string, params ...interface{}) error {
	return New(ERR_BLOCK_NOT_FOUND, message, params...)
}

func NewBlockInvalidError(message string, params ...interface{}) error {
	return New(ERR_BLOCK_INVALID, message, params...)
}

func NewServiceError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_ERROR, message, params...)
}

func NewStorageUnavailableError(message string, params ...interface{}) error {
	return New(ERR_STORAGE_UNAVAILABLE, message, params...)
}

func NewStorageError(message string, params ...interface{}) error {
	return New(ERR_STORAGE_ERROR, message, params...)
}

func NewNetworkError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_ERROR, message, params...)
}

func NewNetworkTimeoutError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_TIMEOUT, message, params...)
}

// NewNetworkInvalidResponseError blames the peer for the content of its
// response, not for the request failing.
func NewNetworkInvalidResponseError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_INVALID_RESPONSE, message, params...)
}

func NewNetworkPeerMaliciousError(message string, params ...interface{}) error {
	return New(ERR_NETWORK_PEER_MALICIOUS, message, params...)
}

func NewSyncInProgressError(message string, params ...interface{}) error {
	return New(ERR_SYNC_IN_PROGRESS, message, params...)
}
