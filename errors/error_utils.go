package errors

import (
	"context"
	"errors"
	"strings"
)

// IsNetworkError determines if an error is network-related, either by code or,
// for errors coming from outside this package, by message.
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}

	switch CodeOf(err) {
	case ERR_NETWORK_ERROR,
		ERR_NETWORK_TIMEOUT,
		ERR_NETWORK_CONNECTION_REFUSED,
		ERR_NETWORK_INVALID_RESPONSE,
		ERR_NETWORK_PEER_MALICIOUS:
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, s := range []string{"connection refused", "connection reset", "no such host", "broken pipe", "i/o timeout"} {
		if strings.Contains(errStr, s) {
			return true
		}
	}

	return false
}

// IsMaliciousResponseError reports whether err blames a peer for what it sent,
// as opposed to it being unreachable.
func IsMaliciousResponseError(err error) bool {
	var tErr *Error
	if !As(err, &tErr) {
		return false
	}

	for tErr != nil {
		switch tErr.Code() {
		case ERR_NETWORK_PEER_MALICIOUS, ERR_NETWORK_INVALID_RESPONSE:
			return true
		}

		next, ok := tErr.wrappedErr.(*Error)
		if !ok {
			return false
		}

		tErr = next
	}

	return false
}

// IsContextError determines if an error is related to context cancellation or deadline.
func IsContextError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	switch CodeOf(err) {
	case ERR_CONTEXT, ERR_CONTEXT_CANCELED:
		return true
	}

	return false
}

// GetErrorCategory returns a short label for err, used as a metric label.
// A nil error is "none", which the synchronizer uses for empty peer responses.
func GetErrorCategory(err error) string {
	if err == nil {
		return "none"
	}

	if IsContextError(err) {
		return "context"
	}

	if IsMaliciousResponseError(err) {
		return "malicious"
	}

	if IsNetworkError(err) {
		return "network"
	}

	var tErr *Error
	if As(err, &tErr) {
		code := tErr.Code()
		switch {
		case code >= 10 && code <= 19:
			return "block"
		case code >= 50 && code <= 59:
			return "service"
		case code >= 60 && code <= 69:
			return "storage"
		case code >= 120 && code <= 129:
			return "sync"
		}
	}

	return "unknown"
}

// IsSyncOutcome reports whether err carries one of the synchronization
// outcome codes (abort, restart, penalize and restart, penalize and abort).
func IsSyncOutcome(err error) bool {
	switch CodeOf(err) {
	case ERR_SYNC_ABORT,
		ERR_SYNC_RESTART,
		ERR_SYNC_APPLY_PENALTY_AND_RESTART,
		ERR_SYNC_APPLY_PENALTY_AND_ABORT:
		return true
	}

	return false
}
