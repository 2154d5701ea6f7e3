package errors

import "strconv"

// ERR is the error code carried by every *Error.
//
// Codes are grouped in ranges so that GetErrorCategory can bucket them:
// 0-9 generic, 10-19 block, 50-59 service, 60-69 storage, 110-119 network,
// 120-129 synchronization.
type ERR int32

//nolint:revive,stylecheck // upper case names mirror the wire enum
const (
	ERR_UNKNOWN            ERR = 0
	ERR_INVALID_ARGUMENT   ERR = 1
	ERR_THRESHOLD_EXCEEDED ERR = 2
	ERR_NOT_FOUND          ERR = 3
	ERR_PROCESSING         ERR = 4
	ERR_CONFIGURATION      ERR = 5
	ERR_CONTEXT            ERR = 6
	ERR_CONTEXT_CANCELED   ERR = 7
	ERR_ERROR              ERR = 9

	ERR_BLOCK_NOT_FOUND ERR = 10
	ERR_BLOCK_INVALID   ERR = 11
	ERR_BLOCK_EXISTS    ERR = 12
	ERR_BLOCK_ERROR     ERR = 13

	ERR_SERVICE_UNAVAILABLE ERR = 50
	ERR_SERVICE_NOT_STARTED ERR = 51
	ERR_SERVICE_ERROR       ERR = 52

	ERR_STORAGE_UNAVAILABLE ERR = 60
	ERR_STORAGE_NOT_STARTED ERR = 61
	ERR_STORAGE_ERROR       ERR = 62

	ERR_NETWORK_ERROR              ERR = 110
	ERR_NETWORK_TIMEOUT            ERR = 111
	ERR_NETWORK_CONNECTION_REFUSED ERR = 112
	ERR_NETWORK_INVALID_RESPONSE   ERR = 113
	ERR_NETWORK_PEER_MALICIOUS     ERR = 114

	ERR_SYNC_ABORT                     ERR = 120
	ERR_SYNC_RESTART                   ERR = 121
	ERR_SYNC_APPLY_PENALTY_AND_RESTART ERR = 122
	ERR_SYNC_APPLY_PENALTY_AND_ABORT   ERR = 123
	ERR_SYNC_BLOCK_PROCESSING          ERR = 124
	ERR_SYNC_IN_PROGRESS               ERR = 125
)

//nolint:revive,stylecheck
var ERR_name = map[int32]string{
	0:   "UNKNOWN",
	1:   "INVALID_ARGUMENT",
	2:   "THRESHOLD_EXCEEDED",
	3:   "NOT_FOUND",
	4:   "PROCESSING",
	5:   "CONFIGURATION",
	6:   "CONTEXT",
	7:   "CONTEXT_CANCELED",
	9:   "ERROR",
	10:  "BLOCK_NOT_FOUND",
	11:  "BLOCK_INVALID",
	12:  "BLOCK_EXISTS",
	13:  "BLOCK_ERROR",
	50:  "SERVICE_UNAVAILABLE",
	51:  "SERVICE_NOT_STARTED",
	52:  "SERVICE_ERROR",
	60:  "STORAGE_UNAVAILABLE",
	61:  "STORAGE_NOT_STARTED",
	62:  "STORAGE_ERROR",
	110: "NETWORK_ERROR",
	111: "NETWORK_TIMEOUT",
	112: "NETWORK_CONNECTION_REFUSED",
	113: "NETWORK_INVALID_RESPONSE",
	114: "NETWORK_PEER_MALICIOUS",
	120: "SYNC_ABORT",
	121: "SYNC_RESTART",
	122: "SYNC_APPLY_PENALTY_AND_RESTART",
	123: "SYNC_APPLY_PENALTY_AND_ABORT",
	124: "SYNC_BLOCK_PROCESSING",
	125: "SYNC_IN_PROGRESS",
}

// Enum returns the symbolic name of the code.
func (x ERR) Enum() string {
	if name, ok := ERR_name[int32(x)]; ok {
		return name
	}

	return strconv.Itoa(int(x))
}

func (x ERR) String() string {
	return x.Enum()
}
