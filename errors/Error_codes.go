package errors

// ERR is the numeric category of an Error.
type ERR int32

const (
	ERR_UNKNOWN             ERR = 0
	ERR_INVALID_ARGUMENT    ERR = 1
	ERR_THRESHOLD_EXCEEDED  ERR = 2
	ERR_NOT_FOUND           ERR = 3
	ERR_PROCESSING          ERR = 4
	ERR_CONFIGURATION       ERR = 5
	ERR_CONTEXT_CANCELED    ERR = 6
	ERR_ERROR               ERR = 9
	ERR_BLOCK_NOT_FOUND     ERR = 10
	ERR_BLOCK_INVALID       ERR = 11
	ERR_BLOCK_EXISTS        ERR = 12
	ERR_TX_NOT_FOUND        ERR = 30
	ERR_TX_INVALID          ERR = 31
	ERR_TX_ALREADY_EXISTS   ERR = 33
	ERR_CERT_NOT_FOUND      ERR = 40
	ERR_CERT_INVALID        ERR = 41
	ERR_CERT_ALREADY_EXISTS ERR = 42
	ERR_CERT_ORDER          ERR = 43
	ERR_SIDECHAIN_NOT_FOUND ERR = 45
	ERR_SIDECHAIN_EXISTS    ERR = 46
	ERR_ROOTS               ERR = 48
	ERR_SERVICE_UNAVAILABLE ERR = 50
	ERR_SERVICE_NOT_STARTED ERR = 51
	ERR_SERVICE_ERROR       ERR = 52
	ERR_STORAGE_UNAVAILABLE ERR = 60
	ERR_STORAGE_ERROR       ERR = 62
)

var ERR_name = map[int32]string{
	0:  "UNKNOWN",
	1:  "INVALID_ARGUMENT",
	2:  "THRESHOLD_EXCEEDED",
	3:  "NOT_FOUND",
	4:  "PROCESSING",
	5:  "CONFIGURATION",
	6:  "CONTEXT_CANCELED",
	9:  "ERROR",
	10: "BLOCK_NOT_FOUND",
	11: "BLOCK_INVALID",
	12: "BLOCK_EXISTS",
	30: "TX_NOT_FOUND",
	31: "TX_INVALID",
	33: "TX_ALREADY_EXISTS",
	40: "CERT_NOT_FOUND",
	41: "CERT_INVALID",
	42: "CERT_ALREADY_EXISTS",
	43: "CERT_ORDER",
	45: "SIDECHAIN_NOT_FOUND",
	46: "SIDECHAIN_EXISTS",
	48: "ROOTS",
	50: "SERVICE_UNAVAILABLE",
	51: "SERVICE_NOT_STARTED",
	52: "SERVICE_ERROR",
	60: "STORAGE_UNAVAILABLE",
	62: "STORAGE_ERROR",
}

func (x ERR) String() string {
	if name, ok := ERR_name[int32(x)]; ok {
		return name
	}

	return "INVALID"
}
