package errors

var (
	ErrUnknown             = New(ERR_UNKNOWN, "unknown error")
	ErrInvalidArgument     = New(ERR_INVALID_ARGUMENT, "invalid argument")
	ErrThresholdExceeded   = New(ERR_THRESHOLD_EXCEEDED, "threshold exceeded")
	ErrNotFound            = New(ERR_NOT_FOUND, "not found")
	ErrProcessing          = New(ERR_PROCESSING, "error processing")
	ErrConfiguration       = New(ERR_CONFIGURATION, "configuration error")
	ErrContextCanceled     = New(ERR_CONTEXT_CANCELED, "context canceled")
	ErrError               = New(ERR_ERROR, "generic error")
	ErrBlockNotFound       = New(ERR_BLOCK_NOT_FOUND, "block not found")
	ErrBlockInvalid        = New(ERR_BLOCK_INVALID, "block invalid")
	ErrBlockExists         = New(ERR_BLOCK_EXISTS, "block exists")
	ErrTxNotFound          = New(ERR_TX_NOT_FOUND, "tx not found")
	ErrTxInvalid           = New(ERR_TX_INVALID, "tx invalid")
	ErrTxAlreadyExists     = New(ERR_TX_ALREADY_EXISTS, "tx already exists")
	ErrCertNotFound        = New(ERR_CERT_NOT_FOUND, "certificate not found")
	ErrCertInvalid         = New(ERR_CERT_INVALID, "certificate invalid")
	ErrCertAlreadyExists   = New(ERR_CERT_ALREADY_EXISTS, "certificate already exists")
	ErrCertOrder           = New(ERR_CERT_ORDER, "certificate ordering violated")
	ErrSidechainNotFound   = New(ERR_SIDECHAIN_NOT_FOUND, "sidechain not found")
	ErrSidechainExists     = New(ERR_SIDECHAIN_EXISTS, "sidechain already exists")
	ErrRoots               = New(ERR_ROOTS, "commitment roots error")
	ErrServiceUnavailable  = New(ERR_SERVICE_UNAVAILABLE, "service unavailable")
	ErrServiceNotStarted   = New(ERR_SERVICE_NOT_STARTED, "service not started")
	ErrServiceError        = New(ERR_SERVICE_ERROR, "service error")
	ErrStorageUnavailable  = New(ERR_STORAGE_UNAVAILABLE, "storage unavailable")
	ErrStorageError        = New(ERR_STORAGE_ERROR, "storage error")
)

// errors initialization functions

func NewUnknownError(message string, params ...interface{}) error {
	return New(ERR_UNKNOWN, message, params...)
}
func NewInvalidArgumentError(message string, params ...interface{}) error {
	return New(ERR_INVALID_ARGUMENT, message, params...)
}
func NewThresholdExceededError(message string, params ...interface{}) error {
	return New(ERR_THRESHOLD_EXCEEDED, message, params...)
}
func NewNotFoundError(message string, params ...interface{}) error {
	return New(ERR_NOT_FOUND, message, params...)
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
func NewError(message string, params ...interface{}) error {
	return New(ERR_ERROR, message, params...)
}
func NewBlockNotFoundError(message string, params ...interface{}) error {
	return New(ERR_BLOCK_NOT_FOUND, message, params...)
}
func NewBlockInvalidError(message string, params ...interface{}) error {
	return New(ERR_BLOCK_INVALID, message, params...)
}
func NewBlockExistsError(message string, params ...interface{}) error {
	return New(ERR_BLOCK_EXISTS, message, params...)
}
func NewTxNotFoundError(message string, params ...interface{}) error {
	return New(ERR_TX_NOT_FOUND, message, params...)
}
func NewTxInvalidError(message string, params ...interface{}) error {
	return New(ERR_TX_INVALID, message, params...)
}
func NewTxAlreadyExistsError(message string, params ...interface{}) error {
	return New(ERR_TX_ALREADY_EXISTS, message, params...)
}
func NewCertNotFoundError(message string, params ...interface{}) error {
	return New(ERR_CERT_NOT_FOUND, message, params...)
}
func NewCertInvalidError(message string, params ...interface{}) error {
	return New(ERR_CERT_INVALID, message, params...)
}
func NewCertAlreadyExistsError(message string, params ...interface{}) error {
	return New(ERR_CERT_ALREADY_EXISTS, message, params...)
}
func NewCertOrderError(message string, params ...interface{}) error {
	return New(ERR_CERT_ORDER, message, params...)
}
func NewSidechainNotFoundError(message string, params ...interface{}) error {
	return New(ERR_SIDECHAIN_NOT_FOUND, message, params...)
}
func NewSidechainExistsError(message string, params ...interface{}) error {
	return New(ERR_SIDECHAIN_EXISTS, message, params...)
}
func NewRootsError(message string, params ...interface{}) error {
	return New(ERR_ROOTS, message, params...)
}
func NewServiceUnavailableError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_UNAVAILABLE, message, params...)
}
func NewServiceNotStartedError(message string, params ...interface{}) error {
	return New(ERR_SERVICE_NOT_STARTED, message, params...)
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
