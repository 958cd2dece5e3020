package rpc

import (
	"fmt"

	"github.com/horizenofficial/sctemplate/errors"
)

// JSON-RPC error codes, as used by bitcoind.
const (
	ErrRPCMisc             = -1
	ErrRPCInvalidParameter = -8
	ErrRPCNotFound         = -5
	ErrRPCDecodeHexString  = -22
	ErrRPCVerify           = -25
	ErrRPCVerifyRejected   = -26
	ErrRPCParse            = -32700
	ErrRPCInvalidRequest   = -32600
	ErrRPCMethodNotFound   = -32601
	ErrRPCInvalidParams    = -32602
)

// RPCError is the error object of a JSON-RPC response.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

func NewRPCError(code int, message string, args ...interface{}) *RPCError {
	if len(args) > 0 {
		message = fmt.Sprintf(message, args...)
	}

	return &RPCError{Code: code, Message: message}
}

func rpcDecodeHexError(field string, err error) *RPCError {
	return NewRPCError(ErrRPCDecodeHexString, "%s decode failed: %v", field, err)
}

func rpcInvalidParamsError(format string, args ...interface{}) *RPCError {
	return NewRPCError(ErrRPCInvalidParameter, format, args...)
}

// toRPCError maps a service error onto a JSON-RPC error. The outermost error
// code decides.
func toRPCError(err error) *RPCError {
	if err == nil {
		return nil
	}

	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}

	switch errors.CodeOf(err) {
	case errors.ERR_INVALID_ARGUMENT:
		return NewRPCError(ErrRPCInvalidParameter, err.Error())
	case errors.ERR_NOT_FOUND, errors.ERR_BLOCK_NOT_FOUND, errors.ERR_TX_NOT_FOUND,
		errors.ERR_CERT_NOT_FOUND, errors.ERR_SIDECHAIN_NOT_FOUND:
		return NewRPCError(ErrRPCNotFound, err.Error())
	case errors.ERR_TX_INVALID, errors.ERR_CERT_INVALID, errors.ERR_BLOCK_INVALID, errors.ERR_THRESHOLD_EXCEEDED:
		return NewRPCError(ErrRPCVerifyRejected, err.Error())
	case errors.ERR_TX_ALREADY_EXISTS, errors.ERR_CERT_ALREADY_EXISTS, errors.ERR_BLOCK_EXISTS, errors.ERR_SIDECHAIN_EXISTS:
		return NewRPCError(ErrRPCVerify, err.Error())
	default:
		return NewRPCError(ErrRPCMisc, err.Error())
	}
}
