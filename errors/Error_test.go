package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_NewCustomError(t *testing.T) {
	err := New(ERR_NOT_FOUND, "resource not found")
	require.NotNil(t, err)
	require.Equal(t, ERR_NOT_FOUND, err.Code())
	require.Equal(t, "resource not found", err.Message())

	secondErr := New(ERR_INVALID_ARGUMENT, "[GetBlockTemplate][%s] failed to read params", "_test_string_", err)
	thirdErr := New(ERR_CERT_ORDER, "[OrderCertificates][%s] duplicate key", "_test_string_", secondErr)
	anotherErr := New(ERR_CERT_ORDER, "another ordering error")
	fourthErr := New(ERR_SERVICE_ERROR, "older error: ", thirdErr)
	fifthErr := New(ERR_BLOCK_INVALID, "block rejected", fourthErr)

	require.True(t, anotherErr.Is(thirdErr))
	require.True(t, fourthErr.Is(New(ERR_CERT_ORDER, "")))
	require.True(t, fourthErr.Is(ErrCertOrder))

	require.True(t, fourthErr.Is(err))
	require.True(t, fifthErr.Is(thirdErr))
	require.True(t, fifthErr.Is(err))

	require.False(t, anotherErr.Is(fourthErr))
	require.False(t, fifthErr.Is(ErrBlockNotFound))
}

func Test_FormatParams(t *testing.T) {
	err := New(ERR_PROCESSING, "built %d transactions for height %d", 3, 101)
	assert.Equal(t, "built 3 transactions for height 101", err.Message())
	assert.Nil(t, err.WrappedErr())

	wrapped := New(ERR_PROCESSING, "failed for %s", "scid", fmt.Errorf("boom"))
	assert.Equal(t, "failed for scid", wrapped.Message())
	require.NotNil(t, wrapped.WrappedErr())
	assert.Equal(t, "boom", wrapped.WrappedErr().Error())
}

func Test_FmtErrorCustomError(t *testing.T) {
	err := New(ERR_NOT_FOUND, "resource not found")

	fmtError := fmt.Errorf("error: %w", err)
	require.NotNil(t, fmtError)

	// the std wrapper still unwraps to the coded error
	require.True(t, errors.Is(fmtError, ErrNotFound))

	secondErr := New(ERR_INVALID_ARGUMENT, "failed: ", fmtError)
	require.True(t, Is(secondErr, ErrNotFound))
	require.True(t, Is(secondErr, ErrInvalidArgument))
	require.False(t, Is(secondErr, ErrCertOrder))
}

func Test_InvalidCode(t *testing.T) {
	err := New(ERR(9999), "whatever")
	assert.Equal(t, "invalid error code", err.Message())
	assert.Equal(t, "INVALID", err.Code().String())
}

func Test_As(t *testing.T) {
	inner := New(ERR_ROOTS, "roots failed")
	outer := fmt.Errorf("wrapped: %w", New(ERR_SERVICE_ERROR, "service", inner))

	var tErr *Error
	require.True(t, As(outer, &tErr))
	assert.Equal(t, ERR_SERVICE_ERROR, tErr.Code())

	assert.Equal(t, ERR_SERVICE_ERROR, CodeOf(outer))
	assert.Equal(t, ERR_UNKNOWN, CodeOf(fmt.Errorf("plain")))
}

func Test_ErrData(t *testing.T) {
	err := New(ERR_CERT_ORDER, "duplicate ordering key")
	err.SetData("scid", "abcd")
	err.SetData("epoch", 3)

	assert.Equal(t, "abcd", err.GetData("scid"))
	assert.Equal(t, 3, err.GetData("epoch"))
	assert.Contains(t, err.Error(), "scid")

	decoded, decodeErr := DecodeErrorData(err.Data().EncodeErrorData())
	require.NoError(t, decodeErr)
	assert.Equal(t, "abcd", decoded.GetData("scid"))

	var data *ErrData
	require.True(t, AsData(New(ERR_ERROR, "outer", err), &data))
}

func Test_Join(t *testing.T) {
	assert.Nil(t, Join(nil, nil))

	joined := Join(fmt.Errorf("a"), nil, fmt.Errorf("b"))
	require.Error(t, joined)
	assert.Equal(t, "a, b", joined.Error())
}

func Test_NilError(t *testing.T) {
	var err *Error

	assert.Equal(t, "<nil>", err.Error())
	assert.Equal(t, ERR_UNKNOWN, err.Code())
	assert.False(t, err.Is(ErrUnknown))
	assert.Nil(t, err.Unwrap())
}
