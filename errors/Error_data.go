package errors

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// ErrDataI is an interface for error data that can be set, retrieved, and encoded.
type ErrDataI interface {
	EncodeErrorData() []byte
	Error() string
	GetData(key string) interface{}
	SetData(key string, value interface{})
}

// ErrData is a generic key/value payload attached to an Error.
type ErrData map[string]interface{}

func (e *ErrData) Error() string {
	return fmt.Sprintf(" %v", *e)
}

func (e *ErrData) SetData(key string, value interface{}) {
	if e == nil {
		return
	}

	if *e == nil {
		*e = ErrData{}
	}

	(*e)[key] = value
}

func (e *ErrData) GetData(key string) interface{} {
	if e == nil {
		return nil
	}

	return (*e)[key]
}

// EncodeErrorData encodes the payload as JSON, returning an empty slice on failure.
func (e *ErrData) EncodeErrorData() []byte {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(e)
	if err != nil {
		return []byte{}
	}

	return data
}

// DecodeErrorData is the inverse of EncodeErrorData.
func DecodeErrorData(dataBytes []byte) (ErrDataI, error) {
	errData := &ErrData{}

	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(dataBytes, errData); err != nil {
		return errData, err
	}

	return errData, nil
}
