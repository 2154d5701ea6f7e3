package errors

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

// ErrData holds key/value context attached to an *Error, such as the peer a
// sync error blames.
type ErrData map[string]interface{}

func (e *ErrData) Error() string {
	return fmt.Sprintf(" %v", *e)
}

func (e *ErrData) SetData(key string, value interface{}) {
	if e == nil {
		return
	}

	(*e)[key] = value
}

func (e *ErrData) GetData(key string) interface{} {
	if e == nil {
		return nil
	}

	return (*e)[key]
}

// EncodeErrorData returns the JSON encoding of the data, or an empty slice when
// a value cannot be encoded.
func (e *ErrData) EncodeErrorData() []byte {
	data, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(e)
	if err != nil {
		return []byte{}
	}

	return data
}

// DecodeErrorData decodes data produced by EncodeErrorData.
func DecodeErrorData(dataBytes []byte) (*ErrData, error) {
	errData := &ErrData{}

	if err := jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(dataBytes, errData); err != nil {
		return nil, NewInvalidArgumentError("could not decode error data", err)
	}

	return errData, nil
}
