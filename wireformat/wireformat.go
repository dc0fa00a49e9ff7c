// Package wireformat defines the JSON wire format exchanged with hosts that
// only see bytes, such as WebAssembly guests. These types define the call
// ABI and must remain backward compatible.
package wireformat

import (
	"encoding/json"
	"fmt"

	"github.com/python-project-templates/nativemod/domain/entities"
)

// ErrorDetail is an alias so callers only need this package to decode errors.
type ErrorDetail = entities.ErrorDetail

// CallResponse is the envelope returned for every call. Exactly one of Value
// or Error is set.
type CallResponse struct {
	Error *ErrorDetail    `json:"error,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

// EncodeArgs encodes positional arguments as a JSON array.
func EncodeArgs(args ...any) ([]byte, error) {
	raw := make([]json.RawMessage, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		if err != nil {
			return nil, fmt.Errorf("encode argument %d: %w", i, err)
		}
		raw[i] = b
	}
	return json.Marshal(raw)
}

// DecodeArgs decodes a JSON array of positional arguments. An empty payload
// means no arguments.
func DecodeArgs(payload []byte) ([]json.RawMessage, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	var args []json.RawMessage
	if err := json.Unmarshal(payload, &args); err != nil {
		return nil, fmt.Errorf("arguments must be a JSON array: %w", err)
	}
	return args, nil
}

// EncodeResponse builds the envelope for a call outcome. A nil value with no
// error is encoded as JSON null.
func EncodeResponse(value json.RawMessage, callErr *ErrorDetail) []byte {
	resp := CallResponse{Error: callErr}
	if callErr == nil {
		if len(value) == 0 {
			value = json.RawMessage("null")
		}
		resp.Value = value
	}
	data, err := json.Marshal(resp)
	if err != nil {
		// Value was not valid JSON; report it instead of trapping.
		data, _ = json.Marshal(CallResponse{Error: entities.NewErrorDetail(
			entities.ErrorTypeInternal, "invalid result encoding: "+err.Error())})
	}
	return data
}

// DecodeResponse decodes an envelope. A decoded error envelope is returned as
// the error value.
func DecodeResponse(data []byte) (json.RawMessage, error) {
	var resp CallResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode call response: %w", err)
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return resp.Value, nil
}
