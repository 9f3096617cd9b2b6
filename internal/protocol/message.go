package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ProtoError carries structured context for observability.
type ProtoError struct {
	Code    string // e.g. "INVALID_JSON", "OVERSIZED", "TRUNCATED"
	Message string // human-readable detail
	Err     error  // underlying cause, if any
}

func (e *ProtoError) Error() string {
	return fmt.Sprintf("protocol error [%s]: %s", e.Code, e.Message)
}

func (e *ProtoError) Unwrap() error { return e.Err }

// Error codes produced by this package.
const (
	CodeInvalidJSON      = "INVALID_JSON"
	CodeOversized        = "OVERSIZED"
	CodeTruncated        = "TRUNCATED"
	CodeConnectionClosed = "CONNECTION_CLOSED"
)

// Request is the signed envelope for one daemon command. Params holds the
// canonical byte encoding produced by Canonicalize; those exact bytes are
// covered by Signature and must be transmitted unmodified.
type Request struct {
	Command   string          `json:"command"`
	Params    json.RawMessage `json:"params"`
	Timestamp int64           `json:"timestamp"`
	Nonce     string          `json:"nonce"`
	Signature string          `json:"signature"`
}

// Response is the daemon's reply envelope.
type Response struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// ResponseError is the daemon-reported failure. The daemon may send either a
// bare string or an object with a message and optional code; both shapes are
// normalized here at unmarshal time so call sites see a single form.
type ResponseError struct {
	Message string
	Code    string
}

func (e *ResponseError) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return &ProtoError{Code: CodeInvalidJSON, Message: fmt.Sprintf("invalid error string: %v", err)}
		}
		e.Message = s
		return nil
	}

	var obj struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return &ProtoError{Code: CodeInvalidJSON, Message: fmt.Sprintf("invalid error object: %v", err)}
	}
	e.Message = obj.Message
	e.Code = obj.Code
	return nil
}

func (e *ResponseError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Code)
	}
	return e.Message
}

// ParseResponse decodes a response frame body.
func ParseResponse(data []byte) (*Response, error) {
	var res Response
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, &ProtoError{Code: CodeInvalidJSON, Message: fmt.Sprintf("invalid response JSON: %v", err)}
	}
	return &res, nil
}

// MarshalRequest encodes a request frame body.
func MarshalRequest(req *Request) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, &ProtoError{Code: CodeInvalidJSON, Message: fmt.Sprintf("failed to marshal request: %v", err)}
	}
	return data, nil
}
