package protocol

import (
	"encoding/json"
	"fmt"
)

// Canonicalize returns the deterministic JSON encoding of a params map:
// object keys sorted lexicographically, no insignificant whitespace. This is
// the byte sequence the daemon recomputes when verifying the signature, so
// the result must be embedded in the request unchanged rather than
// re-serialized. encoding/json already sorts map keys and emits compact
// output, which includes nested objects and arrays.
//
// A nil map canonicalizes to "{}" so that commands without parameters still
// sign a stable byte sequence.
func Canonicalize(params map[string]any) (json.RawMessage, error) {
	if params == nil {
		params = map[string]any{}
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, &ProtoError{Code: CodeInvalidJSON, Message: fmt.Sprintf("failed to canonicalize params: %v", err)}
	}
	return data, nil
}
