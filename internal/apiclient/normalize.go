package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NormalizeToArray is the single place where the backend's list shape is
// coerced: an array is returned element by element, a single object becomes
// a one element slice, and null or an empty body becomes an empty slice.
func NormalizeToArray(raw json.RawMessage) []json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []json.RawMessage{}
	}

	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err == nil {
			out := make([]json.RawMessage, 0, len(items))
			for _, item := range items {
				if !bytes.Equal(bytes.TrimSpace(item), []byte("null")) {
					out = append(out, item)
				}
			}
			return out
		}
	}

	return []json.RawMessage{trimmed}
}

// DecodeList decodes data as a list of T after NormalizeToArray.
func DecodeList[T any](raw json.RawMessage) ([]T, error) {
	items := NormalizeToArray(raw)
	out := make([]T, 0, len(items))
	for i, item := range items {
		var v T
		if err := json.Unmarshal(item, &v); err != nil {
			return nil, fmt.Errorf("failed to decode item %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}
